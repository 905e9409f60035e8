// Package id generates stub identifiers.
//
// Stub IDs are ULIDs: 26-character, time-sortable, collision-free.
// Time-sortability gives listings and tie-breaks a stable order for
// free.
package id

import (
	"crypto/rand"
	"sync"
	"time"
)

// ulidEncoding is Crockford's Base32 (I, L, O, U excluded to avoid
// ambiguity).
const ulidEncoding = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	ulidMu      sync.Mutex
	ulidLastMs  int64
	ulidCounter uint16
)

// New generates a new ULID.
// Format: 10 characters of millisecond timestamp + 16 of randomness.
func New() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	now := time.Now().UnixMilli()
	if now == ulidLastMs {
		ulidCounter++
		if ulidCounter == 0 {
			for now == ulidLastMs {
				time.Sleep(time.Millisecond)
				now = time.Now().UnixMilli()
			}
			ulidLastMs = now
		}
	} else {
		ulidLastMs = now
		ulidCounter = 0
	}

	return encode(now, ulidCounter)
}

// Valid reports whether s has the shape of a ULID.
func Valid(s string) bool {
	if len(s) != 26 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if decodeChar(s[i]) < 0 {
			return false
		}
	}
	return true
}

func encode(ms int64, counter uint16) string {
	ulid := make([]byte, 26)
	for i := 9; i >= 0; i-- {
		ulid[i] = ulidEncoding[ms&0x1F]
		ms >>= 5
	}

	random := make([]byte, 10)
	_, _ = rand.Read(random)
	// Mix the counter into the first random bytes so IDs minted in the
	// same millisecond stay distinct.
	random[0] ^= byte(counter >> 8)
	random[1] ^= byte(counter)

	// 80 random bits pack into 16 base32 characters.
	var acc uint32
	bits := 0
	pos := 10
	for _, b := range random {
		acc = acc<<8 | uint32(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			ulid[pos] = ulidEncoding[(acc>>uint(bits))&0x1F]
			pos++
		}
	}
	return string(ulid)
}

func decodeChar(c byte) int {
	for i := 0; i < len(ulidEncoding); i++ {
		if ulidEncoding[i] == c {
			return i
		}
	}
	return -1
}
