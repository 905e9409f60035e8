package matching

import (
	"regexp"
	"regexp/syntax"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/getstubd/stubd/pkg/stub"
)

// regexCacheSize bounds the compiled-pattern cache. Patterns are
// re-evaluated per inbound message, so compilation must be amortized.
const regexCacheSize = 512

var regexCache, _ = lru.New[string, *regexp.Regexp](regexCacheSize)

// Match reports whether the payload satisfies the stub's content
// predicate. A nil or none-typed predicate always passes.
func Match(cm *stub.ContentMatch, payload []byte) bool {
	switch cm.Kind() {
	case stub.MatchNone:
		return true
	case stub.MatchContains:
		return matchContains(cm.Pattern, payload, cm.CaseSensitive)
	case stub.MatchExact:
		return matchExact(cm.Pattern, payload, cm.CaseSensitive)
	case stub.MatchRegex:
		return matchRegex(cm.Pattern, payload, cm.CaseSensitive)
	case stub.MatchJSONPath:
		return matchJSONPath(cm.Path, cm.Pattern, payload, cm.CaseSensitive)
	case stub.MatchXPath:
		return matchXPath(cm.Path, cm.Pattern, payload, cm.CaseSensitive)
	default:
		return false
	}
}

func matchContains(pattern string, payload []byte, caseSensitive bool) bool {
	body := string(payload)
	if caseSensitive {
		return strings.Contains(body, pattern)
	}
	return strings.Contains(strings.ToLower(body), strings.ToLower(pattern))
}

func matchExact(pattern string, payload []byte, caseSensitive bool) bool {
	body := string(payload)
	if caseSensitive {
		return body == pattern
	}
	return strings.EqualFold(body, pattern)
}

// matchRegex evaluates the pattern against the whole payload. Patterns
// without anchors are implicitly anchored at both ends, so a stub
// pattern describes the entire payload unless its author anchored it
// deliberately.
func matchRegex(pattern string, payload []byte, caseSensitive bool) bool {
	re := compile(pattern, caseSensitive)
	if re == nil {
		return false
	}
	return re.Match(payload)
}

func compile(pattern string, caseSensitive bool) *regexp.Regexp {
	full := pattern
	if !hasAnchors(pattern) {
		full = `\A(?:` + pattern + `)\z`
	}
	if !caseSensitive {
		full = "(?i)" + full
	}
	if re, ok := regexCache.Get(full); ok {
		return re
	}
	re, err := regexp.Compile(full)
	if err != nil {
		return nil
	}
	regexCache.Add(full, re)
	return re
}

// hasAnchors reports whether the pattern uses a real anchor operator.
// The parsed form is inspected rather than the raw text: a `^` inside
// a character class or an escaped `\$` is not an anchor.
func hasAnchors(pattern string) bool {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return false
	}
	return containsAnchor(re)
}

func containsAnchor(re *syntax.Regexp) bool {
	switch re.Op {
	case syntax.OpBeginText, syntax.OpEndText, syntax.OpBeginLine, syntax.OpEndLine:
		return true
	}
	for _, sub := range re.Sub {
		if containsAnchor(sub) {
			return true
		}
	}
	return false
}

func equalStrings(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}
