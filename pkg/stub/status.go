package stub

// Status is the lifecycle state of a stub.
type Status string

// Lifecycle states. Only active stubs are visible to the matcher; the
// others remain visible to administrative queries.
const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusArchived Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusInactive, StatusArchived:
		return true
	}
	return false
}

// Matchable reports whether stubs in this state participate in
// matching.
func (s Status) Matchable() bool {
	return s == StatusActive
}

// Archived stubs are historical: excluded from matching and from the
// priority invariant.
func (s Status) Archived() bool {
	return s == StatusArchived
}

// CanTransition reports whether a user-driven transition from s to
// next is allowed. Archived is terminal. Draft cannot be re-entered.
func (s Status) CanTransition(next Status) bool {
	if !s.Valid() || !next.Valid() || s == next {
		return false
	}
	switch s {
	case StatusDraft:
		return next == StatusActive || next == StatusArchived
	case StatusActive:
		return next == StatusInactive || next == StatusArchived
	case StatusInactive:
		return next == StatusActive || next == StatusArchived
	case StatusArchived:
		return false
	}
	return false
}
