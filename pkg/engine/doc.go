// Package engine implements the protocol-agnostic stub matching and
// response resolution core.
//
// The flow per inbound message: a protocol adapter normalizes the
// message into a stub.MatchRequest and calls Matcher.Resolve, which
// narrows the destination's active stubs through selector and content
// predicates, ranks survivors by priority, and renders the winner's
// response through the Resolver.
//
// Writes go through the Guard, which enforces the per-destination
// priority invariant: among non-archived stubs at one destination,
// priorities are strictly unique and a new write must exceed the
// current maximum. The check-then-persist sequence is serialized per
// destination with a keyed lock; writes to unrelated destinations
// proceed in parallel.
//
// The Lifecycle controller governs the user-driven status transitions
// (draft -> active <-> inactive, anything -> archived). The engine
// itself never transitions a stub.
package engine
