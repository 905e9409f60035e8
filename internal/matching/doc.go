// Package matching implements the payload predicates stubs declare:
// substring, exact, regular-expression, JSONPath and XPath matching.
//
// Predicates are pure functions of the pattern and the payload. A
// pattern that fails to compile at match time is a non-match, never an
// error: write-time validation is where malformed patterns are
// rejected, and one bad stub must not break matching for the rest of
// its destination.
package matching
