// Package stub provides the unified Stub type shared by every protocol
// family (REST, SOAP, Kafka, ActiveMQ, IBM MQ, TIBCO, file transfer),
// together with the request/result shapes the matching engine consumes.
package stub

import (
	"time"
)

// Protocol identifies the protocol family a stub responds on.
type Protocol string

// Supported protocol families.
const (
	ProtocolREST     Protocol = "rest"
	ProtocolSOAP     Protocol = "soap"
	ProtocolKafka    Protocol = "kafka"
	ProtocolActiveMQ Protocol = "activemq"
	ProtocolIBMMQ    Protocol = "ibmmq"
	ProtocolTIBCO    Protocol = "tibco"
	ProtocolFile     Protocol = "file"
)

// Capabilities describes which matching features a protocol family
// supports. The matcher and validator consult this instead of switching
// on the protocol directly, so the core stays protocol-agnostic.
type Capabilities struct {
	// Selector indicates property-selector filtering is available
	// (JMS-style destinations carry message properties).
	Selector bool

	// ContentMatch indicates payload predicates are available.
	ContentMatch bool

	// ReplyDestination indicates request/reply semantics where the
	// response may name an explicit reply destination.
	ReplyDestination bool
}

// Capabilities returns the capability set for the protocol.
// Unknown protocols report no capabilities; validation rejects them
// before they reach the matcher.
func (p Protocol) Capabilities() Capabilities {
	switch p {
	case ProtocolKafka, ProtocolActiveMQ, ProtocolIBMMQ, ProtocolTIBCO:
		return Capabilities{Selector: true, ContentMatch: true, ReplyDestination: true}
	case ProtocolREST, ProtocolSOAP:
		return Capabilities{ContentMatch: true}
	case ProtocolFile:
		return Capabilities{ContentMatch: true}
	default:
		return Capabilities{}
	}
}

// Valid reports whether p is a known protocol family.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolREST, ProtocolSOAP, ProtocolKafka, ProtocolActiveMQ,
		ProtocolIBMMQ, ProtocolTIBCO, ProtocolFile:
		return true
	}
	return false
}

// Destination is the composite addressing unit a stub responds on:
// a kind (queue, topic, path, directory) plus a name. Many stubs may
// share a destination; matching rules disambiguate between them.
type Destination struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
}

// Key returns the canonical string form used for store indexing and
// per-destination write serialization.
func (d Destination) Key() string {
	return d.Type + "/" + d.Name
}

// IsZero reports whether the destination is unset.
func (d Destination) IsZero() bool {
	return d.Type == "" && d.Name == ""
}

// MatchType is the kind of payload predicate a stub applies.
type MatchType string

// Content match types. NONE matches any payload. JSONPATH and XPATH
// extract a value from structured payloads and compare it against the
// pattern.
const (
	MatchNone     MatchType = "none"
	MatchContains MatchType = "contains"
	MatchExact    MatchType = "exact"
	MatchRegex    MatchType = "regex"
	MatchJSONPath MatchType = "jsonpath"
	MatchXPath    MatchType = "xpath"
)

// ContentMatch is the payload predicate attached to a stub.
type ContentMatch struct {
	// Type selects the predicate. An empty type is treated as "none".
	Type MatchType `json:"type" yaml:"type"`

	// Pattern is the value the predicate compares against: a substring
	// for "contains", the full payload for "exact", a regular
	// expression for "regex", or the expected extracted value for
	// "jsonpath" and "xpath".
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Path is the JSONPath or XPath expression for the extraction
	// types. Ignored by the other types.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// CaseSensitive controls string comparison for contains, exact,
	// regex, jsonpath and xpath predicates.
	CaseSensitive bool `json:"caseSensitive,omitempty" yaml:"caseSensitive,omitempty"`
}

// Kind returns the effective match type, mapping the empty value to
// MatchNone so callers never branch on "".
func (c *ContentMatch) Kind() MatchType {
	if c == nil || c.Type == "" {
		return MatchNone
	}
	return c.Type
}

// Header is a single response header. Headers are kept as an ordered
// slice rather than a map so they are emitted in the order the stub
// author wrote them.
type Header struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// ResponseSpec describes the canned response a stub produces.
type ResponseSpec struct {
	// ContentType is the media type of the response content.
	ContentType string `json:"contentType,omitempty" yaml:"contentType,omitempty"`

	// Content is the response body. It may contain ${name}
	// placeholders resolved against the request properties at render
	// time; unresolved placeholders are left verbatim.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	// Headers are emitted in order.
	Headers []Header `json:"headers,omitempty" yaml:"headers,omitempty"`

	// ReplyDestination overrides the protocol's default reply-to for
	// request/reply protocols. Only valid when the protocol's
	// capability set allows it.
	ReplyDestination *Destination `json:"replyDestination,omitempty" yaml:"replyDestination,omitempty"`

	// LatencyMs delays delivery of the response by the given number of
	// milliseconds.
	LatencyMs int `json:"latencyMs,omitempty" yaml:"latencyMs,omitempty"`
}

// Stub is a stored rule mapping a destination and matching criteria to
// a canned response.
type Stub struct {
	// ID is assigned on creation and immutable.
	ID string `json:"id" yaml:"id"`

	// OwnerID identifies the creating user, used for scoping queries.
	OwnerID string `json:"ownerId,omitempty" yaml:"ownerId,omitempty"`

	// Protocol selects the protocol family and its capability set.
	Protocol Protocol `json:"protocol" yaml:"protocol"`

	// Name is a human-readable label.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description is an optional longer description.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Destination is the addressing unit the stub responds on.
	Destination Destination `json:"destination" yaml:"destination"`

	// Selector is an optional boolean expression over message
	// properties (JMS selector grammar). Empty matches everything.
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`

	// ContentMatch is the payload predicate. Nil matches any payload.
	ContentMatch *ContentMatch `json:"contentMatch,omitempty" yaml:"contentMatch,omitempty"`

	// Priority disambiguates stubs eligible for the same message;
	// higher wins. Strictly unique per destination among non-archived
	// stubs, enforced at write time.
	Priority int `json:"priority" yaml:"priority"`

	// Status governs visibility to the matcher; only active stubs
	// participate in matching.
	Status Status `json:"status" yaml:"status"`

	// Response is the canned response.
	Response ResponseSpec `json:"response" yaml:"response"`

	// CreatedAt and UpdatedAt are set by the write path. UpdatedAt is
	// the first tie-break after priority.
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Clone returns a deep copy so callers can mutate the result without
// affecting stored state.
func (s *Stub) Clone() *Stub {
	if s == nil {
		return nil
	}
	c := *s
	if s.ContentMatch != nil {
		cm := *s.ContentMatch
		c.ContentMatch = &cm
	}
	if s.Response.Headers != nil {
		c.Response.Headers = make([]Header, len(s.Response.Headers))
		copy(c.Response.Headers, s.Response.Headers)
	}
	if s.Response.ReplyDestination != nil {
		rd := *s.Response.ReplyDestination
		c.Response.ReplyDestination = &rd
	}
	return &c
}

// MatchRequest is the normalized form of one inbound message, produced
// by a protocol adapter. It is owned by the call that created it and
// discarded after resolution.
type MatchRequest struct {
	// Destination the message arrived on.
	Destination Destination `json:"destination"`

	// Properties are the message properties the selector evaluates
	// against (JMS properties, HTTP headers, Kafka record headers).
	Properties map[string]any `json:"properties,omitempty"`

	// Payload is the raw message body.
	Payload []byte `json:"payload,omitempty"`

	// Timestamp is when the adapter received the message.
	Timestamp time.Time `json:"timestamp"`
}

// RenderedResponse is the materialized outbound response for a matched
// stub.
type RenderedResponse struct {
	// ContentType and Content are copied from the stub's response,
	// with ${name} placeholders substituted from the request
	// properties.
	ContentType string `json:"contentType,omitempty"`
	Content     string `json:"content,omitempty"`

	// Headers preserve the stub author's ordering.
	Headers []Header `json:"headers,omitempty"`

	// Delay is the scheduled latency before delivery.
	Delay time.Duration `json:"-"`

	// DelayMs mirrors Delay for wire transport.
	DelayMs int `json:"delayMs,omitempty"`

	// ReplyTo is the explicit reply destination, if the stub set one.
	ReplyTo *Destination `json:"replyTo,omitempty"`

	// UseDefaultReply tells the adapter to fall back to the
	// protocol's own reply-to mechanism. Only the adapter knows what
	// that default is, so the engine signals it rather than resolving
	// it.
	UseDefaultReply bool `json:"useDefaultReply,omitempty"`
}

// MatchResult is the outcome of resolving one MatchRequest. It is
// never persisted.
type MatchResult struct {
	// Matched is false when no active stub survived filtering.
	Matched bool `json:"matched"`

	// Stub is the winning stub, nil on no match.
	Stub *Stub `json:"stub,omitempty"`

	// Response is the rendered response, nil on no match.
	Response *RenderedResponse `json:"response,omitempty"`
}

// NoMatch is the canonical empty result.
func NoMatch() *MatchResult {
	return &MatchResult{}
}
