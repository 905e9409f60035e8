package stub

import (
	"fmt"
	"regexp"

	"github.com/beevik/etree"
	"github.com/ohler55/ojg/jp"

	"github.com/getstubd/stubd/pkg/selector"
)

// headerNameRegex validates header names (RFC 7230 token).
var headerNameRegex = regexp.MustCompile("^[A-Za-z0-9!#$%&'*+\\-.^_`|~]+$")

// Validate checks the stub for structural defects. Every error it
// returns is a *ValidationError; a stub that passes here is safe to
// hand to the matcher once it reaches active status.
func (s *Stub) Validate() error {
	if !s.Protocol.Valid() {
		return &ValidationError{Field: "protocol", Message: fmt.Sprintf("unknown protocol: %q", s.Protocol)}
	}
	if s.Destination.Type == "" {
		return &ValidationError{Field: "destination.type", Message: "destination type is required"}
	}
	if s.Destination.Name == "" {
		return &ValidationError{Field: "destination.name", Message: "destination name is required"}
	}
	if s.Priority < 0 {
		return &ValidationError{Field: "priority", Message: "priority must be non-negative"}
	}
	if s.Status != "" && !s.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status: %q", s.Status)}
	}

	caps := s.Protocol.Capabilities()

	if s.Selector != "" {
		if !caps.Selector {
			return &ValidationError{Field: "selector", Message: fmt.Sprintf("protocol %q does not support selectors", s.Protocol)}
		}
		if err := selector.Validate(s.Selector); err != nil {
			return &ValidationError{Field: "selector", Message: err.Error()}
		}
	}

	if err := s.validateContentMatch(caps); err != nil {
		return err
	}
	return s.validateResponse(caps)
}

func (s *Stub) validateContentMatch(caps Capabilities) error {
	cm := s.ContentMatch
	if cm == nil || cm.Kind() == MatchNone {
		return nil
	}
	if !caps.ContentMatch {
		return &ValidationError{Field: "contentMatch", Message: fmt.Sprintf("protocol %q does not support content matching", s.Protocol)}
	}

	switch cm.Kind() {
	case MatchContains, MatchExact:
		if cm.Pattern == "" {
			return &ValidationError{Field: "contentMatch.pattern", Message: "pattern is required"}
		}
	case MatchRegex:
		if cm.Pattern == "" {
			return &ValidationError{Field: "contentMatch.pattern", Message: "pattern is required"}
		}
		if _, err := regexp.Compile(cm.Pattern); err != nil {
			return &ValidationError{Field: "contentMatch.pattern", Message: fmt.Sprintf("invalid regex: %v", err)}
		}
	case MatchJSONPath:
		if cm.Path == "" {
			return &ValidationError{Field: "contentMatch.path", Message: "jsonpath expression is required"}
		}
		if _, err := jp.ParseString(cm.Path); err != nil {
			return &ValidationError{Field: "contentMatch.path", Message: fmt.Sprintf("invalid jsonpath: %v", err)}
		}
	case MatchXPath:
		if cm.Path == "" {
			return &ValidationError{Field: "contentMatch.path", Message: "xpath expression is required"}
		}
		if _, err := etree.CompilePath(cm.Path); err != nil {
			return &ValidationError{Field: "contentMatch.path", Message: fmt.Sprintf("invalid xpath: %v", err)}
		}
	default:
		return &ValidationError{Field: "contentMatch.type", Message: fmt.Sprintf("unknown content match type: %q", cm.Type)}
	}
	return nil
}

func (s *Stub) validateResponse(caps Capabilities) error {
	r := &s.Response
	if r.LatencyMs < 0 {
		return &ValidationError{Field: "response.latencyMs", Message: "latency must be non-negative"}
	}
	for i, h := range r.Headers {
		if !headerNameRegex.MatchString(h.Name) {
			return &ValidationError{
				Field:   fmt.Sprintf("response.headers[%d].name", i),
				Message: fmt.Sprintf("invalid header name: %q", h.Name),
			}
		}
	}
	if r.ReplyDestination != nil {
		if !caps.ReplyDestination {
			return &ValidationError{Field: "response.replyDestination", Message: fmt.Sprintf("protocol %q does not support reply destinations", s.Protocol)}
		}
		if r.ReplyDestination.Name == "" {
			return &ValidationError{Field: "response.replyDestination.name", Message: "reply destination name is required"}
		}
	}
	return nil
}
