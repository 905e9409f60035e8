package engine

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/getstubd/stubd/pkg/stub"
)

// placeholderRegex matches ${name} placeholders in response content.
var placeholderRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.\-]*)\}`)

// Resolver materializes the outbound response for a winning stub.
// Rendering is a pure function of the stub and the request properties.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Render copies the stub's response, substituting ${name} placeholders
// in the content from the request properties. Placeholders with no
// matching property are left verbatim; rendering never fails. For
// reply-capable protocols the result carries either the stub's
// explicit reply destination or the UseDefaultReply flag, since only
// the adapter knows the protocol's default reply-to mechanism.
func (r *Resolver) Render(st *stub.Stub, req *stub.MatchRequest) *stub.RenderedResponse {
	res := &stub.RenderedResponse{
		ContentType: st.Response.ContentType,
		Content:     substitute(st.Response.Content, req.Properties),
		Delay:       time.Duration(st.Response.LatencyMs) * time.Millisecond,
		DelayMs:     st.Response.LatencyMs,
	}
	if len(st.Response.Headers) > 0 {
		res.Headers = make([]stub.Header, len(st.Response.Headers))
		copy(res.Headers, st.Response.Headers)
	}
	if st.Protocol.Capabilities().ReplyDestination {
		if rd := st.Response.ReplyDestination; rd != nil {
			reply := *rd
			res.ReplyTo = &reply
		} else {
			res.UseDefaultReply = true
		}
	}
	return res
}

// Deliver waits out the response's scheduled latency before the
// adapter sends it. The wait is a timer, never a busy loop, and
// returns early if the request context is cancelled.
func (r *Resolver) Deliver(ctx context.Context, res *stub.RenderedResponse) error {
	if res.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(res.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// substitute resolves ${name} placeholders against the properties.
func substitute(content string, properties map[string]any) string {
	if len(properties) == 0 || !placeholderRegex.MatchString(content) {
		return content
	}
	return placeholderRegex.ReplaceAllStringFunc(content, func(match string) string {
		name := match[2 : len(match)-1]
		if v, ok := properties[name]; ok {
			return fmt.Sprintf("%v", v)
		}
		return match
	})
}
