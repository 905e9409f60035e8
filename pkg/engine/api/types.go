package api

import (
	"time"

	"github.com/getstubd/stubd/pkg/stub"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StubListResponse is returned by GET /stubs.
type StubListResponse struct {
	Stubs []*stub.Stub `json:"stubs"`
	Count int          `json:"count"`
}

// StatusUpdateRequest is the body of PATCH /stubs/{id}/status.
type StatusUpdateRequest struct {
	Status stub.Status `json:"status"`
}

// ErrorResponse is the uniform error body. MaxPriority is populated
// for priority conflicts so the caller can pick a higher value.
type ErrorResponse struct {
	Error       string `json:"error"`
	Code        string `json:"code"`
	MaxPriority *int   `json:"maxPriority,omitempty"`
}
