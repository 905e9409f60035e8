// Package api exposes the administrative HTTP surface: stub CRUD,
// status transitions, and a resolve endpoint protocol adapters can
// call with a normalized request.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/getstubd/stubd/pkg/engine"
	"github.com/getstubd/stubd/pkg/logging"
	"github.com/getstubd/stubd/pkg/stub"
)

// StubService is the interface the API needs from the engine.
// Implemented by *engine.Engine.
type StubService interface {
	Resolve(ctx context.Context, req *stub.MatchRequest) (*stub.MatchResult, error)
	CreateStub(ctx context.Context, st *stub.Stub) (*stub.Stub, error)
	UpdateStub(ctx context.Context, st *stub.Stub) (*stub.Stub, error)
	UpdateStatus(ctx context.Context, id string, next stub.Status) (*stub.Stub, error)
	GetStub(ctx context.Context, id string) (*stub.Stub, error)
	DeleteStub(ctx context.Context, id string) error
	ListStubs(ctx context.Context, filter engine.ListFilter) ([]*stub.Stub, error)
}

// Server is the administrative API server.
type Server struct {
	service    StubService
	httpServer *http.Server
	log        *slog.Logger
}

// NewServer creates an admin API server on the given port.
func NewServer(service StubService, port int) *Server {
	s := &Server{
		service: service,
		log:     logging.Nop(),
	}

	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequests)
	s.registerRoutes(r)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// SetLogger sets the logger.
func (s *Server) SetLogger(log *slog.Logger) {
	if log != nil {
		s.log = log
	}
}

func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Post("/resolve", s.handleResolve)
	r.Route("/stubs", func(r chi.Router) {
		r.Get("/", s.handleListStubs)
		r.Post("/", s.handleCreateStub)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetStub)
			r.Put("/", s.handleUpdateStub)
			r.Delete("/", s.handleDeleteStub)
			r.Patch("/status", s.handleUpdateStatus)
		})
	})
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info("admin API listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

type ctxKey string

const requestIDKey ctxKey = "request-id"

// requestID tags every request with a correlation id, echoed in the
// X-Request-Id response header.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-Id")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", rid)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, rid)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		rid, _ := r.Context().Value(requestIDKey).(string)
		s.log.Debug("admin request",
			"method", r.Method,
			"path", r.URL.Path,
			"requestId", rid,
			"duration", time.Since(start))
	})
}
