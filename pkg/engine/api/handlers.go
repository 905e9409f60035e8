package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/getstubd/stubd/pkg/engine"
	"github.com/getstubd/stubd/pkg/stub"
)

// maxBodyBytes caps admin request bodies.
const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req stub.MatchRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	result, err := s.service.Resolve(r.Context(), &req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListStubs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := engine.ListFilter{
		DestinationType: q.Get("destinationType"),
		DestinationName: q.Get("destinationName"),
		OwnerID:         q.Get("ownerId"),
		Protocol:        stub.Protocol(q.Get("protocol")),
		Status:          stub.Status(q.Get("status")),
	}

	stubs, err := s.service.ListStubs(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StubListResponse{Stubs: stubs, Count: len(stubs)})
}

func (s *Server) handleCreateStub(w http.ResponseWriter, r *http.Request) {
	var st stub.Stub
	if err := decodeJSONBody(w, r, &st); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	created, err := s.service.CreateStub(r.Context(), &st)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetStub(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.GetStub(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUpdateStub(w http.ResponseWriter, r *http.Request) {
	var st stub.Stub
	if err := decodeJSONBody(w, r, &st); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	st.ID = chi.URLParam(r, "id")

	updated, err := s.service.UpdateStub(r.Context(), &st)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	updated, err := s.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteStub(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteStub(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps engine errors to HTTP statuses. Priority
// conflicts carry the destination's current maximum so the caller can
// choose a higher value.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	if pc, ok := stub.IsPriorityConflict(err); ok {
		max := pc.MaxPriority
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:       pc.Error(),
			Code:        "priority_conflict",
			MaxPriority: &max,
		})
		return
	}
	if ve, ok := stub.IsValidation(err); ok {
		writeError(w, http.StatusBadRequest, "validation_error", ve.Error())
		return
	}
	switch {
	case errors.Is(err, stub.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "stub not found")
	case errors.Is(err, stub.ErrWriteTimeout):
		writeError(w, http.StatusGatewayTimeout, "write_timeout", err.Error())
	case errors.Is(err, stub.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
	default:
		s.log.Error("unhandled admin error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
