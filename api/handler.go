package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"slab-tariff/core/tariff"
	"slab-tariff/internal/errors"
)

// MaxRequestBytes caps the size of a compute request body
const MaxRequestBytes = 64 << 10

// handleCompute handles POST /dynamic-tariff/compute
func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	body := http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			s.writeError(w, r, errors.InvalidArgument("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, r, errors.InvalidArgument("malformed request body: %v", err))
		return
	}
	if req.Units == nil {
		s.writeError(w, r, errors.InvalidArgument("units is required"))
		return
	}

	result, err := s.engine.ComputeBill(r.Context(), *req.Units, req.BillingContext())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, result, http.StatusOK)
}

// handleTable handles GET /dynamic-tariff/table
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	state := strings.TrimSpace(r.URL.Query().Get("state"))
	if state == "" {
		s.writeError(w, r, errors.InvalidArgument("state query parameter is required"))
		return
	}
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		category = tariff.DefaultCategory
	}

	table, err := s.tables.Table(r.Context(), state, category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, table, http.StatusOK)
}

// handleJurisdictions handles GET /dynamic-tariff/jurisdictions
func (s *Server) handleJurisdictions(w http.ResponseWriter, r *http.Request) {
	idx, err := s.tables.Jurisdictions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, JurisdictionsResponse{Jurisdictions: idx, Count: len(idx)}, http.StatusOK)
}

// handleClearCache handles DELETE /dynamic-tariff/cache
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.tables.Clear(r.Context()); err != nil {
		s.writeError(w, r, errors.Internal("clear tariff cache", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"version":     s.version,
		"engine":      "slab-tariff",
		"api_version": "v1",
	}, http.StatusOK)
}

// statusFor maps error types to HTTP status codes
func statusFor(t errors.Type) int {
	switch t {
	case errors.TypeInvalidArgument:
		return http.StatusBadRequest
	case errors.TypeNotFound:
		return http.StatusNotFound
	case errors.TypeSourceLoad:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	t := errors.TypeOf(err)
	if t == "" {
		t = errors.TypeInternal
	}
	status := statusFor(t)

	detail := ErrorDetail{
		Code:      string(t),
		Message:   err.Error(),
		RequestID: RequestIDFrom(r.Context()),
	}
	var e *errors.Error
	if stderrors.As(err, &e) {
		detail.Message = e.Message
		detail.Context = e.Context
	}

	// Server-side failures carry paths and DSNs; those stay in the log.
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("request_id", detail.RequestID), zap.Error(err))
		detail.Context = nil
		if t == errors.TypeSourceLoad {
			detail.Message = "tariff source unavailable"
		} else {
			detail.Message = "internal error"
		}
	}
	s.writeJSON(w, ErrorBody{Error: detail}, status)
}
