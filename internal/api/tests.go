package api

import (
	"encoding/json"
	"net/http"

	"github.com/seantiz/pipebench/internal/model"
)

const maxBodySize = 1 << 20 // 1 MB

// submitResponse is the JSON response for POST /v1/tests/{kind}.
type submitResponse struct {
	JobID string `json:"job_id"`
}

// handleRunTest dispatches a submission on the {kind} URL parameter.
func (s *Server) handleRunTest(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	switch kind {
	case model.KindPerformance:
		s.handleRunPerformance(w, r)
	case model.KindDensity:
		s.handleRunDensity(w, r)
	}
}

func (s *Server) handleRunPerformance(w http.ResponseWriter, r *http.Request) {
	var spec model.PerformanceTestSpec
	if !s.decodeBody(w, r, &spec) {
		return
	}

	id, err := s.engine.SubmitPerformance(r.Context(), &spec)
	if err != nil {
		s.logger.Error("submit performance test", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to submit performance test")
		return
	}

	s.writeJSON(w, http.StatusAccepted, submitResponse{JobID: id})
}

func (s *Server) handleRunDensity(w http.ResponseWriter, r *http.Request) {
	var spec model.DensityTestSpec
	if !s.decodeBody(w, r, &spec) {
		return
	}

	id, err := s.engine.SubmitDensity(r.Context(), &spec)
	if err != nil {
		s.logger.Error("submit density test", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to submit density test")
		return
	}

	s.writeJSON(w, http.StatusAccepted, submitResponse{JobID: id})
}

// decodeBody reads a size-limited JSON body into v, writing a 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
