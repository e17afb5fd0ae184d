package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/pipebench/internal/model"
)

// stopResponse is the JSON response for stopping a job.
type stopResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// kindParam resolves the {kind} URL parameter, writing a 404 when unknown.
func (s *Server) kindParam(w http.ResponseWriter, r *http.Request) (model.JobKind, bool) {
	kind, ok := model.ParseJobKind(chi.URLParam(r, "kind"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown test kind")
		return "", false
	}
	return kind, true
}

// jobStatus looks up a job of the routed kind. Jobs of another kind are
// reported as not found.
func (s *Server) jobStatus(w http.ResponseWriter, r *http.Request) (model.JobStatus, bool) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return model.JobStatus{}, false
	}
	st, ok := s.engine.Status(chi.URLParam(r, "id"))
	if !ok || st.Kind != kind {
		s.writeError(w, http.StatusNotFound, "job not found")
		return model.JobStatus{}, false
	}
	return st, true
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	statuses := s.engine.StatusesByKind(kind)
	if state := r.URL.Query().Get("state"); state != "" {
		filtered := statuses[:0]
		for _, st := range statuses {
			if string(st.State) == state {
				filtered = append(filtered, st)
			}
		}
		statuses = filtered
	}
	s.writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.jobStatus(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetJobSummary(w http.ResponseWriter, r *http.Request) {
	st, ok := s.jobStatus(w, r)
	if !ok {
		return
	}
	sum, ok := s.engine.Summary(st.ID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleStopJob(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if st, ok := s.engine.Status(id); !ok || st.Kind != kind {
		s.writeJSON(w, http.StatusNotFound, stopResponse{Message: "Job " + id + " not found"})
		return
	}

	stopped, msg := s.engine.Stop(id)
	status := http.StatusOK
	if !stopped {
		status = http.StatusConflict
	}
	s.writeJSON(w, status, stopResponse{OK: stopped, Message: msg})
}
