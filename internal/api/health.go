package api

import (
	"net/http"

	"github.com/seantiz/pipebench/internal/model"
)

// healthResponse reports liveness along with what the service can run.
type healthResponse struct {
	Status      string `json:"status"`
	Pipelines   int    `json:"pipelines"`
	RunningJobs int    `json:"running_jobs"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	stats := s.engine.Stats()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Pipelines:   len(s.pipelines.List()),
		RunningJobs: stats.ByState[model.StateRunning],
	})
}
