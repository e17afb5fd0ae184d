package api

import "net/http"

func (s *Server) handleListPipelines(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.pipelines.List())
}
