package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

func (s *Server) handleStreamLogs(w http.ResponseWriter, r *http.Request) {
	st, ok := s.jobStatus(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("set write deadline for SSE", "error", err)
	}

	// A finished job yields its backlog and then a closed channel, so the
	// loop below ends on its own.
	ch, unsub := s.engine.Broker().Subscribe(st.ID)
	defer unsub()

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
	}

	for {
		select {
		case line, ok := <-ch:
			if !ok {
				_ = writeSSEEvent(w, "done", "stream complete")
				if canFlush {
					flusher.Flush()
				}
				return
			}
			if err := writeSSEData(w, line); err != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

// logHistoryResponse is the JSON response for GET .../logs/history.
type logHistoryResponse struct {
	JobID string   `json:"job_id"`
	Lines []string `json:"lines"`
}

// handleGetLogHistory returns the retained output lines of a job without
// subscribing to its stream.
func (s *Server) handleGetLogHistory(w http.ResponseWriter, r *http.Request) {
	st, ok := s.jobStatus(w, r)
	if !ok {
		return
	}

	lines := s.engine.Broker().Backlog(st.ID)
	if lines == nil {
		lines = []string{}
	}
	s.writeJSON(w, http.StatusOK, logHistoryResponse{JobID: st.ID, Lines: lines})
}

// writeSSEData writes a line as an SSE data event. Multi-line strings are
// split so that each segment gets its own "data:" prefix.
func writeSSEData(w http.ResponseWriter, line string) error {
	for seg := range strings.SplitSeq(line, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", seg); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, "\n")
	return err
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
