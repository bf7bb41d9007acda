package rest

import "net/http"

type healthResponse struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// handleHealth always answers 200; the body carries the verdict.
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Check(r.Context()); err != nil {
		s.logger.Warn(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusOK, healthResponse{Status: "unhealthy", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
