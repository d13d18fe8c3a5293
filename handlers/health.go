package handlers

import (
	"context"
	"net/http"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Health is the liveness probe. It never touches the store.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: s.version})
}

// Ready pings the license store and answers 503 while it is unreachable.
func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.storeTimeout)
	defer cancel()

	status, code := "ok", http.StatusOK
	checks := map[string]string{"store": "ok"}
	if err := s.Storage.Ping(ctx); err != nil {
		checks["store"] = "error: " + err.Error()
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{Status: status, Version: s.version, Checks: checks})
}
