package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus is the body of GET /healthz.
type HealthStatus struct {
	Status string `json:"status"`
}

// GetHealth handles GET /healthz.
// It returns 200 {"status":"ok"} while the database answers a ping and
// 503 {"status":"degraded"} when it does not.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.DB.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "health check: database unreachable", "error", err)
			s.respond(w, r, http.StatusServiceUnavailable, HealthStatus{Status: "degraded"})
			return
		}
	}
	s.respond(w, r, http.StatusOK, HealthStatus{Status: "ok"})
}
