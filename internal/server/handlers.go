package server

import (
	"net/http"

	"github.com/aristath/sentinel-overrides/internal/utils"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "sentinel-overrides",
	}

	if s.cfg.DB != nil {
		if err := s.cfg.DB.HealthCheck(r.Context()); err != nil {
			s.log.Error().Err(err).Msg("Database health check failed")
			response["status"] = "degraded"
			response["database"] = err.Error()
			utils.WriteJSON(w, http.StatusServiceUnavailable, response, s.log)
			return
		}
	}

	utils.WriteJSON(w, http.StatusOK, response, s.log)
}
