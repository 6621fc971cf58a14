package server

import (
	"encoding/json"
	"net/http"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string   `json:"status"`
	Users  []string `json:"users"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	users := s.engines.Users()
	if users == nil {
		users = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(HealthResponse{Status: "ok", Users: users}); err != nil {
		s.logger.Error("failed to encode health response", "error", err)
	}
}
