package api

import (
	"net/http"
)

type healthResponse struct {
	Status  string   `json:"status"`
	Actions []string `json:"actions"`
}

// handleHealthz reports liveness and the actions that have a strategy.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	infos := s.dispatcher.Strategies()
	actions := make([]string, 0, len(infos))
	for _, info := range infos {
		actions = append(actions, info.Action)
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Actions: actions})
}
