package api

import (
	"errors"
	"net/http"

	"github.com/seantiz/errand/internal/dispatch"
	"github.com/seantiz/errand/internal/model"
	"github.com/seantiz/errand/internal/progress"
	"github.com/seantiz/errand/internal/strategy"
)

// newSession starts the caller context of one action invocation. Every call
// gets a fresh request ID, echoed in the X-Request-Id header.
func (s *Server) newSession(w http.ResponseWriter) *progress.Session {
	id := model.NewID()
	w.Header().Set("X-Request-Id", id)
	return progress.NewSession(id, s.broker, s.clock, s.logger)
}

func (s *Server) handleFindMenuOptions(w http.ResponseWriter, r *http.Request) {
	var req dispatch.SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session := s.newSession(w)
	ack, err := s.dispatcher.FindMenuOptions(r.Context(), session, req)
	if err != nil {
		session.Finish()
		s.writeDispatchError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, ack)
}

func (s *Server) handleOrderFood(w http.ResponseWriter, r *http.Request) {
	var req dispatch.OrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session := s.newSession(w)
	ack, err := s.dispatcher.OrderFood(r.Context(), session, req)
	if err != nil {
		session.Finish()
		s.writeDispatchError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, ack)
}

// writeDispatchError maps dispatch failures to HTTP statuses.
func (s *Server) writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrInvalidRequest):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dispatch.ErrDuplicateRequest):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, strategy.ErrCapacity):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, strategy.ErrNoStrategy):
		s.writeError(w, http.StatusNotImplemented, err.Error())
	default:
		s.logger.Error("dispatch action", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
