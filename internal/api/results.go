package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/errand/internal/dispatch"
	"github.com/seantiz/errand/internal/model"
	"github.com/seantiz/errand/internal/store"
)

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	s.serveResult(w, r, chi.URLParam(r, "request_id"))
}

// handleGetResource resolves resource://search_results/<id> URIs.
func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseResultURI(r.URL.Query().Get("uri"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.serveResult(w, r, id)
}

// serveResult writes the current result text for id. Unknown IDs get the
// not-found text with status 404.
func (s *Server) serveResult(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.dispatcher.Record(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		resultLookupsTotal.WithLabelValues("not_found").Inc()
		s.writeText(w, http.StatusNotFound, dispatch.NotFoundText(id))
		return
	}
	if err != nil {
		s.logger.Error("get job record", "request_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get result")
		return
	}

	resultLookupsTotal.WithLabelValues(rec.Status).Inc()
	w.Header().Set("X-Job-Status", rec.Status)
	s.writeText(w, http.StatusOK, rec.Result)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "request_id")

	rec, err := s.dispatcher.Record(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, dispatch.NotFoundText(id))
		return
	}
	if err != nil {
		s.logger.Error("get job record", "request_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get record")
		return
	}

	s.writeJSON(w, http.StatusOK, rec)
}
