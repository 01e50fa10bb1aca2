package http

import (
	"net/http"

	"github.com/aretw0/mise/pkg/domain"
	"github.com/go-chi/chi/v5"
)

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.kitchen.Sessions())
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.kitchen.Session(chi.URLParam(r, "id"))
	if !ok {
		s.fail(w, r, domain.ErrSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.kitchen.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if err := s.kitchen.EndSession(chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) controlSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var action func(string) (domain.Session, error)
	switch chi.URLParam(r, "action") {
	case "pause":
		action = s.kitchen.Pause
	case "resume":
		action = s.kitchen.Resume
	case "toggle":
		action = s.kitchen.Toggle
	case "skip":
		action = s.kitchen.SkipStep
	case "focus":
		action = s.kitchen.Focus
	default:
		writeError(w, http.StatusNotFound, "unknown session action")
		return
	}

	sess, err := action(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) getMiniPlayer(w http.ResponseWriter, r *http.Request) {
	mini, ok, err := s.kitchen.MiniPlayer(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, mini)
}

func (s *Server) endActive(w http.ResponseWriter, r *http.Request) {
	s.kitchen.End()
	w.WriteHeader(http.StatusNoContent)
}
