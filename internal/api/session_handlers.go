package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/openflash/openflash/internal/errors"
	"github.com/openflash/openflash/internal/logger"
	"github.com/openflash/openflash/internal/session"
)

type sessionResponse struct {
	SessionID string           `json:"sessionId,omitempty"`
	Session   session.Snapshot `json:"session"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	deckID := chi.URLParam(r, "id")
	log.Debug("opening session for deck: %s", deckID)

	id, snap, err := s.StudyService.OpenSession(r.Context(), deckID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if snap.State == session.StateEmpty {
		// Nothing to study; the client should offer the deck editor.
		respondJSON(w, r, http.StatusOK, sessionResponse{Session: snap})
		return
	}
	respondJSON(w, r, http.StatusCreated, sessionResponse{SessionID: id, Session: snap})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.StudyService.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, sessionResponse{Session: snap})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	// Shuffle defaults to on; the body may omit it.
	input := struct {
		Shuffle *bool `json:"shuffle"`
	}{}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &input); err != nil {
			handleError(w, r, err)
			return
		}
	}
	shuffle := true
	if input.Shuffle != nil {
		shuffle = *input.Shuffle
	}

	snap, err := s.StudyService.StartSession(r.Context(), chi.URLParam(r, "id"), shuffle)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, sessionResponse{Session: snap})
}

func (s *Server) handleFlipCard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.StudyService.FlipCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, sessionResponse{Session: snap})
}

func (s *Server) handleRateCard(w http.ResponseWriter, r *http.Request) {
	input := struct {
		Correct *bool `json:"correct"`
	}{}
	if err := decodeJSON(r, &input); err != nil {
		handleError(w, r, err)
		return
	}
	if input.Correct == nil {
		handleError(w, r, errors.NewBadRequestError("correct is required"))
		return
	}

	snap, err := s.StudyService.RateCard(r.Context(), chi.URLParam(r, "id"), *input.Correct)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, sessionResponse{Session: snap})
}

func (s *Server) handleRestartSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.StudyService.RestartSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, sessionResponse{Session: snap})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.StudyService.CloseSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusNoContent, nil)
}
