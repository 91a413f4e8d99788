package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/decks", s.handleListDecks)
	r.Post("/decks", s.handleCreateDeck)
	r.Get("/decks/{id}", s.handleGetDeck)
	r.Put("/decks/{id}", s.handleUpdateDeck)
	r.Delete("/decks/{id}", s.handleDeleteDeck)
	r.Get("/decks/{id}/progress", s.handleGetProgress)
	r.Post("/decks/{id}/sessions", s.handleOpenSession)

	r.Get("/sessions/{id}", s.handleGetSession)
	r.Post("/sessions/{id}/start", s.handleStartSession)
	r.Post("/sessions/{id}/flip", s.handleFlipCard)
	r.Post("/sessions/{id}/rate", s.handleRateCard)
	r.Post("/sessions/{id}/restart", s.handleRestartSession)
	r.Delete("/sessions/{id}", s.handleCloseSession)

	return r
}
