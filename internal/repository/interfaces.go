package repository

import (
	"context"

	"github.com/openflash/openflash/internal/models"
)

// Store handles durable deck and progress data access.
//
// Reads degrade rather than fail: corrupt or missing stored data comes
// back as the documented defaults (empty deck list, zero Progress).
// Write errors are returned to the caller and are never fatal to the
// process.
type Store interface {
	// ListDecks returns all decks in stored order.
	ListDecks(ctx context.Context) ([]models.Deck, error)
	// GetDeck returns the deck with the given id, or nil if absent.
	GetDeck(ctx context.Context, id string) (*models.Deck, error)
	// SaveDeck upserts by id: replaces the matching entry in place,
	// appends otherwise.
	SaveDeck(ctx context.Context, deck models.Deck) error
	// DeleteDeck removes the deck and its progress record together.
	// No-op if the deck is absent.
	DeleteDeck(ctx context.Context, id string) error
	// GetProgress returns the cumulative progress for a deck, or the
	// zero record if none exists. Never absent.
	GetProgress(ctx context.Context, deckID string) (models.Progress, error)
	// SaveProgress overwrites the deck's progress record.
	SaveProgress(ctx context.Context, deckID string, progress models.Progress) error
}
