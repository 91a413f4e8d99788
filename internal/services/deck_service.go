package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openflash/openflash/internal/errors"
	"github.com/openflash/openflash/internal/logger"
	"github.com/openflash/openflash/internal/models"
	"github.com/openflash/openflash/internal/repository"
)

// CardInput is one card row as submitted by the editing surface.
// Rows with both faces blank are dropped; rows with exactly one face
// filled are rejected.
type CardInput struct {
	ID    string `json:"id"`
	Front string `json:"front"`
	Back  string `json:"back"`
}

// DeckInput is the editable portion of a deck.
type DeckInput struct {
	Title string      `json:"title"`
	Cards []CardInput `json:"cards"`
}

// DeckService handles deck-related business logic, including the
// validation contract the store assumes its callers uphold.
type DeckService interface {
	ListDecks(ctx context.Context) ([]models.DeckSummary, error)
	GetDeck(ctx context.Context, id string) (*models.Deck, error)
	CreateDeck(ctx context.Context, input DeckInput) (*models.Deck, error)
	UpdateDeck(ctx context.Context, id string, input DeckInput) (*models.Deck, error)
	DeleteDeck(ctx context.Context, id string) error
	GetProgress(ctx context.Context, id string) (models.Progress, error)
}

type deckService struct {
	store repository.Store
}

// NewDeckService creates a new DeckService
func NewDeckService(store repository.Store) DeckService {
	return &deckService{store: store}
}

func (s *deckService) ListDecks(ctx context.Context) ([]models.DeckSummary, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing decks")

	decks, err := s.store.ListDecks(ctx)
	if err != nil {
		log.Error("failed to list decks: %v", err)
		return nil, errors.NewInternalError(err)
	}

	summaries := make([]models.DeckSummary, 0, len(decks))
	for _, deck := range decks {
		progress, err := s.store.GetProgress(ctx, deck.ID)
		if err != nil {
			log.Warn("failed to load progress for deck %s: %v", deck.ID, err)
			progress = models.Progress{}
		}
		summaries = append(summaries, models.DeckSummary{
			Deck:      deck,
			CardCount: deck.CardCount(),
			Progress:  progress,
			Percent:   progress.CompletionPercent(),
		})
	}
	return summaries, nil
}

func (s *deckService) GetDeck(ctx context.Context, id string) (*models.Deck, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting deck: id=%s", id)

	deck, err := s.store.GetDeck(ctx, id)
	if err != nil {
		log.Error("failed to get deck: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if deck == nil {
		return nil, errors.NewNotFoundError("deck", id)
	}
	return deck, nil
}

func (s *deckService) CreateDeck(ctx context.Context, input DeckInput) (*models.Deck, error) {
	log := logger.FromContext(ctx)
	log.Debug("creating deck: title=%s, cards=%d", input.Title, len(input.Cards))

	deck := models.Deck{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := applyInput(&deck, input); err != nil {
		return nil, err
	}

	if err := s.store.SaveDeck(ctx, deck); err != nil {
		log.Error("failed to save deck: %v", err)
		return nil, errors.NewStorageError("save deck", err)
	}
	log.Info("deck created: id=%s, title=%s", deck.ID, deck.Title)
	return &deck, nil
}

func (s *deckService) UpdateDeck(ctx context.Context, id string, input DeckInput) (*models.Deck, error) {
	log := logger.FromContext(ctx)
	log.Debug("updating deck: id=%s", id)

	existing, err := s.GetDeck(ctx, id)
	if err != nil {
		return nil, err
	}

	// ID and creation time are immutable; only title and cards change.
	deck := *existing
	if err := applyInput(&deck, input); err != nil {
		return nil, err
	}

	if err := s.store.SaveDeck(ctx, deck); err != nil {
		log.Error("failed to save deck: %v", err)
		return nil, errors.NewStorageError("save deck", err)
	}
	log.Info("deck updated: id=%s", deck.ID)
	return &deck, nil
}

func (s *deckService) DeleteDeck(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting deck: id=%s", id)

	if _, err := s.GetDeck(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteDeck(ctx, id); err != nil {
		log.Error("failed to delete deck: %v", err)
		return errors.NewStorageError("delete deck", err)
	}
	log.Info("deck deleted: id=%s", id)
	return nil
}

func (s *deckService) GetProgress(ctx context.Context, id string) (models.Progress, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting progress: deck_id=%s", id)

	if _, err := s.GetDeck(ctx, id); err != nil {
		return models.Progress{}, err
	}
	progress, err := s.store.GetProgress(ctx, id)
	if err != nil {
		log.Warn("failed to load progress for deck %s: %v", id, err)
		return models.Progress{}, nil
	}
	return progress, nil
}

// applyInput validates and applies an edit to a deck: the title must be
// non-empty, every kept card needs both faces, and at least one
// complete card must remain.
func applyInput(deck *models.Deck, input DeckInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return errors.NewValidationError("title", "must not be empty")
	}

	cards := make([]models.Card, 0, len(input.Cards))
	for _, in := range input.Cards {
		front := strings.TrimSpace(in.Front)
		back := strings.TrimSpace(in.Back)
		if front == "" && back == "" {
			continue
		}
		if front == "" || back == "" {
			return errors.NewValidationError("cards", "every card needs both a front and a back")
		}
		id := in.ID
		if id == "" {
			id = uuid.NewString()
		}
		cards = append(cards, models.Card{ID: id, Front: front, Back: back})
	}
	if len(cards) == 0 {
		return errors.NewValidationError("cards", "at least one complete card is required")
	}

	deck.Title = title
	deck.Cards = cards
	return nil
}
