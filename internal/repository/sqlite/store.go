package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/openflash/openflash/internal/logger"
	"github.com/openflash/openflash/internal/models"
	"github.com/openflash/openflash/internal/repository"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// Namespace keys for the two stored records. These match the layout
// the original data was written under, so existing exports stay
// readable.
const (
	decksKey    = "openflash_decks"
	progressKey = "openflash_progress"
)

type store struct {
	db *sql.DB
}

// NewStore creates a Store backed by a kv_store table holding the two
// namespaced JSON records.
func NewStore(db *sql.DB) repository.Store {
	return &store{db: db}
}

// execer abstracts *sql.DB and *sql.Tx for record writes.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *store) readRecord(ctx context.Context, key string) ([]byte, error) {
	log := logger.FromContext(ctx).WithPrefix("store")

	query, args, err := sqlBuilder.
		Select("value").
		From("kv_store").
		Where(squirrel.Eq{"key": key}).
		ToSql()
	if err != nil {
		log.Error("failed to build read query: %v", err)
		return nil, err
	}

	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to read record %s: %v", key, err)
		return nil, err
	}
	return []byte(value), nil
}

func writeRecord(ctx context.Context, ex execer, key string, value []byte) error {
	log := logger.FromContext(ctx).WithPrefix("store")

	query, args, err := sqlBuilder.
		Insert("kv_store").
		Columns("key", "value").
		Values(key, string(value)).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP").
		ToSql()
	if err != nil {
		log.Error("failed to build write query: %v", err)
		return err
	}

	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to write record %s: %v", key, err)
		return err
	}
	return nil
}

// loadDecks reads the deck record, treating missing or corrupt data as
// an empty collection. Read errors degrade the same way.
func (s *store) loadDecks(ctx context.Context) []models.Deck {
	log := logger.FromContext(ctx).WithPrefix("store")

	raw, err := s.readRecord(ctx, decksKey)
	if err != nil || raw == nil {
		return nil
	}
	var decks []models.Deck
	if err := json.Unmarshal(raw, &decks); err != nil {
		log.Warn("deck record is unparseable, treating as empty: %v", err)
		return nil
	}
	return decks
}

// loadProgress reads the progress record, defaulting to an empty map.
func (s *store) loadProgress(ctx context.Context) map[string]models.Progress {
	log := logger.FromContext(ctx).WithPrefix("store")

	all := make(map[string]models.Progress)
	raw, err := s.readRecord(ctx, progressKey)
	if err != nil || raw == nil {
		return all
	}
	if err := json.Unmarshal(raw, &all); err != nil {
		log.Warn("progress record is unparseable, treating as empty: %v", err)
		return make(map[string]models.Progress)
	}
	return all
}

func (s *store) ListDecks(ctx context.Context) ([]models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("store")

	decks := s.loadDecks(ctx)
	log.Debug("found %d decks", len(decks))
	return decks, nil
}

func (s *store) GetDeck(ctx context.Context, id string) (*models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("store")
	log.Debug("getting deck: id=%s", id)

	for _, d := range s.loadDecks(ctx) {
		if d.ID == id {
			deck := d
			return &deck, nil
		}
	}
	log.Debug("deck not found: id=%s", id)
	return nil, nil
}

func (s *store) SaveDeck(ctx context.Context, deck models.Deck) error {
	log := logger.FromContext(ctx).WithPrefix("store")
	log.Debug("saving deck: id=%s, title=%s, cards=%d", deck.ID, deck.Title, len(deck.Cards))

	decks := s.loadDecks(ctx)
	replaced := false
	for i, d := range decks {
		if d.ID == deck.ID {
			decks[i] = deck
			replaced = true
			break
		}
	}
	if !replaced {
		decks = append(decks, deck)
	}

	raw, err := json.Marshal(decks)
	if err != nil {
		log.Error("failed to marshal deck record: %v", err)
		return err
	}
	if err := writeRecord(ctx, s.db, decksKey, raw); err != nil {
		return err
	}
	log.Debug("deck saved: id=%s, replaced=%t", deck.ID, replaced)
	return nil
}

func (s *store) DeleteDeck(ctx context.Context, id string) error {
	log := logger.FromContext(ctx).WithPrefix("store")
	log.Debug("deleting deck: id=%s", id)

	decks := s.loadDecks(ctx)
	kept := decks[:0]
	for _, d := range decks {
		if d.ID != id {
			kept = append(kept, d)
		}
	}

	progress := s.loadProgress(ctx)
	delete(progress, id)

	deckRaw, err := json.Marshal(kept)
	if err != nil {
		log.Error("failed to marshal deck record: %v", err)
		return err
	}
	progressRaw, err := json.Marshal(progress)
	if err != nil {
		log.Error("failed to marshal progress record: %v", err)
		return err
	}

	// Deck removal and progress cleanup land in one transaction so the
	// caller never observes a deleted deck with orphaned progress.
	return tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := writeRecord(ctx, tx, decksKey, deckRaw); err != nil {
			return err
		}
		return writeRecord(ctx, tx, progressKey, progressRaw)
	})
}

func (s *store) GetProgress(ctx context.Context, deckID string) (models.Progress, error) {
	log := logger.FromContext(ctx).WithPrefix("store")
	log.Debug("getting progress: deck_id=%s", deckID)

	// Absent entries read as the zero record.
	return s.loadProgress(ctx)[deckID], nil
}

func (s *store) SaveProgress(ctx context.Context, deckID string, progress models.Progress) error {
	log := logger.FromContext(ctx).WithPrefix("store")
	log.Debug("saving progress: deck_id=%s, viewed=%d, correct=%d, incorrect=%d",
		deckID, progress.Viewed, progress.Correct, progress.Incorrect)

	all := s.loadProgress(ctx)
	all[deckID] = progress

	raw, err := json.Marshal(all)
	if err != nil {
		log.Error("failed to marshal progress record: %v", err)
		return err
	}
	return writeRecord(ctx, s.db, progressKey, raw)
}
