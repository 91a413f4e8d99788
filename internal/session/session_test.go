package session_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/openflash/openflash/internal/models"
	"github.com/openflash/openflash/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store for exercising the engine without a
// database. It counts calls so tests can assert on persistence traffic.
type fakeStore struct {
	progress  map[string]models.Progress
	getCalls  int
	saveCalls int
	failSave  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{progress: make(map[string]models.Progress)}
}

func (f *fakeStore) ListDecks(ctx context.Context) ([]models.Deck, error) { return nil, nil }
func (f *fakeStore) GetDeck(ctx context.Context, id string) (*models.Deck, error) {
	return nil, nil
}
func (f *fakeStore) SaveDeck(ctx context.Context, deck models.Deck) error { return nil }
func (f *fakeStore) DeleteDeck(ctx context.Context, id string) error      { return nil }

func (f *fakeStore) GetProgress(ctx context.Context, deckID string) (models.Progress, error) {
	f.getCalls++
	return f.progress[deckID], nil
}

func (f *fakeStore) SaveProgress(ctx context.Context, deckID string, progress models.Progress) error {
	f.saveCalls++
	if f.failSave {
		return errors.New("disk full")
	}
	f.progress[deckID] = progress
	return nil
}

func testDeck(n int) *models.Deck {
	deck := &models.Deck{ID: "d1", Title: "Math", CreatedAt: 1700000000000}
	for i := 0; i < n; i++ {
		deck.Cards = append(deck.Cards, models.Card{
			ID:    fmt.Sprintf("c%d", i+1),
			Front: fmt.Sprintf("front %d", i+1),
			Back:  fmt.Sprintf("back %d", i+1),
		})
	}
	return deck
}

func TestNewNilDeckIsNotFound(t *testing.T) {
	store := newFakeStore()
	s := session.New(nil, store, nil)

	assert.Equal(t, session.StateNotFound, s.State())
	assert.Zero(t, store.getCalls, "no progress reads for a missing deck")
	assert.Zero(t, store.saveCalls)
}

func TestNewEmptyDeckIsEmpty(t *testing.T) {
	store := newFakeStore()
	s := session.New(testDeck(0), store, nil)

	assert.Equal(t, session.StateEmpty, s.State())
	assert.Zero(t, store.getCalls)
	assert.Zero(t, store.saveCalls)
}

func TestStartEntersShowing(t *testing.T) {
	s := session.New(testDeck(3), newFakeStore(), nil)
	require.Equal(t, session.StateConfiguring, s.State())

	require.NoError(t, s.Start(context.Background(), false))

	assert.Equal(t, session.StateShowing, s.State())
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Cursor)
	assert.False(t, snap.FaceUp)
	assert.Equal(t, models.Tally{}, snap.Tally)
	require.NotNil(t, snap.Card)
	assert.Equal(t, "c1", snap.Card.ID)
}

func TestStartOnlyValidWhileConfiguring(t *testing.T) {
	ctx := context.Background()
	s := session.New(testDeck(2), newFakeStore(), nil)
	require.NoError(t, s.Start(ctx, false))

	err := s.Start(ctx, false)
	assert.ErrorIs(t, err, session.ErrInvalidAction)
	assert.Equal(t, session.StateShowing, s.State())
}

func TestStartWithoutShuffleKeepsStoredOrder(t *testing.T) {
	s := session.New(testDeck(5), newFakeStore(), nil)
	require.NoError(t, s.Start(context.Background(), false))

	assert.Equal(t, []string{"c1", "c2", "c3", "c4", "c5"}, s.Order())
}

func TestStartWithShuffleProducesPermutation(t *testing.T) {
	deck := testDeck(20)
	s := session.New(deck, newFakeStore(), rand.New(rand.NewSource(42)))
	require.NoError(t, s.Start(context.Background(), true))

	order := s.Order()
	require.Len(t, order, len(deck.Cards))

	seen := make(map[string]int)
	for _, id := range order {
		seen[id]++
	}
	for _, c := range deck.Cards {
		assert.Equal(t, 1, seen[c.ID], "card %s should appear exactly once", c.ID)
	}
}

func TestFlipTogglesFace(t *testing.T) {
	ctx := context.Background()
	s := session.New(testDeck(2), newFakeStore(), nil)
	require.NoError(t, s.Start(ctx, false))

	require.NoError(t, s.Flip(ctx))
	assert.Equal(t, session.StateFlipped, s.State())
	assert.True(t, s.Snapshot().FaceUp)

	// A second flip returns to the front face of the same card.
	require.NoError(t, s.Flip(ctx))
	assert.Equal(t, session.StateShowing, s.State())
	assert.Equal(t, 0, s.Snapshot().Cursor)
}

func TestFlipInvalidBeforeStart(t *testing.T) {
	s := session.New(testDeck(2), newFakeStore(), nil)
	assert.ErrorIs(t, s.Flip(context.Background()), session.ErrInvalidAction)
}

func TestRateRequiresFlippedState(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s := session.New(testDeck(2), store, nil)
	require.NoError(t, s.Start(ctx, false))

	err := s.Rate(ctx, true)
	assert.ErrorIs(t, err, session.ErrInvalidAction)
	assert.Zero(t, store.saveCalls, "invalid rating must not touch the store")
}

func TestRateAdvancesAndPersists(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s := session.New(testDeck(3), store, nil)
	require.NoError(t, s.Start(ctx, false))

	require.NoError(t, s.Flip(ctx))
	require.NoError(t, s.Rate(ctx, true))

	assert.Equal(t, session.StateShowing, s.State())
	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Cursor)
	assert.False(t, snap.FaceUp)
	assert.Equal(t, models.Tally{Viewed: 1, Correct: 1}, snap.Tally)
	assert.Equal(t, models.Progress{Viewed: 1, Correct: 1, Total: 3}, store.progress["d1"])
	assert.Equal(t, 1, store.saveCalls, "one store write per rated card")
}

func TestRatingLastCardCompletes(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s := session.New(testDeck(2), store, nil)
	require.NoError(t, s.Start(ctx, false))

	require.NoError(t, s.Flip(ctx))
	require.NoError(t, s.Rate(ctx, true))
	require.NoError(t, s.Flip(ctx))
	require.NoError(t, s.Rate(ctx, false))

	assert.Equal(t, session.StateComplete, s.State())
	snap := s.Snapshot()
	assert.Equal(t, models.Tally{Viewed: 2, Correct: 1, Incorrect: 1}, snap.Tally)
	assert.Nil(t, snap.Card)
}

func TestProgressInvariantHoldsAcrossRatings(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.progress["d1"] = models.Progress{Viewed: 7, Correct: 4, Incorrect: 3, Total: 2}

	s := session.New(testDeck(4), store, rand.New(rand.NewSource(7)))
	require.NoError(t, s.Start(ctx, true))

	for i := 0; i < 4; i++ {
		require.NoError(t, s.Flip(ctx))
		require.NoError(t, s.Rate(ctx, i%2 == 0))

		p := store.progress["d1"]
		assert.Equal(t, p.Viewed, p.Correct+p.Incorrect)
	}

	p := store.progress["d1"]
	assert.Equal(t, models.Progress{Viewed: 11, Correct: 6, Incorrect: 5, Total: 4}, p)
}

func TestSingleCardSession(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	deck := &models.Deck{ID: "d1", Title: "Math", Cards: []models.Card{
		{ID: "c1", Front: "1+1", Back: "2"},
	}}

	s := session.New(deck, store, nil)
	require.NoError(t, s.Start(ctx, false))
	require.NoError(t, s.Flip(ctx))
	require.NoError(t, s.Rate(ctx, true))

	assert.Equal(t, session.StateComplete, s.State())
	assert.Equal(t, models.Tally{Viewed: 1, Correct: 1}, s.Snapshot().Tally)
	assert.Equal(t, models.Progress{Viewed: 1, Correct: 1, Total: 1}, store.progress["d1"])
}

func TestRestartReturnsToConfiguring(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s := session.New(testDeck(1), store, nil)
	require.NoError(t, s.Start(ctx, false))
	require.NoError(t, s.Flip(ctx))
	require.NoError(t, s.Rate(ctx, false))
	require.Equal(t, session.StateComplete, s.State())

	require.NoError(t, s.Restart(ctx))

	assert.Equal(t, session.StateConfiguring, s.State())
	assert.Equal(t, models.Tally{}, s.Snapshot().Tally)
	assert.Empty(t, s.Order())

	// Cumulative progress survives the restart, and a second run
	// accumulates on top of it.
	require.NoError(t, s.Start(ctx, false))
	require.NoError(t, s.Flip(ctx))
	require.NoError(t, s.Rate(ctx, true))
	assert.Equal(t, models.Progress{Viewed: 2, Correct: 1, Incorrect: 1, Total: 1}, store.progress["d1"])
}

func TestRestartInvalidMidSession(t *testing.T) {
	ctx := context.Background()
	s := session.New(testDeck(2), newFakeStore(), nil)
	require.NoError(t, s.Start(ctx, false))

	assert.ErrorIs(t, s.Restart(ctx), session.ErrInvalidAction)
}

func TestSaveFailureWarnsButAdvances(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.failSave = true

	s := session.New(testDeck(2), store, nil)
	require.NoError(t, s.Start(ctx, false))
	require.NoError(t, s.Flip(ctx))
	require.NoError(t, s.Rate(ctx, true))

	snap := s.Snapshot()
	assert.Equal(t, session.StateShowing, snap.State)
	assert.Equal(t, 1, snap.Cursor, "cursor advances despite the failed write")
	assert.NotEmpty(t, snap.Warning)
	assert.Equal(t, models.Tally{Viewed: 1, Correct: 1}, snap.Tally)

	// A later successful rating clears the warning.
	store.failSave = false
	require.NoError(t, s.Flip(ctx))
	require.NoError(t, s.Rate(ctx, false))
	assert.Empty(t, s.Snapshot().Warning)
	assert.Equal(t, session.StateComplete, s.State())
}
