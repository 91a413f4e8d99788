package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/openflash/openflash/internal/models"
	"github.com/openflash/openflash/internal/repository"
	"github.com/openflash/openflash/internal/repository/sqlite"
	"github.com/openflash/openflash/internal/testutil"
	"github.com/stretchr/testify/suite"
)

type StoreSuite struct {
	suite.Suite
	db    *sql.DB
	store repository.Store
}

func (s *StoreSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.store = sqlite.NewStore(s.db)
}

func (s *StoreSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func sampleDeck(id, title string) models.Deck {
	return models.Deck{
		ID:    id,
		Title: title,
		Cards: []models.Card{
			{ID: id + "-c1", Front: "1+1", Back: "2"},
			{ID: id + "-c2", Front: "2+2", Back: "4"},
		},
		CreatedAt: 1700000000000,
	}
}

func (s *StoreSuite) TestListDecksEmpty() {
	decks, err := s.store.ListDecks(context.Background())
	s.Require().NoError(err)
	s.Assert().Empty(decks)
}

func (s *StoreSuite) TestSaveAndGetDeck() {
	ctx := context.Background()
	deck := sampleDeck("d1", "Math")

	s.Require().NoError(s.store.SaveDeck(ctx, deck))

	got, err := s.store.GetDeck(ctx, "d1")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Assert().Equal(deck, *got)
}

func (s *StoreSuite) TestGetDeckAbsent() {
	got, err := s.store.GetDeck(context.Background(), "missing")
	s.Require().NoError(err)
	s.Assert().Nil(got)
}

func (s *StoreSuite) TestSaveDeckUpsert() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveDeck(ctx, sampleDeck("d1", "Math")))
	s.Require().NoError(s.store.SaveDeck(ctx, sampleDeck("d2", "History")))

	// Second save with an existing id replaces in place.
	updated := sampleDeck("d1", "Mathematics")
	s.Require().NoError(s.store.SaveDeck(ctx, updated))

	decks, err := s.store.ListDecks(ctx)
	s.Require().NoError(err)
	s.Require().Len(decks, 2)
	s.Assert().Equal("Mathematics", decks[0].Title)
	s.Assert().Equal("d2", decks[1].ID)
}

func (s *StoreSuite) TestListDecksPreservesInsertionOrder() {
	ctx := context.Background()
	for _, id := range []string{"d3", "d1", "d2"} {
		s.Require().NoError(s.store.SaveDeck(ctx, sampleDeck(id, "Deck "+id)))
	}

	decks, err := s.store.ListDecks(ctx)
	s.Require().NoError(err)
	s.Require().Len(decks, 3)
	s.Assert().Equal("d3", decks[0].ID)
	s.Assert().Equal("d1", decks[1].ID)
	s.Assert().Equal("d2", decks[2].ID)
}

func (s *StoreSuite) TestDeleteDeckCleansUpProgress() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveDeck(ctx, sampleDeck("d1", "Math")))
	s.Require().NoError(s.store.SaveProgress(ctx, "d1", models.Progress{Viewed: 3, Correct: 2, Incorrect: 1, Total: 2}))

	s.Require().NoError(s.store.DeleteDeck(ctx, "d1"))

	got, err := s.store.GetDeck(ctx, "d1")
	s.Require().NoError(err)
	s.Assert().Nil(got)

	progress, err := s.store.GetProgress(ctx, "d1")
	s.Require().NoError(err)
	s.Assert().Equal(models.Progress{}, progress)
}

func (s *StoreSuite) TestDeleteDeckAbsentIsNoOp() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveDeck(ctx, sampleDeck("d1", "Math")))

	s.Require().NoError(s.store.DeleteDeck(ctx, "missing"))

	decks, err := s.store.ListDecks(ctx)
	s.Require().NoError(err)
	s.Assert().Len(decks, 1)
}

func (s *StoreSuite) TestGetProgressDefaultsToZero() {
	progress, err := s.store.GetProgress(context.Background(), "never-studied")
	s.Require().NoError(err)
	s.Assert().Equal(models.Progress{}, progress)
}

func (s *StoreSuite) TestSaveProgressOverwrites() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveProgress(ctx, "d1", models.Progress{Viewed: 1, Correct: 1, Total: 2}))
	s.Require().NoError(s.store.SaveProgress(ctx, "d1", models.Progress{Viewed: 2, Correct: 1, Incorrect: 1, Total: 2}))

	progress, err := s.store.GetProgress(ctx, "d1")
	s.Require().NoError(err)
	s.Assert().Equal(models.Progress{Viewed: 2, Correct: 1, Incorrect: 1, Total: 2}, progress)
}

func (s *StoreSuite) TestProgressKeyedPerDeck() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveProgress(ctx, "d1", models.Progress{Viewed: 1, Correct: 1, Total: 1}))
	s.Require().NoError(s.store.SaveProgress(ctx, "d2", models.Progress{Viewed: 2, Incorrect: 2, Total: 3}))

	p1, err := s.store.GetProgress(ctx, "d1")
	s.Require().NoError(err)
	p2, err := s.store.GetProgress(ctx, "d2")
	s.Require().NoError(err)
	s.Assert().Equal(models.Progress{Viewed: 1, Correct: 1, Total: 1}, p1)
	s.Assert().Equal(models.Progress{Viewed: 2, Incorrect: 2, Total: 3}, p2)
}

func (s *StoreSuite) TestCorruptDeckRecordReadsAsEmpty() {
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv_store (key, value) VALUES (?, ?)`, "openflash_decks", "{not json]")
	s.Require().NoError(err)

	decks, err := s.store.ListDecks(ctx)
	s.Require().NoError(err)
	s.Assert().Empty(decks)

	// A save recovers the record.
	s.Require().NoError(s.store.SaveDeck(ctx, sampleDeck("d1", "Math")))
	decks, err = s.store.ListDecks(ctx)
	s.Require().NoError(err)
	s.Assert().Len(decks, 1)
}

func (s *StoreSuite) TestCorruptProgressRecordReadsAsZero() {
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv_store (key, value) VALUES (?, ?)`, "openflash_progress", "42")
	s.Require().NoError(err)

	progress, err := s.store.GetProgress(ctx, "d1")
	s.Require().NoError(err)
	s.Assert().Equal(models.Progress{}, progress)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}
