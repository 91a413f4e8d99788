package services

import (
	"context"
	stderrors "errors"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/openflash/openflash/internal/errors"
	"github.com/openflash/openflash/internal/logger"
	"github.com/openflash/openflash/internal/repository"
	"github.com/openflash/openflash/internal/session"
)

// StudyService manages live study sessions. Sessions are transient:
// they live in memory, are addressed by server-generated ids, and are
// simply dropped when closed or when the process exits. The store is
// only touched through the engine's per-rating progress writes.
type StudyService interface {
	// OpenSession resolves a deck and creates a session in Configuring.
	// A missing deck returns a NOT_FOUND error (the caller redirects);
	// a deck without cards returns an Empty snapshot and no session is
	// registered.
	OpenSession(ctx context.Context, deckID string) (string, session.Snapshot, error)
	GetSession(ctx context.Context, id string) (session.Snapshot, error)
	StartSession(ctx context.Context, id string, shuffle bool) (session.Snapshot, error)
	FlipCard(ctx context.Context, id string) (session.Snapshot, error)
	RateCard(ctx context.Context, id string, correct bool) (session.Snapshot, error)
	RestartSession(ctx context.Context, id string) (session.Snapshot, error)
	CloseSession(ctx context.Context, id string) error
}

type liveSession struct {
	// mu serializes actions: one user action runs to completion before
	// the next is accepted, so rating writes never interleave.
	mu sync.Mutex
	s  *session.Session
}

type studyService struct {
	store    repository.Store
	rng      func() *rand.Rand
	mu       sync.Mutex
	sessions map[string]*liveSession
}

// NewStudyService creates a new StudyService
func NewStudyService(store repository.Store) StudyService {
	return &studyService{
		store:    store,
		rng:      func() *rand.Rand { return nil }, // engine seeds itself
		sessions: make(map[string]*liveSession),
	}
}

// NewStudyServiceWithRand creates a StudyService whose sessions draw
// from the given source. Used by tests for deterministic shuffles.
func NewStudyServiceWithRand(store repository.Store, rng *rand.Rand) StudyService {
	return &studyService{
		store:    store,
		rng:      func() *rand.Rand { return rng },
		sessions: make(map[string]*liveSession),
	}
}

func (s *studyService) OpenSession(ctx context.Context, deckID string) (string, session.Snapshot, error) {
	log := logger.FromContext(ctx)
	log.Debug("opening session: deck_id=%s", deckID)

	deck, err := s.store.GetDeck(ctx, deckID)
	if err != nil {
		log.Error("failed to resolve deck: %v", err)
		return "", session.Snapshot{}, errors.NewInternalError(err)
	}

	sess := session.New(deck, s.store, s.rng())
	switch sess.State() {
	case session.StateNotFound:
		return "", session.Snapshot{}, errors.NewNotFoundError("deck", deckID)
	case session.StateEmpty:
		// Terminal before any session state exists; nothing to keep.
		log.Debug("deck has no cards: deck_id=%s", deckID)
		return "", sess.Snapshot(), nil
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &liveSession{s: sess}
	s.mu.Unlock()

	log.Info("session opened: session_id=%s, deck_id=%s", id, deckID)
	return id, sess.Snapshot(), nil
}

func (s *studyService) lookup(id string) (*liveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live, ok := s.sessions[id]
	if !ok {
		return nil, errors.NewNotFoundError("session", id)
	}
	return live, nil
}

// withSession runs fn under the session's action lock and returns the
// resulting snapshot. Engine rejections map to CONFLICT.
func (s *studyService) withSession(ctx context.Context, id string, fn func(*session.Session) error) (session.Snapshot, error) {
	live, err := s.lookup(id)
	if err != nil {
		return session.Snapshot{}, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	if err := fn(live.s); err != nil {
		if stderrors.Is(err, session.ErrInvalidAction) {
			return session.Snapshot{}, errors.NewConflictError(err.Error())
		}
		return session.Snapshot{}, errors.NewInternalError(err)
	}
	return live.s.Snapshot(), nil
}

func (s *studyService) GetSession(ctx context.Context, id string) (session.Snapshot, error) {
	live, err := s.lookup(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	live.mu.Lock()
	defer live.mu.Unlock()
	return live.s.Snapshot(), nil
}

func (s *studyService) StartSession(ctx context.Context, id string, shuffle bool) (session.Snapshot, error) {
	return s.withSession(ctx, id, func(sess *session.Session) error {
		return sess.Start(ctx, shuffle)
	})
}

func (s *studyService) FlipCard(ctx context.Context, id string) (session.Snapshot, error) {
	return s.withSession(ctx, id, func(sess *session.Session) error {
		return sess.Flip(ctx)
	})
}

func (s *studyService) RateCard(ctx context.Context, id string, correct bool) (session.Snapshot, error) {
	snap, err := s.withSession(ctx, id, func(sess *session.Session) error {
		return sess.Rate(ctx, correct)
	})
	if err == nil && snap.Warning != "" {
		logger.FromContext(ctx).Warn("session %s: %s", id, snap.Warning)
	}
	return snap, err
}

func (s *studyService) RestartSession(ctx context.Context, id string) (session.Snapshot, error) {
	return s.withSession(ctx, id, func(sess *session.Session) error {
		return sess.Restart(ctx)
	})
}

func (s *studyService) CloseSession(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return errors.NewNotFoundError("session", id)
	}
	// Abandoning a session discards its state; the store keeps
	// everything up to the last completed rating.
	delete(s.sessions, id)
	log.Info("session closed: session_id=%s", id)
	return nil
}
