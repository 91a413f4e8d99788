// Package session implements the study-session state machine: it
// sequences card presentation for one deck, collects session-scoped
// statistics, and writes cumulative progress through the store as each
// card is rated.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/openflash/openflash/internal/logger"
	"github.com/openflash/openflash/internal/models"
	"github.com/openflash/openflash/internal/repository"
)

// State identifies a node of the session state machine.
type State string

const (
	// StateNotFound is terminal: the deck id did not resolve.
	StateNotFound State = "not_found"
	// StateEmpty is terminal: the deck exists but has no cards.
	StateEmpty State = "empty"
	// StateConfiguring is the initial state; only the shuffle option
	// is selectable here and nothing is persisted.
	StateConfiguring State = "configuring"
	// StateShowing presents the front face of the current card.
	StateShowing State = "showing"
	// StateFlipped presents the back face of the current card.
	StateFlipped State = "flipped"
	// StateComplete is reached when the cursor passes the last card.
	StateComplete State = "complete"
)

// ErrInvalidAction reports an action applied in a state that does not
// accept it. The session is left unchanged.
var ErrInvalidAction = errors.New("action not valid in current state")

// Session drives one study run for a single deck. It is not safe for
// concurrent use; callers serialize actions per session.
type Session struct {
	deck    models.Deck
	cards   map[string]models.Card
	store   repository.Store
	rng     *rand.Rand
	state   State
	order   []string
	cursor  int
	faceUp  bool
	tally   models.Tally
	warning string
}

// Snapshot is the plain-data view of a session exposed to renderers.
type Snapshot struct {
	State     State        `json:"state"`
	DeckID    string       `json:"deckId"`
	DeckTitle string       `json:"deckTitle"`
	CardCount int          `json:"cardCount"`
	Cursor    int          `json:"cursor"`
	Card      *models.Card `json:"card,omitempty"`
	FaceUp    bool         `json:"faceUp"`
	Tally     models.Tally `json:"tally"`
	// Warning carries the last non-fatal persistence failure, if any.
	Warning string `json:"warning,omitempty"`
}

// New builds a session for the given deck. A nil deck yields the
// terminal NotFound state, a deck without cards the terminal Empty
// state, anything else starts in Configuring. rng may be nil, in which
// case a time-seeded source is used.
func New(deck *models.Deck, store repository.Store, rng *rand.Rand) *Session {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &Session{store: store, rng: rng}
	if deck == nil {
		s.state = StateNotFound
		return s
	}

	s.deck = *deck
	s.cards = make(map[string]models.Card, len(deck.Cards))
	for _, c := range deck.Cards {
		s.cards[c.ID] = c
	}

	if len(deck.Cards) == 0 {
		s.state = StateEmpty
		return s
	}
	s.state = StateConfiguring
	return s
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Start begins the run from Configuring. The card order is either a
// uniformly-random permutation of the deck or its stored order.
func (s *Session) Start(ctx context.Context, shuffle bool) error {
	if s.state != StateConfiguring {
		return fmt.Errorf("start in state %s: %w", s.state, ErrInvalidAction)
	}

	log := logger.FromContext(ctx).WithPrefix("session")
	log.Debug("starting session: deck_id=%s, shuffle=%t, cards=%d", s.deck.ID, shuffle, len(s.deck.Cards))

	s.order = make([]string, len(s.deck.Cards))
	for i, c := range s.deck.Cards {
		s.order[i] = c.ID
	}
	if shuffle {
		// Fisher-Yates over the id sequence.
		for i := len(s.order) - 1; i > 0; i-- {
			j := s.rng.Intn(i + 1)
			s.order[i], s.order[j] = s.order[j], s.order[i]
		}
	}

	s.cursor = 0
	s.faceUp = false
	s.tally = models.Tally{}
	s.warning = ""
	s.state = StateShowing
	return nil
}

// Flip toggles the visible face of the current card. Valid only while
// a card is showing; no persistence effect.
func (s *Session) Flip(ctx context.Context) error {
	switch s.state {
	case StateShowing:
		s.faceUp = true
		s.state = StateFlipped
	case StateFlipped:
		s.faceUp = false
		s.state = StateShowing
	default:
		return fmt.Errorf("flip in state %s: %w", s.state, ErrInvalidAction)
	}
	return nil
}

// Rate records the outcome for the current card and advances. Valid
// only while the back face is showing. The cumulative progress write
// happens before the cursor advances; if it fails the session still
// advances and the failure is surfaced via the snapshot warning.
func (s *Session) Rate(ctx context.Context, correct bool) error {
	if s.state != StateFlipped {
		return fmt.Errorf("rate in state %s: %w", s.state, ErrInvalidAction)
	}

	log := logger.FromContext(ctx).WithPrefix("session")
	s.warning = ""

	progress, err := s.store.GetProgress(ctx, s.deck.ID)
	if err != nil {
		// Read failures degrade to the zero record inside the store;
		// anything surfacing here still must not abort the session.
		log.Warn("failed to read progress for deck %s: %v", s.deck.ID, err)
		progress = models.Progress{}
	}

	progress.Viewed++
	if correct {
		progress.Correct++
	} else {
		progress.Incorrect++
	}
	progress.Total = len(s.deck.Cards)

	if err := s.store.SaveProgress(ctx, s.deck.ID, progress); err != nil {
		// Losing one statistics write is preferable to losing the
		// session, so warn and keep going.
		log.Warn("failed to persist progress for deck %s: %v", s.deck.ID, err)
		s.warning = "progress could not be saved"
	}

	s.tally.Viewed++
	if correct {
		s.tally.Correct++
	} else {
		s.tally.Incorrect++
	}

	s.cursor++
	s.faceUp = false
	if s.cursor == len(s.order) {
		log.Debug("session complete: deck_id=%s, viewed=%d, correct=%d, incorrect=%d",
			s.deck.ID, s.tally.Viewed, s.tally.Correct, s.tally.Incorrect)
		s.state = StateComplete
	} else {
		s.state = StateShowing
	}
	return nil
}

// Restart returns a completed session to Configuring with fresh
// session state. The final tally is discarded.
func (s *Session) Restart(ctx context.Context) error {
	if s.state != StateComplete {
		return fmt.Errorf("restart in state %s: %w", s.state, ErrInvalidAction)
	}

	logger.FromContext(ctx).WithPrefix("session").Debug("restarting session: deck_id=%s", s.deck.ID)

	s.order = nil
	s.cursor = 0
	s.faceUp = false
	s.tally = models.Tally{}
	s.warning = ""
	s.state = StateConfiguring
	return nil
}

// Snapshot returns the plain-data view of the session.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:     s.state,
		DeckID:    s.deck.ID,
		DeckTitle: s.deck.Title,
		CardCount: len(s.deck.Cards),
		Cursor:    s.cursor,
		FaceUp:    s.faceUp,
		Tally:     s.tally,
		Warning:   s.warning,
	}
	if s.state == StateShowing || s.state == StateFlipped {
		if card, ok := s.cards[s.order[s.cursor]]; ok {
			snap.Card = &card
		}
	}
	return snap
}

// Order returns a copy of the card-id sequence chosen for this run.
// Empty until the session has started.
func (s *Session) Order() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
