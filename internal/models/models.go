package models

import "math"

// Card is a front/back text pair within a deck. Both faces are
// populated on any saved card; enforcement lives in the deck service.
type Card struct {
	ID    string `json:"id"`
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Deck is a named, ordered collection of cards. The stored card order
// is the default study order. IDs are immutable after creation.
type Deck struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Cards     []Card `json:"cards"`
	CreatedAt int64  `json:"createdAt"` // epoch milliseconds
}

// CardCount returns the number of cards in the deck.
func (d Deck) CardCount() int {
	return len(d.Cards)
}

// Progress holds cumulative per-deck study statistics. The zero value
// is the documented default for decks that were never studied.
// Invariant: Correct + Incorrect == Viewed.
type Progress struct {
	Viewed    int `json:"viewed"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	// Total caches the deck's card count as of the last rating. It is
	// a display hint for the completion estimate, not authoritative.
	Total int `json:"total"`
}

// CompletionPercent computes the legacy completion estimate shown on
// deck listings. The formula is kept bit-for-bit compatible with the
// stored-data consumers: ((correct + viewed) / (total * 2)) * 100,
// rounded. Do not change it.
func (p Progress) CompletionPercent() int {
	if p.Total <= 0 {
		return 0
	}
	return int(math.Round(float64(p.Correct+p.Viewed) / float64(p.Total*2) * 100))
}

// DeckSummary pairs a deck with its cumulative progress for listings.
type DeckSummary struct {
	Deck      Deck     `json:"deck"`
	CardCount int      `json:"cardCount"`
	Progress  Progress `json:"progress"`
	Percent   int      `json:"percent"`
}

// Tally is the session-scoped statistics subset. It starts at zero on
// every session start and is discarded when the session ends.
type Tally struct {
	Viewed    int `json:"viewed"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}
