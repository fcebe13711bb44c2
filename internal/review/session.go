// Package review implements the card-by-card review of a prepared deck.
package review

import (
	"errors"
	"slices"

	"github.com/conorfennell/recall/internal/domain"
)

// ErrEmptyDeck is returned when a session is started without cards.
var ErrEmptyDeck = errors.New("review: deck is empty")

// State is the phase of a review session.
type State int

const (
	Active State = iota
	Completed
)

func (s State) String() string {
	if s == Completed {
		return "completed"
	}
	return "active"
}

// Session steps through a fixed deck. Operations called outside their
// preconditions do nothing and report false.
type Session struct {
	deck     []domain.Card
	position int
	flipped  bool
	state    State
}

// New starts a session on the first card, showing its front. The deck is
// copied so the caller may reuse its slice.
func New(deck []domain.Card) (*Session, error) {
	if len(deck) == 0 {
		return nil, ErrEmptyDeck
	}
	return &Session{deck: slices.Clone(deck)}, nil
}

// Next moves to the following card and turns it face up.
func (s *Session) Next() bool {
	if s.state != Active || s.position >= len(s.deck)-1 {
		return false
	}
	s.position++
	s.flipped = false
	return true
}

// Previous moves to the preceding card and turns it face up.
func (s *Session) Previous() bool {
	if s.state != Active || s.position == 0 {
		return false
	}
	s.position--
	s.flipped = false
	return true
}

// Flip toggles between the front and the back of the current card.
func (s *Session) Flip() bool {
	if s.state != Active {
		return false
	}
	s.flipped = !s.flipped
	return true
}

// Finish completes the session. Only allowed on the last card.
func (s *Session) Finish() bool {
	if s.state != Active || !s.IsLast() {
		return false
	}
	s.state = Completed
	return true
}

// State returns whether the session is still active.
func (s *Session) State() State { return s.state }

// Position returns the 0-based index of the current card.
func (s *Session) Position() int { return s.position }

// Flipped reports whether the back of the current card is showing.
func (s *Session) Flipped() bool { return s.flipped }

// Len returns the number of cards in the session.
func (s *Session) Len() int { return len(s.deck) }

// IsFirst reports whether the current card is the first one.
func (s *Session) IsFirst() bool { return s.position == 0 }

// IsLast reports whether the current card is the last one.
func (s *Session) IsLast() bool { return s.position == len(s.deck)-1 }

// Completed reports whether the session has been finished.
func (s *Session) Completed() bool { return s.state == Completed }

// Card returns the card under review.
func (s *Session) Card() domain.Card {
	return s.deck[s.position]
}

// Face returns the text currently showing.
func (s *Session) Face() string {
	return s.deck[s.position].Face(s.flipped)
}

// Progress returns the 1-based number of the current card and the deck size.
func (s *Session) Progress() (current, total int) {
	return s.position + 1, len(s.deck)
}

// Percent is the share of the deck reached so far, in [0, 1].
func (s *Session) Percent() float64 {
	return float64(s.position+1) / float64(len(s.deck))
}
