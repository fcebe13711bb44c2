// Package study owns the state of one user's study screen: the deck that
// was imported, the last error shown and the review session, if any.
package study

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/importer"
	"github.com/conorfennell/recall/internal/review"
)

// ErrNothingToReview is returned by Start when there are no cards to review.
var ErrNothingToReview = errors.New("study: nothing to review")

// Phase is the screen the controller is on.
type Phase int

const (
	PhaseImport Phase = iota
	PhaseReview
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseReview:
		return "review"
	case PhaseCompleted:
		return "completed"
	default:
		return "import"
	}
}

// Ticket identifies one upload. Results carrying an outdated ticket are
// dropped.
type Ticket uint64

// Controller is safe for concurrent use.
type Controller struct {
	mu  sync.Mutex
	log zerolog.Logger
	rng *rand.Rand

	generation uint64
	fileName   string
	deck       []domain.Card
	err        error

	session *review.Session
	keys    review.Keyboard
	release func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithRand sets the generator used for shuffling.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) { c.rng = rng }
}

// New returns a controller on the import screen with nothing loaded.
func New(opts ...Option) *Controller {
	c := &Controller{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BeginUpload starts a new upload, invalidating any that is in flight. The
// previous error is cleared before the file is validated.
func (c *Controller) BeginUpload(name string, size int64) (Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.err = nil

	if err := importer.Validate(name, size); err != nil {
		c.err = err
		c.log.Debug().Str("file", name).Int64("size", size).Err(err).Msg("upload rejected")
		return Ticket(c.generation), err
	}
	return Ticket(c.generation), nil
}

// CompleteUpload records the result of decoding the file started with t.
// It returns false, changing nothing, when a newer upload or a reset has
// happened since.
func (c *Controller) CompleteUpload(t Ticket, name string, cards []domain.Card, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if uint64(t) != c.generation {
		c.log.Debug().Str("file", name).Msg("stale upload dropped")
		return false
	}

	if err != nil {
		c.err = err
		return true
	}

	c.fileName = name
	c.deck = cards
	c.err = nil
	c.log.Info().Str("file", name).Int("cards", len(cards)).Msg("deck loaded")
	return true
}

// Load replaces the loaded deck with cards that were decoded earlier.
func (c *Controller) Load(name string, cards []domain.Card) {
	c.mu.Lock()
	c.generation++
	t := Ticket(c.generation)
	c.mu.Unlock()

	c.CompleteUpload(t, name, cards, nil)
}

// Fail shows err to the user in place of any previous error.
func (c *Controller) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Start prepares the loaded deck and begins reviewing it.
func (c *Controller) Start(opts importer.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.err = nil
	if c.session != nil {
		return nil
	}
	if len(c.deck) == 0 {
		return ErrNothingToReview
	}

	cards, err := importer.Prepare(c.deck, opts, c.rng)
	if err != nil {
		c.err = err
		return err
	}
	if len(cards) == 0 {
		c.clearDeck()
		return ErrNothingToReview
	}

	s, err := review.New(cards)
	if err != nil {
		return err
	}
	c.session = s
	c.release = c.keys.Attach(s)

	c.log.Info().Str("file", c.fileName).Int("cards", len(cards)).Bool("shuffle", opts.Shuffle).Msg("review started")
	return nil
}

// Reset discards the session and everything imported, returning to an
// empty import screen. Uploads still being decoded are dropped.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.release != nil {
		c.release()
		c.release = nil
	}
	c.session = nil
	c.generation++
	c.err = nil
	c.clearDeck()
}

func (c *Controller) clearDeck() {
	c.fileName = ""
	c.deck = nil
}

// Next moves to the next card.
func (c *Controller) Next() bool {
	return c.apply((*review.Session).Next)
}

// Previous moves to the previous card.
func (c *Controller) Previous() bool {
	return c.apply((*review.Session).Previous)
}

// Flip turns the current card over.
func (c *Controller) Flip() bool {
	return c.apply((*review.Session).Flip)
}

// Finish completes the review when on the last card.
func (c *Controller) Finish() bool {
	return c.apply((*review.Session).Finish)
}

func (c *Controller) apply(op func(*review.Session) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return false
	}
	return op(c.session)
}

// Press delivers a key press to the active session.
func (c *Controller) Press(k review.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys.Press(k)
}

// Listening reports whether key presses currently reach a session.
func (c *Controller) Listening() bool {
	return c.keys.Attached()
}

// View is a snapshot of the controller for rendering.
type View struct {
	Phase     Phase
	FileName  string
	CardCount int
	Error     string

	Face     string
	Flipped  bool
	Position int // 1-based
	Total    int
	Percent  float64
	IsFirst  bool
	IsLast   bool
}

func (v View) Importing() bool { return v.Phase == PhaseImport }
func (v View) Reviewing() bool { return v.Phase == PhaseReview }
func (v View) Done() bool { return v.Phase == PhaseCompleted }

// Loaded reports whether a deck is ready to be started.
func (v View) Loaded() bool { return v.CardCount > 0 }

// View returns the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		FileName:  c.fileName,
		CardCount: len(c.deck),
	}
	if c.err != nil {
		v.Error = c.err.Error()
	}

	switch {
	case c.session == nil:
		v.Phase = PhaseImport
	case c.session.Completed():
		v.Phase = PhaseCompleted
	default:
		v.Phase = PhaseReview
		v.Face = c.session.Face()
		v.Flipped = c.session.Flipped()
		v.Position, v.Total = c.session.Progress()
		v.Percent = c.session.Percent()
		v.IsFirst = c.session.IsFirst()
		v.IsLast = c.session.IsLast()
	}
	return v
}
