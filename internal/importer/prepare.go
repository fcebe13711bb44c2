package importer

import (
	"math/rand/v2"

	"github.com/conorfennell/recall/internal/domain"
)

// Options selects which cards of a deck are reviewed. A nil bound means
// the user left the field blank.
type Options struct {
	Start   *int // 1-based, inclusive; defaults to 1
	End     *int // 1-based, inclusive; non-positive means the deck length
	Limit   *int // ignored unless positive
	Shuffle bool
}

// Int returns a pointer to v, for filling in Options.
func Int(v int) *int {
	return &v
}

// Prepare slices deck to the requested range, optionally shuffles it and
// truncates it to the limit. The result never shares memory with deck.
// A nil rng uses the package-level generator.
func Prepare(deck []domain.Card, opts Options, rng *rand.Rand) ([]domain.Card, error) {
	start := 1
	if opts.Start != nil {
		start = *opts.Start
	}
	end := len(deck)
	if opts.End != nil && *opts.End > 0 {
		end = *opts.End
	}

	if start > end || start < 1 || end > len(deck) {
		return nil, &domain.ImportError{Kind: domain.InvalidRange, Max: int64(len(deck))}
	}

	cards := make([]domain.Card, end-start+1)
	copy(cards, deck[start-1:end])

	if opts.Shuffle {
		swap := func(i, j int) { cards[i], cards[j] = cards[j], cards[i] }
		if rng != nil {
			rng.Shuffle(len(cards), swap)
		} else {
			rand.Shuffle(len(cards), swap)
		}
	}

	if opts.Limit != nil && *opts.Limit > 0 && *opts.Limit < len(cards) {
		cards = cards[:*opts.Limit]
	}

	return cards, nil
}
