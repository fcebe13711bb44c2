package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/recall/internal/domain"
)

// Normalize joins the card's sides after trimming whitespace, lowercasing
// and normalizing line endings in each.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	// Joined with a newline so "ab"+"c" and "a"+"bc" differ.
	return normalizePart(card.Front) + "\n" + normalizePart(card.Back)
}

// Hash returns the SHA-256 of the normalized card as a hex string.
func Hash(card domain.Card) string {
	hashBytes := sha256.Sum256([]byte(Normalize(card)))
	return fmt.Sprintf("%x", hashBytes)
}

// DeckHash fingerprints an ordered deck. Decks with the same cards in the
// same order hash the same, whatever file they came from.
func DeckHash(cards []domain.Card) string {
	h := sha256.New()
	for _, c := range cards {
		fmt.Fprintf(h, "%s\n", Hash(c))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
