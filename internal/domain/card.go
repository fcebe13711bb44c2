package domain

// Card is a single flashcard as read from a spreadsheet row.
// Cards are never modified after import; their identity is their
// position in the deck they belong to.
type Card struct {
	Front string
	Back  string
}

// Face returns the text shown for the given side of the card.
func (c Card) Face(flipped bool) string {
	if flipped {
		return c.Back
	}
	return c.Front
}
