package tui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/conorfennell/recall/internal/importer"
)

var errNotNumber = errors.New("enter a whole number or leave blank")

// optionFields holds the form's text while it is being edited.
type optionFields struct {
	start, end, limit string
	shuffle           bool
}

func fieldsFrom(opts importer.Options) optionFields {
	return optionFields{
		start:   formatBound(opts.Start),
		end:     formatBound(opts.End),
		limit:   formatBound(opts.Limit),
		shuffle: opts.Shuffle,
	}
}

func (f optionFields) options() (importer.Options, error) {
	start, err := parseBound(f.start)
	if err != nil {
		return importer.Options{}, err
	}
	end, err := parseBound(f.end)
	if err != nil {
		return importer.Options{}, err
	}
	limit, err := parseBound(f.limit)
	if err != nil {
		return importer.Options{}, err
	}
	return importer.Options{Start: start, End: end, Limit: limit, Shuffle: f.shuffle}, nil
}

// parseBound reads an optional number; blank means not set.
func parseBound(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, errNotNumber
	}
	return &v, nil
}

func formatBound(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func validBound(s string) error {
	_, err := parseBound(s)
	return err
}

// AskOptions lets the user adjust the review options before the file is
// loaded. It returns huh.ErrUserAborted when the form is cancelled.
func AskOptions(name string, defaults importer.Options) (importer.Options, error) {
	f := fieldsFrom(defaults)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Start").
				Description("First card to review, counting from 1. Blank starts at the beginning.").
				Validate(validBound).
				Value(&f.start),
			huh.NewInput().
				Title("End").
				Description("Last card to review. Blank reviews to the end of the records.").
				Validate(validBound).
				Value(&f.end),
			huh.NewInput().
				Title("Limit").
				Description("Maximum number of cards. Blank reviews them all.").
				Validate(validBound).
				Value(&f.limit),
			huh.NewConfirm().
				Title("Shuffle flashcards?").
				Value(&f.shuffle),
		).Title("Review " + name),
	)
	if err := form.Run(); err != nil {
		return importer.Options{}, err
	}
	return f.options()
}
