package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/conorfennell/recall/internal/review"
)

type keyMap struct {
	Previous key.Binding
	Next     key.Binding
	Flip     key.Binding
	Finish   key.Binding
	Restart  key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Previous: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous")),
		Next:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		Flip:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "flip")),
		Finish:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "finish")),
		Restart:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "start over")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) reviewHelp() []key.Binding {
	return []key.Binding{k.Previous, k.Next, k.Flip, k.Finish, k.Quit}
}

func (k keyMap) idleHelp() []key.Binding {
	return []key.Binding{k.Restart, k.Quit}
}

// reviewKey translates a terminal key to the review key it stands for.
func (k keyMap) reviewKey(msg tea.KeyMsg) (review.Key, bool) {
	switch {
	case key.Matches(msg, k.Previous):
		return review.KeyLeft, true
	case key.Matches(msg, k.Next):
		return review.KeyRight, true
	case key.Matches(msg, k.Flip):
		return review.KeySpace, true
	case key.Matches(msg, k.Finish):
		return review.KeyEnter, true
	}
	return "", false
}
