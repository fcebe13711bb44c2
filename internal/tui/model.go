// Package tui is the terminal front-end: it loads one workbook and reviews
// it with the same keys as the web page.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/importer"
	"github.com/conorfennell/recall/internal/logging"
	"github.com/conorfennell/recall/internal/parser"
	"github.com/conorfennell/recall/internal/study"
)

const maxBarWidth = 60

// loadedMsg carries the result of decoding the workbook.
type loadedMsg struct {
	ticket study.Ticket
	name   string
	cards  []domain.Card
	err    error
}

// Model is the bubbletea model of the terminal front-end.
type Model struct {
	ctrl *study.Controller
	path string
	opts importer.Options
	log  zerolog.Logger

	keys keyMap
	help help.Model
	bar  progress.Model

	loading  bool
	quitting bool
}

// New returns a model that reviews the workbook at path with opts.
func New(ctrl *study.Controller, path string, opts importer.Options) Model {
	return Model{
		ctrl:    ctrl,
		path:    path,
		opts:    opts,
		log:     logging.Component("tui"),
		keys:    defaultKeyMap(),
		help:    help.New(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(40)),
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return m.load()
}

// load validates the file and decodes it off the update loop.
func (m Model) load() tea.Cmd {
	name := filepath.Base(m.path)
	info, err := os.Stat(m.path)
	if err != nil {
		m.ctrl.Fail(&domain.ImportError{Kind: domain.CorruptFile, Err: err})
		return func() tea.Msg { return loadedMsg{err: err} }
	}

	ticket, err := m.ctrl.BeginUpload(name, info.Size())
	if err != nil {
		return func() tea.Msg { return loadedMsg{err: err} }
	}

	path := m.path
	return func() tea.Msg {
		cards, err := parser.ParseFile(path)
		return loadedMsg{ticket: ticket, name: name, cards: cards, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)
		return m, nil

	case loadedMsg:
		return m.handleLoaded(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleLoaded(msg loadedMsg) Model {
	if msg.ticket == 0 {
		// Rejected before decoding; the controller already holds the error.
		m.loading = false
		return m
	}
	if !m.ctrl.CompleteUpload(msg.ticket, msg.name, msg.cards, msg.err) {
		return m
	}
	m.loading = false
	if msg.err != nil {
		return m
	}

	// A rejected range is reported through the controller's view.
	if err := m.ctrl.Start(m.opts); err != nil {
		m.log.Debug().Err(err).Str("file", msg.name).Msg("start rejected")
	}
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Restart):
		return m.restart()
	case key.Matches(msg, m.keys.Finish) && m.ctrl.View().Done():
		return m.restart()
	}

	if k, ok := m.keys.reviewKey(msg); ok {
		m.ctrl.Press(k)
	}
	return m, nil
}

// restart resets the controller and imports the file again. It does
// nothing while a load is pending or a review is running.
func (m Model) restart() (tea.Model, tea.Cmd) {
	if m.loading || m.ctrl.View().Reviewing() {
		return m, nil
	}
	m.ctrl.Reset()
	m.loading = true
	return m, m.load()
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("27"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var cardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("51")).
	Padding(1, 4).
	Width(maxBarWidth).
	Align(lipgloss.Center)

var flippedStyle = cardStyle.BorderForeground(lipgloss.Color("226"))

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Recall") + "\n\n")

	v := m.ctrl.View()
	switch {
	case m.loading:
		fmt.Fprintf(&b, "Loading %s…\n", filepath.Base(m.path))
		return b.String()
	case v.Reviewing():
		m.renderReview(&b, v)
	case v.Done():
		b.WriteString("🎉 Congratulations!\n")
		b.WriteString(mutedStyle.Render("You’ve completed all the flashcards.") + "\n\n")
		b.WriteString(m.help.ShortHelpView(m.keys.idleHelp()))
	default:
		if v.Error != "" {
			b.WriteString(errorStyle.Render(v.Error) + "\n\n")
		}
		b.WriteString(m.help.ShortHelpView(m.keys.idleHelp()))
	}
	return b.String()
}

func (m Model) renderReview(b *strings.Builder, v study.View) {
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Word %d of %d", v.Position, v.Total)) + "\n")
	b.WriteString(m.bar.ViewAs(v.Percent) + "\n\n")

	side, style := "Front", cardStyle
	if v.Flipped {
		side, style = "Back", flippedStyle
	}
	b.WriteString(style.Render(mutedStyle.Render(side) + "\n\n" + v.Face))
	b.WriteString("\n\n")

	keys := m.keys
	keys.Finish.SetEnabled(v.IsLast)
	keys.Previous.SetEnabled(!v.IsFirst)
	b.WriteString(m.help.ShortHelpView(keys.reviewHelp()))
}
