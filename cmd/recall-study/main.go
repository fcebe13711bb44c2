package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/pflag"

	"github.com/conorfennell/recall/internal/config"
	"github.com/conorfennell/recall/internal/logging"
	"github.com/conorfennell/recall/internal/study"
	"github.com/conorfennell/recall/internal/tui"
)

var flagKeys = map[string]string{
	"start":     "study.start",
	"end":       "study.end",
	"limit":     "study.limit",
	"shuffle":   "study.shuffle",
	"log-level": "log.level",
	"log-file":  "log.file",
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "recall-study: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("recall-study", pflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: recall-study [flags] FILE\n\nReview the flashcards in an XLS or XLSX workbook.\n\n")
		flags.PrintDefaults()
	}
	configPath := flags.String("config", "", "Path to a YAML config file")
	interactive := flags.BoolP("interactive", "i", false, "Choose the review options in a form")
	flags.Int("start", 0, "First card to review, counting from 1")
	flags.Int("end", 0, "Last card to review")
	flags.Int("limit", 0, "Maximum number of cards to review")
	flags.Bool("shuffle", false, "Shuffle the cards")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Write logs to this file; nothing is logged otherwise")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return errors.New("expected exactly one FILE")
	}
	path := flags.Arg(0)

	cfg, err := config.Load(*configPath, flags, flagKeys)
	if err != nil {
		return err
	}

	// Logs never go to the terminal the UI is drawing on.
	logger, closeLog, err := logging.New(cfg.Log.Level, cfg.Log.File, nil)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLog()
	logging.SetGlobal(logger)

	opts := cfg.Study.Options()
	if *interactive {
		opts, err = tui.AskOptions(filepath.Base(path), opts)
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}
	}

	ctrl := study.New(study.WithLogger(logging.Component("study")))
	p := tea.NewProgram(tui.New(ctrl, path, opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
