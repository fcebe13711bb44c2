// Package logging configures the zerolog logger shared by both front-ends.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a JSON logger at the given level writing to file, or to w
// when file is empty. A nil w discards output. The returned func closes
// the file, if one was opened.
//
// The level parameter can be one of: debug, info, warn, error.
func New(level, file string, w io.Writer) (zerolog.Logger, func(), error) {
	closer := func() {}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, closer, err
	}

	if w == nil {
		w = io.Discard
	}
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("create logs dir: %w", err)
		}

		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, closer, err
		}
		closer = func() { _ = f.Close() }
		w = f
	}

	l := zerolog.New(w).
		With().
		Timestamp().
		Logger().
		Level(lvl)

	return l, closer, nil
}

// SetGlobal makes l the logger behind Component.
func SetGlobal(l zerolog.Logger) {
	log.Logger = l
}

// Component creates a new logger with a component identifier.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}
