// Package library keeps the stored decks in step with a directory of
// spreadsheets.
package library

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/conorfennell/recall/internal/importer"
	"github.com/conorfennell/recall/internal/knol"
	"github.com/conorfennell/recall/internal/parser"
	"github.com/conorfennell/recall/internal/storage"
)

// Report summarises one scan.
type Report struct {
	Parsed  int
	Removed int
	Errors  []error
}

// Scan imports every spreadsheet under dir into db and removes stored
// decks whose file under dir no longer exists, unless a user uploaded them. Files that fail validation
// or decoding are reported and skipped.
func Scan(ctx context.Context, db *storage.DB, dir string, log zerolog.Logger) (Report, error) {
	var report Report

	root, err := filepath.Abs(dir)
	if err != nil {
		return report, fmt.Errorf("resolve %s: %w", dir, err)
	}

	found := make(map[string]bool)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !slices.Contains(importer.AllowedExtensions, importer.Extension(d.Name())) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("stat %s: %w", path, err))
			return nil
		}
		if err := importer.Validate(d.Name(), info.Size()); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("%s: %w", path, err))
			return nil
		}

		cards, err := parser.ParseFile(path)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, err))
			return nil
		}

		deck := storage.Deck{
			DeckInfo: storage.DeckInfo{
				Hash:       knol.DeckHash(cards),
				Name:       d.Name(),
				SourcePath: path,
			},
			Cards: cards,
		}
		if err := db.SaveDeck(ctx, deck); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("db save for %s: %w", path, err))
			return nil
		}

		found[deck.Hash] = true
		report.Parsed++
		log.Debug().Str("path", path).Int("cards", len(cards)).Msg("deck imported")
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	decks, err := db.ListDecks(ctx)
	if err != nil {
		return report, err
	}

	for _, d := range decks {
		if d.SourcePath == "" || !within(root, d.SourcePath) || found[d.Hash] {
			continue
		}
		if d.Uploaded {
			log.Debug().Str("path", d.SourcePath).Str("hash", d.Hash).Msg("source gone, keeping uploaded deck")
			continue
		}
		log.Info().Str("path", d.SourcePath).Str("hash", d.Hash).Msg("orphaned deck, deleting")
		if err := db.DeleteDeck(ctx, d.Hash); err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		report.Removed++
	}

	log.Info().
		Str("path", root).
		Int("parsed_decks", report.Parsed).
		Int("orphaned_deleted", report.Removed).
		Int("errors", len(report.Errors)).
		Msg("library scan complete")

	return report, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
