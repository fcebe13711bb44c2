package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps ":memory:"
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DeckInfo describes a stored deck without its cards.
type DeckInfo struct {
	Hash       string
	Name       string
	SourcePath string
	// Uploaded is set once a user has uploaded the deck. It is never
	// cleared, so a directory scan does not remove such decks.
	Uploaded   bool
	CardCount  int
	ImportedAt time.Time
}

// Deck is a stored deck with its cards in order.
type Deck struct {
	DeckInfo
	Cards []domain.Card
}

// SaveDeck inserts a deck, replacing any stored deck with the same hash.
// An empty SourcePath keeps the stored one, and the Uploaded flag only
// ever goes from false to true.
func (db *DB) SaveDeck(ctx context.Context, deck Deck) error {
	if deck.ImportedAt.IsZero() {
		deck.ImportedAt = time.Now()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for deck %s: %w", deck.Hash, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE deck_hash = ?`, deck.Hash); err != nil {
		return fmt.Errorf("failed to clear cards for deck %s: %w", deck.Hash, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO decks (hash, name, source_path, uploaded, card_count, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			name = excluded.name,
			source_path = CASE WHEN excluded.source_path = '' THEN decks.source_path ELSE excluded.source_path END,
			uploaded = MAX(decks.uploaded, excluded.uploaded),
			card_count = excluded.card_count,
			imported_at = excluded.imported_at
	`,
		deck.Hash,
		deck.Name,
		deck.SourcePath,
		deck.Uploaded,
		len(deck.Cards),
		deck.ImportedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deck %s: %w", deck.Hash, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cards (deck_hash, position, front, back)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare card insert: %w", err)
	}
	defer stmt.Close()

	for i, card := range deck.Cards {
		if _, err := stmt.ExecContext(ctx, deck.Hash, i, card.Front, card.Back); err != nil {
			return fmt.Errorf("failed to insert card %d of deck %s: %w", i, deck.Hash, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deck %s: %w", deck.Hash, err)
	}
	return nil
}

// FindDeck retrieves a deck's metadata by its hash. It returns nil when no
// such deck is stored.
func (db *DB) FindDeck(ctx context.Context, hash string) (*DeckInfo, error) {
	var d DeckInfo
	row := db.conn.QueryRowContext(ctx, `
		SELECT hash, name, source_path, uploaded, card_count, imported_at
		FROM decks WHERE hash = ?
	`, hash)

	err := row.Scan(&d.Hash, &d.Name, &d.SourcePath, &d.Uploaded, &d.CardCount, &d.ImportedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Deck not found
		}
		return nil, fmt.Errorf("failed to find deck %s: %w", hash, err)
	}
	return &d, nil
}

// LoadCards returns a deck's cards in their stored order.
func (db *DB) LoadCards(ctx context.Context, hash string) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT front, back
		FROM cards WHERE deck_hash = ?
		ORDER BY position
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for deck %s: %w", hash, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(&c.Front, &c.Back); err != nil {
			return nil, fmt.Errorf("failed to scan card row for deck %s: %w", hash, err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// ListDecks retrieves all stored decks, most recently imported first.
func (db *DB) ListDecks(ctx context.Context) ([]DeckInfo, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT hash, name, source_path, uploaded, card_count, imported_at
		FROM decks
		ORDER BY imported_at DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	var decks []DeckInfo
	for rows.Next() {
		var d DeckInfo
		if err := rows.Scan(&d.Hash, &d.Name, &d.SourcePath, &d.Uploaded, &d.CardCount, &d.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deck row: %w", err)
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// DeleteDeck removes a deck and its cards.
func (db *DB) DeleteDeck(ctx context.Context, hash string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for deck %s: %w", hash, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE deck_hash = ?`, hash); err != nil {
		return fmt.Errorf("failed to delete cards of deck %s: %w", hash, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE hash = ?`, hash); err != nil {
		return fmt.Errorf("failed to delete deck %s: %w", hash, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete of deck %s: %w", hash, err)
	}
	return nil
}
