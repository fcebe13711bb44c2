package storage

const schema = `
-- The 'decks' table stores one row per imported spreadsheet, keyed by a
-- fingerprint of its cards so re-importing the same deck replaces it.
CREATE TABLE IF NOT EXISTS decks (
    hash TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    source_path TEXT NOT NULL DEFAULT '', -- set for decks found by a directory scan
    uploaded INTEGER NOT NULL DEFAULT 0,  -- set once the deck has been uploaded
    card_count INTEGER NOT NULL,
    imported_at DATETIME NOT NULL
);

-- The 'cards' table keeps each deck's cards in sheet order.
CREATE TABLE IF NOT EXISTS cards (
    deck_hash TEXT NOT NULL,
    position INTEGER NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,

    PRIMARY KEY (deck_hash, position),
    FOREIGN KEY(deck_hash) REFERENCES decks(hash)
);

CREATE INDEX IF NOT EXISTS idx_decks_source_path ON decks(source_path);
`
