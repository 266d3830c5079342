package sqlite

import "database/sql"

// schema sets up the ledger tables. It runs on startup to ensure tables exist.
// Cleared entries keep their rows and get archived_at set.
const schema = `
CREATE TABLE IF NOT EXISTS entries (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    payer TEXT NOT NULL,
    description TEXT NOT NULL,
    total REAL NOT NULL,
    recorded_at INTEGER NOT NULL,
    archived_at INTEGER
);

CREATE TABLE IF NOT EXISTS entry_shares (
    entry_seq INTEGER NOT NULL,
    group_name TEXT NOT NULL,
    amount REAL NOT NULL,
    PRIMARY KEY (entry_seq, group_name),
    FOREIGN KEY (entry_seq) REFERENCES entries(seq) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entries_archived_at ON entries(archived_at, seq);
CREATE INDEX IF NOT EXISTS idx_entry_shares_entry_seq ON entry_shares(entry_seq);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
