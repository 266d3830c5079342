// Package sqlite provides a SQLite-backed implementation of the storage.Ledger interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/moneybot/internal/models"
	"github.com/mmynk/moneybot/internal/storage"
)

// Ensure SQLiteStore implements storage.Ledger
var _ storage.Ledger = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Ledger using SQLite.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	groups *models.GroupTable
	now    func() time.Time
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string, groups *models.GroupTable) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single writer; one connection avoids SQLITE_BUSY between pool members.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath, groups: groups, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append persists a new entry and its shares in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, entry *models.Entry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = s.now()
	}
	if err := entry.Validate(s.groups); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidEntry, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.ioErr("append", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO entries (payer, description, total, recorded_at) VALUES (?, ?, ?, ?)",
		entry.Payer, entry.Description, entry.Total, entry.RecordedAt.UnixMicro(),
	)
	if err != nil {
		return s.ioErr("append", fmt.Errorf("failed to insert entry: %w", err))
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return s.ioErr("append", fmt.Errorf("failed to read entry id: %w", err))
	}

	for _, name := range s.groups.Names() {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO entry_shares (entry_seq, group_name, amount) VALUES (?, ?, ?)",
			seq, name, entry.Shares[name],
		)
		if err != nil {
			return s.ioErr("append", fmt.Errorf("failed to insert share: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return s.ioErr("append", fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// All returns the active (not archived) entries in append order.
func (s *SQLiteStore) All(ctx context.Context) ([]models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, payer, description, total, recorded_at FROM entries WHERE archived_at IS NULL ORDER BY seq",
	)
	if err != nil {
		return nil, s.ioErr("read", fmt.Errorf("failed to list entries: %w", err))
	}
	defer rows.Close()

	var (
		entries []models.Entry
		seqs    []int64
	)
	index := make(map[int64]int)
	for rows.Next() {
		var (
			e          models.Entry
			seq        int64
			recordedAt int64
		)
		if err := rows.Scan(&seq, &e.Payer, &e.Description, &e.Total, &recordedAt); err != nil {
			return nil, &storage.CorruptRecordError{Record: len(entries) + 1, Reason: err.Error()}
		}
		e.RecordedAt = time.UnixMicro(recordedAt)
		e.Shares = make(map[string]float64, s.groups.Len())
		index[seq] = len(entries)
		entries = append(entries, e)
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, s.ioErr("read", fmt.Errorf("failed to iterate entries: %w", err))
	}
	rows.Close()

	shareRows, err := s.db.QueryContext(ctx,
		`SELECT s.entry_seq, s.group_name, s.amount
		 FROM entry_shares s JOIN entries e ON e.seq = s.entry_seq
		 WHERE e.archived_at IS NULL`,
	)
	if err != nil {
		return nil, s.ioErr("read", fmt.Errorf("failed to list shares: %w", err))
	}
	defer shareRows.Close()

	for shareRows.Next() {
		var (
			seq    int64
			name   string
			amount float64
		)
		if err := shareRows.Scan(&seq, &name, &amount); err != nil {
			return nil, s.ioErr("read", fmt.Errorf("failed to scan share: %w", err))
		}
		i, ok := index[seq]
		if !ok {
			continue
		}
		if !s.groups.Has(name) {
			return nil, &storage.CorruptRecordError{Record: i + 1, Reason: fmt.Sprintf("share for unknown group %q", name)}
		}
		entries[i].Shares[name] = amount
	}
	if err := shareRows.Err(); err != nil {
		return nil, s.ioErr("read", fmt.Errorf("failed to iterate shares: %w", err))
	}

	for i := range entries {
		if !s.groups.Has(entries[i].Payer) {
			return nil, &storage.CorruptRecordError{Record: i + 1, Reason: fmt.Sprintf("unknown payer group %q", entries[i].Payer)}
		}
		if len(entries[i].Shares) != s.groups.Len() {
			return nil, &storage.CorruptRecordError{
				Record: i + 1,
				Reason: fmt.Sprintf("entry %d has %d shares, expected %d", seqs[i], len(entries[i].Shares), s.groups.Len()),
			}
		}
	}

	return entries, nil
}

// RemoveLast deletes the newest active entry and its shares.
func (s *SQLiteStore) RemoveLast(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.ioErr("remove-last", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	var seq sql.NullInt64
	if err := tx.QueryRowContext(ctx, "SELECT MAX(seq) FROM entries WHERE archived_at IS NULL").Scan(&seq); err != nil {
		return s.ioErr("remove-last", fmt.Errorf("failed to find last entry: %w", err))
	}
	if !seq.Valid {
		return nil
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM entry_shares WHERE entry_seq = ?", seq.Int64); err != nil {
		return s.ioErr("remove-last", fmt.Errorf("failed to delete shares: %w", err))
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE seq = ?", seq.Int64); err != nil {
		return s.ioErr("remove-last", fmt.Errorf("failed to delete entry: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return s.ioErr("remove-last", fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// Clear stamps every active entry as archived. Rows are retained.
// If the current second is already used by an earlier clear the next free
// second is used, so each archive name identifies exactly one rotation.
func (s *SQLiteStore) Clear(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().Unix()
	for {
		var taken int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries WHERE archived_at = ?", ts).Scan(&taken)
		if err != nil {
			return "", s.ioErr("clear", fmt.Errorf("failed to check archive name: %w", err))
		}
		if taken == 0 {
			break
		}
		ts++
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE entries SET archived_at = ? WHERE archived_at IS NULL", ts); err != nil {
		return "", s.ioErr("clear", fmt.Errorf("failed to archive entries: %w", err))
	}
	return fmt.Sprintf("entries@%d", ts), nil
}

// Archived returns the entries rotated away by the Clear call that returned
// archive, in append order.
func (s *SQLiteStore) Archived(ctx context.Context, archive string) ([]models.Entry, error) {
	var ts int64
	if _, err := fmt.Sscanf(archive, "entries@%d", &ts); err != nil {
		return nil, fmt.Errorf("invalid archive name %q: %w", archive, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, payer, description, total, recorded_at FROM entries WHERE archived_at = ? ORDER BY seq",
		ts,
	)
	if err != nil {
		return nil, s.ioErr("read", fmt.Errorf("failed to list archived entries: %w", err))
	}
	defer rows.Close()

	var (
		entries []models.Entry
		seqs    []int64
	)
	for rows.Next() {
		var (
			e          models.Entry
			seq        int64
			recordedAt int64
		)
		if err := rows.Scan(&seq, &e.Payer, &e.Description, &e.Total, &recordedAt); err != nil {
			return nil, s.ioErr("read", fmt.Errorf("failed to scan entry: %w", err))
		}
		e.RecordedAt = time.UnixMicro(recordedAt)
		entries = append(entries, e)
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, s.ioErr("read", fmt.Errorf("failed to iterate archived entries: %w", err))
	}
	rows.Close()

	// Shares are fetched after the entry cursor is released: the pool holds
	// a single connection.
	for i, seq := range seqs {
		shares, err := s.sharesOf(ctx, seq)
		if err != nil {
			return nil, err
		}
		entries[i].Shares = shares
	}
	return entries, nil
}

func (s *SQLiteStore) sharesOf(ctx context.Context, seq int64) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT group_name, amount FROM entry_shares WHERE entry_seq = ?", seq)
	if err != nil {
		return nil, s.ioErr("read", fmt.Errorf("failed to get shares: %w", err))
	}
	defer rows.Close()

	shares := make(map[string]float64)
	for rows.Next() {
		var (
			name   string
			amount float64
		)
		if err := rows.Scan(&name, &amount); err != nil {
			return nil, s.ioErr("read", fmt.Errorf("failed to scan share: %w", err))
		}
		shares[name] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, s.ioErr("read", fmt.Errorf("failed to iterate shares: %w", err))
	}
	return shares, nil
}

func (s *SQLiteStore) ioErr(op string, err error) error {
	return &storage.IOError{Op: op, Path: s.path, Err: err}
}
