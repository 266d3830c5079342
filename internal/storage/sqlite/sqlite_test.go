package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/moneybot/internal/models"
	"github.com/mmynk/moneybot/internal/storage"
)

func testGroups(t *testing.T) *models.GroupTable {
	t.Helper()
	groups, err := models.NewGroupTable([]models.Group{
		{Name: "A", Members: []int64{1}},
		{Name: "B", Members: []int64{2}},
	})
	if err != nil {
		t.Fatalf("Failed to build groups: %v", err)
	}
	return groups
}

func TestSQLiteStore(t *testing.T) {
	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "moneybot-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "ledger.db")
	store, err := New(dbPath, testGroups(t))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	ctx := context.Background()

	t.Run("Append fills RecordedAt and All returns it", func(t *testing.T) {
		entry := &models.Entry{
			Payer:       "A",
			Description: "dinner",
			Total:       50,
			Shares:      map[string]float64{"A": 25, "B": 25},
		}
		if err := store.Append(ctx, entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if !entry.RecordedAt.Equal(clock) {
			t.Errorf("Expected RecordedAt to be set to %v, got %v", clock, entry.RecordedAt)
		}

		entries, err := store.All(ctx)
		if err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("Expected 1 entry, got %d", len(entries))
		}
		got := entries[0]
		if got.Payer != "A" || got.Description != "dinner" || got.Total != 50 {
			t.Errorf("Entry mismatch: %+v", got)
		}
		if got.Shares["A"] != 25 || got.Shares["B"] != 25 {
			t.Errorf("Shares mismatch: %v", got.Shares)
		}
		if !got.RecordedAt.Equal(clock) {
			t.Errorf("RecordedAt mismatch: got %v, want %v", got.RecordedAt, clock)
		}
	})

	t.Run("Append rejects shares that do not add up", func(t *testing.T) {
		err := store.Append(ctx, &models.Entry{
			Payer:  "B",
			Total:  10,
			Shares: map[string]float64{"A": 1, "B": 1},
		})
		if !errors.Is(err, storage.ErrInvalidEntry) {
			t.Errorf("Expected ErrInvalidEntry, got %v", err)
		}
	})

	t.Run("RemoveLast drops only the newest entry", func(t *testing.T) {
		second := &models.Entry{Payer: "B", Description: "taxi", Total: 10, Shares: map[string]float64{"A": 10, "B": 0}}
		if err := store.Append(ctx, second); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := store.RemoveLast(ctx); err != nil {
			t.Fatalf("RemoveLast failed: %v", err)
		}

		entries, err := store.All(ctx)
		if err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Description != "dinner" {
			t.Errorf("Expected only the dinner entry, got %+v", entries)
		}
	})

	t.Run("Clear archives and keeps rows", func(t *testing.T) {
		archive, err := store.Clear(ctx)
		if err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		if archive != "entries@1709294400" {
			t.Errorf("Unexpected archive name: %s", archive)
		}

		entries, err := store.All(ctx)
		if err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("Expected empty ledger after clear, got %d entries", len(entries))
		}

		archived, err := store.Archived(ctx, archive)
		if err != nil {
			t.Fatalf("Archived failed: %v", err)
		}
		if len(archived) != 1 || archived[0].Description != "dinner" || archived[0].Shares["B"] != 25 {
			t.Errorf("Archive content mismatch: %+v", archived)
		}
	})

	t.Run("RemoveLast on empty ledger is a no-op", func(t *testing.T) {
		if err := store.RemoveLast(ctx); err != nil {
			t.Errorf("RemoveLast on empty ledger failed: %v", err)
		}
		archived, err := store.Archived(ctx, "entries@1709294400")
		if err != nil {
			t.Fatalf("Archived failed: %v", err)
		}
		if len(archived) != 1 {
			t.Errorf("RemoveLast must not touch archived entries, got %d", len(archived))
		}
	})

	t.Run("Second clear in the same second gets its own name", func(t *testing.T) {
		entry := &models.Entry{Payer: "A", Description: "bread", Total: 2, Shares: map[string]float64{"A": 1, "B": 1}}
		if err := store.Append(ctx, entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		archive, err := store.Clear(ctx)
		if err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		if archive != "entries@1709294401" {
			t.Errorf("Unexpected archive name: %s", archive)
		}
		archived, err := store.Archived(ctx, archive)
		if err != nil {
			t.Fatalf("Archived failed: %v", err)
		}
		if len(archived) != 1 || archived[0].Description != "bread" {
			t.Errorf("Archive content mismatch: %+v", archived)
		}
	})

	t.Run("Missing share row is reported as corrupt", func(t *testing.T) {
		entry := &models.Entry{Payer: "A", Description: "soap", Total: 4, Shares: map[string]float64{"A": 2, "B": 2}}
		if err := store.Append(ctx, entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if _, err := store.db.Exec("DELETE FROM entry_shares WHERE group_name = 'B' AND entry_seq = (SELECT MAX(seq) FROM entries)"); err != nil {
			t.Fatalf("Failed to corrupt shares: %v", err)
		}

		_, err := store.All(ctx)
		if !errors.Is(err, storage.ErrCorruptRecord) {
			t.Errorf("Expected ErrCorruptRecord, got %v", err)
		}
	})
}
