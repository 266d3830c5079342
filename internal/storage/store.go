// Package storage provides abstractions for the append-only purchase ledger.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/moneybot/internal/models"
)

var (
	// ErrCorruptRecord is matched by every *CorruptRecordError.
	ErrCorruptRecord = errors.New("corrupt ledger record")
	// ErrStoreIO is matched by every *IOError.
	ErrStoreIO = errors.New("ledger i/o failure")
	// ErrInvalidEntry is returned when an entry cannot be stored as given.
	ErrInvalidEntry = errors.New("invalid ledger entry")
)

// Ledger defines the append-only purchase ledger.
// Implementations serialize their own calls; callers need no extra locking.
type Ledger interface {
	// Append durably adds entry as the new last record.
	// The record is either fully present afterwards or absent.
	Append(ctx context.Context, entry *models.Entry) error

	// All returns every record in append order.
	// Any unparsable record fails the whole read with a *CorruptRecordError.
	All(ctx context.Context) ([]models.Entry, error)

	// RemoveLast deletes the most recently appended record and leaves every
	// earlier record untouched. It is a no-op on an empty ledger.
	RemoveLast(ctx context.Context) error

	// Clear archives the active ledger under a timestamped name and starts
	// an empty one. It returns the archive name. Archives are never deleted.
	Clear(ctx context.Context) (string, error)

	// Close releases any resources held by the store.
	Close() error
}

// CorruptRecordError describes a stored record that cannot be parsed.
type CorruptRecordError struct {
	// Record is the 1-based position of the record in append order.
	Record int
	Reason string
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt ledger record %d: %s", e.Record, e.Reason)
}

// Is makes errors.Is(err, ErrCorruptRecord) succeed.
func (e *CorruptRecordError) Is(target error) bool {
	return target == ErrCorruptRecord
}

// IOError wraps a failure of the underlying storage during op.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("ledger %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStoreIO) succeed.
func (e *IOError) Is(target error) bool {
	return target == ErrStoreIO
}
