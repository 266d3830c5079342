// Package flatfile provides a line-per-record implementation of the
// storage.Ledger interface. It is the default ledger backend.
package flatfile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mmynk/moneybot/internal/models"
	"github.com/mmynk/moneybot/internal/storage"
)

// Ensure FileStore implements storage.Ledger
var _ storage.Ledger = (*FileStore)(nil)

// FileStore keeps the ledger in a single text file, one record per line.
type FileStore struct {
	mu     sync.Mutex
	path   string
	groups *models.GroupTable
	now    func() time.Time
}

// New opens the ledger file at path, creating it and its parent directory
// if needed.
func New(path string, groups *models.GroupTable) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &storage.IOError{Op: "init", Path: path, Err: err}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, &storage.IOError{Op: "init", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, &storage.IOError{Op: "init", Path: path, Err: err}
	}

	return &FileStore{path: path, groups: groups, now: time.Now}, nil
}

// Path returns the active ledger file path.
func (s *FileStore) Path() string {
	return s.path
}

// Close is a no-op; files are opened per call.
func (s *FileStore) Close() error {
	return nil
}

// Append writes the entry as one line and fsyncs before returning.
func (s *FileStore) Append(ctx context.Context, entry *models.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = s.now()
	}
	if err := entry.Validate(s.groups); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidEntry, err)
	}
	line, err := encodeRecord(entry, s.groups)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidEntry, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &storage.IOError{Op: "append", Path: s.path, Err: err}
	}
	// One write per record keeps a crash from interleaving partial lines.
	if _, err := f.Write([]byte(line + "\n")); err != nil {
		f.Close()
		return &storage.IOError{Op: "append", Path: s.path, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return &storage.IOError{Op: "append", Path: s.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &storage.IOError{Op: "append", Path: s.path, Err: err}
	}
	return nil
}

// All reads and parses every record in append order.
func (s *FileStore) All(ctx context.Context) ([]models.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &storage.IOError{Op: "read", Path: s.path, Err: err}
	}
	defer f.Close()

	var entries []models.Entry
	r := bufio.NewReader(f)
	for n := 1; ; n++ {
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, &storage.IOError{Op: "read", Path: s.path, Err: err}
		}
		if line == "" && errors.Is(err, io.EOF) {
			break
		}

		entry, perr := decodeRecord(trimNewline(line), s.groups)
		if perr != nil {
			return nil, &storage.CorruptRecordError{Record: n, Reason: perr.Error()}
		}
		entries = append(entries, entry)

		if errors.Is(err, io.EOF) {
			break
		}
	}
	return entries, nil
}

// RemoveLast truncates the file just after the second-to-last newline.
func (s *FileStore) RemoveLast(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_RDWR, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &storage.IOError{Op: "remove-last", Path: s.path, Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return &storage.IOError{Op: "remove-last", Path: s.path, Err: err}
	}
	if len(data) == 0 {
		return nil
	}

	body := bytes.TrimSuffix(data, []byte("\n"))
	keep := bytes.LastIndexByte(body, '\n') + 1

	if err := f.Truncate(int64(keep)); err != nil {
		return &storage.IOError{Op: "remove-last", Path: s.path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &storage.IOError{Op: "remove-last", Path: s.path, Err: err}
	}
	return nil
}

// Clear renames the active file to <path>.<unix-seconds> and creates a new
// empty one. If that name is taken the next free second is used.
func (s *FileStore) Clear(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	archive, err := s.archiveName()
	if err != nil {
		return "", &storage.IOError{Op: "clear", Path: s.path, Err: err}
	}
	if err := os.Rename(s.path, archive); err != nil {
		return "", &storage.IOError{Op: "clear", Path: s.path, Err: err}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return archive, &storage.IOError{Op: "clear", Path: s.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return archive, &storage.IOError{Op: "clear", Path: s.path, Err: err}
	}
	return archive, nil
}

func (s *FileStore) archiveName() (string, error) {
	for ts := s.now().Unix(); ; ts++ {
		name := fmt.Sprintf("%s.%d", s.path, ts)
		_, err := os.Lstat(name)
		if errors.Is(err, fs.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func trimNewline(line string) string {
	return strings.TrimRight(line, "\r\n")
}
