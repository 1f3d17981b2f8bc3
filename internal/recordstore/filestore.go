package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dusk-indust/usercrud/internal/user"
)

// Compile-time assertion: *FileStore satisfies Store.
var _ Store = (*FileStore)(nil)

// FileStore keeps the collection in one JSON file, pretty-printed with two
// space indentation.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileLogger sets the logger used to report swallowed read failures.
func WithFileLogger(l *slog.Logger) FileOption {
	return func(s *FileStore) {
		s.logger = l
	}
}

// NewFileStore returns a store backed by the file at path. The file and its
// parent directories are created on the first Save.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the location of the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and decodes the file. Absent, unreadable or corrupt files all
// load as an empty collection.
func (s *FileStore) Load(ctx context.Context) ([]user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("recordstore: read failed, using empty collection", "path", s.path, "error", err)
		}
		return []user.User{}, nil
	}

	var users []user.User
	if err := json.Unmarshal(data, &users); err != nil {
		s.logger.Warn("recordstore: corrupt data file, using empty collection", "path", s.path, "error", err)
		return []user.User{}, nil
	}
	if users == nil {
		users = []user.User{}
	}
	return users, nil
}

// Save encodes users and replaces the file. The data is written to a
// temporary sibling, synced and renamed into place, so readers see either
// the old or the new collection.
func (s *FileStore) Save(ctx context.Context, users []user.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(users)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("recordstore: create data dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("recordstore: create temporary file: %w", err)
	}

	// Write, sync, close, in that order. Any failure removes the temporary
	// file and reports the first error.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("recordstore: write temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("recordstore: sync temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("recordstore: close temporary file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("recordstore: replace data file: %w", err)
	}
	return nil
}

// Encode renders the persisted layout: a JSON array, two space indentation,
// no trailing newline. A nil collection encodes as [].
func Encode(users []user.User) ([]byte, error) {
	if users == nil {
		users = []user.User{}
	}
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("recordstore: marshal users: %w", err)
	}
	return data, nil
}
