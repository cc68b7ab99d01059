package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"dapp/internal/domain"
)

const (
	prefsFilename = "preferences.json"

	prefsLockRetryInterval = 50 * time.Millisecond
	prefsLockTimeout       = 5 * time.Second
)

// PreferenceFileStore is a JSON key-value file shared between dapp processes
// using the same home directory. In-process callers are serialised by mu;
// other processes by an advisory file lock next to the data file.
type PreferenceFileStore struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewPreferenceFileStore returns a PreferenceFileStore rooted at dir.
func NewPreferenceFileStore(dir string, logger *slog.Logger) *PreferenceFileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferenceFileStore{dir: dir, logger: logger.With("component", "prefs")}
}

// Get decodes the value stored under key into out. It reports false when the
// key is absent.
func (s *PreferenceFileStore) Get(key string, out any) (bool, error) {
	var found bool
	err := s.withLock(func(m map[string]json.RawMessage) (bool, error) {
		raw, ok := m[key]
		if !ok {
			return false, nil
		}
		found = true
		return false, json.Unmarshal(raw, out)
	})
	return found, err
}

// Set stores value under key.
func (s *PreferenceFileStore) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode preference %q: %w", key, err)
	}
	return s.withLock(func(m map[string]json.RawMessage) (bool, error) {
		m[key] = raw
		return true, nil
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (s *PreferenceFileStore) Delete(key string) error {
	return s.withLock(func(m map[string]json.RawMessage) (bool, error) {
		if _, ok := m[key]; !ok {
			return false, nil
		}
		delete(m, key)
		return true, nil
	})
}

// withLock loads the preference map under both locks and writes it back when
// fn reports a change.
func (s *PreferenceFileStore) withLock(fn func(map[string]json.RawMessage) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, prefsFilename)
	fl := flock.New(path + ".lock")

	ctx, cancel := context.WithTimeout(context.Background(), prefsLockTimeout)
	defer cancel()
	locked, err := fl.TryLockContext(ctx, prefsLockRetryInterval)
	if err != nil {
		return fmt.Errorf("acquiring preferences lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquiring preferences lock: lock not acquired")
	}
	// The lock file stays on disk; removing it would race with other holders.
	defer func() {
		if err := fl.Close(); err != nil {
			s.logger.Debug("failed to release preferences lock", "path", fl.Path(), "err", err)
		}
	}()

	m, err := loadPreferences(path)
	if err != nil {
		return fmt.Errorf("read preferences: %w", err)
	}
	changed, err := fn(m)
	if err != nil || !changed {
		return err
	}
	return replaceFile(path, 0o600, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
}

// Compile-time assertion that PreferenceFileStore implements domain.PreferenceStore.
var _ domain.PreferenceStore = (*PreferenceFileStore)(nil)
