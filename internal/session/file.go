package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the token in a JSON file scoped to the installation.
// It survives process restarts and goes away on Clear or when the user
// wipes the config directory.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

// fileSlot is the on-disk shape. One key, matching the storage contract.
type fileSlot struct {
	AuthToken string `json:"auth_token"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath places the slot under the user config dir, e.g.
// ~/.config/alertme/session.json on Linux.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("session: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "alertme", "session.json"), nil
}

func (s *FileStore) Get(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("session: read %s: %w", s.path, err)
	}

	var slot fileSlot
	if err := json.Unmarshal(raw, &slot); err != nil {
		// A corrupt slot is indistinguishable from no session for callers.
		return "", ErrNoSession
	}
	if slot.AuthToken == "" {
		return "", ErrNoSession
	}
	return slot.AuthToken, nil
}

func (s *FileStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(fileSlot{AuthToken: token})
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("session: create %s: %w", dir, err)
	}

	// Write-then-rename so a concurrent reader never sees a partial token.
	tmp, err := os.CreateTemp(dir, "session-*.tmp")
	if err != nil {
		return fmt.Errorf("session: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("session: write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("session: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("session: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("session: rename: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: clear %s: %w", s.path, err)
	}
	return nil
}
