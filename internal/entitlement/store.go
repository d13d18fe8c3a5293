// Package entitlement keeps the local Pro flag that gates CSV export and the
// Teams placeholder.
package entitlement

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const fileName = "entitlement.json"

// State is what gets persisted on disk.
type State struct {
	IsPro      bool      `json:"is_pro"`
	VerifiedAt time.Time `json:"verified_at,omitempty"`
	LicenseKey string    `json:"license_key,omitempty"`
}

type Store interface {
	Load() (State, error)
	Save(State) error
}

// FileStore persists State as JSON. A missing file reads as the zero State.
type FileStore struct {
	mu       sync.Mutex
	filepath string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{filepath: path}
}

// DefaultPath is $XDG_CONFIG_HOME/calltrack/entitlement.json, falling back
// to ~/.config/calltrack.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "calltrack", fileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "calltrack", fileName), nil
}

func (f *FileStore) Path() string {
	return f.filepath
}

func (f *FileStore) Load() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("failed to read %s: %w", f.filepath, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return state, nil
}

// Save writes through a temp file and rename so a crash never leaves a
// half-written flag behind.
func (f *FileStore) Save(state State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.filepath), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode entitlement: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.filepath), fileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write entitlement: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.filepath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace entitlement file: %w", err)
	}
	return nil
}
