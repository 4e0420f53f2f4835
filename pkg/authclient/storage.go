package authclient

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Storage persists the single credential across process restarts. Load is
// called once when the store is built; Save and Clear on every mutation.
type Storage interface {
	Load() (*Credential, error)
	Save(credential *Credential) error
	Clear() error
}

// FileStorage keeps the credential as a JSON file.
type FileStorage struct {
	path string
}

// NewFileStorage creates storage rooted at the given path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (f *FileStorage) Load() (*Credential, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var credential Credential
	if err := json.Unmarshal(raw, &credential); err != nil {
		// Corrupt state is treated as absent rather than fatal.
		return nil, nil
	}
	return &credential, nil
}

func (f *FileStorage) Save(credential *Credential) error {
	raw, err := json.Marshal(credential)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(f.path, raw, 0o600)
}

func (f *FileStorage) Clear() error {
	err := os.Remove(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryStorage holds the credential in process memory only.
type MemoryStorage struct {
	mu         sync.Mutex
	credential *Credential
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load() (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.credential == nil {
		return nil, nil
	}
	clone := *m.credential
	return &clone, nil
}

func (m *MemoryStorage) Save(credential *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *credential
	m.credential = &clone
	return nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credential = nil
	return nil
}
