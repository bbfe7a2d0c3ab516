// internal/accounts/store_file.go
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the remembered-account list in a JSON file. It is the
// storage of last resort when redis is not configured.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() ([]Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account list: %w", err)
	}

	var list []Identity
	if err := json.Unmarshal(data, &list); err != nil {
		// A corrupt cache is discarded, not fatal.
		return nil, nil
	}
	return list, nil
}

func (f *FileStore) Save(list []Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode account list: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create account list directory: %w", err)
	}
	return os.WriteFile(f.path, data, 0o600)
}
