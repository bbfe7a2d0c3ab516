// internal/accounts/store_file_test.go
package accounts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	store := NewFileStore(path)

	// Missing file is an empty list, not an error.
	list, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, list)

	want := []Identity{
		{Email: "a@example.com", Name: "A", LastUsed: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)},
		{Email: "b@example.com", Name: "B"},
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreDiscardsCorruptCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := NewFileStore(path)
	list, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFileStoreCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "accounts.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save([]Identity{{Email: "a@example.com"}}))

	list, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
