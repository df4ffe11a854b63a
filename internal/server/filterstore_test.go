package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileFilterStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.json")
	store := NewFileFilterStore(path)

	data := FilterData{Swears: []string{"darn", "heck"}, Slurs: []string{"jerkface"}}
	require.NoError(t, store.Save(data))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, data, loaded)
}

func TestFileFilterStoreLoadMissingFile(t *testing.T) {
	store := NewFileFilterStore(filepath.Join(t.TempDir(), "absent.json"))

	_, err := store.Load()
	assert.Error(t, err)
}

func TestFileFilterStoreLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	_, err := NewFileFilterStore(path).Load()
	assert.Error(t, err)
}

func TestFileFilterStoreSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.json")
	store := NewFileFilterStore(path)

	require.NoError(t, store.Save(FilterData{Swears: []string{"darn"}}))
	require.NoError(t, store.Save(FilterData{Slurs: []string{"jerkface"}}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded.Swears)
	assert.Equal(t, []string{"jerkface"}, loaded.Slurs)
}
