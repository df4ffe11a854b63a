// Package server persists the profanity word lists through the FilterStore
// abstraction so the router stays independent of where the lists live.
package server

import (
	"encoding/json"
	"fmt"
	"os"
)

// FilterStore loads and saves the profanity word lists. Save is synchronous;
// a failed save leaves any in-memory copy the caller already applied in
// place, and the divergence is surfaced to the acting session only.
type FilterStore interface {
	Load() (FilterData, error)
	Save(FilterData) error
}

// FileFilterStore keeps the word lists in a flat JSON file on disk, matching
// the {"swears": [...], "slurs": [...]} shape clients exchange on the wire.
type FileFilterStore struct {
	path string
}

// NewFileFilterStore creates a store backed by the JSON file at path. The
// file is not touched until Load or Save is called.
func NewFileFilterStore(path string) *FileFilterStore {
	return &FileFilterStore{path: path}
}

// Load reads and decodes the word lists from disk.
func (s *FileFilterStore) Load() (FilterData, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return FilterData{}, fmt.Errorf("read filter file: %w", err)
	}

	var data FilterData
	if err := json.Unmarshal(raw, &data); err != nil {
		return FilterData{}, fmt.Errorf("decode filter file: %w", err)
	}
	return data, nil
}

// Save overwrites the filter file with the given word lists.
func (s *FileFilterStore) Save(data FilterData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode filter file: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write filter file: %w", err)
	}
	return nil
}
