// Package history persists the driver's kill bookkeeping so a long-running
// run (spec.md §7: "runs indefinitely; stopped externally") survives a
// restart instead of re-discovering every kill from scratch. This
// supplements the original Python driver, which has no such persistence.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sivchari/dredd/internal/kill"
)

// Store manages the on-disk snapshot of one run's KilledMap, UnkilledMap,
// and total mutant count.
type Store struct {
	filepath string
	snapshot Snapshot
}

// Snapshot is the persisted shape of a run's kill bookkeeping.
type Snapshot struct {
	Killed       kill.KilledMap   `json:"killed"`
	Unkilled     kill.UnkilledMap `json:"unkilled"`
	NumMutations int              `json:"numMutations"`
	SavedAt      time.Time        `json:"savedAt"`
	Version      string           `json:"version"`
}

// New opens (or prepares to create) a history store backed by filepath.
func New(path string) (*Store, error) {
	store := &Store{filepath: path}

	if err := store.load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
	}

	return store, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filepath)
	if err != nil {
		return fmt.Errorf("failed to read history file: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("failed to unmarshal history data: %w", err)
	}

	s.snapshot = snapshot

	return nil
}

// Save writes maps to disk, overwriting any prior snapshot.
func (s *Store) Save(maps *kill.Maps, numMutations int) error {
	s.snapshot = Snapshot{
		Killed:       maps.Killed,
		Unkilled:     maps.Unkilled,
		NumMutations: numMutations,
		SavedAt:      time.Now(),
		Version:      "v1",
	}

	data, err := json.MarshalIndent(s.snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history data: %w", err)
	}

	if err := os.WriteFile(s.filepath, data, 0600); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}

	return nil
}

// Restore rebuilds a *kill.Maps from the persisted snapshot. It reports
// false when there is nothing to restore (a fresh run).
func (s *Store) Restore() (*kill.Maps, bool) {
	if s.snapshot.Killed == nil && s.snapshot.Unkilled == nil {
		return nil, false
	}

	killed := s.snapshot.Killed
	if killed == nil {
		killed = kill.KilledMap{}
	}

	unkilled := s.snapshot.Unkilled
	if unkilled == nil {
		unkilled = kill.UnkilledMap{}
	}

	return &kill.Maps{Killed: killed, Unkilled: unkilled}, true
}

// NumMutations returns the persisted mutant count, or 0 if none was saved.
func (s *Store) NumMutations() int {
	return s.snapshot.NumMutations
}
