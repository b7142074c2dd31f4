// Package snapshot implements the crash-recovery serializer: a whole
// node state (id, clock, calendar, log, table, N) written to and
// restored from a single file, without network contact.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jabolina/distcal/pkg/distcal/helper"
	"github.com/jabolina/distcal/pkg/distcal/types"
)

// State is the serialized shape of a node's full recoverable state:
// (id, clock, calendar, log, T, N).
type State struct {
	ID     types.NodeID        `json:"id"`
	N      int                 `json:"n"`
	Clock  uint64              `json:"clock"`
	Table  *types.TimeTable    `json:"table"`
	Log    []types.EventRecord `json:"log"`
	Values []types.Appointment `json:"calendar"`
}

// Store is the crash-recovery adapter. Save is atomic: it writes to a
// temp file in the same directory and renames over the target, so a
// crash mid-write never leaves a half-written snapshot behind.
type Store struct {
	path string
}

// NewStore targets path as the snapshot file.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Save writes the given state, replacing any prior snapshot atomically.
func (s *Store) Save(state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp := filepath.Join(dir, ".snapshot-"+helper.GenerateUID()+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads back the state previously written by Save. Returns
// (State{}, false, nil) if no snapshot file exists yet — a fresh node
// has nothing to restore, which is not an I/O failure.
func (s *Store) Load() (State, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return state, true, nil
}

// FromNode assembles a State from a node's exported accessors.
func FromNode(id types.NodeID, n int, clock uint64, table *types.TimeTable, log *types.EventLog, cal *types.Calendar) State {
	return State{
		ID:     id,
		N:      n,
		Clock:  clock,
		Table:  table,
		Log:    log.Entries(),
		Values: cal.Values(),
	}
}

// ToNode rebuilds the (log, calendar) pair a node restores from a
// loaded State.
func ToNode(state State) (*types.EventLog, *types.Calendar) {
	log := types.NewEventLog()
	for _, er := range state.Log {
		log.Append(er)
	}
	cal := types.NewCalendar()
	for _, a := range state.Values {
		cal.Set(a)
	}
	return log, cal
}
