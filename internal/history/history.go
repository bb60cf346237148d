// Package history keeps an in-memory undo/redo ledger of metadata edits.
// The ledger is deliberately not persisted; it is cleared on restart.
package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies what an action changed.
type Kind string

const (
	KindEdit    Kind = "metadata_edit"
	KindRename  Kind = "rename"
	KindArtwork Kind = "artwork"
)

// Change is one field transition within an action.
type Change struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// Action is one recorded edit, undoable and redoable.
type Action struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	File      string    `json:"file"` // library-relative path
	Changes   []Change  `json:"changes"`
	Timestamp time.Time `json:"timestamp"`
	Undone    bool      `json:"undone"`
}

// Ledger is a bounded, newest-last list of actions. Safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	actions []Action
	max     int
}

// NewLedger creates a Ledger keeping at most max actions (1000 if max <= 0).
func NewLedger(max int) *Ledger {
	if max <= 0 {
		max = 1000
	}
	return &Ledger{max: max}
}

// Record appends a new action and returns a copy of it. The oldest action
// is dropped once the ledger is full.
func (l *Ledger) Record(kind Kind, file string, changes []Change) Action {
	l.mu.Lock()
	defer l.mu.Unlock()

	action := Action{
		ID:        uuid.NewString(),
		Kind:      kind,
		File:      file,
		Changes:   changes,
		Timestamp: time.Now(),
	}

	l.actions = append(l.actions, action)
	if len(l.actions) > l.max {
		l.actions = l.actions[len(l.actions)-l.max:]
	}
	return action
}

// List returns all actions, newest first.
func (l *Ledger) List() []Action {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Action, len(l.actions))
	for i, a := range l.actions {
		out[len(l.actions)-1-i] = a
	}
	return out
}

// Get returns the action with the given ID.
func (l *Ledger) Get(id string) (Action, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, a := range l.actions {
		if a.ID == id {
			return a, nil
		}
	}
	return Action{}, fmt.Errorf("action not found: %s", id)
}

// SetUndone flips the undone flag on an action. Returns an error when the
// action is missing or already in the requested state.
func (l *Ledger) SetUndone(id string, undone bool) (Action, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.actions {
		if l.actions[i].ID != id {
			continue
		}
		if l.actions[i].Undone == undone {
			if undone {
				return Action{}, fmt.Errorf("action already undone: %s", id)
			}
			return Action{}, fmt.Errorf("action not undone: %s", id)
		}
		l.actions[i].Undone = undone
		return l.actions[i], nil
	}
	return Action{}, fmt.Errorf("action not found: %s", id)
}

// UpdateFile rewrites the file path on actions referring to oldPath, used
// after renames so older actions stay undoable.
func (l *Ledger) UpdateFile(oldPath, newPath string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.actions {
		if l.actions[i].File == oldPath {
			l.actions[i].File = newPath
		}
	}
}

// Clear removes all actions.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = nil
}

// Len returns the number of recorded actions.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.actions)
}
