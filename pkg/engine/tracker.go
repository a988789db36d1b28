// Package engine compares inbound game-state snapshots against the last
// observed baseline and decides which configured rules fired.
package engine

import (
	"sync"

	"github.com/primaryrutabaga/cs2-link/pkg/schemas"
)

// Tracker owns the single most-recently-observed snapshot. It is the
// comparison baseline for the next inbound snapshot and the payload of
// the hub's periodic full-state push.
type Tracker struct {
	mu      sync.RWMutex
	current schemas.Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{current: schemas.InitialSnapshot()}
}

// Current returns a copy of the baseline.
func (t *Tracker) Current() schemas.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Replace overwrites the baseline wholesale. Snapshots are never merged
// field by field.
func (t *Tracker) Replace(s schemas.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = s
}
