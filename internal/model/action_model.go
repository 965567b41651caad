package model

import (
	"sync"
	"time"
)

// ringSize bounds the replayable interaction log exposed in progress
// snapshots; only the most recent actions are kept.
const ringSize = 20

// BrowserAction is one entry of the replayable interaction log.
type BrowserAction struct {
	Type      string    `json:"type"`
	URL       string    `json:"url,omitempty"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ActionRing is a fixed-capacity ring buffer of the last browser actions.
// Safe for concurrent use.
type ActionRing struct {
	mu  sync.Mutex
	buf []BrowserAction
}

// NewActionRing returns an empty ring holding at most the last 20 actions.
func NewActionRing() *ActionRing {
	return &ActionRing{}
}

// Add appends an action, evicting the oldest once the ring is full.
func (r *ActionRing) Add(a BrowserAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	r.buf = append(r.buf, a)
	if len(r.buf) > ringSize {
		r.buf = r.buf[len(r.buf)-ringSize:]
	}
}

// Snapshot returns a copy of the buffered actions, oldest first.
func (r *ActionRing) Snapshot() []BrowserAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]BrowserAction, len(r.buf))
	copy(out, r.buf)
	return out
}

// Len reports how many actions are currently buffered.
func (r *ActionRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}
