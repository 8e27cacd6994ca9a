// Package conversation tracks which users are expected to send a search query next.
package conversation

import (
	"log/slog"
	"sync"
)

// Tracker holds the per-user pending search flag. A user is either Idle (absent)
// or AwaitingQuery (present); the flag is consumed exactly once.
type Tracker struct {
	// mu protects pending; check-and-clear happens under a single lock
	mu      sync.Mutex
	pending map[string]struct{}
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{pending: make(map[string]struct{})}
}

// BeginSearch moves the user to AwaitingQuery, overwriting any prior pending state.
func (t *Tracker) BeginSearch(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[userID] = struct{}{}
	slog.Debug("Tracker BeginSearch", "userID", userID)
}

// TryConsumeSearch clears the pending flag and reports whether it was set.
func (t *Tracker) TryConsumeSearch(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[userID]; !ok {
		return false
	}
	delete(t.pending, userID)
	slog.Debug("Tracker TryConsumeSearch consumed", "userID", userID)
	return true
}

// Pending reports whether the user is awaiting a query without changing state.
func (t *Tracker) Pending(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[userID]
	return ok
}

// Count returns the number of users awaiting a query.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
