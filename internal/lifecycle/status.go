package lifecycle

import (
	"sync"
	"time"
)

// RebuildStatus is a point-in-time snapshot of a rebuild run.
type RebuildStatus struct {
	Running    bool      `json:"running"`
	Done       int       `json:"done"`
	Total      int       `json:"total"`
	Current    string    `json:"current,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// rebuildTracker holds the latest rebuild status and fans updates out to
// subscribers. Slow subscribers miss intermediate snapshots rather than
// blocking the rebuild.
type rebuildTracker struct {
	mu     sync.Mutex
	status RebuildStatus
	subs   map[chan RebuildStatus]struct{}
}

func newRebuildTracker() *rebuildTracker {
	return &rebuildTracker{subs: make(map[chan RebuildStatus]struct{})}
}

// Snapshot returns the current status.
func (t *rebuildTracker) Snapshot() RebuildStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// TryStart flips the tracker to running. It returns false if a rebuild is
// already in flight.
func (t *rebuildTracker) TryStart(total int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Running {
		return false
	}
	t.status = RebuildStatus{
		Running:   true,
		Total:     total,
		StartedAt: time.Now().UTC(),
	}
	t.broadcastLocked()
	return true
}

// Progress records one processed document.
func (t *rebuildTracker) Progress(done, total int, current string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Done = done
	t.status.Total = total
	t.status.Current = current
	t.broadcastLocked()
}

// Finish marks the run complete, with err empty on success.
func (t *rebuildTracker) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Running = false
	t.status.Current = ""
	t.status.FinishedAt = time.Now().UTC()
	if err != nil {
		t.status.Error = err.Error()
	}
	t.broadcastLocked()
}

// Subscribe registers a status channel. The caller must call the returned
// cancel function when done.
func (t *rebuildTracker) Subscribe() (<-chan RebuildStatus, func()) {
	ch := make(chan RebuildStatus, 8)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	ch <- t.status
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		delete(t.subs, ch)
		t.mu.Unlock()
	}
	return ch, cancel
}

func (t *rebuildTracker) broadcastLocked() {
	for ch := range t.subs {
		select {
		case ch <- t.status:
		default:
		}
	}
}
