// Package throttle limits how often an operation's body executes.
package throttle

import (
	"sync"
	"time"
)

// Gate admits at most one entry per interval. Callers refused entry are
// neither queued nor coalesced; they simply skip the guarded work.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	running  bool
	now      func() time.Time
}

// New creates a Gate with the given minimum interval between entries.
func New(interval time.Duration) *Gate {
	return &Gate{interval: interval, now: time.Now}
}

// SetClock replaces the time source (for testing).
func (g *Gate) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

// TryEnter admits the caller when no other holder is inside the gate and at
// least the interval has elapsed since the previous entry. The check and the
// update of the entry time happen atomically. On success the caller must
// invoke release when the guarded work is done.
func (g *Gate) TryEnter() (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.running {
		return nil, false
	}
	if !g.last.IsZero() && now.Sub(g.last) < g.interval {
		return nil, false
	}

	g.running = true
	g.last = now

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.running = false
			g.mu.Unlock()
		})
	}, true
}

// Reset forgets the previous entry so the next TryEnter succeeds
// (unless a holder is still inside).
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = time.Time{}
}

// Interval returns the minimum interval between entries.
func (g *Gate) Interval() time.Duration {
	return g.interval
}
