// Package cache holds the task views produced by the refresher.
package cache

import (
	"sync"
	"time"

	"gtasks/internal/service"
)

// View names a cached task collection.
type View string

const (
	// SensorView holds every incomplete task of the tracked list.
	SensorView View = "sensor"

	// BinarySensorView holds incomplete tasks due today or earlier.
	BinarySensorView View = "binary_sensor"
)

// Views lists every view in presentation order.
var Views = []View{SensorView, BinarySensorView}

// Snapshot is a copy of one view at a point in time.
// UpdatedAt is zero until the view is first written.
type Snapshot struct {
	View      View
	Items     []service.Task
	UpdatedAt time.Time
}

// Listener is notified after a view is overwritten.
type Listener func(Snapshot)

// Store keeps the latest snapshot of each view. Each Set replaces the
// previous snapshot wholesale; no history is retained.
type Store struct {
	mu        sync.RWMutex
	views     map[View]Snapshot
	listeners []Listener
	now       func() time.Time
}

// NewStore creates a store with every view empty.
func NewStore() *Store {
	s := &Store{now: time.Now}
	s.Reset()
	return s
}

// OnUpdate registers fn to run after every Set. Listeners run on the
// caller's goroutine, outside the store lock.
func (s *Store) OnUpdate(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Set overwrites a view. A nil items slice is stored as empty.
func (s *Store) Set(view View, items []service.Task) {
	copied := make([]service.Task, len(items))
	copy(copied, items)

	s.mu.Lock()
	snap := Snapshot{View: view, Items: copied, UpdatedAt: s.now()}
	s.views[view] = snap
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap.clone())
	}
}

// Snapshot returns a copy of a view.
func (s *Store) Snapshot(view View) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.views[view]
	if !ok {
		return Snapshot{View: view, Items: []service.Task{}}
	}
	return snap.clone()
}

// Reset discards every view's contents. Listeners are kept.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = make(map[View]Snapshot, len(Views))
	for _, v := range Views {
		s.views[v] = Snapshot{View: v, Items: []service.Task{}}
	}
}

func (snap Snapshot) clone() Snapshot {
	items := make([]service.Task, len(snap.Items))
	copy(items, snap.Items)
	snap.Items = items
	return snap
}
