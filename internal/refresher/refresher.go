// Package refresher polls the tracked task list and fills the cached views.
package refresher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gtasks/internal/cache"
	"gtasks/internal/service"
	"gtasks/internal/throttle"
)

// MinTimeBetweenUpdates is the default throttle window.
const MinTimeBetweenUpdates = 60 * time.Second

// Refresher fetches the two task views of one list. Refresh bodies run at
// most once per throttle window no matter how often Refresh is called.
type Refresher struct {
	svc    service.Service
	listID string
	store  *cache.Store
	gate   *throttle.Gate
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithInterval sets the throttle window.
func WithInterval(d time.Duration) Option {
	return func(r *Refresher) { r.gate = throttle.New(d) }
}

// WithClock sets the time source for both "today" and the throttle.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Refresher) { r.logger = l }
}

// New creates a Refresher for listID writing into store.
func New(svc service.Service, listID string, store *cache.Store, opts ...Option) *Refresher {
	r := &Refresher{
		svc:    svc,
		listID: listID,
		store:  store,
		gate:   throttle.New(MinTimeBetweenUpdates),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.gate.SetClock(r.now)
	return r
}

// Refresh runs one poll unless the throttle refuses entry, in which case it
// returns false without touching the remote service or the store.
func (r *Refresher) Refresh(ctx context.Context) bool {
	release, ok := r.gate.TryEnter()
	if !ok {
		r.logger.Debug("refresh throttled", "list_id", r.listID, "interval", r.gate.Interval())
		return false
	}
	defer release()

	r.poll(ctx)
	return true
}

// ForceRefresh clears the throttle window and refreshes. It still returns
// false if another refresh is in progress.
func (r *Refresher) ForceRefresh(ctx context.Context) bool {
	r.gate.Reset()
	return r.Refresh(ctx)
}

// poll issues both list requests concurrently. Each view is written only
// when its own request succeeds.
func (r *Refresher) poll(ctx context.Context) {
	today := service.FormatDue(r.now())

	requests := []struct {
		view  cache.View
		query service.Query
	}{
		{cache.SensorView, service.Query{ShowCompleted: false}},
		{cache.BinarySensorView, service.Query{ShowCompleted: false, DueMax: today}},
	}

	var wg sync.WaitGroup
	for _, req := range requests {
		req := req // per-iteration copy (go 1.21 loop semantics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := r.svc.ListTasks(ctx, r.listID, req.query)
			if err != nil {
				if ctx.Err() != nil {
					r.logger.Debug("task list request cancelled",
						"list_id", r.listID, "view", req.view, "error", err)
					return
				}
				r.logger.Error("task list request failed",
					"list_id", r.listID, "view", req.view, "due_max", req.query.DueMax, "error", err)
				return
			}
			r.store.Set(req.view, items)
			r.logger.Debug("view refreshed",
				"list_id", r.listID, "view", req.view, "items", len(items))
		}()
	}
	wg.Wait()
}
