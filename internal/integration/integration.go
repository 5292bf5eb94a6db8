// Package integration wires the tracked task list to its cached views and
// command handlers. An Instance is created by Setup, driven by Run, and
// released by Close.
package integration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gtasks/internal/cache"
	"gtasks/internal/config"
	"gtasks/internal/handlers"
	"gtasks/internal/refresher"
	"gtasks/internal/service"
)

// Instance is one configured integration. Its list ID is resolved once
// during Setup and never changes afterwards.
type Instance struct {
	List      service.TaskList
	Store     *cache.Store
	Refresher *refresher.Refresher
	Handlers  *handlers.Handlers

	scanInterval time.Duration
	logger       *slog.Logger
}

// Setup checks the credential files, resolves the configured list name,
// and builds the store, refresher and handlers around svc. Any failure is
// fatal for the instance.
func Setup(ctx context.Context, cfg *config.Config, svc service.Service, logger *slog.Logger) (*Instance, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.CheckFiles(); err != nil {
		return nil, err
	}

	list, err := svc.ResolveList(ctx, cfg.DefaultList)
	if err != nil {
		return nil, fmt.Errorf("resolve default list: %w", err)
	}
	logger.Info("tracking task list", "list", list.Title, "list_id", list.ID)

	store := cache.NewStore()
	inst := &Instance{
		List:  list,
		Store: store,
		Refresher: refresher.New(svc, list.ID, store,
			refresher.WithInterval(time.Duration(cfg.MinRefreshIntervalSec)*time.Second),
			refresher.WithLogger(logger)),
		Handlers:     handlers.New(svc, list.ID, logger),
		scanInterval: time.Duration(cfg.ScanIntervalSec) * time.Second,
		logger:       logger,
	}
	return inst, nil
}

// Run refreshes immediately and then on every scan tick until ctx ends.
// The refresher's throttle still limits real polling.
func (i *Instance) Run(ctx context.Context) {
	interval := i.scanInterval
	if interval <= 0 {
		interval = config.DefaultScanIntervalSec * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	i.Refresher.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.Refresher.Refresh(ctx)
		}
	}
}

// Close discards the cached views.
func (i *Instance) Close() {
	i.Store.Reset()
	i.logger.Info("integration unloaded", "list_id", i.List.ID)
}
