package commands

import (
	"context"
	"flag"
	"io"

	"gtasks/internal/cache"
	"gtasks/internal/config"
	"gtasks/internal/exitcode"
	"gtasks/internal/output"
	"gtasks/internal/service"
)

func init() {
	Register(&TasksCmd{})
}

// TasksCmd implements the tasks command: one refresh, then both views.
type TasksCmd struct{}

func (c *TasksCmd) Name() string      { return "tasks" }
func (c *TasksCmd) Aliases() []string { return nil }
func (c *TasksCmd) Synopsis() string  { return "Refresh and print the open and due tasks" }
func (c *TasksCmd) Usage() string     { return "gtasks tasks [common flags]" }
func (c *TasksCmd) NeedsAuth() bool   { return true }

func (c *TasksCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *TasksCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	inst, code := setup(ctx, cfg, svc, errOut)
	if inst == nil {
		return code
	}
	defer inst.Close()

	inst.Refresher.ForceRefresh(ctx)

	failed := false
	for _, view := range cache.Views {
		snap := inst.Store.Snapshot(view)
		if snap.UpdatedAt.IsZero() {
			// The refresher logged why this view could not be fetched.
			failed = true
			continue
		}
		if cfg.Quiet && len(snap.Items) == 0 {
			continue
		}
		output.FormatView(out, viewTitle(view, inst.List.Title), snap.Items)
	}

	if failed {
		return exitcode.BackendError
	}
	return exitcode.Success
}

func viewTitle(view cache.View, listTitle string) string {
	if view == cache.BinarySensorView {
		return "Due today or earlier"
	}
	return listTitle
}
