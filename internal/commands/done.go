package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"gtasks/internal/config"
	"gtasks/internal/exitcode"
	"gtasks/internal/handlers"
	"gtasks/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. The task is named by its exact
// title; case and surrounding whitespace are ignored.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"complete"} }
func (c *DoneCmd) Synopsis() string  { return "Mark a task completed" }
func (c *DoneCmd) Usage() string     { return "gtasks done <title...>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	inst, code := setup(ctx, cfg, svc, errOut)
	if inst == nil {
		return code
	}
	defer inst.Close()

	res := inst.Handlers.CompleteTask(ctx, handlers.CompleteTaskRequest{Title: title})
	if !res.OK() {
		return report(errOut, res.Err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
