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
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	due string
}

// SetDue sets the due date (for testing).
func (c *AddCmd) SetDue(due string) {
	c.due = due
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"new"} }
func (c *AddCmd) Synopsis() string  { return "Create a task in the tracked list" }
func (c *AddCmd) Usage() string     { return "gtasks add [--due YYYY-MM-DD] <title...>" }
func (c *AddCmd) NeedsAuth() bool   { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.due, "d", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
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

	res := inst.Handlers.CreateTask(ctx, handlers.NewTaskRequest{Title: title, DueDate: c.due})
	if !res.OK() {
		return report(errOut, res.Err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
