package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"gtasks/internal/config"
	"gtasks/internal/exitcode"
	"gtasks/internal/output"
	"gtasks/internal/service"
)

func init() {
	Register(&ListsCmd{})
}

// ListsCmd implements the lists command.
type ListsCmd struct{}

func (c *ListsCmd) Name() string      { return "lists" }
func (c *ListsCmd) Aliases() []string { return nil }
func (c *ListsCmd) Synopsis() string  { return "Print all lists, marking the tracked one" }
func (c *ListsCmd) Usage() string     { return "gtasks lists [common flags]" }
func (c *ListsCmd) NeedsAuth() bool   { return true }

func (c *ListsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ListsCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	lists, err := svc.ListLists(ctx)
	if err != nil {
		return report(errOut, err)
	}

	tracked := strings.ToLower(strings.TrimSpace(cfg.DefaultList))
	for _, list := range lists {
		output.FormatListName(out, list, strings.ToLower(strings.TrimSpace(list.Title)) == tracked)
	}

	return exitcode.Success
}
