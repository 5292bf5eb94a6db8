package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"gtasks/internal/config"
	"gtasks/internal/exitcode"
	"gtasks/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "gtasks help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintf(out, "  %-46s %s\n", "gtasks", "Same as gtasks tasks")
	for _, cmd := range DefaultRegistry.All() {
		fmt.Fprintf(out, "  %-46s %s\n", cmd.Usage(), cmd.Synopsis())
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			fmt.Fprintf(out, "    alias: %s\n", strings.Join(aliases, ", "))
		}
	}
	fmt.Fprint(out, commonFlagsText)
	return exitcode.Success
}

const commonFlagsText = `
Common flags:
  --config <file>  Config file (default: ./gtasks.yaml, then
                   $XDG_CONFIG_HOME/gtasks/config.yaml, then /etc/gtasks/config.yaml)
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
