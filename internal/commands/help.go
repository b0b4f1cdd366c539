package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskman/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "taskman help" }
func (c *HelpCmd) Route() string     { return "" }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string) int {
	WriteHelp(env.Out, DefaultRegistry)
	return exitcode.Success
}

// WriteHelp prints usage for every command in r.
func WriteHelp(w io.Writer, r *Registry) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %-62s %s\n", "taskman", "List tasks (same as list)")
	for _, cmd := range r.All() {
		fmt.Fprintf(w, "  %-62s %s\n", cmd.Usage(), cmd.Synopsis())
	}
	fmt.Fprint(w, helpFooter)
}

const helpFooter = `
Task refs are the numbers printed by list; they run across pages.
Statuses: pending, in_progress, done.

Common flags:
  --config <dir>    Override config directory
  --api-url <url>   Override the task API base URL
  --quiet           Suppress informational output
  --debug           Print debug logs to stderr
`
