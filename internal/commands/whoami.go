package commands

import (
	"context"
	"flag"

	"taskman/internal/exitcode"
	"taskman/internal/output"
	"taskman/internal/router"
)

func init() {
	Register(&WhoamiCmd{})
}

// WhoamiCmd prints the signed-in user.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string      { return "whoami" }
func (c *WhoamiCmd) Aliases() []string { return nil }
func (c *WhoamiCmd) Synopsis() string  { return "Show the signed-in user" }
func (c *WhoamiCmd) Usage() string     { return "taskman whoami" }
func (c *WhoamiCmd) Route() string     { return router.PathTasks }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, env *Env, args []string) int {
	if u := env.Session.User(); u != nil {
		output.FormatUser(env.Out, *u)
	}
	return exitcode.Success
}
