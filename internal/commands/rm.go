package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"taskman/internal/exitcode"
	"taskman/internal/router"
	"taskman/internal/tasks"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	yes bool
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "taskman rm [--yes] <ref>" }
func (c *RmCmd) Route() string     { return router.PathTasks }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.yes, "yes", false, "")
	fs.BoolVar(&c.yes, "y", false, "")
}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string) int {
	num, err := ParseTaskRef(args)
	if err != nil {
		return refFailed(env, err)
	}

	task, err := findTaskByNumber(ctx, env, num)
	if err != nil {
		return fail(env, err, tasks.MsgLoadFailed)
	}

	var confirm tasks.Confirmer = env.Prompt
	if c.yes {
		confirm = tasks.ConfirmFunc(func(string) bool { return true })
	}

	if err := env.Tasks.Remove(ctx, task.ID, confirm); err != nil {
		if errors.Is(err, tasks.ErrCancelled) {
			if !env.Cfg.Quiet {
				fmt.Fprintln(env.Out, "cancelled")
			}
			return exitcode.Success
		}
		return fail(env, err, tasks.MsgDeleteFailed)
	}
	return succeed(env)
}
