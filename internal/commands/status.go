package commands

import (
	"context"
	"flag"
	"fmt"

	"taskman/internal/exitcode"
	"taskman/internal/router"
	"taskman/internal/service"
	"taskman/internal/tasks"
)

func init() {
	Register(&StatusCmd{})
	Register(&DoneCmd{})
}

// StatusCmd changes the status of a task.
type StatusCmd struct{}

func (c *StatusCmd) Name() string      { return "status" }
func (c *StatusCmd) Aliases() []string { return []string{"mv"} }
func (c *StatusCmd) Synopsis() string  { return "Set a task's status (pending, in_progress, done)" }
func (c *StatusCmd) Usage() string     { return "taskman status <ref> <status>" }
func (c *StatusCmd) Route() string     { return router.PathTasks }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, env *Env, args []string) int {
	if len(args) < 2 {
		if len(args) == 0 {
			fmt.Fprintln(env.ErrOut, "error: task reference required")
		} else {
			fmt.Fprintln(env.ErrOut, "error: status required")
		}
		return exitcode.UserError
	}
	status, err := service.ParseStatus(args[1])
	if err != nil {
		fmt.Fprintf(env.ErrOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return runStatus(ctx, env, args[:1], status)
}

// DoneCmd marks a task done. Shorthand for `status <ref> done`.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return nil }
func (c *DoneCmd) Synopsis() string  { return "Mark a task done" }
func (c *DoneCmd) Usage() string     { return "taskman done <ref>" }
func (c *DoneCmd) Route() string     { return router.PathTasks }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, env *Env, args []string) int {
	return runStatus(ctx, env, args, service.StatusDone)
}

// runStatus is the shared implementation for status and done.
func runStatus(ctx context.Context, env *Env, args []string, status service.Status) int {
	num, err := ParseTaskRef(args)
	if err != nil {
		return refFailed(env, err)
	}

	task, err := findTaskByNumber(ctx, env, num)
	if err != nil {
		return fail(env, err, tasks.MsgLoadFailed)
	}

	if err := env.Tasks.UpdateStatus(ctx, task.ID, status); err != nil {
		return fail(env, err, tasks.MsgUpdateFailed)
	}
	return succeed(env)
}

// refFailed reports a task reference that could not be parsed.
func refFailed(env *Env, err error) int {
	if err == ErrTaskRefRequired {
		fmt.Fprintln(env.ErrOut, "error: task reference required")
	} else {
		fmt.Fprintf(env.ErrOut, "error: %v\n", err)
	}
	return exitcode.UserError
}
