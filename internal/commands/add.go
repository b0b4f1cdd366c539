package commands

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"taskman/internal/exitcode"
	"taskman/internal/router"
	"taskman/internal/service"
	"taskman/internal/tasks"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	status      string
	description string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "taskman add [--status <status>] [--description <text>] <title...>"
}
func (c *AddCmd) Route() string { return router.PathTasks }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.status, "s", "", "")
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(env.ErrOut, "error: title required")
		return exitcode.UserError
	}

	task := service.NewTask{
		Title:       strings.Join(args, " "),
		Description: c.description,
	}
	if c.status != "" {
		status, err := service.ParseStatus(c.status)
		if err != nil {
			fmt.Fprintf(env.ErrOut, "error: %v\n", err)
			return exitcode.UserError
		}
		task.Status = status
	}

	if err := env.Tasks.Create(ctx, task); err != nil {
		return fail(env, err, tasks.MsgCreateFailed)
	}
	return succeed(env)
}
