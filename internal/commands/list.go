package commands

import (
	"context"
	"flag"
	"fmt"

	"taskman/internal/exitcode"
	"taskman/internal/router"
	"taskman/internal/tasks"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `taskman` (no args) and `taskman list --page <n>`.
type ListCmd struct {
	page int
}

// SetPage sets the page number (for testing).
func (c *ListCmd) SetPage(page int) {
	c.page = page
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "taskman list [--page <n>]" }
func (c *ListCmd) Route() string     { return router.PathTasks }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.page, "page", 0, "")
	fs.IntVar(&c.page, "p", 0, "")
}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(env.ErrOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	// Zero keeps the controller's current page, which starts at 1.
	page := c.page
	if page == 0 {
		page = env.Tasks.View().CurrentPage
	}
	if page < 1 {
		fmt.Fprintf(env.ErrOut, "error: invalid page number: %d\n", c.page)
		return exitcode.UserError
	}

	// A page past the end is reported and leaves the view where it was.
	if _, err := env.Tasks.FetchPage(ctx, page); err != nil {
		return fail(env, err, tasks.MsgLoadFailed)
	}

	renderView(env)
	return exitcode.Success
}
