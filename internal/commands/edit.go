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
	Register(&EditCmd{})
}

// optString is a string flag that records whether it was given, so an
// explicit empty value can clear a field.
type optString struct {
	set   bool
	value string
}

func (o *optString) String() string { return o.value }

func (o *optString) Set(s string) error {
	o.set = true
	o.value = s
	return nil
}

func (o *optString) ptr() *string {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// EditCmd edits a task's title and description.
type EditCmd struct {
	title       optString
	description optString
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Edit a task's title or description" }
func (c *EditCmd) Usage() string {
	return "taskman edit [--title <title>] [--description <text>] <ref>"
}
func (c *EditCmd) Route() string { return router.PathTasks }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title = optString{}
	c.description = optString{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.title, "t", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.description, "d", "")
}

func (c *EditCmd) Run(ctx context.Context, env *Env, args []string) int {
	num, err := ParseTaskRef(args)
	if err != nil {
		return refFailed(env, err)
	}
	if !c.title.set && !c.description.set {
		fmt.Fprintln(env.ErrOut, "error: nothing to change (use --title or --description)")
		return exitcode.UserError
	}

	task, err := findTaskByNumber(ctx, env, num)
	if err != nil {
		return fail(env, err, tasks.MsgLoadFailed)
	}

	patch := service.TaskPatch{
		Title:       c.title.ptr(),
		Description: c.description.ptr(),
	}
	if err := env.Tasks.UpdateFields(ctx, task.ID, patch); err != nil {
		return fail(env, err, tasks.MsgUpdateFailed)
	}
	return succeed(env)
}
