package commands

import (
	"fmt"

	"taskman/internal/exitcode"
	"taskman/internal/router"
)

// Guard runs the route guard for cmd. When ok is false the command must not
// run and code is the exit status to return.
func Guard(env *Env, cmd Command) (code int, ok bool) {
	route := cmd.Route()
	if route == "" {
		return exitcode.Success, true
	}

	d := env.Router.Navigate(route)
	if d.Action == router.Placeholder {
		fmt.Fprintln(env.ErrOut, "error: session not loaded")
		return exitcode.AuthError, false
	}
	if !d.Redirected {
		return exitcode.Success, true
	}

	switch d.Path {
	case router.PathLogin:
		fmt.Fprintln(env.ErrOut, "error: not logged in (run: taskman login)")
		return exitcode.AuthError, false
	case router.PathTasks:
		if !env.Cfg.Quiet {
			fmt.Fprintln(env.Out, "already logged in")
		}
		return exitcode.Success, false
	}
	return exitcode.Success, true
}
