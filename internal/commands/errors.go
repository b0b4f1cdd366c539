package commands

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"taskman/internal/exitcode"
	"taskman/internal/service"
	"taskman/internal/session"
	"taskman/internal/tasks"
)

// fail reports err on stderr and maps it to an exit code. fallback is the
// message shown for backend failures.
func fail(env *Env, err error, fallback string) int {
	var (
		taskErr    *tasks.ValidationError
		sessionErr *session.ValidationError
		authErr    *session.Failure
		rangeErr   *tasks.PageRangeError
	)

	switch {
	case errors.As(err, &taskErr):
		fmt.Fprintf(env.ErrOut, "error: %s\n", taskErr.Message)
		return exitcode.UserError
	case errors.As(err, &sessionErr):
		fmt.Fprintf(env.ErrOut, "error: %s\n", sessionErr.Message)
		return exitcode.UserError
	case errors.As(err, &authErr):
		fmt.Fprintf(env.ErrOut, "error: %s\n", authErr.Message)
		return exitcode.AuthError
	case errors.Is(err, service.ErrUnauthorized):
		// Backends bound to the session have already logged out.
		if env.Session.Authenticated() {
			env.Session.ForceLogout()
		}
		fmt.Fprintln(env.ErrOut, "error: session expired (run: taskman login)")
		return exitcode.AuthError
	case errors.Is(err, tasks.ErrBusy):
		fmt.Fprintln(env.ErrOut, "error: operation already in progress")
		return exitcode.UserError
	case errors.As(err, &rangeErr):
		fmt.Fprintf(env.ErrOut, "error: %v\n", rangeErr)
		return exitcode.UserError
	case errors.Is(err, errOutOfRange):
		fmt.Fprintf(env.ErrOut, "error: %v\n", err)
		return exitcode.UserError
	}

	env.Log.Debug("command failed", zap.Error(err))
	fmt.Fprintf(env.ErrOut, "error: %s\n", fallback)
	return exitcode.BackendError
}

// succeed finishes a mutating command: the shell redraws the view, one-shot
// commands print "ok".
func succeed(env *Env) int {
	if env.Interactive {
		renderView(env)
		return exitcode.Success
	}
	if !env.Cfg.Quiet {
		fmt.Fprintln(env.Out, "ok")
	}
	return exitcode.Success
}
