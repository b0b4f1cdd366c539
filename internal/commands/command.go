// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"go.uber.org/zap"

	"taskman/internal/config"
	"taskman/internal/router"
	"taskman/internal/session"
	"taskman/internal/tasks"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// Route returns the view the command belongs to (router.PathTasks,
	// router.PathLogin, ...). The route guard runs before Run. Commands
	// that work in any session state return "".
	Route() string

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string) int
}

// Env is the runtime a command executes in. The dispatcher builds one per
// invocation; the shell reuses one across commands.
type Env struct {
	Cfg     *config.Config
	Session *session.Store
	Tasks   *tasks.Controller
	Router  *router.Router
	Prompt  *Prompter
	Log     *zap.Logger

	Out    io.Writer
	ErrOut io.Writer

	// Interactive is set inside the shell. Mutating commands then redraw
	// the task view instead of printing "ok".
	Interactive bool
}

// userName returns the display name of the session user.
func (e *Env) userName() string {
	if u := e.Session.User(); u != nil {
		return u.Name
	}
	return ""
}
