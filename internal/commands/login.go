package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"taskman/internal/exitcode"
	"taskman/internal/router"
	"taskman/internal/session"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	email string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in to manage your tasks" }
func (c *LoginCmd) Usage() string     { return "taskman login [--email <email>]" }
func (c *LoginCmd) Route() string     { return router.PathLogin }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string) int {
	email, err := env.Prompt.lineOr(c.email, "Email: ")
	if err != nil {
		return promptFailed(env, err)
	}
	password, err := env.Prompt.Line("Password: ")
	if err != nil {
		return promptFailed(env, err)
	}

	if err := session.ValidateLogin(email, password); err != nil {
		return fail(env, err, "Login failed. Please try again.")
	}
	if err := env.Session.Login(ctx, email, password); err != nil {
		return fail(env, err, "Login failed. Please try again.")
	}

	if !env.Cfg.Quiet {
		fmt.Fprintln(env.Out, "ok")
	}
	return exitcode.Success
}

// promptFailed reports input that ended before all answers were read.
func promptFailed(env *Env, err error) int {
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(env.ErrOut, "\nerror: input ended")
		return exitcode.UserError
	}
	fmt.Fprintf(env.ErrOut, "error: failed to read input: %v\n", err)
	return exitcode.UserError
}
