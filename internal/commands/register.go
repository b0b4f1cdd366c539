package commands

import (
	"context"
	"flag"
	"fmt"

	"taskman/internal/exitcode"
	"taskman/internal/router"
	"taskman/internal/session"
)

func init() {
	Register(&RegisterCmd{})
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	name  string
	email string
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account" }
func (c *RegisterCmd) Usage() string {
	return "taskman register [--name <name>] [--email <email>]"
}
func (c *RegisterCmd) Route() string { return router.PathRegister }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.email, "email", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, env *Env, args []string) int {
	name, err := env.Prompt.lineOr(c.name, "Name: ")
	if err != nil {
		return promptFailed(env, err)
	}
	email, err := env.Prompt.lineOr(c.email, "Email: ")
	if err != nil {
		return promptFailed(env, err)
	}
	password, err := env.Prompt.Line("Password: ")
	if err != nil {
		return promptFailed(env, err)
	}
	confirm, err := env.Prompt.Line("Confirm password: ")
	if err != nil {
		return promptFailed(env, err)
	}

	if err := session.ValidateRegistration(name, email, password, confirm); err != nil {
		return fail(env, err, "Registration failed. Please try again.")
	}
	if err := env.Session.Register(ctx, name, email, password); err != nil {
		return fail(env, err, "Registration failed. Please try again.")
	}

	if !env.Cfg.Quiet {
		fmt.Fprintln(env.Out, "ok")
	}
	return exitcode.Success
}
