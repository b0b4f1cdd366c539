package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"unicode"

	"taskman/internal/exitcode"
	"taskman/internal/router"
	"taskman/internal/session"
	"taskman/internal/tasks"
)

func init() {
	Register(&ShellCmd{})
}

// ShellCmd runs an interactive session over one task list controller.
// Every registered command is available; the view is redrawn after
// changes.
type ShellCmd struct {
	registry *Registry
}

// SetRegistry sets the registry commands are looked up in (for testing).
func (c *ShellCmd) SetRegistry(r *Registry) {
	c.registry = r
}

func (c *ShellCmd) Name() string      { return "shell" }
func (c *ShellCmd) Aliases() []string { return []string{"sh"} }
func (c *ShellCmd) Synopsis() string  { return "Interactive mode" }
func (c *ShellCmd) Usage() string     { return "taskman shell" }
func (c *ShellCmd) Route() string     { return router.PathTasks }

func (c *ShellCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ShellCmd) Run(ctx context.Context, env *Env, args []string) int {
	reg := c.registry
	if reg == nil {
		reg = DefaultRegistry
	}

	var expired, loggedOut atomic.Bool
	cancel := env.Session.Subscribe(func(ev session.Event) {
		switch ev.Reason {
		case session.ReasonExpired:
			expired.Store(true)
		case session.ReasonLogout:
			loggedOut.Store(true)
		}
	})
	defer cancel()

	sh := *env
	sh.Interactive = true

	if _, err := sh.Tasks.FetchPage(ctx, 1); err != nil && !errors.Is(err, tasks.ErrStale) {
		code := fail(&sh, err, tasks.MsgLoadFailed)
		if expired.Load() {
			return code
		}
	}
	renderView(&sh)
	fmt.Fprintln(sh.Out, "Type 'help' for commands, 'quit' to exit.")

	for ctx.Err() == nil {
		line, err := sh.Prompt.Line("taskman> ")
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintf(sh.ErrOut, "error: failed to read input: %v\n", err)
			}
			fmt.Fprintln(sh.ErrOut)
			return exitcode.Success
		}

		argv, err := SplitArgs(line)
		if err != nil {
			fmt.Fprintf(sh.ErrOut, "error: %v\n", err)
			continue
		}
		if len(argv) == 0 {
			continue
		}

		if stop := c.exec(ctx, &sh, reg, argv); stop {
			return exitcode.Success
		}
		if expired.Load() {
			return exitcode.AuthError
		}
		if loggedOut.Load() {
			return exitcode.Success
		}
	}
	return exitcode.Success
}

// exec runs one shell line. It reports whether the shell should exit.
func (c *ShellCmd) exec(ctx context.Context, env *Env, reg *Registry, argv []string) (stop bool) {
	switch argv[0] {
	case "quit", "exit", "q":
		return true
	case "next", "n":
		turnPage(ctx, env, 1)
		return false
	case "prev", "p":
		turnPage(ctx, env, -1)
		return false
	case "refresh", "r":
		if _, err := env.Tasks.Refresh(ctx); err != nil && !errors.Is(err, tasks.ErrStale) {
			fail(env, err, tasks.MsgLoadFailed)
		}
		renderView(env)
		return false
	case "dismiss":
		env.Tasks.DismissBanner()
		renderView(env)
		return false
	case c.Name():
		fmt.Fprintln(env.ErrOut, "error: already in shell")
		return false
	}

	cmd, ok := reg.Find(argv[0])
	if !ok {
		fmt.Fprintf(env.ErrOut, "error: unknown command: %s\n", argv[0])
		return false
	}

	args, err := ParseFlags(NewFlagSet(cmd), argv[1:])
	if err != nil {
		fmt.Fprintf(env.ErrOut, "error: %v\n", err)
		return false
	}
	if _, ok := Guard(env, cmd); !ok {
		return false
	}
	cmd.Run(ctx, env, args)
	return false
}

// turnPage moves the view delta pages, staying within the known range.
func turnPage(ctx context.Context, env *Env, delta int) {
	v := env.Tasks.View()
	target := v.CurrentPage + delta
	if target < 1 || target > max(v.TotalPages, 1) {
		fmt.Fprintln(env.ErrOut, "error: no more pages")
		return
	}
	if _, err := env.Tasks.FetchPage(ctx, target); err != nil {
		if !errors.Is(err, tasks.ErrStale) {
			fail(env, err, tasks.MsgLoadFailed)
		}
		return
	}
	renderView(env)
}

// SplitArgs splits a shell line into words. Single and double quotes group
// words; there are no escapes.
func SplitArgs(line string) ([]string, error) {
	var (
		args  []string
		cur   strings.Builder
		quote rune
		inArg bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case unicode.IsSpace(r):
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
