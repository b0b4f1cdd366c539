package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"taskman/internal/backend/taskapi"
	"taskman/internal/commands"
	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/logging"
	"taskman/internal/router"
	"taskman/internal/service"
	"taskman/internal/session"
	"taskman/internal/tasks"
)

// Backend is the remote side a command runs against.
type Backend interface {
	service.Service
	service.Authenticator
}

// BackendFactory creates a Backend from config.
// Used to inject the backend during dispatch.
type BackendFactory func(cfg *config.Config, log *zap.Logger) (Backend, error)

// sessionBinder is implemented by backends that attach the session token
// to requests and log the session out on 401.
type sessionBinder interface {
	UseSession(s taskapi.SessionSource)
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  BackendFactory
	in       io.Reader
	persist  func(cfg *config.Config) session.Persister
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithInput sets where prompts read answers from. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(d *Dispatcher) { d.in = r }
}

// WithPersister overrides where the session is stored. Defaults to the
// token and user files in the config directory.
func WithPersister(fn func(cfg *config.Config) session.Persister) Option {
	return func(d *Dispatcher) { d.persist = fn }
}

// NewDispatcher creates a new dispatcher with the given registry and backend factory.
func NewDispatcher(registry *commands.Registry, factory BackendFactory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		factory:  factory,
		in:       os.Stdin,
		persist: func(cfg *config.Config) session.Persister {
			return session.NewFileStore(cfg)
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := commands.NewFlagSet(cmd)

	// Common flags
	var configDir, apiURL string
	var quiet, debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.StringVar(&apiURL, "api-url", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	positionalArgs, err := commands.ParseFlags(fs, args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}

	// Create config
	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug
	if apiURL != "" {
		cfg.APIURL = apiURL
	}

	log := logging.New(cfg.Debug, errOut)
	defer func() { _ = log.Sync() }()

	backend, err := d.factory(cfg, log)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return exitcode.BackendError
	}

	store := session.NewStore(d.persist(cfg), backend, log)
	if b, ok := backend.(sessionBinder); ok {
		b.UseSession(store)
	}
	store.Restore()

	rt := router.New(store, func(dec router.Decision) {
		log.Debug("route changed", zap.String("path", dec.Path))
	})
	defer rt.Close()

	ctrl := tasks.New(backend, cfg.PageSize, log)
	defer ctrl.Close()

	env := &commands.Env{
		Cfg:     cfg,
		Session: store,
		Tasks:   ctrl,
		Router:  rt,
		Prompt:  commands.NewPrompter(d.in, errOut),
		Log:     log,
		Out:     out,
		ErrOut:  errOut,
	}

	if code, ok := commands.Guard(env, cmd); !ok {
		return code
	}

	log.Debug("run", zap.String("command", cmd.Name()), zap.Strings("args", positionalArgs))
	return cmd.Run(ctx, env, positionalArgs)
}
