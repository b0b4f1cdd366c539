package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"taskman/internal/backend/taskapi"
	"taskman/internal/cli"
	"taskman/internal/commands"
	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/testutil"
)

// testFactory creates a backend factory that returns the given FakeService.
func testFactory(svc *testutil.FakeService) cli.BackendFactory {
	return func(cfg *config.Config, log *zap.Logger) (cli.Backend, error) {
		return svc, nil
	}
}

// apiFactory builds the real HTTP client; tests point it at a FakeAPI with --api-url.
func apiFactory(cfg *config.Config, log *zap.Logger) (cli.Backend, error) {
	return taskapi.New(cfg, log), nil
}

// runCLI runs the dispatcher with the given input and returns captured output.
func runCLI(t *testing.T, d *cli.Dispatcher, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	code = d.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := runCLI(t, dispatcher, "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := runCLI(t, dispatcher, "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	stdout, stderr, code := runCLI(t, dispatcher, "help", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	stdout, stderr, code := runCLI(t, dispatcher, "version", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "taskman 0.1.0\n" {
		t.Errorf("expected 'taskman 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := runCLI(t, dispatcher, "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_MissingFlagValue(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := runCLI(t, dispatcher, "list", "--page")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -page\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte("page_size: 0\n"), 0600); err != nil {
		t.Fatal(err)
	}
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := runCLI(t, dispatcher, "version", "--config", dir)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(stderr, "invalid page_size") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_NotLoggedIn(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvAPIURL, api.URL())
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, apiFactory)

	// No args runs list.
	_, stderr, code := runCLI(t, dispatcher)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: not logged in (run: taskman login)\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if n := len(api.Requests()); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestDispatcher_EndToEnd(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	user := api.AddUser("Ada", "ada@example.com", "secret1")
	dir := t.TempDir()
	common := []string{"--config", dir, "--api-url", api.URL()}

	run := func(input string, args ...string) (string, string, int) {
		t.Helper()
		d := cli.NewDispatcher(commands.DefaultRegistry, apiFactory, cli.WithInput(strings.NewReader(input)))
		argv := append([]string{args[0]}, common...)
		argv = append(argv, args[1:]...)
		return runCLI(t, d, argv...)
	}

	stdout, stderr, code := run("secret1\n", "login", "--email", "ada@example.com")
	if code != exitcode.Success || stdout != "ok\n" {
		t.Fatalf("login: code=%d stdout=%q stderr=%q", code, stdout, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, config.TokenFile)); err != nil {
		t.Fatalf("expected persisted token: %v", err)
	}

	stdout, _, code = run("", "login")
	if code != exitcode.Success || stdout != "already logged in\n" {
		t.Errorf("second login: code=%d stdout=%q", code, stdout)
	}

	for _, title := range []string{"Buy milk", "Walk dog"} {
		if _, stderr, code := run("", "add", title); code != exitcode.Success {
			t.Fatalf("add %q: code=%d stderr=%q", title, code, stderr)
		}
	}
	if n := api.TaskCount(user.ID); n != 2 {
		t.Fatalf("expected 2 tasks on the server, got %d", n)
	}

	// Newest first.
	stdout, _, code = run("", "list")
	if code != exitcode.Success {
		t.Fatalf("list: code=%d", code)
	}
	for _, want := range []string{"Welcome, Ada\n", "Your Tasks (2 total)\n", "   1  [Pending]      Walk dog\n", "   2  [Pending]      Buy milk\n"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in %q", want, stdout)
		}
	}

	if _, stderr, code := run("", "done", "2"); code != exitcode.Success {
		t.Fatalf("done: code=%d stderr=%q", code, stderr)
	}
	if _, stderr, code := run("y\n", "rm", "1"); code != exitcode.Success {
		t.Fatalf("rm: code=%d stderr=%q", code, stderr)
	}

	stdout, _, _ = run("", "list")
	if !strings.Contains(stdout, "   1  [Done]         Buy milk\n") || strings.Contains(stdout, "Walk dog") {
		t.Errorf("unexpected final list %q", stdout)
	}

	stdout, _, code = run("", "logout")
	if code != exitcode.Success || stdout != "ok\n" {
		t.Errorf("logout: code=%d stdout=%q", code, stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, config.TokenFile)); !os.IsNotExist(err) {
		t.Errorf("expected token file removed, got %v", err)
	}
}

func TestDispatcher_ExpiredToken(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("Ada", "ada@example.com", "secret1")
	dir := t.TempDir()

	login := cli.NewDispatcher(commands.DefaultRegistry, apiFactory, cli.WithInput(strings.NewReader("secret1\n")))
	if _, stderr, code := runCLI(t, login, "login", "--config", dir, "--api-url", api.URL(), "--email", "ada@example.com"); code != exitcode.Success {
		t.Fatalf("login failed: %s", stderr)
	}

	api.ExpireTokens()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, apiFactory)
	_, stderr, code := runCLI(t, dispatcher, "list", "--config", dir, "--api-url", api.URL())

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: session expired (run: taskman login)\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, config.TokenFile)); !os.IsNotExist(err) {
		t.Errorf("expected token file removed, got %v", err)
	}

	_, stderr, code = runCLI(t, dispatcher, "list", "--config", dir, "--api-url", api.URL())
	if code != exitcode.AuthError || stderr != "error: not logged in (run: taskman login)\n" {
		t.Errorf("expected not logged in, got code=%d stderr=%q", code, stderr)
	}
}

func TestDispatcher_DebugLogsToStderr(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	_, stderr, code := runCLI(t, dispatcher, "version", "--config", t.TempDir(), "--debug")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.Contains(stderr, "run") || !strings.Contains(stderr, "version") {
		t.Errorf("expected debug log on stderr, got %q", stderr)
	}
}
