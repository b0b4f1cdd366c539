package commands_test

import (
	"testing"

	"taskman/internal/commands"
	"taskman/internal/exitcode"
	"taskman/internal/testutil"
)

// TestLoginCommand_Success verifies login with --email prompts only for the
// password and persists the session.
func TestLoginCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("Ada", "ada@example.com", "secret1")
	te := newTestEnv(t, svc, "secret1\n", false)

	stdout, stderr, code := runCommand(t, te, &commands.LoginCmd{}, "--email", "ada@example.com")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if !te.env.Session.Authenticated() {
		t.Error("expected an authenticated session")
	}
	if te.persist.Token == "" || te.persist.User == nil || te.persist.User.Name != "Ada" {
		t.Errorf("expected persisted session, got token=%q user=%v", te.persist.Token, te.persist.User)
	}
}

// TestLoginCommand_PromptsForEmail verifies both fields are read from input
func TestLoginCommand_PromptsForEmail(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("Ada", "ada@example.com", "secret1")
	te := newTestEnv(t, svc, "ada@example.com\nsecret1\n", false)

	_, stderr, code := runCommand(t, te, &commands.LoginCmd{})

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
}

// TestLoginCommand_WrongPassword verifies the server message is shown
func TestLoginCommand_WrongPassword(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("Ada", "ada@example.com", "secret1")
	te := newTestEnv(t, svc, "nope\n", false)

	stdout, stderr, code := runCommand(t, te, &commands.LoginCmd{}, "--email", "ada@example.com")

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: Invalid email or password\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if te.env.Session.Authenticated() {
		t.Error("session must stay unauthenticated")
	}
}

// TestLoginCommand_EmptyFields verifies validation runs before any request
func TestLoginCommand_EmptyFields(t *testing.T) {
	svc := testutil.NewFakeService()
	te := newTestEnv(t, svc, "\n", false)

	_, stderr, code := runCommand(t, te, &commands.LoginCmd{}, "--email", "ada@example.com")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: Please fill in all fields\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if svc.CallCount("Login") != 0 {
		t.Error("login should not reach the service")
	}
}

// TestLoginCommand_InputEnded verifies EOF on a prompt is a user error
func TestLoginCommand_InputEnded(t *testing.T) {
	te := newTestEnv(t, testutil.NewFakeService(), "", false)

	_, stderr, code := runCommand(t, te, &commands.LoginCmd{})

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "\nerror: input ended\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// TestLoginCommand_AlreadyLoggedIn verifies the guard redirects away from login
func TestLoginCommand_AlreadyLoggedIn(t *testing.T) {
	svc := testutil.NewFakeService()
	te := newTestEnv(t, svc, "", true)

	stdout, stderr, code := runCommand(t, te, &commands.LoginCmd{})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "already logged in\n" {
		t.Errorf("expected 'already logged in', got %q", stdout)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if svc.CallCount("Login") != 0 {
		t.Error("login should not reach the service")
	}
}

// TestRegisterCommand verifies registration logs the new user in
func TestRegisterCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	te := newTestEnv(t, svc, "secret1\nsecret1\n", false)

	stdout, stderr, code := runCommand(t, te, &commands.RegisterCmd{}, "--name", "Grace", "--email", "grace@example.com")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	u := te.env.Session.User()
	if u == nil || u.Name != "Grace" || u.Email != "grace@example.com" {
		t.Errorf("unexpected session user %v", u)
	}
}

// TestRegisterCommand_Validation verifies form errors never reach the service
func TestRegisterCommand_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"mismatch", "Grace\ngrace@example.com\nsecret1\nsecret2\n", "error: Passwords do not match\n"},
		{"short", "Grace\ngrace@example.com\nabc\nabc\n", "error: Password must be at least 6 characters\n"},
		{"missing name", "\ngrace@example.com\nsecret1\nsecret1\n", "error: Please fill in all fields\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			te := newTestEnv(t, svc, tt.input, false)

			_, stderr, code := runCommand(t, te, &commands.RegisterCmd{})

			if code != exitcode.UserError {
				t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
			}
			if stderr != tt.wantErr {
				t.Errorf("expected %q, got %q", tt.wantErr, stderr)
			}
			if svc.CallCount("Register") != 0 {
				t.Error("register should not reach the service")
			}
		})
	}
}

// TestRegisterCommand_Duplicate verifies the server message is shown
func TestRegisterCommand_Duplicate(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("Ada", "ada@example.com", "secret1")
	te := newTestEnv(t, svc, "secret1\nsecret1\n", false)

	_, stderr, code := runCommand(t, te, &commands.RegisterCmd{}, "--name", "Ada", "--email", "ada@example.com")

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: Email already registered\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// TestLogoutCommand_NotLoggedIn verifies logout without a session
func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	te := newTestEnv(t, testutil.NewFakeService(), "", false)

	stdout, stderr, code := runCommand(t, te, &commands.LogoutCmd{})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "not logged in\n" {
		t.Errorf("expected 'not logged in\\n', got %q", stdout)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
}

// TestLogoutCommand_ClearsSession verifies logout removes the persisted session
func TestLogoutCommand_ClearsSession(t *testing.T) {
	te := newTestEnv(t, testutil.NewFakeService(), "", true)

	stdout, _, code := runCommand(t, te, &commands.LogoutCmd{})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if te.env.Session.Authenticated() {
		t.Error("session should be cleared")
	}
	if te.persist.Token != "" || te.persist.User != nil {
		t.Error("persisted session should be cleared")
	}

	// Second logout is a no-op.
	stdout, _, _ = runCommand(t, te, &commands.LogoutCmd{})
	if stdout != "not logged in\n" {
		t.Errorf("expected 'not logged in\\n', got %q", stdout)
	}
}
