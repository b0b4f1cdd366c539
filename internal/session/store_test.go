package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskman/internal/config"
	"taskman/internal/service"
	"taskman/internal/session"
	"taskman/internal/testutil"
)

func newFileStore(t *testing.T) (*config.Config, *session.FileStore) {
	t.Helper()
	cfg := &config.Config{Dir: filepath.Join(t.TempDir(), "taskman")}
	return cfg, session.NewFileStore(cfg)
}

func TestLoginThenRestore_IdenticalSession(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("Ada", "ada@example.com", "secret1")
	_, persist := newFileStore(t)

	first := session.NewStore(persist, svc, nil)
	first.Restore()
	require.NoError(t, first.Login(context.Background(), "ada@example.com", "secret1"))

	// fresh process
	second := session.NewStore(persist, svc, nil)
	assert.True(t, second.Loading())
	second.Restore()

	assert.False(t, second.Loading())
	assert.Equal(t, first.Snapshot(), second.Snapshot())
	assert.True(t, second.Authenticated())
}

func TestLogin_FailureLeavesSessionUntouched(t *testing.T) {
	svc := testutil.NewFakeService()
	persist := &session.MemoryStore{}
	store := session.NewStore(persist, svc, nil)
	store.Restore()

	err := store.Login(context.Background(), "nobody@example.com", "wrong")

	var failure *session.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "Invalid email or password", failure.Message)
	assert.False(t, store.Authenticated())
	assert.Empty(t, persist.Token)
}

func TestLogin_NetworkFailureUsesGenericMessage(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.LoginErr = testutil.ErrInjected
	store := session.NewStore(&session.MemoryStore{}, svc, nil)
	store.Restore()

	err := store.Login(context.Background(), "a@example.com", "secret1")

	require.Error(t, err)
	assert.Equal(t, "Login failed. Please try again.", err.Error())
	assert.True(t, errors.Is(err, testutil.ErrInjected))
}

func TestRegister_PersistsSession(t *testing.T) {
	svc := testutil.NewFakeService()
	persist := &session.MemoryStore{}
	store := session.NewStore(persist, svc, nil)
	store.Restore()

	require.NoError(t, store.Register(context.Background(), "Bob", "bob@example.com", "hunter22"))

	require.NotNil(t, persist.User)
	assert.Equal(t, "bob@example.com", persist.User.Email)
	assert.NotEmpty(t, persist.Token)
	assert.Equal(t, "Bob", store.User().Name)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("Bob", "bob@example.com", "hunter22")
	store := session.NewStore(&session.MemoryStore{}, svc, nil)
	store.Restore()

	err := store.Register(context.Background(), "Bob", "bob@example.com", "hunter22")

	require.Error(t, err)
	assert.Equal(t, "Email already registered", err.Error())
}

func TestLogout_Idempotent(t *testing.T) {
	_, persist := newFileStore(t)
	store := session.NewStore(persist, testutil.NewFakeService(), nil)
	store.Restore()

	store.Logout()
	store.Logout()

	assert.False(t, store.Authenticated())
	assert.Equal(t, session.Snapshot{}, store.Snapshot())
}

func TestLogout_ClearsPersistedFiles(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("Ada", "ada@example.com", "secret1")
	cfg, persist := newFileStore(t)
	store := session.NewStore(persist, svc, nil)
	store.Restore()
	require.NoError(t, store.Login(context.Background(), "ada@example.com", "secret1"))

	store.Logout()

	_, err := os.Stat(cfg.TokenPath())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(cfg.UserPath())
	assert.True(t, os.IsNotExist(err))
}

func TestRestore_RequiresTokenAndUser(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		user     string
		wantAuth bool
	}{
		{name: "both present", token: "abc", user: `{"id":"1","name":"Ada","email":"ada@example.com"}`, wantAuth: true},
		{name: "token only", token: "abc"},
		{name: "user only", user: `{"id":"1"}`},
		{name: "malformed user", token: "abc", user: `{not json`},
		{name: "empty user record", token: "abc", user: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, persist := newFileStore(t)
			require.NoError(t, cfg.EnsureDir())
			if tt.token != "" {
				require.NoError(t, os.WriteFile(cfg.TokenPath(), []byte(tt.token), 0600))
			}
			if tt.user != "" {
				require.NoError(t, os.WriteFile(cfg.UserPath(), []byte(tt.user), 0600))
			}

			store := session.NewStore(persist, testutil.NewFakeService(), nil)
			store.Restore()

			assert.False(t, store.Loading())
			assert.Equal(t, tt.wantAuth, store.Authenticated())
		})
	}
}

func TestRestore_RunsOnce(t *testing.T) {
	persist := &session.MemoryStore{}
	store := session.NewStore(persist, testutil.NewFakeService(), nil)

	var events []session.Reason
	store.Subscribe(func(ev session.Event) { events = append(events, ev.Reason) })

	store.Restore()
	persist.Token = "late"
	persist.User = &service.User{ID: "1"}
	store.Restore()

	assert.Equal(t, []session.Reason{session.ReasonRestored}, events)
	assert.False(t, store.Authenticated())
}

func TestForceLogout_NotifiesExpired(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("Ada", "ada@example.com", "secret1")
	store := session.NewStore(&session.MemoryStore{}, svc, nil)
	store.Restore()
	require.NoError(t, store.Login(context.Background(), "ada@example.com", "secret1"))

	var got []session.Event
	cancel := store.Subscribe(func(ev session.Event) { got = append(got, ev) })
	store.ForceLogout()
	cancel()
	store.Logout()

	require.Len(t, got, 1)
	assert.Equal(t, session.ReasonExpired, got[0].Reason)
	assert.False(t, got[0].Snapshot.Authenticated())
}

func TestToken_TokenSource(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("Ada", "ada@example.com", "secret1")
	store := session.NewStore(&session.MemoryStore{}, svc, nil)
	store.Restore()

	_, err := store.Token()
	require.ErrorIs(t, err, session.ErrNoSession)

	require.NoError(t, store.Login(context.Background(), "ada@example.com", "secret1"))
	tok, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, store.Snapshot().Token, tok.AccessToken)
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name                            string
		uname, email, password, confirm string
		want                            string
	}{
		{"missing name", "", "a@b.c", "secret1", "secret1", "Please fill in all fields"},
		{"mismatch", "A", "a@b.c", "secret1", "secret2", "Passwords do not match"},
		{"short", "A", "a@b.c", "abc", "abc", "Password must be at least 6 characters"},
		{"ok", "A", "a@b.c", "secret1", "secret1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := session.ValidateRegistration(tt.uname, tt.email, tt.password, tt.confirm)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			var verr *session.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.Message)
		})
	}
}

func TestValidateLogin(t *testing.T) {
	assert.Error(t, session.ValidateLogin("", "x"))
	assert.Error(t, session.ValidateLogin("a@b.c", ""))
	assert.NoError(t, session.ValidateLogin("a@b.c", "x"))
}

func TestExpireToken_IgnoresSupersededToken(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("Ada", "ada@example.com", "secret1")
	svc.AddUser("Bob", "bob@example.com", "hunter22")
	persist := &session.MemoryStore{}
	store := session.NewStore(persist, svc, nil)
	store.Restore()
	ctx := context.Background()

	require.NoError(t, store.Login(ctx, "ada@example.com", "secret1"))
	old := store.Snapshot().Token
	require.NoError(t, store.Login(ctx, "bob@example.com", "hunter22"))

	var events []session.Reason
	store.Subscribe(func(ev session.Event) { events = append(events, ev.Reason) })

	assert.False(t, store.ExpireToken(old))
	assert.False(t, store.ExpireToken(""))
	assert.True(t, store.Authenticated())
	assert.Equal(t, "Bob", store.User().Name)
	assert.Empty(t, events)

	assert.True(t, store.ExpireToken(store.Snapshot().Token))
	assert.False(t, store.Authenticated())
	assert.Equal(t, []session.Reason{session.ReasonExpired}, events)
	token, user := persist.Saved()
	assert.Empty(t, token)
	assert.Nil(t, user)
}

func TestConcurrentLoginAndForceLogout_KeepPersistedRecordInStep(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("Ada", "ada@example.com", "secret1")
	persist := &session.MemoryStore{}
	store := session.NewStore(persist, svc, nil)
	store.Restore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Login(context.Background(), "ada@example.com", "secret1")
		}()
		go func() {
			defer wg.Done()
			store.ForceLogout()
		}()
	}
	wg.Wait()

	token, user := persist.Saved()
	snap := store.Snapshot()
	assert.Equal(t, snap.Token, token)
	assert.Equal(t, snap.User, user)
}
