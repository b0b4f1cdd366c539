// Package session holds the authenticated identity of the current user,
// persists it across processes and notifies observers when it changes.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"taskman/internal/service"
)

// ErrNoSession is returned by Token when no user is logged in.
var ErrNoSession = errors.New("not logged in")

// Reason describes why the session changed.
type Reason int

const (
	ReasonRestored Reason = iota
	ReasonLogin
	ReasonRegister
	ReasonLogout
	// ReasonExpired means an authenticated call was rejected with 401.
	ReasonExpired
)

func (r Reason) String() string {
	switch r {
	case ReasonRestored:
		return "restored"
	case ReasonLogin:
		return "login"
	case ReasonRegister:
		return "register"
	case ReasonLogout:
		return "logout"
	case ReasonExpired:
		return "expired"
	}
	return "unknown"
}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	User    *service.User
	Token   string
	Loading bool
}

// Authenticated reports whether a token and user are both held.
func (s Snapshot) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// Event is delivered to subscribers after every session change.
type Event struct {
	Snapshot Snapshot
	Reason   Reason
}

// Failure is a display-ready authentication failure.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }
func (f *Failure) Unwrap() error { return f.Err }

const (
	loginFailed    = "Login failed. Please try again."
	registerFailed = "Registration failed. Please try again."
)

// Store is the session state container. The zero value is not usable; use NewStore.
// Store is safe for concurrent use.
type Store struct {
	// writeMu serializes session writes so the persisted record and memory
	// change together.
	writeMu sync.Mutex

	mu      sync.RWMutex
	user    *service.User
	token   string
	loading bool

	restoreOnce sync.Once

	persist Persister
	auth    service.Authenticator
	log     *zap.Logger

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

// NewStore creates a store in the loading state. Call Restore before
// consulting Authenticated.
func NewStore(persist Persister, auth service.Authenticator, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		loading: true,
		persist: persist,
		auth:    auth,
		log:     log.Named("session"),
		subs:    make(map[int]func(Event)),
	}
}

// Restore hydrates the session from the persister. It runs at most once per
// Store; later calls are no-ops. Loading is false afterwards even if the
// persisted record was unreadable.
func (s *Store) Restore() {
	s.restoreOnce.Do(func() {
		token, user, err := s.persist.Load()
		if err != nil {
			s.log.Warn("failed to read persisted session", zap.Error(err))
		}

		s.mu.Lock()
		if err == nil && token != "" && wellFormed(user) {
			s.token = token
			s.user = user
		}
		s.loading = false
		s.mu.Unlock()

		s.log.Debug("session restored", zap.Bool("authenticated", s.Authenticated()))
		s.notify(ReasonRestored)
	})
}

func wellFormed(u *service.User) bool {
	return u != nil && (u.ID != "" || u.Email != "")
}

// Login authenticates with email and password. On failure the session is
// left untouched and a *Failure carries the message to display.
func (s *Store) Login(ctx context.Context, email, password string) error {
	creds, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.log.Debug("login failed", zap.Error(err))
		return &Failure{Message: service.MessageOf(err, loginFailed), Err: err}
	}
	return s.establish(creds, ReasonLogin, loginFailed)
}

// Register creates an account and logs it in. Same contract as Login.
func (s *Store) Register(ctx context.Context, name, email, password string) error {
	creds, err := s.auth.Register(ctx, name, email, password)
	if err != nil {
		s.log.Debug("register failed", zap.Error(err))
		return &Failure{Message: service.MessageOf(err, registerFailed), Err: err}
	}
	return s.establish(creds, ReasonRegister, registerFailed)
}

func (s *Store) establish(creds service.Credentials, reason Reason, fallback string) error {
	if creds.Token == "" || !wellFormed(&creds.User) {
		return &Failure{Message: fallback, Err: errors.New("malformed credentials in response")}
	}

	s.writeMu.Lock()
	if err := s.persist.Save(creds.Token, creds.User); err != nil {
		s.writeMu.Unlock()
		return &Failure{Message: fallback, Err: err}
	}
	user := creds.User
	s.mu.Lock()
	s.token = creds.Token
	s.user = &user
	s.loading = false
	s.mu.Unlock()
	s.writeMu.Unlock()

	s.log.Debug("session established", zap.String("reason", reason.String()), zap.String("user", user.Email))
	s.notify(reason)
	return nil
}

// Logout clears the persisted and in-memory session. Calling it without a
// session is a no-op apart from notifying subscribers.
func (s *Store) Logout() {
	s.clear(ReasonLogout)
}

// ForceLogout clears the session after an authorization rejection.
// Subscribers receive ReasonExpired so they can navigate to login.
func (s *Store) ForceLogout() {
	s.clear(ReasonExpired)
}

// ExpireToken is ForceLogout restricted to the session that owns token.
// A rejection of a token that has since been replaced or cleared is ignored
// and ExpireToken returns false.
func (s *Store) ExpireToken(token string) bool {
	s.writeMu.Lock()
	s.mu.RLock()
	current := s.token
	s.mu.RUnlock()
	if token == "" || current != token {
		s.writeMu.Unlock()
		s.log.Debug("ignoring rejection of a superseded token")
		return false
	}
	s.clearLocked()
	s.writeMu.Unlock()

	s.log.Debug("session cleared", zap.String("reason", ReasonExpired.String()))
	s.notify(ReasonExpired)
	return true
}

func (s *Store) clear(reason Reason) {
	s.writeMu.Lock()
	s.clearLocked()
	s.writeMu.Unlock()

	s.log.Debug("session cleared", zap.String("reason", reason.String()))
	s.notify(reason)
}

// clearLocked wipes the persisted and in-memory session. Callers hold writeMu.
func (s *Store) clearLocked() {
	if err := s.persist.Clear(); err != nil {
		s.log.Warn("failed to clear persisted session", zap.Error(err))
	}

	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
}

// Snapshot returns the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Token: s.token, Loading: s.loading}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Loading reports whether Restore has not completed yet.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Authenticated reports whether a session is held.
func (s *Store) Authenticated() bool {
	return s.Snapshot().Authenticated()
}

// User returns the current user, or nil.
func (s *Store) User() *service.User {
	return s.Snapshot().User
}

// Token implements oauth2.TokenSource over the current bearer token.
func (s *Store) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return nil, ErrNoSession
	}
	return &oauth2.Token{AccessToken: s.token, TokenType: "Bearer"}, nil
}

// Subscribe registers fn for session events. The returned function removes
// the subscription. fn is called synchronously after the change is applied
// and must not call Subscribe or the returned cancel function.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(reason Reason) {
	ev := Event{Snapshot: s.Snapshot(), Reason: reason}

	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
