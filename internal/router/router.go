// Package router gates navigation between the login, register and task
// views based on session state.
package router

import (
	"sync"

	"taskman/internal/session"
)

// Route paths.
const (
	PathRoot     = "/"
	PathLogin    = "/login"
	PathRegister = "/register"
	PathTasks    = "/tasks"
)

// State is the guard's view of the session.
type State int

const (
	Loading State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// StateOf maps a session snapshot to a guard state.
func StateOf(snap session.Snapshot) State {
	switch {
	case snap.Loading:
		return Loading
	case snap.Authenticated():
		return Authenticated
	default:
		return Unauthenticated
	}
}

// Action is what the caller should do for a route.
type Action int

const (
	// Render shows the requested view.
	Render Action = iota
	// Placeholder shows a neutral placeholder; the session is still loading.
	Placeholder
	// Redirect replaces the current entry with Decision.Path.
	Redirect
)

// Decision is the outcome of evaluating a path.
type Decision struct {
	Action Action
	Path   string

	// Redirected is set by Router when the requested path was replaced.
	Redirected bool
}

// Evaluate decides what to do with a navigation to path in the given state.
// Redirects always use replace semantics.
func Evaluate(state State, path string) Decision {
	switch path {
	case PathLogin, PathRegister:
		if state == Loading {
			return Decision{Action: Placeholder, Path: path}
		}
		if state == Authenticated {
			return Decision{Action: Redirect, Path: PathTasks}
		}
		return Decision{Action: Render, Path: path}
	case PathTasks:
		if state == Loading {
			return Decision{Action: Placeholder, Path: path}
		}
		if state == Unauthenticated {
			return Decision{Action: Redirect, Path: PathLogin}
		}
		return Decision{Action: Render, Path: path}
	default:
		// "/" and unknown paths land on the task view.
		return Decision{Action: Redirect, Path: PathTasks}
	}
}

// Router keeps a navigation history and re-evaluates the current route on
// every session change.
type Router struct {
	mu      sync.Mutex
	store   *session.Store
	history []string
	last    Decision
	cancel  func()

	onChange func(Decision)
}

// New creates a router bound to store. onChange, if non-nil, is called
// whenever a session change moves the current route.
func New(store *session.Store, onChange func(Decision)) *Router {
	r := &Router{store: store, onChange: onChange}
	r.cancel = store.Subscribe(r.sessionChanged)
	return r
}

// Close stops following session changes.
func (r *Router) Close() {
	r.cancel()
}

// Navigate pushes path onto the history and resolves it, following
// redirects. Redirected entries replace the pushed one.
func (r *Router) Navigate(path string) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, path)
	return r.resolveLocked(StateOf(r.store.Snapshot()))
}

// Back pops the current entry and resolves the previous one. It returns
// false if there is nothing to go back to.
func (r *Router) Back() (Decision, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) < 2 {
		return r.last, false
	}
	r.history = r.history[:len(r.history)-1]
	return r.resolveLocked(StateOf(r.store.Snapshot())), true
}

// Current returns the path of the current history entry.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return ""
	}
	return r.history[len(r.history)-1]
}

// Depth returns the number of history entries.
func (r *Router) Depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

// resolveLocked evaluates the top entry, replacing it on redirect until it
// settles on Render or Placeholder.
func (r *Router) resolveLocked(state State) Decision {
	top := len(r.history) - 1
	redirected := false
	for i := 0; i < 4; i++ {
		d := Evaluate(state, r.history[top])
		if d.Action != Redirect {
			d.Redirected = redirected
			r.last = d
			return d
		}
		r.history[top] = d.Path
		redirected = true
	}
	// Redirect chains are at most two hops; this is unreachable with the
	// table in Evaluate.
	r.last = Decision{Action: Placeholder, Path: r.history[top], Redirected: redirected}
	return r.last
}

func (r *Router) sessionChanged(ev session.Event) {
	r.mu.Lock()
	if len(r.history) == 0 {
		r.mu.Unlock()
		return
	}
	before := r.history[len(r.history)-1]
	d := r.resolveLocked(StateOf(ev.Snapshot))
	moved := d.Path != before
	r.mu.Unlock()

	if moved && r.onChange != nil {
		r.onChange(d)
	}
}
