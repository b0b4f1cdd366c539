// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion, including guard outcomes
	// that need no action such as "already logged in".
	Success = 0

	// UserError indicates a user error (bad args, validation, task
	// number out of range).
	UserError = 1

	// AuthError indicates a missing or expired session.
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3
)
