// Package cli parses the command line, builds the session, router and task
// controller for one invocation, and dispatches to a registered command.
package cli
