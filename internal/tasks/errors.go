package tasks

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a mutation for the same task (or a create) is
	// already in flight.
	ErrBusy = errors.New("operation already in progress")

	// ErrStale is returned by FetchPage when a newer fetch was issued before
	// this one completed. The response was discarded.
	ErrStale = errors.New("response superseded by a newer request")

	// ErrCancelled is returned by Remove when the user declines confirmation.
	ErrCancelled = errors.New("cancelled")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("controller closed")

	// ErrUnknownTask is returned when a task id is not on the current page.
	ErrUnknownTask = errors.New("task not on current page")
)

// PageRangeError is returned by FetchPage for a page past the last page the
// server reports.
type PageRangeError struct {
	Page       int
	TotalPages int
}

func (e *PageRangeError) Error() string {
	return fmt.Sprintf("page out of range: %d (of %d)", e.Page, e.TotalPages)
}

// ValidationError is an input error caught before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Banner messages for failed operations.
const (
	MsgLoadFailed   = "Failed to load tasks. Please try again."
	MsgCreateFailed = "Failed to create task. Please try again."
	MsgUpdateFailed = "Failed to update task. Please try again."
	MsgDeleteFailed = "Failed to delete task. Please try again."
)
