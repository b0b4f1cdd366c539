// Package service defines the backend-agnostic interfaces for session and task operations.
package service

import "context"

// Service defines the interface for task backend operations.
// All task API calls go through this interface.
// The controller and commands never build HTTP requests directly.
type Service interface {
	// ListTasks returns one page of tasks.
	// page is 1-based; limit is the page size.
	// Results are in API order (no client-side sorting).
	ListTasks(ctx context.Context, page, limit int) (Page, error)

	// CreateTask creates a task. The server assigns the ID.
	CreateTask(ctx context.Context, task NewTask) (Task, error)

	// UpdateTask applies a partial update. Only non-nil patch fields are sent.
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, id string) error
}

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	// Login authenticates an existing user.
	Login(ctx context.Context, email, password string) (Credentials, error)

	// Register creates a user and authenticates it.
	Register(ctx context.Context, name, email, password string) (Credentials, error)
}
