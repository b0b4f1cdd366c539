package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists the valid statuses in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusDone}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Label returns the human-readable status name.
// Unknown statuses render as pending, matching how the server defaults them.
func (s Status) Label() string {
	switch s {
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return "Pending"
	}
}

// ParseStatus parses a status name. Accepts "in-progress" and "inprogress"
// as spellings of in_progress.
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	if norm == "inprogress" {
		norm = string(StatusInProgress)
	}
	st := Status(norm)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status: %s", s)
	}
	return st, nil
}

// Task represents a single task item.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status"`
}

// UnmarshalJSON accepts the id as a JSON string or number.
func (t *Task) UnmarshalJSON(data []byte) error {
	type task Task
	var v struct {
		task
		ID ID `json:"id"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = Task(v.task)
	t.ID = string(v.ID)
	return nil
}

// ID is a server-assigned identifier. The server may send it as a JSON
// string or number; either decodes to the same opaque string.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number, got %s", data)
	}
	*id = ID(n.String())
	return nil
}

// NewTask holds the fields for a create call.
type NewTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status"`
}

// TaskPatch is a partial update. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// Apply returns t with the patch fields applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	return t
}

// Page is one page of tasks as reported by the server.
type Page struct {
	Items      []Task
	TotalPages int
	TotalItems int
}

// User is the authenticated user record. Display only.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UnmarshalJSON accepts the id as a JSON string or number.
func (u *User) UnmarshalJSON(data []byte) error {
	type user User
	var v struct {
		user
		ID ID `json:"id"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*u = User(v.user)
	u.ID = string(v.ID)
	return nil
}

// Credentials is the result of a successful login or registration.
type Credentials struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
