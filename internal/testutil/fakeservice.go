// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"taskman/internal/service"
)

// ErrNotFound is returned when a resource is not found.
var ErrNotFound = &service.APIError{Code: http.StatusNotFound, Message: "Task not found"}

// FakeService is an in-memory implementation of service.Service and
// service.Authenticator for testing.
type FakeService struct {
	mu     sync.Mutex
	tasks  []service.Task
	users  map[string]fakeUser // email -> user
	nextID int

	// Calls counts invocations per method name.
	Calls map[string]int

	// LastPatch is the most recent patch passed to UpdateTask.
	LastPatch service.TaskPatch

	// Error injection for testing
	LoginErr    error
	RegisterErr error
	ListErr     error
	CreateErr   error
	UpdateErr   error
	DeleteErr   error

	// BeforeList, when set, runs before ListTasks answers. Tests use it to
	// hold a response back and reorder concurrent fetches.
	BeforeList func(page int)

	// BeforeUpdate, when set, runs before UpdateTask answers.
	BeforeUpdate func(id string)
}

type fakeUser struct {
	user     service.User
	password string
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		users: make(map[string]fakeUser),
		Calls: make(map[string]int),
	}
}

// AddUser registers a user that can log in.
func (f *FakeService) AddUser(name, email, password string) service.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := service.User{ID: fmt.Sprintf("u%d", f.nextID), Name: name, Email: email}
	f.users[strings.ToLower(email)] = fakeUser{user: u, password: password}
	return u
}

// AddTask appends a task and returns it.
func (f *FakeService) AddTask(title string, status service.Status) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(service.NewTask{Title: title, Status: status})
}

func (f *FakeService) addLocked(nt service.NewTask) service.Task {
	f.nextID++
	if nt.Status == "" {
		nt.Status = service.StatusPending
	}
	t := service.Task{
		ID:          fmt.Sprintf("t%d", f.nextID),
		Title:       nt.Title,
		Description: nt.Description,
		Status:      nt.Status,
	}
	f.tasks = append(f.tasks, t)
	return t
}

// Tasks returns a copy of all stored tasks.
func (f *FakeService) Tasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// CallCount returns how many times method was invoked.
func (f *FakeService) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

func (f *FakeService) record(method string) {
	f.mu.Lock()
	f.Calls[method]++
	f.mu.Unlock()
}

// Login implements service.Authenticator.
func (f *FakeService) Login(ctx context.Context, email, password string) (service.Credentials, error) {
	f.record("Login")
	if f.LoginErr != nil {
		return service.Credentials{}, f.LoginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[strings.ToLower(email)]
	if !ok || u.password != password {
		return service.Credentials{}, &service.APIError{Code: http.StatusUnauthorized, Message: "Invalid email or password"}
	}
	return service.Credentials{Token: "token-" + u.user.ID, User: u.user}, nil
}

// Register implements service.Authenticator.
func (f *FakeService) Register(ctx context.Context, name, email, password string) (service.Credentials, error) {
	f.record("Register")
	if f.RegisterErr != nil {
		return service.Credentials{}, f.RegisterErr
	}
	f.mu.Lock()
	if _, exists := f.users[strings.ToLower(email)]; exists {
		f.mu.Unlock()
		return service.Credentials{}, &service.APIError{Code: http.StatusConflict, Message: "Email already registered"}
	}
	f.mu.Unlock()
	u := f.AddUser(name, email, password)
	return service.Credentials{Token: "token-" + u.ID, User: u}, nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, page, limit int) (service.Page, error) {
	f.record("ListTasks")
	if f.BeforeList != nil {
		f.BeforeList(page)
	}
	if f.ListErr != nil {
		return service.Page{}, f.ListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return paginate(f.tasks, page, limit), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	f.record("CreateTask")
	if f.CreateErr != nil {
		return service.Task{}, f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(task), nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	f.record("UpdateTask")
	if f.BeforeUpdate != nil {
		f.BeforeUpdate(id)
	}
	if f.UpdateErr != nil {
		return service.Task{}, f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastPatch = patch
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks[i] = patch.Apply(t)
			return f.tasks[i], nil
		}
	}
	return service.Task{}, ErrNotFound
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id string) error {
	f.record("DeleteTask")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// paginate slices tasks the way the API does: out-of-range pages are empty
// but still report the totals.
func paginate(tasks []service.Task, page, limit int) service.Page {
	if limit < 1 {
		limit = 10
	}
	if page < 1 {
		page = 1
	}
	total := len(tasks)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	var items []service.Task
	if start < total {
		end := start + limit
		if end > total {
			end = total
		}
		items = make([]service.Task, end-start)
		copy(items, tasks[start:end])
	}
	return service.Page{Items: items, TotalPages: totalPages, TotalItems: total}
}

// ErrInjected is a generic transport failure for error-path tests.
var ErrInjected = errors.New("connection refused")
