// Package tasks holds the task list controller: the current page of tasks,
// pagination metadata and the create/update/delete flows against the API.
package tasks

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"taskman/internal/service"
)

// DefaultPageSize is the number of tasks per page.
const DefaultPageSize = 6

// View is an immutable snapshot of the controller state.
type View struct {
	Items       []service.Task
	CurrentPage int
	TotalPages  int
	TotalItems  int

	// Loaded is false until the first successful fetch.
	Loaded bool
	// Banner is the dismissible error message, empty when none.
	Banner string
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(question string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(question string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(question string) bool { return f(question) }

// DeleteQuestion is the confirmation prompt used by Remove.
const DeleteQuestion = "Are you sure you want to delete this task?"

// Controller is safe for concurrent use. Network calls are made without
// holding the lock; results are applied only if still relevant.
type Controller struct {
	svc      service.Service
	pageSize int
	log      *zap.Logger

	mu          sync.Mutex
	items       []service.Task
	currentPage int
	totalPages  int
	totalItems  int
	loaded      bool
	banner      string
	seq         uint64 // last fetch sequence issued
	updating    map[string]bool
	creating    bool
	closed      bool

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(View)
}

// New creates a controller. pageSize < 1 selects DefaultPageSize.
func New(svc service.Service, pageSize int, log *zap.Logger) *Controller {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		svc:         svc,
		pageSize:    pageSize,
		log:         log.Named("tasks"),
		currentPage: 1,
		updating:    make(map[string]bool),
		subs:        make(map[int]func(View)),
	}
}

// PageSize returns the number of tasks requested per page.
func (c *Controller) PageSize() int { return c.pageSize }

// View returns the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	items := make([]service.Task, len(c.items))
	copy(items, c.items)
	return View{
		Items:       items,
		CurrentPage: c.currentPage,
		TotalPages:  c.totalPages,
		TotalItems:  c.totalItems,
		Loaded:      c.loaded,
		Banner:      c.banner,
	}
}

// Task returns the task with id from the current page.
func (c *Controller) Task(id string) (service.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return service.Task{}, false
	}
	return c.items[i], true
}

// Updating reports whether a mutation for id is in flight. Renderers use it
// to disable that task's controls.
func (c *Controller) Updating(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updating[id]
}

// Creating reports whether a create is in flight.
func (c *Controller) Creating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creating
}

// Banner returns the current error message.
func (c *Controller) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// DismissBanner clears the error message.
func (c *Controller) DismissBanner() {
	c.mu.Lock()
	changed := c.banner != ""
	c.banner = ""
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// Close detaches the controller. Responses arriving afterwards are ignored
// and further operations return ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.subMu.Lock()
	c.subs = make(map[int]func(View))
	c.subMu.Unlock()
}

// Subscribe registers fn to be called with the new view after every applied
// change. The returned function removes the subscription.
func (c *Controller) Subscribe(fn func(View)) (cancel func()) {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) notify() {
	v := c.View()

	c.subMu.Lock()
	fns := make([]func(View), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// FetchPage loads page (1-based) and replaces the current items and
// pagination wholesale. On failure the previous state is kept and the load
// banner is set. If a newer fetch was issued meanwhile, the response is
// dropped and ErrStale returned. A page past the server's last page is not
// applied; FetchPage returns a *PageRangeError and keeps the previous state.
func (c *Controller) FetchPage(ctx context.Context, page int) (View, error) {
	if page < 1 {
		return c.View(), &ValidationError{Field: "page", Message: "Page must be at least 1"}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return View{}, ErrClosed
	}
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	c.log.Debug("fetch page", zap.Int("page", page), zap.Uint64("seq", seq))
	result, err := c.svc.ListTasks(ctx, page, c.pageSize)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return View{}, ErrClosed
	}
	if seq != c.seq {
		c.mu.Unlock()
		c.log.Debug("discarding stale page", zap.Int("page", page), zap.Uint64("seq", seq))
		return c.View(), ErrStale
	}
	if err != nil {
		c.setBannerLocked(err, MsgLoadFailed)
		c.mu.Unlock()
		c.log.Debug("fetch failed", zap.Int("page", page), zap.Error(err))
		c.notify()
		return c.View(), err
	}

	if last := max(result.TotalPages, 1); page > last {
		c.mu.Unlock()
		c.log.Debug("page past the end", zap.Int("page", page), zap.Int("total_pages", result.TotalPages))
		return c.View(), &PageRangeError{Page: page, TotalPages: result.TotalPages}
	}

	items := result.Items
	if len(items) > c.pageSize {
		items = items[:c.pageSize]
	}
	c.items = append([]service.Task(nil), items...)
	c.currentPage = page
	c.totalPages = result.TotalPages
	c.totalItems = result.TotalItems
	c.loaded = true
	v := c.viewLocked()
	c.mu.Unlock()

	c.notify()
	return v, nil
}

// Refresh refetches the current page. If that page no longer exists, the
// last page (or page 1 of an empty collection) is fetched instead.
func (c *Controller) Refresh(ctx context.Context) (View, error) {
	c.mu.Lock()
	page := c.currentPage
	c.mu.Unlock()

	v, err := c.FetchPage(ctx, page)
	var rangeErr *PageRangeError
	if errors.As(err, &rangeErr) {
		c.log.Debug("current page gone, moving to last page", zap.Int("page", page), zap.Int("total_pages", rangeErr.TotalPages))
		return c.FetchPage(ctx, max(rangeErr.TotalPages, 1))
	}
	return v, err
}

// Create validates and creates a task, then refetches the current page so
// pagination counts come from the server. A nil error means the caller may
// reset its input form.
func (c *Controller) Create(ctx context.Context, task service.NewTask) error {
	task.Title = strings.TrimSpace(task.Title)
	task.Description = strings.TrimSpace(task.Description)
	if task.Title == "" {
		return &ValidationError{Field: "title", Message: "Title is required"}
	}
	if task.Status == "" {
		task.Status = service.StatusPending
	}
	if !task.Status.Valid() {
		return &ValidationError{Field: "status", Message: "Invalid status: " + string(task.Status)}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.creating {
		c.mu.Unlock()
		return ErrBusy
	}
	c.creating = true
	c.banner = ""
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.creating = false
		c.mu.Unlock()
	}()

	created, err := c.svc.CreateTask(ctx, task)
	if err != nil {
		c.fail(err, MsgCreateFailed)
		return err
	}
	c.log.Debug("task created", zap.String("id", created.ID))

	if _, err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrStale) {
		// The task exists; only the refresh failed and its banner is set.
		c.log.Debug("refresh after create failed", zap.Error(err))
	}
	return nil
}

// UpdateStatus changes a task's status and patches the local copy after the
// server confirms. No refetch: status never changes counts or ordering.
func (c *Controller) UpdateStatus(ctx context.Context, id string, status service.Status) error {
	if !status.Valid() {
		return &ValidationError{Field: "status", Message: "Invalid status: " + string(status)}
	}
	return c.update(ctx, id, service.TaskPatch{Status: &status})
}

// UpdateFields edits title and/or description. Only fields that differ from
// the local copy are sent; if nothing differs no call is made. A nil error
// means the caller may leave edit mode.
func (c *Controller) UpdateFields(ctx context.Context, id string, patch service.TaskPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return &ValidationError{Field: "title", Message: "Title is required"}
		}
		patch.Title = &title
	}
	if patch.Description != nil {
		desc := strings.TrimSpace(*patch.Description)
		patch.Description = &desc
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return &ValidationError{Field: "status", Message: "Invalid status: " + string(*patch.Status)}
	}

	current, ok := c.Task(id)
	if !ok {
		return ErrUnknownTask
	}
	patch = diff(current, patch)
	if patch.Empty() {
		return nil
	}
	return c.update(ctx, id, patch)
}

// diff drops patch fields equal to the current values.
func diff(t service.Task, p service.TaskPatch) service.TaskPatch {
	if p.Title != nil && *p.Title == t.Title {
		p.Title = nil
	}
	if p.Description != nil && *p.Description == t.Description {
		p.Description = nil
	}
	if p.Status != nil && *p.Status == t.Status {
		p.Status = nil
	}
	return p
}

func (c *Controller) update(ctx context.Context, id string, patch service.TaskPatch) error {
	if err := c.begin(id); err != nil {
		return err
	}
	defer c.end(id)

	if _, err := c.svc.UpdateTask(ctx, id, patch); err != nil {
		c.fail(err, MsgUpdateFailed)
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	// The page may have been replaced while the call was in flight; patch
	// only if the task is still shown.
	if i := c.indexLocked(id); i >= 0 {
		c.items[i] = patch.Apply(c.items[i])
	}
	c.mu.Unlock()

	c.notify()
	return nil
}

// Remove asks confirm for approval, deletes the task, then refreshes the
// current page. Removing the last task of the last page moves the view to
// the new last page.
func (c *Controller) Remove(ctx context.Context, id string, confirm Confirmer) error {
	if confirm == nil || !confirm.Confirm(DeleteQuestion) {
		return ErrCancelled
	}
	if err := c.begin(id); err != nil {
		return err
	}
	defer c.end(id)

	if err := c.svc.DeleteTask(ctx, id); err != nil {
		c.fail(err, MsgDeleteFailed)
		return err
	}
	c.log.Debug("task deleted", zap.String("id", id))

	if _, err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrStale) {
		c.log.Debug("refresh after delete failed", zap.Error(err))
	}
	return nil
}

func (c *Controller) begin(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.updating[id] {
		return ErrBusy
	}
	c.updating[id] = true
	c.banner = ""
	return nil
}

func (c *Controller) end(id string) {
	c.mu.Lock()
	delete(c.updating, id)
	c.mu.Unlock()
}

func (c *Controller) fail(err error, msg string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.setBannerLocked(err, msg)
	c.mu.Unlock()
	c.log.Debug("operation failed", zap.String("banner", msg), zap.Error(err))
	c.notify()
}

// setBannerLocked sets msg unless err is an authorization loss, which is
// signalled by the redirect to login instead.
func (c *Controller) setBannerLocked(err error, msg string) {
	if errors.Is(err, service.ErrUnauthorized) {
		return
	}
	c.banner = msg
}

func (c *Controller) indexLocked(id string) int {
	for i, t := range c.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}
