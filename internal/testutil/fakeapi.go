package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskman/internal/service"
)

// RecordedRequest is one request seen by FakeAPI.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
	Body          string
}

// FakeAPI is an httptest server implementing the task REST contract in
// memory. Tokens are HS256 JWTs; ExpireTokens invalidates all issued tokens.
type FakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	secret   []byte
	epoch    int
	users    map[string]apiUser        // email -> user
	tasks    map[string][]service.Task // user id -> tasks
	requests []RecordedRequest
}

type apiUser struct {
	user     service.User
	password string
}

type apiClaims struct {
	UserID string `json:"uid"`
	Epoch  int    `json:"epoch"`
	jwt.RegisteredClaims
}

// NewFakeAPI starts a FakeAPI. The server is closed when the test ends.
// Clients should use URL() as their base URL.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		secret: []byte(uuid.NewString()),
		users:  make(map[string]apiUser),
		tasks:  make(map[string][]service.Task),
	}
	f.Server = httptest.NewServer(f.router())
	t.Cleanup(f.Close)
	return f
}

// URL returns the API base URL.
func (f *FakeAPI) URL() string {
	return f.Server.URL + "/api"
}

func (f *FakeAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(f.record)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", f.register)
		r.Post("/auth/login", f.login)

		r.Group(func(r chi.Router) {
			r.Use(f.authenticate)
			r.Get("/tasks", f.listTasks)
			r.Post("/tasks", f.createTask)
			r.Put("/tasks/{id}", f.updateTask)
			r.Delete("/tasks/{id}", f.deleteTask)
		})
	})
	return r
}

// AddUser registers a user directly and returns it.
func (f *FakeAPI) AddUser(name, email, password string) service.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(name, email, password)
}

func (f *FakeAPI) addUserLocked(name, email, password string) service.User {
	u := service.User{ID: uuid.NewString(), Name: name, Email: email}
	f.users[strings.ToLower(email)] = apiUser{user: u, password: password}
	return u
}

// SeedTasks appends tasks with the given titles to a user's collection.
func (f *FakeAPI) SeedTasks(userID string, titles ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, title := range titles {
		f.tasks[userID] = append(f.tasks[userID], service.Task{
			ID:     uuid.NewString(),
			Title:  title,
			Status: service.StatusPending,
		})
	}
}

// TaskCount returns how many tasks a user has.
func (f *FakeAPI) TaskCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks[userID])
}

// ExpireTokens invalidates every token issued so far.
func (f *FakeAPI) ExpireTokens() {
	f.mu.Lock()
	f.epoch++
	f.mu.Unlock()
}

// Requests returns the requests received so far.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// CountRequests counts received requests matching method and path.
func (f *FakeAPI) CountRequests(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          string(body),
		})
		f.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

func (f *FakeAPI) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeFail(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		var claims apiClaims
		_, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return f.secret, nil
		})
		f.mu.Lock()
		epoch := f.epoch
		f.mu.Unlock()
		if err != nil || claims.Epoch != epoch {
			writeFail(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUserID(r, claims.UserID)))
	})
}

func (f *FakeAPI) issue(u service.User) (string, error) {
	f.mu.Lock()
	epoch := f.epoch
	f.mu.Unlock()
	claims := apiClaims{
		UserID: u.ID,
		Epoch:  epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.secret)
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" || req.Name == "" {
		writeFail(w, http.StatusBadRequest, "Please provide name, email and password")
		return
	}

	f.mu.Lock()
	if _, exists := f.users[strings.ToLower(req.Email)]; exists {
		f.mu.Unlock()
		writeFail(w, http.StatusBadRequest, "User already exists")
		return
	}
	u := f.addUserLocked(req.Name, req.Email, req.Password)
	f.mu.Unlock()

	f.writeCredentials(w, http.StatusCreated, u)
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	f.mu.Lock()
	u, ok := f.users[strings.ToLower(req.Email)]
	f.mu.Unlock()
	if !ok || u.password != req.Password {
		writeFail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	f.writeCredentials(w, http.StatusOK, u.user)
}

func (f *FakeAPI) writeCredentials(w http.ResponseWriter, status int, u service.User) {
	token, err := f.issue(u)
	if err != nil {
		writeFail(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, status, map[string]any{
		"success": true,
		"data":    service.Credentials{Token: token, User: u},
	})
}

func (f *FakeAPI) listTasks(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	f.mu.Lock()
	p := paginate(f.tasks[userID(r)], page, limit)
	f.mu.Unlock()

	items := p.Items
	if items == nil {
		items = []service.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    items,
		"pagination": map[string]int{
			"currentPage":  page,
			"totalPages":   p.TotalPages,
			"totalItems":   p.TotalItems,
			"itemsPerPage": limit,
		},
	})
}

func (f *FakeAPI) createTask(w http.ResponseWriter, r *http.Request) {
	var req service.NewTask
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		writeFail(w, http.StatusBadRequest, "Title is required")
		return
	}
	if req.Status == "" {
		req.Status = service.StatusPending
	}
	if !req.Status.Valid() {
		writeFail(w, http.StatusBadRequest, "Invalid status")
		return
	}

	task := service.Task{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      req.Status,
	}
	f.mu.Lock()
	uid := userID(r)
	// newest first, like a created_at DESC listing
	f.tasks[uid] = append([]service.Task{task}, f.tasks[uid]...)
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": task})
}

func (f *FakeAPI) updateTask(w http.ResponseWriter, r *http.Request) {
	var patch service.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		writeFail(w, http.StatusBadRequest, "Title cannot be empty")
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		writeFail(w, http.StatusBadRequest, "Invalid status")
		return
	}

	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	tasks := f.tasks[userID(r)]
	for i, t := range tasks {
		if t.ID == id {
			tasks[i] = patch.Apply(t)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": tasks[i]})
			return
		}
	}
	writeFail(w, http.StatusNotFound, "Task not found")
}

func (f *FakeAPI) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	uid := userID(r)
	tasks := f.tasks[uid]
	for i, t := range tasks {
		if t.ID == id {
			f.tasks[uid] = append(tasks[:i], tasks[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Task deleted"})
			return
		}
	}
	writeFail(w, http.StatusNotFound, "Task not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}
