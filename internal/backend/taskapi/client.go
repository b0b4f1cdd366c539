// Package taskapi implements service.Service and service.Authenticator over
// the task REST API.
package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	"taskman/internal/config"
	"taskman/internal/service"
)

// Client talks to the task API.
type Client struct {
	baseURL   string
	http      *http.Client
	transport *authTransport
	timeout   time.Duration
	log       *zap.Logger
}

// envelope is the response wrapper used by every endpoint.
type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Error      string          `json:"error"`
	Data       json.RawMessage `json:"data"`
	Pagination *pagination     `json:"pagination"`
}

type pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
}

// New creates a client for cfg.APIURL using the default transport.
func New(cfg *config.Config, log *zap.Logger) *Client {
	return NewWithTransport(cfg.APIURL, http.DefaultTransport, cfg.Timeout, log)
}

// NewWithTransport creates a client with a custom base transport (for testing).
func NewWithTransport(baseURL string, base http.RoundTripper, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	log = log.Named("api")
	t := &authTransport{base: base, log: log}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Transport: t},
		transport: t,
		timeout:   timeout,
		log:       log,
	}
}

// UseSession binds the session whose token is attached to requests and
// which is logged out on 401.
func (c *Client) UseSession(s SessionSource) {
	c.transport.setSession(s)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login implements service.Authenticator.
func (c *Client) Login(ctx context.Context, email, password string) (service.Credentials, error) {
	var creds service.Credentials
	if _, err := c.do(public(ctx), http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, &creds); err != nil {
		return service.Credentials{}, err
	}
	return creds, nil
}

// Register implements service.Authenticator.
func (c *Client) Register(ctx context.Context, name, email, password string) (service.Credentials, error) {
	var creds service.Credentials
	body := registerRequest{Name: name, Email: email, Password: password}
	if _, err := c.do(public(ctx), http.MethodPost, "/auth/register", nil, body, &creds); err != nil {
		return service.Credentials{}, err
	}
	return creds, nil
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context, page, limit int) (service.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var items []service.Task
	env, err := c.do(ctx, http.MethodGet, "/tasks", q, nil, &items)
	if err != nil {
		return service.Page{}, err
	}

	result := service.Page{Items: items}
	if env.Pagination != nil {
		result.TotalPages = env.Pagination.TotalPages
		result.TotalItems = env.Pagination.TotalItems
	}
	return result, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	var created service.Task
	if _, err := c.do(ctx, http.MethodPost, "/tasks", nil, task, &created); err != nil {
		return service.Task{}, err
	}
	return created, nil
}

// UpdateTask implements service.Service.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	var updated service.Task
	if _, err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), nil, patch, &updated); err != nil {
		return service.Task{}, err
	}
	return updated, nil
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, nil)
	return err
}

// do performs one API call and decodes the envelope. out, when non-nil,
// receives the envelope's data field.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (*envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wrapError(err)
	}
	defer googleapi.CloseBody(resp)

	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, apiError(err)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("invalid response from %s %s: %w", method, path, err)
	}
	if !env.Success {
		return nil, &service.APIError{Code: resp.StatusCode, Message: env.message()}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("invalid response data from %s %s: %w", method, path, err)
		}
	}
	return &env, nil
}

func (e *envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// apiError converts a googleapi.CheckResponse error into a service.APIError,
// pulling the message out of the envelope body when there is one.
func apiError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	msg := gerr.Message
	var env envelope
	if json.Unmarshal([]byte(gerr.Body), &env) == nil && env.message() != "" {
		msg = env.message()
	}
	return &service.APIError{Code: gerr.Code, Message: msg, Err: gerr}
}

// wrapError wraps transport errors with user-friendly messages.
func wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}
	return err
}
