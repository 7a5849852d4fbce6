// Package remote talks to the todo collection resource over HTTP.
//
// Each call returns decoded records or an *errs.Error whose message is fit
// for the user: the server's "error" field when it sent one, otherwise a
// generic message for the operation.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Makepad-fr/tada/internal/errs"
	"github.com/Makepad-fr/tada/internal/model"
)

const (
	collectionPath     = "/api/todos"
	clearCompletedPath = "/api/todos/clear-completed"
	statsPath          = "/api/todos/stats"

	maxResponseBytes = 4 << 20
)

const (
	msgLoad   = "Failed to load todos. Please try again."
	msgCreate = "Failed to add todo. Please try again."
	msgUpdate = "Failed to update todo. Please try again."
	msgDelete = "Failed to delete todo. Please try again."
	msgClear  = "Failed to clear completed todos. Please try again."
	msgStats  = "Failed to load stats. Please try again."
)

// ClearResult is the server's answer to a bulk clear.
type ClearResult struct {
	Message string `json:"message"`
}

// Client is safe for concurrent use.
type Client struct {
	base   string
	http   *http.Client
	token  string
	logger *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:5000".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api url %q: missing host", baseURL)
	}
	c := &Client{
		base:   strings.TrimRight(u.String(), "/"),
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.base }

// ListTodos fetches the whole collection in server order.
func (c *Client) ListTodos(ctx context.Context) ([]model.Todo, error) {
	resp, err := c.do(ctx, http.MethodGet, collectionPath, nil)
	if err != nil {
		return nil, errs.Wrap(errs.Load, msgLoad, err)
	}
	if !resp.ok() {
		return nil, resp.failure(errs.Load, msgLoad)
	}
	var todos []model.Todo
	if err := resp.decode(&todos); err != nil {
		return nil, errs.Wrap(errs.Load, msgLoad, err)
	}
	return todos, nil
}

// CreateTodo creates a todo. text must already be normalized; the server is
// still the final judge and its rejection comes back as a validation error.
func (c *Client) CreateTodo(ctx context.Context, text string, priority model.Priority) (model.Todo, error) {
	body := struct {
		Text     string         `json:"text"`
		Priority model.Priority `json:"priority"`
	}{text, priority}

	resp, err := c.do(ctx, http.MethodPost, collectionPath, body)
	if err != nil {
		return model.Todo{}, errs.Wrap(errs.Transport, msgCreate, err)
	}
	if !resp.ok() {
		return model.Todo{}, resp.failure(classify(resp.status, false), msgCreate)
	}
	var created model.Todo
	if err := resp.decode(&created); err != nil {
		return model.Todo{}, errs.Wrap(errs.Transport, msgCreate, err)
	}
	return created, nil
}

// UpdateTodo sends a partial update and returns the record as the server
// merged it.
func (c *Client) UpdateTodo(ctx context.Context, id model.ID, patch model.Patch) (model.Todo, error) {
	if patch.IsEmpty() {
		return model.Todo{}, errs.New(errs.Validation, "Nothing to update.")
	}
	resp, err := c.do(ctx, http.MethodPut, itemPath(id), patch)
	if err != nil {
		return model.Todo{}, errs.Wrap(errs.Transport, msgUpdate, err)
	}
	if !resp.ok() {
		return model.Todo{}, resp.failure(classify(resp.status, true), msgUpdate)
	}
	var updated model.Todo
	if err := resp.decode(&updated); err != nil {
		return model.Todo{}, errs.Wrap(errs.Transport, msgUpdate, err)
	}
	return updated, nil
}

// DeleteTodo removes a todo. Any 2xx counts as success; the body is ignored.
func (c *Client) DeleteTodo(ctx context.Context, id model.ID) error {
	resp, err := c.do(ctx, http.MethodDelete, itemPath(id), nil)
	if err != nil {
		return errs.Wrap(errs.Transport, msgDelete, err)
	}
	if !resp.ok() {
		kind := errs.Transport
		if resp.status == http.StatusNotFound {
			kind = errs.NotFound
		}
		return resp.failure(kind, msgDelete)
	}
	return nil
}

// ClearCompleted asks the server to drop every completed todo. The client
// treats it as all-or-nothing.
func (c *Client) ClearCompleted(ctx context.Context) (ClearResult, error) {
	resp, err := c.do(ctx, http.MethodPost, clearCompletedPath, nil)
	if err != nil {
		return ClearResult{}, errs.Wrap(errs.Transport, msgClear, err)
	}
	if !resp.ok() {
		return ClearResult{}, resp.failure(errs.Transport, msgClear)
	}
	var res ClearResult
	if len(bytes.TrimSpace(resp.body)) > 0 {
		if err := resp.decode(&res); err != nil {
			return ClearResult{}, errs.Wrap(errs.Transport, msgClear, err)
		}
	}
	if res.Message == "" {
		res.Message = "Completed todos cleared"
	}
	return res, nil
}

// Stats fetches the server's own tally of the collection.
func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	resp, err := c.do(ctx, http.MethodGet, statsPath, nil)
	if err != nil {
		return model.Stats{}, errs.Wrap(errs.Load, msgStats, err)
	}
	if !resp.ok() {
		return model.Stats{}, resp.failure(errs.Load, msgStats)
	}
	var s model.Stats
	if err := resp.decode(&s); err != nil {
		return model.Stats{}, errs.Wrap(errs.Load, msgStats, err)
	}
	return s, nil
}

func itemPath(id model.ID) string {
	return collectionPath + "/" + url.PathEscape(id.String())
}

// classify maps a non-2xx status for create (itemScoped=false) and update
// (itemScoped=true) calls.
func classify(status int, itemScoped bool) errs.Kind {
	switch {
	case itemScoped && status == http.StatusNotFound:
		return errs.NotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return errs.Validation
	default:
		return errs.Transport
	}
}

type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool { return r.status >= 200 && r.status < 300 }

func (r *response) decode(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// failure builds the error for a non-2xx response.
func (r *response) failure(kind errs.Kind, fallback string) error {
	msg := fallback
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(r.body, &payload) == nil && strings.TrimSpace(payload.Error) != "" {
		msg = strings.TrimSpace(payload.Error)
	}
	return &errs.Error{
		Kind:    kind,
		Message: msg,
		Status:  r.status,
		Err:     fmt.Errorf("unexpected status %d", r.status),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", path, "request_id", requestID, "err", err)
		return nil, err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(b) > maxResponseBytes {
		return nil, errors.New("response body too large")
	}
	c.logger.Debug("request", "method", method, "path", path, "status", res.StatusCode,
		"request_id", requestID, "elapsed", time.Since(start).Round(time.Millisecond))
	return &response{status: res.StatusCode, body: b}, nil
}
