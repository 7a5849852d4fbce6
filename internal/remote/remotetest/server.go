// Package remotetest runs an in-memory todo API for tests. It follows the
// reference backend's behavior (integer ids, naive timestamps, 200 bodies on
// delete) and can be told to fail any operation.
package remotetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/Makepad-fr/tada/internal/model"
)

// Op names one endpoint.
type Op string

const (
	OpList   Op = "list"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpClear  Op = "clear"
	OpStats  Op = "stats"
)

// Call is one recorded request.
type Call struct {
	Op     Op
	Method string
	Path   string
	Body   string
	Header http.Header
}

type failure struct {
	status  int
	message string // empty sends no body
}

// Server is the fake backend. All methods are safe for concurrent use.
type Server struct {
	URL string
	// Now stamps created_at / updated_at. Defaults to a fixed clock.
	Now func() time.Time

	mu       sync.Mutex
	todos    []model.Todo
	nextID   int
	calls    []Call
	failures map[Op]failure
	token    string
}

// Start serves a fresh backend on a loopback port until the test ends.
func Start(tb testing.TB) *Server {
	tb.Helper()
	s := New()
	ts := httptest.NewServer(s.Handler())
	tb.Cleanup(ts.Close)
	s.URL = ts.URL
	return s
}

func New() *Server {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var tick int
	s := &Server{
		nextID:   1,
		failures: map[Op]failure{},
	}
	s.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return s
}

// Seed adds todos as the server would have created them and returns them.
func (s *Server) Seed(texts ...string) []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Todo, 0, len(texts))
	for _, text := range texts {
		t := s.insertLocked(text, model.DefaultPriority)
		out = append(out, t)
	}
	return out
}

// SetCompleted flips a todo server-side, as another client would.
func (s *Server) SetCompleted(id model.ID, done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.findLocked(id); i >= 0 {
		s.todos[i].Completed = done
	}
}

// Delete removes a todo server-side, as another client would.
func (s *Server) Delete(id model.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.findLocked(id); i >= 0 {
		s.todos = append(s.todos[:i], s.todos[i+1:]...)
	}
}

// Fail makes every call to op answer with status until Recover. A non-empty
// message is sent as {"error": message}.
func (s *Server) Fail(op Op, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = failure{status: status, message: message}
}

func (s *Server) Recover(op Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, op)
}

// RequireToken rejects requests without "Authorization: Bearer token".
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Todos returns the server-side collection.
func (s *Server) Todos() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Todo, len(s.todos))
	copy(out, s.todos)
	return out
}

func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Count returns how many requests reached op.
func (s *Server) Count(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/todos", s.wrap(OpList, s.handleList))
	r.Post("/api/todos", s.wrap(OpCreate, s.handleCreate))
	r.Get("/api/todos/stats", s.wrap(OpStats, s.handleStats))
	r.Post("/api/todos/clear-completed", s.wrap(OpClear, s.handleClear))
	r.Put("/api/todos/{id}", s.wrap(OpUpdate, s.handleUpdate))
	r.Delete("/api/todos/{id}", s.wrap(OpDelete, s.handleDelete))
	return r
}

// wrap records the call and applies auth and injected failures.
func (s *Server) wrap(op Op, next func(w http.ResponseWriter, r *http.Request, body []byte)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		s.mu.Lock()
		s.calls = append(s.calls, Call{Op: op, Method: r.Method, Path: r.URL.Path, Body: string(body), Header: r.Header.Clone()})
		f, failing := s.failures[op]
		token := s.token
		s.mu.Unlock()

		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if failing {
			if f.message == "" {
				w.WriteHeader(f.status)
				return
			}
			writeError(w, f.status, f.message)
			return
		}
		next(w, r, body)
	}
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request, _ []byte) {
	writeJSON(w, http.StatusOK, s.Todos())
}

func (s *Server) handleCreate(w http.ResponseWriter, _ *http.Request, body []byte) {
	var req struct {
		Text     string `json:"text"`
		Priority string `json:"priority"`
	}
	if err := json.Unmarshal(body, &req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Todo text is required")
		return
	}
	text := strings.TrimSpace(req.Text)
	if utf8.RuneCountInString(text) > model.MaxTextLength {
		writeError(w, http.StatusBadRequest, "Todo text is too long")
		return
	}
	p := model.Priority(req.Priority)
	if p == "" {
		p = model.DefaultPriority
	}

	s.mu.Lock()
	t := s.insertLocked(text, p)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, body []byte) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findLocked(model.ID(chi.URLParam(r, "id")))
	if i < 0 {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}
	t := s.todos[i]
	if raw, ok := fields["text"]; ok {
		var text string
		if json.Unmarshal(raw, &text) != nil || strings.TrimSpace(text) == "" {
			writeError(w, http.StatusBadRequest, "Todo text cannot be empty")
			return
		}
		t.Text = strings.TrimSpace(text)
	}
	if raw, ok := fields["completed"]; ok {
		var done bool
		if json.Unmarshal(raw, &done) != nil {
			writeError(w, http.StatusBadRequest, "completed must be a boolean")
			return
		}
		t.Completed = done
	}
	if raw, ok := fields["priority"]; ok {
		var p model.Priority
		if json.Unmarshal(raw, &p) == nil && p.Valid() {
			t.Priority = p
		}
	}
	ts := naive(s.Now())
	t.UpdatedAt = &ts
	s.todos[i] = t
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, _ []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findLocked(model.ID(chi.URLParam(r, "id")))
	if i < 0 {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}
	deleted := s.todos[i]
	s.todos = append(s.todos[:i], s.todos[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Todo deleted successfully", "todo": deleted})
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request, _ []byte) {
	s.mu.Lock()
	kept := s.todos[:0:0]
	for _, t := range s.todos {
		if !t.Completed {
			kept = append(kept, t)
		}
	}
	cleared := len(s.todos) - len(kept)
	s.todos = kept
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("%d completed todos cleared", cleared)})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request, _ []byte) {
	todos := s.Todos()
	st := model.Stats{Total: len(todos), PriorityCounts: map[model.Priority]int{}}
	for _, p := range model.Priorities() {
		st.PriorityCounts[p] = 0
	}
	for _, t := range todos {
		if t.Completed {
			st.Completed++
		}
		st.PriorityCounts[t.Priority]++
	}
	st.Active = st.Total - st.Completed
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) insertLocked(text string, p model.Priority) model.Todo {
	t := model.Todo{
		ID:        model.ID(strconv.Itoa(s.nextID)),
		Text:      text,
		Priority:  p,
		CreatedAt: naive(s.Now()),
	}
	s.nextID++
	s.todos = append(s.todos, t)
	return t
}

func (s *Server) findLocked(id model.ID) int {
	for i, t := range s.todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// naive mimics Python's datetime.isoformat() without a zone.
func naive(t time.Time) model.Timestamp {
	return model.ParseTimestamp(t.UTC().Format("2006-01-02T15:04:05.000000"))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
