package app_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/errs"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/remote"
)

// fakeRemote is an in-process backend with per-operation failure injection.
type fakeRemote struct {
	mu    sync.Mutex
	todos []model.Todo
	next  int
	fail  map[string]error
	calls map[string]int
}

func newFakeRemote(seed ...model.Todo) *fakeRemote {
	f := &fakeRemote{next: 1, fail: map[string]error{}, calls: map[string]int{}}
	for _, t := range seed {
		f.todos = append(f.todos, t)
		if n, err := strconv.Atoi(t.ID.String()); err == nil && n >= f.next {
			f.next = n + 1
		}
	}
	return f
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) failWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeRemote) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.fail[op]
}

func (f *fakeRemote) ListTodos(context.Context) ([]model.Todo, error) {
	if err := f.enter("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Todo, len(f.todos))
	copy(out, f.todos)
	return out, nil
}

func (f *fakeRemote) CreateTodo(_ context.Context, text string, p model.Priority) (model.Todo, error) {
	if err := f.enter("create"); err != nil {
		return model.Todo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := model.Todo{
		ID:        model.ID(strconv.Itoa(f.next)),
		Text:      text,
		Priority:  p,
		CreatedAt: model.NewTimestamp(time.Date(2024, 1, 1, 0, 0, f.next, 0, time.UTC)),
	}
	f.next++
	f.todos = append(f.todos, t)
	return t, nil
}

func (f *fakeRemote) UpdateTodo(_ context.Context, id model.ID, patch model.Patch) (model.Todo, error) {
	if err := f.enter("update"); err != nil {
		return model.Todo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.todos {
		if t.ID == id {
			f.todos[i] = patch.Apply(t)
			return f.todos[i], nil
		}
	}
	return model.Todo{}, errs.New(errs.NotFound, "Todo not found")
}

func (f *fakeRemote) DeleteTodo(_ context.Context, id model.ID) error {
	if err := f.enter("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.todos {
		if t.ID == id {
			f.todos = append(f.todos[:i], f.todos[i+1:]...)
			return nil
		}
	}
	return errs.New(errs.NotFound, "Todo not found")
}

func (f *fakeRemote) ClearCompleted(context.Context) (remote.ClearResult, error) {
	if err := f.enter("clear"); err != nil {
		return remote.ClearResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.todos[:0:0]
	for _, t := range f.todos {
		if !t.Completed {
			kept = append(kept, t)
		}
	}
	n := len(f.todos) - len(kept)
	f.todos = kept
	return remote.ClearResult{Message: strconv.Itoa(n) + " completed todos cleared"}, nil
}

// recorder collects notifications.
type recorder struct {
	got []app.Notification
}

func (r *recorder) Notify(n app.Notification) { r.got = append(r.got, n) }

func (r *recorder) last() app.Notification {
	if len(r.got) == 0 {
		return app.Notification{}
	}
	return r.got[len(r.got)-1]
}

func seedTodo(id, text string, done bool) model.Todo {
	return model.Todo{
		ID:        model.ID(id),
		Text:      text,
		Priority:  model.PriorityMedium,
		Completed: done,
		CreatedAt: model.ParseTimestamp("2024-03-01T09:00:00"),
	}
}

func yes(string) bool { return true }
func no(string) bool  { return false }
