// Package app is the orchestration layer: it turns commands into remote
// calls and applies confirmed results to the cache.
//
// Handle runs on the UI goroutine. It validates input, consults the
// confirmation gate and returns an Op for the remote call, or nil when
// nothing needs to be sent. The Op may run anywhere. Its Outcome goes back
// through Settle on the UI goroutine, which is the only place the cache
// changes. Overlapping ops settle in arrival order; the last response for an
// id wins.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/errs"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/remote"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/view"
)

// Remote is the subset of *remote.Client the orchestrator uses.
type Remote interface {
	ListTodos(ctx context.Context) ([]model.Todo, error)
	CreateTodo(ctx context.Context, text string, priority model.Priority) (model.Todo, error)
	UpdateTodo(ctx context.Context, id model.ID, patch model.Patch) (model.Todo, error)
	DeleteTodo(ctx context.Context, id model.ID) error
	ClearCompleted(ctx context.Context) (remote.ClearResult, error)
}

// Op is a pending remote call.
type Op func() Outcome

// Outcome is the settled result of an Op.
type Outcome struct {
	cmd   Command
	todo  model.Todo
	todos []model.Todo
	clear remote.ClearResult
	err   error
}

func (o Outcome) Command() Command { return o.cmd }
func (o Outcome) Err() error       { return o.err }

// Options configures an Orchestrator. Zero values are usable: notifications
// are dropped and every confirmation is declined.
type Options struct {
	Notifier Notifier
	Confirm  ConfirmFunc
	Logger   *log.Logger
	Now      func() time.Time
}

// Orchestrator owns the cache, the active filter and the edit session.
// It is not safe for concurrent use; see the package comment.
type Orchestrator struct {
	remote  Remote
	cache   *store.Cache
	notify  Notifier
	confirm ConfirmFunc
	logger  *log.Logger
	now     func() time.Time

	filter   model.Filter
	editing  model.ID
	inFlight int
	loading  int
}

func New(r Remote, opts Options) *Orchestrator {
	o := &Orchestrator{
		remote:  r,
		cache:   store.New(),
		notify:  opts.Notifier,
		confirm: opts.Confirm,
		logger:  opts.Logger,
		now:     opts.Now,
		filter:  model.FilterAll,
	}
	if o.notify == nil {
		o.notify = NotifierFunc(func(Notification) {})
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Handle routes one command. A non-nil error means the command was rejected
// locally; the user has already been notified. A nil Op with a nil error
// means there was nothing to send (filter change, declined confirmation...).
func (o *Orchestrator) Handle(ctx context.Context, cmd Command) (Op, error) {
	o.logger.Debug("command", "kind", cmd.Kind, "id", cmd.ID)

	switch cmd.Kind {
	case KindLoad:
		o.loading++
		return o.track(func() Outcome {
			todos, err := o.remote.ListTodos(ctx)
			return Outcome{cmd: cmd, todos: todos, err: err}
		}), nil

	case KindCreate:
		text, err := model.NormalizeText(cmd.Text)
		if err != nil {
			return nil, o.reject(err)
		}
		p := cmd.Priority
		if p == "" {
			p = model.DefaultPriority
		}
		if !p.Valid() {
			return nil, o.reject(errs.New(errs.Validation, "Priority must be low, medium or high."))
		}
		return o.track(func() Outcome {
			t, err := o.remote.CreateTodo(ctx, text, p)
			return Outcome{cmd: cmd, todo: t, err: err}
		}), nil

	case KindToggle:
		t, err := o.lookup(cmd.ID)
		if err != nil {
			return nil, err
		}
		patch := model.CompletedPatch(!t.Completed)
		return o.track(func() Outcome {
			updated, err := o.remote.UpdateTodo(ctx, t.ID, patch)
			return Outcome{cmd: cmd, todo: updated, err: err}
		}), nil

	case KindBeginEdit:
		if _, err := o.lookup(cmd.ID); err != nil {
			return nil, err
		}
		o.editing = cmd.ID
		return nil, nil

	case KindCancelEdit:
		o.editing = ""
		return nil, nil

	case KindEdit:
		if o.editing == "" {
			return nil, nil
		}
		text, err := model.NormalizeText(cmd.Text)
		if err != nil {
			return nil, o.reject(err)
		}
		patch := model.TextPatch(text)
		if cmd.Priority != "" {
			if !cmd.Priority.Valid() {
				return nil, o.reject(errs.New(errs.Validation, "Priority must be low, medium or high."))
			}
			p := cmd.Priority
			patch.Priority = &p
		}
		cmd.ID = o.editing
		return o.track(func() Outcome {
			updated, err := o.remote.UpdateTodo(ctx, cmd.ID, patch)
			return Outcome{cmd: cmd, todo: updated, err: err}
		}), nil

	case KindDelete:
		if _, err := o.lookup(cmd.ID); err != nil {
			return nil, err
		}
		if !o.gate(cmd) {
			return nil, nil
		}
		return o.track(func() Outcome {
			return Outcome{cmd: cmd, err: o.remote.DeleteTodo(ctx, cmd.ID)}
		}), nil

	case KindFilter:
		f, err := model.ParseFilter(string(cmd.Filter))
		if err != nil {
			return nil, o.reject(errs.Wrap(errs.Validation, "Unknown filter.", err))
		}
		o.filter = f
		return nil, nil

	case KindClearCompleted:
		if o.completedCount() == 0 {
			o.notify.Notify(Notification{
				Level:   LevelWarning,
				Title:   "No Completed Todos",
				Message: "There are no completed todos to clear.",
			})
			return nil, nil
		}
		if !o.gate(cmd) {
			return nil, nil
		}
		return o.track(func() Outcome {
			res, err := o.remote.ClearCompleted(ctx)
			return Outcome{cmd: cmd, clear: res, err: err}
		}), nil
	}

	return nil, fmt.Errorf("unknown command kind %d", cmd.Kind)
}

// Settle applies a finished Op. On failure the cache is left as it was and
// the user is told why.
func (o *Orchestrator) Settle(out Outcome) {
	o.inFlight--
	cmd := out.cmd
	if cmd.Kind == KindLoad {
		o.loading--
	}

	if out.err != nil {
		o.logger.Warn("operation failed", "kind", cmd.Kind, "id", cmd.ID, "err", out.err)
		o.notify.Notify(failureNotice(out.err))
		return
	}

	switch cmd.Kind {
	case KindLoad:
		o.cache.ReplaceAll(out.todos)
		if o.editing != "" {
			if _, ok := o.cache.Get(o.editing); !ok {
				o.editing = ""
			}
		}
		return

	case KindCreate:
		o.cache.Upsert(out.todo)
		o.success("Success", "Todo added successfully!")

	case KindToggle:
		o.cache.Upsert(out.todo)
		action := "activated"
		if out.todo.Completed {
			action = "completed"
		}
		o.success("Updated", fmt.Sprintf("Todo %s!", action))

	case KindEdit:
		o.cache.Upsert(out.todo)
		if o.editing == cmd.ID {
			o.editing = ""
		}
		o.success("Success", "Todo updated successfully!")

	case KindDelete:
		o.cache.Remove(cmd.ID)
		if o.editing == cmd.ID {
			o.editing = ""
		}
		o.success("Deleted", "Todo deleted successfully!")

	case KindClearCompleted:
		n := o.cache.RemoveWhere(func(t model.Todo) bool { return t.Completed })
		if o.editing != "" {
			if _, ok := o.cache.Get(o.editing); !ok {
				o.editing = ""
			}
		}
		o.logger.Debug("cleared completed", "removed", n)
		o.success("Cleared", out.clear.Message)
	}
}

// Do handles cmd and, when a request is needed, runs and settles it inline.
// It suits one-shot front-ends that have nothing else to do meanwhile.
func (o *Orchestrator) Do(ctx context.Context, cmd Command) error {
	op, err := o.Handle(ctx, cmd)
	if err != nil || op == nil {
		return err
	}
	out := op()
	o.Settle(out)
	return out.err
}

// ConfirmPrompt returns the question a front-end should ask before sending
// cmd, and false when cmd needs no confirmation.
func (o *Orchestrator) ConfirmPrompt(cmd Command) (string, bool) {
	if cmd.confirmed {
		return "", false
	}
	switch cmd.Kind {
	case KindDelete:
		if _, ok := o.cache.Get(cmd.ID); !ok {
			return "", false
		}
		return "Are you sure you want to delete this todo?", true
	case KindClearCompleted:
		n := o.completedCount()
		if n == 0 {
			return "", false
		}
		plural := ""
		if n > 1 {
			plural = "s"
		}
		return fmt.Sprintf("Are you sure you want to clear %d completed todo%s?", n, plural), true
	}
	return "", false
}

// View renders the current cache under the active filter.
func (o *Orchestrator) View() view.Page {
	all := o.cache.All()
	return view.Render(view.Project(all, o.filter), view.Count(all), o.filter, o.now())
}

// Visible returns the todos under the active filter.
func (o *Orchestrator) Visible() []model.Todo {
	return view.Project(o.cache.All(), o.filter)
}

// Todos returns every cached todo.
func (o *Orchestrator) Todos() []model.Todo { return o.cache.All() }

// Todo returns the cached todo for id.
func (o *Orchestrator) Todo(id model.ID) (model.Todo, bool) { return o.cache.Get(id) }

func (o *Orchestrator) Filter() model.Filter { return o.filter }

// Editing returns the id under edit, if any.
func (o *Orchestrator) Editing() (model.ID, bool) { return o.editing, o.editing != "" }

// Loading reports whether a list fetch is in flight.
func (o *Orchestrator) Loading() bool { return o.loading > 0 }

// InFlight is the number of ops handed out and not yet settled.
func (o *Orchestrator) InFlight() int { return o.inFlight }

func (o *Orchestrator) track(op Op) Op {
	o.inFlight++
	return op
}

func (o *Orchestrator) gate(cmd Command) bool {
	prompt, needed := o.ConfirmPrompt(cmd)
	if !needed {
		return true
	}
	if o.confirm == nil || !o.confirm(prompt) {
		o.logger.Debug("declined", "kind", cmd.Kind, "id", cmd.ID)
		return false
	}
	return true
}

func (o *Orchestrator) lookup(id model.ID) (model.Todo, error) {
	t, ok := o.cache.Get(id)
	if !ok {
		return model.Todo{}, o.reject(errs.New(errs.NotFound, fmt.Sprintf("Todo %s not found. Refresh to see the latest list.", id)))
	}
	return t, nil
}

func (o *Orchestrator) reject(err error) error {
	o.notify.Notify(failureNotice(err))
	return err
}

func (o *Orchestrator) success(title, message string) {
	o.notify.Notify(Notification{Level: LevelSuccess, Title: title, Message: message})
}

func (o *Orchestrator) completedCount() int {
	n := 0
	for _, t := range o.cache.All() {
		if t.Completed {
			n++
		}
	}
	return n
}
