package app_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/errs"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/remote"
	"github.com/Makepad-fr/tada/internal/remote/remotetest"
)

func loaded(t require.TestingT, r *fakeRemote, opts app.Options) *app.Orchestrator {
	o := app.New(r, opts)
	require.NoError(t, o.Do(context.Background(), app.Load()))
	return o
}

func testCreateThenList_AddsExactlyOneMatchingEntry(t *rapid.T) {
	ctx := context.Background()
	text := rapid.StringMatching(`[a-zA-Z0-9][a-zA-Z0-9 ]{0,198}[a-zA-Z0-9]?`).Draw(t, "text")
	p := rapid.SampledFrom(model.Priorities()).Draw(t, "priority")
	n := rapid.IntRange(0, 5).Draw(t, "existing")

	var seed []model.Todo
	for i := 0; i < n; i++ {
		seed = append(seed, seedTodo(fmt.Sprint(i+1), fmt.Sprint("seed ", i), false))
	}
	r := newFakeRemote(seed...)
	o := loaded(t, r, app.Options{})
	before := o.Todos()

	if err := o.Do(ctx, app.Create("  "+text+" ", p)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := o.Do(ctx, app.Load()); err != nil {
		t.Fatalf("list: %v", err)
	}

	after := o.Todos()
	if len(after) != len(before)+1 {
		t.Fatalf("want %d todos after create, got %d", len(before)+1, len(after))
	}
	matches := 0
	for _, td := range after {
		if td.Text == strings.TrimSpace(text) && td.Priority == p && !td.Completed {
			matches++
		}
	}
	if matches != 1 {
		t.Fatalf("want exactly one matching entry, got %d", matches)
	}
}

func TestCreateThenList_AddsExactlyOneMatchingEntry(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCreateThenList_AddsExactlyOneMatchingEntry)
}

func testInvalidText_NeverReachesRemote(t *rapid.T) {
	ctx := context.Background()
	var text string
	if rapid.Bool().Draw(t, "empty") {
		text = rapid.StringMatching(`[ \t\n]{0,10}`).Draw(t, "blank")
	} else {
		text = rapid.StringMatching(`[a-z]{201,260}`).Draw(t, "long")
	}

	r := newFakeRemote(seedTodo("1", "a", false))
	rec := &recorder{}
	o := loaded(t, r, app.Options{Notifier: rec})
	before := o.Todos()

	op, err := o.Handle(ctx, app.Create(text, model.PriorityLow))
	if op != nil || !errs.IsValidation(err) {
		t.Fatalf("create with %d chars: op=%v err=%v", len(text), op != nil, err)
	}
	if _, err := o.Handle(ctx, app.BeginEdit("1")); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	op, err = o.Handle(ctx, app.Edit(text, model.PriorityHigh))
	if op != nil || !errs.IsValidation(err) {
		t.Fatalf("edit with %d chars: op=%v err=%v", len(text), op != nil, err)
	}

	if r.count("create") != 0 || r.count("update") != 0 {
		t.Fatalf("remote called: create=%d update=%d", r.count("create"), r.count("update"))
	}
	if got := rec.last(); got.Level != app.LevelError || got.Message != model.InvalidTextMessage {
		t.Fatalf("unexpected notification %+v", got)
	}
	if id, editing := o.Editing(); !editing || id != "1" {
		t.Fatalf("edit session lost after invalid input")
	}
	if fmt.Sprint(o.Todos()) != fmt.Sprint(before) {
		t.Fatalf("cache changed")
	}
}

func TestInvalidText_NeverReachesRemote(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testInvalidText_NeverReachesRemote)
}

func TestFailedUpdate_LeavesCacheUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newFakeRemote(seedTodo("1", "a", false), seedTodo("2", "b", true))
	rec := &recorder{}
	o := loaded(t, r, app.Options{Notifier: rec})
	before, _ := o.Todo("1")
	beforeAll := o.Todos()

	r.failWith("update", errs.New(errs.Transport, "Failed to update todo. Please try again."))

	err := o.Do(ctx, app.Toggle("1"))
	require.True(t, errs.IsTransport(err))
	require.Equal(t, app.Notification{Level: app.LevelError, Title: "Error", Message: "Failed to update todo. Please try again."}, rec.last())

	_, err = o.Handle(ctx, app.BeginEdit("1"))
	require.NoError(t, err)
	err = o.Do(ctx, app.Edit("changed", model.PriorityHigh))
	require.Error(t, err)

	after, ok := o.Todo("1")
	require.True(t, ok)
	require.Equal(t, before, after)
	require.Equal(t, beforeAll, o.Todos())

	id, editing := o.Editing()
	require.True(t, editing, "a failed edit keeps the session open")
	require.Equal(t, model.ID("1"), id)
	require.Zero(t, o.InFlight())
}

func TestNotFound_IsReportedAndCacheKept(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newFakeRemote(seedTodo("1", "a", false))
	rec := &recorder{}
	o := loaded(t, r, app.Options{Notifier: rec})

	// deleted by another client after our load
	r.failWith("update", errs.New(errs.NotFound, "Todo not found"))
	err := o.Do(ctx, app.Toggle("1"))
	require.True(t, errs.IsNotFound(err))
	require.Equal(t, "Not Found", rec.last().Title)
	require.Equal(t, 1, len(o.Todos()))

	// unknown locally: rejected without a request
	_, err = o.Handle(ctx, app.Toggle("42"))
	require.True(t, errs.IsNotFound(err))
	require.Equal(t, 1, r.count("update"))
}

func TestClearCompleted_AfterToggle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newFakeRemote(seedTodo("1", "a", false), seedTodo("2", "b", true))
	rec := &recorder{}
	o := loaded(t, r, app.Options{Notifier: rec, Confirm: yes})

	require.NoError(t, o.Do(ctx, app.Toggle("1")))
	require.Equal(t, "Todo completed!", rec.last().Message)

	require.NoError(t, o.Do(ctx, app.ClearCompleted()))
	require.Empty(t, o.Todos())
	require.Equal(t, app.Notification{Level: app.LevelSuccess, Title: "Cleared", Message: "2 completed todos cleared"}, rec.last())
}

func testClearCompleted_RemovesExactlyCompleted(t *rapid.T) {
	n := rapid.IntRange(1, 25).Draw(t, "n")
	var seed []model.Todo
	for i := 0; i < n; i++ {
		seed = append(seed, seedTodo(fmt.Sprint(i+1), fmt.Sprint("t", i), rapid.Bool().Draw(t, "done")))
	}
	seed[rapid.IntRange(0, n-1).Draw(t, "forced")].Completed = true

	r := newFakeRemote(seed...)
	o := loaded(t, r, app.Options{Confirm: yes})
	if err := o.Do(context.Background(), app.ClearCompleted()); err != nil {
		t.Fatalf("clear: %v", err)
	}

	var want []model.Todo
	for _, td := range seed {
		if !td.Completed {
			want = append(want, td)
		}
	}
	got := o.Todos()
	if len(got) != len(want) {
		t.Fatalf("want %d left, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: want %v got %v", i, want[i].ID, got[i].ID)
		}
	}
}

func TestClearCompleted_RemovesExactlyCompleted(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testClearCompleted_RemovesExactlyCompleted)
}

func TestClearCompleted_NothingToClear(t *testing.T) {
	t.Parallel()

	r := newFakeRemote(seedTodo("1", "a", false))
	rec := &recorder{}
	o := loaded(t, r, app.Options{Notifier: rec, Confirm: yes})

	op, err := o.Handle(context.Background(), app.ClearCompleted())
	require.NoError(t, err)
	require.Nil(t, op)
	require.Equal(t, app.LevelWarning, rec.last().Level)
	require.Equal(t, "No Completed Todos", rec.last().Title)
	require.Zero(t, r.count("clear"))
}

func TestOverlappingUpdates_SettleInAnyOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newFakeRemote(seedTodo("1", "a", false), seedTodo("2", "b", false))
	o := loaded(t, r, app.Options{})

	_, err := o.Handle(ctx, app.BeginEdit("1"))
	require.NoError(t, err)
	first, err := o.Handle(ctx, app.Edit("a", model.PriorityHigh))
	require.NoError(t, err)
	second, err := o.Handle(ctx, app.Toggle("2"))
	require.NoError(t, err)
	require.Equal(t, 2, o.InFlight())

	// both requests finish before either is applied
	out1, out2 := first(), second()
	o.Settle(out2)
	o.Settle(out1)

	one, _ := o.Todo("1")
	two, _ := o.Todo("2")
	require.Equal(t, model.PriorityHigh, one.Priority)
	require.False(t, one.Completed)
	require.True(t, two.Completed)
	require.Equal(t, model.PriorityMedium, two.Priority)
	require.Zero(t, o.InFlight())
	_, editing := o.Editing()
	require.False(t, editing)
}

func TestConfirmationGate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, confirm := range []app.ConfirmFunc{nil, no} {
		r := newFakeRemote(seedTodo("1", "a", true))
		rec := &recorder{}
		o := loaded(t, r, app.Options{Notifier: rec, Confirm: confirm})

		op, err := o.Handle(ctx, app.Delete("1"))
		require.NoError(t, err, "declining is not an error")
		require.Nil(t, op)
		op, err = o.Handle(ctx, app.ClearCompleted())
		require.NoError(t, err)
		require.Nil(t, op)

		require.Zero(t, r.count("delete"))
		require.Zero(t, r.count("clear"))
		require.Empty(t, rec.got)
		require.Len(t, o.Todos(), 1)

		// a front-end that asked on its own passes the command pre-confirmed
		require.NoError(t, o.Do(ctx, app.Delete("1").Confirmed()))
		require.Empty(t, o.Todos())
		require.Equal(t, "Todo deleted successfully!", rec.last().Message)
	}
}

func TestConfirmPrompt(t *testing.T) {
	t.Parallel()

	r := newFakeRemote(seedTodo("1", "a", true), seedTodo("2", "b", true), seedTodo("3", "c", false))
	var asked []string
	o := loaded(t, r, app.Options{Confirm: func(p string) bool { asked = append(asked, p); return false }})

	prompt, needed := o.ConfirmPrompt(app.ClearCompleted())
	require.True(t, needed)
	require.Equal(t, "Are you sure you want to clear 2 completed todos?", prompt)

	_, needed = o.ConfirmPrompt(app.ClearCompleted().Confirmed())
	require.False(t, needed)
	_, needed = o.ConfirmPrompt(app.Toggle("1"))
	require.False(t, needed)

	_, _ = o.Handle(context.Background(), app.Delete("3"))
	require.Equal(t, []string{"Are you sure you want to delete this todo?"}, asked)
}

func TestEditSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newFakeRemote(seedTodo("1", "a", false), seedTodo("2", "b", false))
	rec := &recorder{}
	o := loaded(t, r, app.Options{Notifier: rec})

	// no target: edit is ignored
	op, err := o.Handle(ctx, app.Edit("x", ""))
	require.NoError(t, err)
	require.Nil(t, op)

	_, _ = o.Handle(ctx, app.BeginEdit("1"))
	_, _ = o.Handle(ctx, app.BeginEdit("2"))
	id, editing := o.Editing()
	require.True(t, editing)
	require.Equal(t, model.ID("2"), id, "last BeginEdit wins")

	_, _ = o.Handle(ctx, app.CancelEdit())
	_, editing = o.Editing()
	require.False(t, editing)

	// an edit that settles after the user moved on leaves the new target alone
	_, _ = o.Handle(ctx, app.BeginEdit("1"))
	op, err = o.Handle(ctx, app.Edit("  renamed  ", ""))
	require.NoError(t, err)
	_, _ = o.Handle(ctx, app.BeginEdit("2"))
	o.Settle(op())

	one, _ := o.Todo("1")
	require.Equal(t, "renamed", one.Text)
	require.Equal(t, model.PriorityMedium, one.Priority, "empty priority keeps the current one")
	id, editing = o.Editing()
	require.True(t, editing)
	require.Equal(t, model.ID("2"), id)
	require.Equal(t, "Todo updated successfully!", rec.last().Message)

	// success on the current target closes the session
	require.NoError(t, o.Do(ctx, app.Edit("b2", model.PriorityLow)))
	_, editing = o.Editing()
	require.False(t, editing)
}

func TestFilterAndView(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newFakeRemote(seedTodo("1", "a", false), seedTodo("2", "b", true), seedTodo("3", "c", false))
	o := loaded(t, r, app.Options{})

	require.Equal(t, model.FilterAll, o.Filter())
	_, err := o.Handle(ctx, app.SetFilter(model.FilterCompleted))
	require.NoError(t, err)

	page := o.View()
	require.Len(t, page.Rows, 1)
	require.Equal(t, model.ID("2"), page.Rows[0].ID)
	require.Equal(t, 3, page.Counts.Total)
	require.Equal(t, 2, page.Counts.Active)
	require.True(t, page.CanClear)
	require.Len(t, o.Visible(), 1)

	_, err = o.Handle(ctx, app.SetFilter("bogus"))
	require.True(t, errs.IsValidation(err))
	require.Equal(t, model.FilterCompleted, o.Filter())
}

func TestLoadFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := newFakeRemote(seedTodo("1", "a", false))
	rec := &recorder{}
	o := loaded(t, r, app.Options{Notifier: rec})

	r.failWith("list", errs.New(errs.Load, "Failed to load todos. Please try again."))
	op, err := o.Handle(ctx, app.Load())
	require.NoError(t, err)
	require.True(t, o.Loading())
	o.Settle(op())
	require.False(t, o.Loading())

	require.Len(t, o.Todos(), 1, "previous state survives a failed refresh")
	require.Equal(t, app.Notification{Level: app.LevelError, Title: "Error", Message: "Failed to load todos. Please try again."}, rec.last())
}

func TestAgainstHTTPBackend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := remotetest.Start(t)
	srv.Seed("first", "second")
	client, err := remote.New(srv.URL)
	require.NoError(t, err)

	rec := &recorder{}
	o := app.New(client, app.Options{Notifier: rec, Confirm: yes})
	require.NoError(t, o.Do(ctx, app.Load()))
	require.Len(t, o.Todos(), 2)

	require.NoError(t, o.Do(ctx, app.Create("third", model.PriorityHigh)))
	require.NoError(t, o.Do(ctx, app.Toggle("2")))
	require.NoError(t, o.Do(ctx, app.Delete("1")))
	require.NoError(t, o.Do(ctx, app.ClearCompleted()))

	require.Equal(t, srv.Todos(), o.Todos())
	require.Len(t, o.Todos(), 1)
	require.Equal(t, "third", o.Todos()[0].Text)
	require.Equal(t, "1 completed todos cleared", rec.last().Message)

	// a server-side rejection surfaces as a validation failure
	srv.Fail(remotetest.OpCreate, 400, "Todo text is required")
	err = o.Do(ctx, app.Create("ok locally", model.PriorityLow))
	require.True(t, errs.IsValidation(err))
	require.Equal(t, "Invalid Input", rec.last().Title)
	require.Len(t, o.Todos(), 1)
}
