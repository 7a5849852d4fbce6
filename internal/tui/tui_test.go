package tui

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/remote"
	"github.com/Makepad-fr/tada/internal/remote/remotetest"
)

// harness drives a Model by hand. Ops are queued instead of run as tea.Cmds
// so each test decides when responses arrive.
type harness struct {
	t   *testing.T
	srv *remotetest.Server
	m   Model
	ops []app.Op
}

func newHarness(t *testing.T, seed ...string) *harness {
	t.Helper()
	srv := remotetest.Start(t)
	srv.Seed(seed...)

	client, err := remote.New(srv.URL)
	require.NoError(t, err)

	inbox := NewInbox()
	orch := app.New(client, app.Options{Notifier: inbox})

	h := &harness{t: t, srv: srv}
	m := New(context.Background(), orch, inbox, Options{ToastTTL: time.Minute})
	m.run = func(op app.Op) tea.Cmd {
		h.ops = append(h.ops, op)
		return nil
	}
	h.m = m
	h.send(tea.WindowSizeMsg{Width: 100, Height: 30})
	h.m.Init()
	h.settle()
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

func (h *harness) press(keys ...string) {
	for _, k := range keys {
		switch k {
		case "enter":
			h.send(tea.KeyMsg{Type: tea.KeyEnter})
		case "esc":
			h.send(tea.KeyMsg{Type: tea.KeyEsc})
		case "tab":
			h.send(tea.KeyMsg{Type: tea.KeyTab})
		case "down":
			h.send(tea.KeyMsg{Type: tea.KeyDown})
		case " ":
			h.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
		default:
			h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		}
	}
}

// settle delivers every queued op's outcome, oldest first.
func (h *harness) settle() {
	for len(h.ops) > 0 {
		op := h.ops[0]
		h.ops = h.ops[1:]
		h.send(outcomeMsg{out: op()})
	}
}

func (h *harness) lastToast() app.Notification {
	h.t.Helper()
	require.NotEmpty(h.t, h.m.toasts)
	return h.m.toasts[len(h.m.toasts)-1].n
}

func TestInit_LoadsTodos(t *testing.T) {
	h := newHarness(t, "write tests", "ship it")

	require.Len(t, h.m.page.Rows, 2)
	require.Equal(t, "write tests", h.m.page.Rows[0].Text)
	require.False(t, h.m.orch.Loading())
	require.Empty(t, h.m.toasts)

	out := h.m.View()
	require.Contains(t, out, "Todos")
	require.Contains(t, out, "write tests")
}

func TestInit_LoadFailureShowsError(t *testing.T) {
	srv := remotetest.Start(t)
	srv.Fail(remotetest.OpList, http.StatusInternalServerError, "")
	client, err := remote.New(srv.URL)
	require.NoError(t, err)

	inbox := NewInbox()
	orch := app.New(client, app.Options{Notifier: inbox})
	m := New(context.Background(), orch, inbox, Options{})
	var ops []app.Op
	m.run = func(op app.Op) tea.Cmd { ops = append(ops, op); return nil }

	m.Init()
	require.Len(t, ops, 1)
	require.True(t, orch.Loading())
	require.Contains(t, m.View(), "Loading...")

	next, _ := m.Update(outcomeMsg{out: ops[0]()})
	m = next.(Model)
	require.Len(t, m.toasts, 1)
	require.Equal(t, app.LevelError, m.toasts[0].n.Level)
	require.Equal(t, "Failed to load todos. Please try again.", m.toasts[0].n.Message)
	require.Contains(t, m.View(), "No todos yet. Add one to get started!")
}

func TestAdd_SendsAndClosesInput(t *testing.T) {
	h := newHarness(t)

	h.press("a")
	require.Equal(t, modeAdd, h.m.mode)
	h.press("B", "u", "y", " ", "m", "i", "l", "k", "tab", "enter")

	require.Equal(t, modeList, h.m.mode)
	require.Len(t, h.ops, 1)
	h.settle()

	todos := h.srv.Todos()
	require.Len(t, todos, 1)
	require.Equal(t, "Buy milk", todos[0].Text)
	require.Equal(t, model.PriorityHigh, todos[0].Priority)
	require.Equal(t, "Todo added successfully!", h.lastToast().Message)
	require.Len(t, h.m.page.Rows, 1)
}

func TestAdd_InvalidTextStaysOpen(t *testing.T) {
	h := newHarness(t)

	h.press("a", " ", "enter")

	require.Equal(t, modeAdd, h.m.mode)
	require.Empty(t, h.ops)
	require.Equal(t, 0, h.srv.Count(remotetest.OpCreate))
	require.Equal(t, model.InvalidTextMessage, h.lastToast().Message)

	h.press("esc")
	require.Equal(t, modeList, h.m.mode)
}

func TestToggle_SelectedRow(t *testing.T) {
	h := newHarness(t, "first", "second")

	h.press("down", " ")
	h.settle()

	todos := h.srv.Todos()
	require.False(t, todos[0].Completed)
	require.True(t, todos[1].Completed)
	require.Equal(t, "Todo completed!", h.lastToast().Message)
	require.True(t, h.m.page.CanClear)
}

func TestDelete_AsksFirst(t *testing.T) {
	h := newHarness(t, "keep", "drop")
	h.press("down", "d")

	require.Equal(t, modeConfirm, h.m.mode)
	require.Equal(t, "Are you sure you want to delete this todo?", h.m.prompt)
	require.Contains(t, h.m.View(), "(y/n)")

	h.press("n")
	require.Equal(t, modeList, h.m.mode)
	require.Empty(t, h.ops)

	h.press("d", "y")
	h.settle()
	require.Equal(t, 1, h.srv.Count(remotetest.OpDelete))
	require.Len(t, h.m.page.Rows, 1)
	require.Equal(t, "keep", h.m.page.Rows[0].Text)
	require.Equal(t, "Todo deleted successfully!", h.lastToast().Message)
}

func TestClear_NothingCompletedWarns(t *testing.T) {
	h := newHarness(t, "a")

	h.press("c")

	require.Equal(t, modeList, h.m.mode)
	require.Empty(t, h.ops)
	n := h.lastToast()
	require.Equal(t, app.LevelWarning, n.Level)
	require.Equal(t, "No Completed Todos", n.Title)
}

func TestClear_ConfirmedRemovesCompleted(t *testing.T) {
	h := newHarness(t, "a", "b", "c")
	h.press(" ", "down", "down", " ")
	h.settle()

	h.press("c")
	require.Equal(t, "Are you sure you want to clear 2 completed todos?", h.m.prompt)
	h.press("y")
	h.settle()

	require.Len(t, h.m.page.Rows, 1)
	require.Equal(t, "b", h.m.page.Rows[0].Text)
	require.Equal(t, "2 completed todos cleared", h.lastToast().Message)
}

func TestEdit_StaysOpenUntilSettled(t *testing.T) {
	h := newHarness(t, "draft")

	h.press("e")
	require.Equal(t, modeEdit, h.m.mode)
	require.Equal(t, "draft", h.m.ti.Value())

	h.m.ti.SetValue("final")
	h.press("tab", "enter")
	require.Equal(t, modeEdit, h.m.mode)
	require.Len(t, h.ops, 1)

	h.settle()
	require.Equal(t, modeList, h.m.mode)
	todo := h.srv.Todos()[0]
	require.Equal(t, "final", todo.Text)
	require.Equal(t, model.PriorityHigh, todo.Priority)
	require.Equal(t, "Todo updated successfully!", h.lastToast().Message)
}

func TestEdit_FailureKeepsEditing(t *testing.T) {
	h := newHarness(t, "draft")
	h.srv.Fail(remotetest.OpUpdate, http.StatusInternalServerError, "boom")

	h.press("e")
	h.m.ti.SetValue("final")
	h.press("enter")
	h.settle()

	require.Equal(t, modeEdit, h.m.mode)
	require.Equal(t, "final", h.m.ti.Value())
	require.Equal(t, "boom", h.lastToast().Message)
	require.Equal(t, "draft", h.m.page.Rows[0].Text)

	h.press("esc")
	require.Equal(t, modeList, h.m.mode)
	_, editing := h.m.orch.Editing()
	require.False(t, editing)
}

func TestFilter_CyclesTabs(t *testing.T) {
	h := newHarness(t, "a")

	h.press("f")
	require.Equal(t, model.FilterActive, h.m.page.Filter)
	require.Len(t, h.m.page.Rows, 1)

	h.press("f")
	require.Equal(t, model.FilterCompleted, h.m.page.Filter)
	require.Empty(t, h.m.page.Rows)
	require.Contains(t, h.m.View(), "No completed todos yet.")

	h.press("tab")
	require.Equal(t, model.FilterAll, h.m.page.Filter)
}

func TestToasts_ExpireAndDismiss(t *testing.T) {
	h := newHarness(t, "a")
	h.press("c")
	h.press("c")
	require.Len(t, h.m.toasts, 2)

	first := h.m.toasts[0].id
	h.send(expireMsg{id: first})
	require.Len(t, h.m.toasts, 1)
	require.NotEqual(t, first, h.m.toasts[0].id)

	h.press("esc")
	require.Empty(t, h.m.toasts)
	require.True(t, strings.Contains(h.m.View(), "Todos"))

	cmd := h.send(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}
