// Package tui is the interactive front-end: a Bubble Tea program over the
// orchestrator. Remote calls run as tea.Cmds and come back as messages, so
// every cache change happens inside Update.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
	"github.com/Makepad-fr/tada/internal/view"
)

const (
	DefaultToastTTL = 5 * time.Second
	maxToasts       = 3
)

// Inbox is the Notifier the TUI hands to the orchestrator. Notifications
// are queued while Update runs and turned into toasts before it returns.
type Inbox struct {
	pending []app.Notification
}

func NewInbox() *Inbox { return &Inbox{} }

func (b *Inbox) Notify(n app.Notification) { b.pending = append(b.pending, n) }

func (b *Inbox) drain() []app.Notification {
	out := b.pending
	b.pending = nil
	return out
}

// Options tune the program.
type Options struct {
	ToastTTL time.Duration
	Input    io.Reader
	Output   io.Writer
}

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
	modeConfirm
)

type outcomeMsg struct{ out app.Outcome }

type expireMsg struct{ id int }

type toast struct {
	id int
	n  app.Notification
}

// item adapts a rendered row to bubbles/list.
type item struct{ row view.Row }

func (i item) FilterValue() string { return i.row.Text }

// itemDelegate renders one row per line.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(item)
	if !ok {
		return
	}
	r := it.row

	textWidth := m.Width() - 30
	if textWidth < 10 {
		textWidth = 10
	}
	text := ui.Truncate(r.Text, textWidth)

	box := mutedStyle.Render(boxUnchecked)
	if r.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	badge := priorityStyle(r.Priority).Render(fmt.Sprintf("%-6s", r.Priority))

	line := fmt.Sprintf("%s %s %s  %s", box, badge, text, mutedStyle.Render(r.Created))
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprint(w, prefix+line)
}

// Model is the Bubble Tea model.
type Model struct {
	ctx   context.Context
	orch  *app.Orchestrator
	inbox *Inbox
	keys  keyMap
	ttl   time.Duration

	// run turns a pending op into a tea.Cmd.
	run func(app.Op) tea.Cmd

	list list.Model
	ti   textinput.Model
	spin spinner.Model
	page view.Page

	mode     mode
	priority model.Priority // add/edit input
	pending  app.Command    // awaiting confirmation
	prompt   string
	sent     bool // the last dispatch produced a request

	toasts    []toast
	nextToast int

	width, height int
}

// New builds the model. inbox must be the Notifier orch was built with.
func New(ctx context.Context, orch *app.Orchestrator, inbox *Inbox, opts Options) Model {
	keys := defaultKeys()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")
	l.KeyMap.NextPage = key.NewBinding(key.WithKeys("right", "l", "pgdown"), key.WithHelp("→/l/pgdn", "next page"))
	l.KeyMap.PrevPage = key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("←/h/pgup", "prev page"))
	l.AdditionalShortHelpKeys = keys.listHelp
	l.AdditionalFullHelpKeys = keys.listHelp

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = model.MaxTextLength

	ttl := opts.ToastTTL
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}

	m := Model{
		ctx:      ctx,
		orch:     orch,
		inbox:    inbox,
		keys:     keys,
		ttl:      ttl,
		list:     l,
		ti:       ti,
		spin:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle)),
		priority: model.DefaultPriority,
	}
	m.run = func(op app.Op) tea.Cmd {
		return func() tea.Msg { return outcomeMsg{out: op()} }
	}
	m.refresh()
	return m
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(ctx context.Context, orch *app.Orchestrator, inbox *Inbox, opts Options) error {
	popts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if opts.Input != nil {
		popts = append(popts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		popts = append(popts, tea.WithOutput(opts.Output))
	}
	p := tea.NewProgram(New(ctx, orch, inbox, opts), popts...)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	op, _ := m.orch.Handle(m.ctx, app.Load())
	if op == nil {
		return nil
	}
	return tea.Batch(m.spin.Tick, m.run(op))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case outcomeMsg:
		m.orch.Settle(msg.out)
		if _, editing := m.orch.Editing(); m.mode == modeEdit && !editing {
			m.leaveInput()
		}
		return m, tea.Batch(m.flush(), m.refresh())

	case expireMsg:
		m.dropToast(msg.id)
		return m, nil

	case spinner.TickMsg:
		if !m.orch.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case modeAdd, modeEdit:
			return m.updateInput(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		}
		return m.updateList(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.SettingFilter() {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Dismiss):
		if len(m.toasts) > 0 {
			m.toasts = nil
			return m, nil
		}
		if m.list.IsFiltered() {
			break
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		if id, ok := m.selected(); ok {
			return m.dispatch(app.Toggle(id))
		}
		return m, nil

	case key.Matches(msg, m.keys.Add):
		m.mode = modeAdd
		m.priority = model.DefaultPriority
		m.ti.SetValue("")
		m.ti.Placeholder = "What needs to be done?"
		return m, m.ti.Focus()

	case key.Matches(msg, m.keys.Edit):
		id, ok := m.selected()
		if !ok {
			return m, nil
		}
		var cmd tea.Cmd
		m, cmd = m.dispatch(app.BeginEdit(id))
		if _, editing := m.orch.Editing(); !editing {
			return m, cmd
		}
		t, _ := m.orch.Todo(id)
		m.mode = modeEdit
		m.priority = t.Priority
		m.ti.SetValue(t.Text)
		m.ti.CursorEnd()
		m.ti.Placeholder = "Edit todo..."
		return m, tea.Batch(cmd, m.ti.Focus())

	case key.Matches(msg, m.keys.Delete):
		if id, ok := m.selected(); ok {
			return m.ask(app.Delete(id))
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		return m.ask(app.ClearCompleted())

	case key.Matches(msg, m.keys.Filter):
		return m.dispatch(app.SetFilter(m.orch.Filter().Next()))

	case key.Matches(msg, m.keys.Refresh):
		return m.dispatch(app.Load())
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.mode == modeEdit {
			m, _ = m.dispatch(app.CancelEdit())
		}
		m.leaveInput()
		return m, nil

	case key.Matches(msg, m.keys.Priority):
		m.priority = m.priority.Next()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.mode == modeAdd {
			next, cmd := m.dispatch(app.Create(m.ti.Value(), m.priority))
			if next.sent {
				next.leaveInput()
			}
			return next, cmd
		}
		// Edit stays open until the update settles.
		return m.dispatch(app.Edit(m.ti.Value(), m.priority))
	}

	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Yes):
		c := m.pending
		m.mode, m.pending, m.prompt = modeList, app.Command{}, ""
		return m.dispatch(c.Confirmed())
	case key.Matches(msg, m.keys.No):
		m.mode, m.pending, m.prompt = modeList, app.Command{}, ""
	}
	return m, nil
}

// ask shows a confirmation prompt when c needs one, otherwise sends it.
func (m Model) ask(c app.Command) (Model, tea.Cmd) {
	prompt, needed := m.orch.ConfirmPrompt(c)
	if !needed {
		return m.dispatch(c)
	}
	m.mode = modeConfirm
	m.pending = c
	m.prompt = prompt
	return m, nil
}

// dispatch routes c through the orchestrator and schedules its op.
func (m Model) dispatch(c app.Command) (Model, tea.Cmd) {
	op, _ := m.orch.Handle(m.ctx, c)
	m.sent = op != nil

	var cmds []tea.Cmd
	if op != nil {
		cmds = append(cmds, m.run(op))
		if c.Kind == app.KindLoad {
			cmds = append(cmds, m.spin.Tick)
		}
	}
	cmds = append(cmds, m.flush(), m.refresh())
	return m, tea.Batch(cmds...)
}

func (m *Model) leaveInput() {
	m.mode = modeList
	m.ti.SetValue("")
	m.ti.Blur()
}

func (m Model) selected() (model.ID, bool) {
	it, ok := m.list.SelectedItem().(item)
	if !ok {
		return "", false
	}
	return it.row.ID, true
}

// refresh re-renders the page and feeds its rows to the list.
func (m *Model) refresh() tea.Cmd {
	m.page = m.orch.View()
	items := make([]list.Item, 0, len(m.page.Rows))
	for _, r := range m.page.Rows {
		items = append(items, item{row: r})
	}
	return m.list.SetItems(items)
}

// flush turns queued notifications into toasts with an expiry timer each.
func (m *Model) flush() tea.Cmd {
	var cmds []tea.Cmd
	for _, n := range m.inbox.drain() {
		m.nextToast++
		id := m.nextToast
		m.toasts = append(m.toasts, toast{id: id, n: n})
		cmds = append(cmds, tea.Tick(m.ttl, func(time.Time) tea.Msg { return expireMsg{id: id} }))
	}
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
	return tea.Batch(cmds...)
}

func (m *Model) dropToast(id int) {
	for i, t := range m.toasts {
		if t.id == id {
			m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
			return
		}
	}
}

func (m Model) View() string {
	w, h := m.width, m.height
	if w == 0 || h == 0 {
		w, h = 80, 24
	}

	header := m.header()
	var footer []string
	switch m.mode {
	case modeAdd, modeEdit:
		footer = append(footer, m.inputBox())
	case modeConfirm:
		footer = append(footer, pendingStyle.Render(m.prompt)+" "+mutedStyle.Render("(y/n)"))
	}
	for _, t := range m.toasts {
		footer = append(footer, m.toastView(t))
	}
	tail := strings.Join(footer, "\n")

	listHeight := h - 4 - lipgloss.Height(header)
	if tail != "" {
		listHeight -= lipgloss.Height(tail)
	}
	if listHeight < 3 {
		listHeight = 3
	}
	m.list.SetSize(w-4, listHeight)

	body := m.list.View()
	if len(m.page.Rows) == 0 {
		body = mutedStyle.Render(m.page.Empty)
	}

	content := header + "\n\n" + body
	if tail != "" {
		content += "\n" + tail
	}
	return frameStyle.Render(content)
}

func (m Model) header() string {
	c := m.page.Counts
	line := fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), c.Completed,
		pendingStyle.Render("•"), c.Active,
		accentStyle.Render("Total"), c.Total,
	)
	if m.orch.Loading() {
		line += "   " + m.spin.View() + mutedStyle.Render(" Loading...")
	} else if n := m.orch.InFlight(); n > 0 {
		line += "   " + mutedStyle.Render(fmt.Sprintf("%d pending", n))
	}

	var tabs []string
	for _, f := range model.Filters() {
		label := strings.ToUpper(string(f[:1])) + string(f[1:])
		if f == m.page.Filter {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	tabLine := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if m.page.CanClear {
		tabLine += "  " + mutedStyle.Render("c: clear completed")
	}
	return line + "\n" + tabLine
}

func (m Model) inputBox() string {
	title := "Add todo"
	if m.mode == modeEdit {
		title = "Edit todo"
	}
	title += "  " + priorityStyle(m.priority).Render(string(m.priority)) + mutedStyle.Render(" (tab to change)")
	bar := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
	return bar.Render(title + "\n" + m.ti.View())
}

func (m Model) toastView(t toast) string {
	title := t.n.Title
	if t.n.Level == app.LevelError {
		title = errorStyle.Render(title)
	} else {
		title = titleStyle.Render(title)
	}
	return toastStyle(t.n.Level).Render(title + " " + view.Sanitize(t.n.Message))
}
