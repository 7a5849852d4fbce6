package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/auth"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/errs"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/remote"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
	"github.com/Makepad-fr/tada/internal/view"
)

// Options carry the resolved root configuration and the process streams.
// Zero values fall back to defaults and the os streams.
type Options struct {
	Config *config.Config
	Logger *log.Logger
	Auth   *auth.Store

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Interactive runs the TUI for `ls`. Defaults to tui.Run.
	Interactive func(ctx context.Context, orch *app.Orchestrator, inbox *tui.Inbox) error
}

type runner struct {
	ctx  context.Context
	opt  Options
	cfg  *config.Config
	log  *log.Logger
	in   *bufio.Reader
	out  io.Writer
	errw io.Writer
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	r := newRunner(ctx, opt)
	if len(args) == 0 {
		PrintHelp(r.errw)
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(r.out)
		return 0

	case "ls":
		if len(a) != 0 {
			return r.usage("todo ls")
		}
		return r.doInteractive()

	case "list":
		return r.doList(a)

	case "add":
		return r.doAdd(a)

	case "done":
		if len(a) != 1 {
			return r.usage("todo done <id>")
		}
		return r.doToggle(a[0])

	case "edit":
		return r.doEdit(a)

	case "rm":
		return r.doRemove(a)

	case "clear":
		return r.doClear(a)

	case "stats":
		if len(a) != 0 {
			return r.usage("todo stats")
		}
		return r.doStats()

	case "auth":
		if len(a) != 1 {
			return r.usage("todo auth <login|logout|status|whoami>")
		}
		switch a[0] {
		case "login":
			return r.doAuthLogin()
		case "logout":
			return r.doAuthLogout()
		case "status":
			return r.doAuthStatus()
		case "whoami":
			return r.doAuthWhoAmI()
		}
		return r.usage("todo auth <login|logout|status|whoami>")
	}

	ui.Fail(r.errw, "unknown subcommand: "+cmd)
	fmt.Fprintln(r.errw)
	PrintHelp(r.errw)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `todo - a terminal client for your todo API

Usage:
  todo [flags] <subcommand> [args]

Subcommands:
  ls                                Interactive list (TUI)
  list [--filter all|active|completed]
                                    Print the list
  add [--priority p] <text...>      Add a todo (priority: low, medium, high)
  done <id>                         Toggle completed for a todo
  edit <id> [--priority p] [text...]
                                    Change text and/or priority
  rm [-y] <id>                      Delete a todo
  clear [-y]                        Delete every completed todo
  stats                             Server-side statistics
  auth <login|logout|status|whoami> Token authentication

Flags:
  --api URL  --timeout 10s  --theme classic|neon|mono  --group
  --config FILE  --log-level LEVEL  --log-format FMT  --log-file FILE

Examples:
  todo add --priority high "Buy milk"
  todo list --filter active
  todo done 2
  todo rm -y 3
`)
}

func newRunner(ctx context.Context, opt Options) *runner {
	r := &runner{ctx: ctx, opt: opt, cfg: opt.Config, log: opt.Logger, out: opt.Out, errw: opt.Err}
	if r.ctx == nil {
		r.ctx = context.Background()
	}
	if r.cfg == nil {
		r.cfg = config.Default()
	}
	if r.log == nil {
		r.log = logging.Discard()
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.errw == nil {
		r.errw = os.Stderr
	}
	in := opt.In
	if in == nil {
		in = os.Stdin
	}
	r.in = bufio.NewReader(in)
	return r
}

func (r *runner) usage(line string) int {
	ui.Fail(r.errw, "usage: "+line)
	return 2
}

// flags returns a subcommand flag set that reports to stderr.
func (r *runner) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(r.errw)
	return fs
}

// ---------------------------------------------------
// wiring
// ---------------------------------------------------

func (r *runner) store() *auth.Store {
	if r.opt.Auth != nil {
		return r.opt.Auth
	}
	st, err := auth.DefaultStore()
	if err != nil {
		r.log.Warn("credentials unavailable", "err", err)
		return nil
	}
	return st
}

// client builds the API client, attaching the saved token when there is one.
func (r *runner) client(logger *log.Logger) (*remote.Client, error) {
	opts := []remote.Option{remote.WithTimeout(r.cfg.Timeout), remote.WithLogger(logger)}
	if st := r.store(); st != nil {
		ti, err := st.Get()
		switch {
		case err != nil:
			r.log.Warn("reading token", "err", err)
		case ti == nil:
		case ti.Expired(time.Now()):
			ui.Warn(r.errw, "saved token has expired; run `todo auth login`")
		default:
			opts = append(opts, remote.WithToken(ti.Token))
		}
	}
	c, err := remote.New(r.cfg.APIURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}
	return c, nil
}

// orchestrator builds a one-shot orchestrator printing to the terminal.
func (r *runner) orchestrator() (*app.Orchestrator, int) {
	c, err := r.client(r.log)
	if err != nil {
		ui.Fail(r.errw, err.Error())
		return nil, 1
	}
	return app.New(c, app.Options{
		Notifier: printer{out: r.out, err: r.errw},
		Confirm:  r.confirm,
		Logger:   r.log,
	}), 0
}

// loaded returns an orchestrator whose cache holds the current list.
func (r *runner) loaded() (*app.Orchestrator, int) {
	orch, code := r.orchestrator()
	if orch == nil {
		return nil, code
	}
	if err := orch.Do(r.ctx, app.Load()); err != nil {
		return nil, exitCode(err)
	}
	return orch, 0
}

// finish maps the result of an orchestrated command to an exit code.
func (r *runner) finish(err error) int {
	if errs.IsNotFound(err) {
		fmt.Fprintln(r.errw, ui.C(ui.Current().Muted, "Hint: run `todo list` to see valid ids"))
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	switch errs.KindOf(err) {
	case errs.Validation, errs.NotFound:
		return 2
	}
	return 1
}

// ---------------------------------------------------
// subcommands
// ---------------------------------------------------

func (r *runner) doInteractive() int {
	// The alternate screen owns the terminal: log to the file or nowhere.
	logger := logging.Discard()
	if r.cfg.LogFile != "" {
		logger = r.log
	}
	c, err := r.client(logger)
	if err != nil {
		ui.Fail(r.errw, err.Error())
		return 1
	}
	inbox := tui.NewInbox()
	orch := app.New(c, app.Options{Notifier: inbox, Logger: logger})

	run := r.opt.Interactive
	if run == nil {
		run = func(ctx context.Context, orch *app.Orchestrator, inbox *tui.Inbox) error {
			return tui.Run(ctx, orch, inbox, tui.Options{})
		}
	}
	if err := run(r.ctx, orch, inbox); err != nil {
		ui.Fail(r.errw, err.Error())
		return 1
	}
	return 0
}

func (r *runner) doList(args []string) int {
	fs := r.flags("list")
	filter := fs.String("filter", string(model.FilterAll), "all, active or completed")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		return r.usage("todo list [--filter all|active|completed]")
	}
	f, err := model.ParseFilter(*filter)
	if err != nil {
		ui.Fail(r.errw, err.Error())
		return 2
	}

	orch, code := r.loaded()
	if orch == nil {
		return code
	}
	if err := orch.Do(r.ctx, app.SetFilter(f)); err != nil {
		return exitCode(err)
	}
	ui.Panel(r.out, listLines(orch.View(), r.cfg.Group))
	return 0
}

func (r *runner) doAdd(args []string) int {
	fs := r.flags("add")
	prio := fs.String("priority", string(model.DefaultPriority), "low, medium or high")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		return r.usage("todo add [--priority p] <text...>")
	}
	p, err := model.ParsePriority(*prio)
	if err != nil {
		ui.Fail(r.errw, err.Error())
		return 2
	}

	orch, code := r.orchestrator()
	if orch == nil {
		return code
	}
	return r.finish(orch.Do(r.ctx, app.Create(strings.Join(fs.Args(), " "), p)))
}

func (r *runner) doToggle(arg string) int {
	id, ok := parseID(arg)
	if !ok {
		return r.usage("todo done <id>")
	}
	orch, code := r.loaded()
	if orch == nil {
		return code
	}
	return r.finish(orch.Do(r.ctx, app.Toggle(id)))
}

func (r *runner) doEdit(args []string) int {
	if len(args) == 0 {
		return r.usage("todo edit <id> [--priority p] [text...]")
	}
	id, ok := parseID(args[0])
	if !ok {
		return r.usage("todo edit <id> [--priority p] [text...]")
	}
	fs := r.flags("edit")
	prio := fs.String("priority", "", "low, medium or high (default: unchanged)")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	var p model.Priority
	if *prio != "" {
		parsed, err := model.ParsePriority(*prio)
		if err != nil {
			ui.Fail(r.errw, err.Error())
			return 2
		}
		p = parsed
	}
	text := strings.Join(fs.Args(), " ")
	if text == "" && p == "" {
		return r.usage("todo edit <id> [--priority p] [text...]")
	}

	orch, code := r.loaded()
	if orch == nil {
		return code
	}
	if err := orch.Do(r.ctx, app.BeginEdit(id)); err != nil {
		return r.finish(err)
	}
	if text == "" {
		t, _ := orch.Todo(id)
		text = t.Text
	}
	return r.finish(orch.Do(r.ctx, app.Edit(text, p)))
}

func (r *runner) doRemove(args []string) int {
	fs := r.flags("rm")
	yes := fs.Bool("y", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		return r.usage("todo rm [-y] <id>")
	}
	id, ok := parseID(fs.Arg(0))
	if !ok {
		return r.usage("todo rm [-y] <id>")
	}

	orch, code := r.loaded()
	if orch == nil {
		return code
	}
	cmd := app.Delete(id)
	if *yes {
		cmd = cmd.Confirmed()
	}
	return r.finish(orch.Do(r.ctx, cmd))
}

func (r *runner) doClear(args []string) int {
	fs := r.flags("clear")
	yes := fs.Bool("y", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		return r.usage("todo clear [-y]")
	}

	orch, code := r.loaded()
	if orch == nil {
		return code
	}
	cmd := app.ClearCompleted()
	if *yes {
		cmd = cmd.Confirmed()
	}
	return r.finish(orch.Do(r.ctx, cmd))
}

func (r *runner) doStats() int {
	c, err := r.client(r.log)
	if err != nil {
		ui.Fail(r.errw, err.Error())
		return 1
	}
	st, err := c.Stats(r.ctx)
	if err != nil {
		ui.Fail(r.errw, errs.MessageOf(err))
		return exitCode(err)
	}
	ui.Panel(r.out, statsLines(st))
	return 0
}

// confirm asks on the terminal. Anything but y/yes declines.
func (r *runner) confirm(prompt string) bool {
	fmt.Fprintf(r.out, "%s [y/N] ", prompt)
	line, err := r.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		r.log.Warn("reading confirmation", "err", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	if line == "" || !strings.HasSuffix(line, "\n") {
		fmt.Fprintln(r.out)
	}
	ui.Info(r.out, "cancelled")
	return false
}

func parseID(s string) (model.ID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return model.ID(s), true
}

// printer shows notifications as status lines: successes and infos on
// stdout, warnings and errors on stderr.
type printer struct {
	out, err io.Writer
}

func (p printer) Notify(n app.Notification) {
	n.Message = view.Sanitize(n.Message)
	switch n.Level {
	case app.LevelSuccess:
		ui.OK(p.out, n.Message)
	case app.LevelError:
		ui.Fail(p.err, n.Title+": "+n.Message)
	case app.LevelWarning:
		ui.Warn(p.err, n.Title+": "+n.Message)
	default:
		ui.Info(p.out, n.Message)
	}
}
