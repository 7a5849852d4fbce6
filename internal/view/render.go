package view

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/Makepad-fr/tada/internal/model"
)

// Page is the view model for one frame of the todo list.
type Page struct {
	Filter   model.Filter
	Rows     []Row
	Counts   model.Stats
	Empty    string // shown instead of rows when Rows is empty
	CanClear bool   // offer "clear completed"
}

// Row is one rendered todo. All strings are safe to print to a terminal.
type Row struct {
	ID        model.ID
	Text      string
	Priority  model.Priority
	Completed bool
	Created   string
}

// Render builds the page for the given projection. counts must come from the
// full collection, not the projection.
func Render(visible []model.Todo, counts model.Stats, f model.Filter, now time.Time) Page {
	p := Page{
		Filter:   f,
		Rows:     make([]Row, 0, len(visible)),
		Counts:   counts,
		CanClear: counts.Completed > 0,
	}
	for _, t := range visible {
		p.Rows = append(p.Rows, Row{
			ID:        t.ID,
			Text:      Sanitize(t.Text),
			Priority:  t.Priority,
			Completed: t.Completed,
			Created:   FormatCreated(t.CreatedAt, now),
		})
	}
	if len(p.Rows) == 0 {
		p.Empty = emptyMessage(f)
	}
	return p
}

func emptyMessage(f model.Filter) string {
	switch f {
	case model.FilterActive:
		return "No active todos. Nice work!"
	case model.FilterCompleted:
		return "No completed todos yet."
	default:
		return "No todos yet. Add one to get started!"
	}
}

// escape sequences: CSI (colors, cursor moves) and OSC (titles, hyperlinks)
var ansiRegexp = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)?`)

// Sanitize makes server-supplied text safe to print: escape sequences are
// dropped and remaining control characters become spaces.
func Sanitize(s string) string {
	s = ansiRegexp.ReplaceAllString(s, "")
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

// FormatCreated renders a creation time for display. Times on the same day as
// now show only the clock.
func FormatCreated(ts model.Timestamp, now time.Time) string {
	if ts.Time.IsZero() {
		return Sanitize(ts.Raw)
	}
	t := ts.Time
	if y, m, d := t.Date(); y == now.Year() && m == now.Month() && d == now.Day() {
		return "today " + t.Format("15:04")
	}
	if t.Year() == now.Year() {
		return t.Format("Jan 2 15:04")
	}
	return t.Format("Jan 2 2006 15:04")
}
