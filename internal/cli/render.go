package cli

import (
	"fmt"
	"strings"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
	"github.com/Makepad-fr/tada/internal/view"
)

const textWidth = 60

func listLines(page view.Page, group bool) []string {
	t := ui.Current()
	c := page.Counts

	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(t.Title, "Todos"),
		ui.C(t.Success, t.SymDone), c.Completed,
		ui.C(t.Pending, t.SymUnchecked), c.Active,
		ui.C(t.Accent, "Total"), c.Total,
	)
	if page.Filter != model.FilterAll {
		header += "  " + ui.C(t.Muted, "("+string(page.Filter)+")")
	}

	lines := []string{
		header,
		ui.C(t.Muted, ui.ProgressBar(c.Completed, c.Total, 28)),
		"",
	}
	switch {
	case len(page.Rows) == 0:
		lines = append(lines, ui.C(t.Muted, page.Empty))
	case group && page.Filter == model.FilterAll:
		lines = append(lines, groupLines(page.Rows)...)
	default:
		lines = append(lines, rowLines(page.Rows)...)
	}
	lines = append(lines, "")
	if page.CanClear {
		lines = append(lines, ui.C(t.Muted, "Tip: remove finished todos with `todo clear`"))
	} else {
		lines = append(lines, ui.C(t.Muted, "Tip: add with `todo add \"Buy milk\"`"))
	}
	return lines
}

func rowLines(rows []view.Row) []string {
	t := ui.Current()
	idWidth := 2
	for _, r := range rows {
		if n := len(r.ID.String()); n > idWidth {
			idWidth = n
		}
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		box, color := t.BoxUnchecked, t.Muted
		if r.Completed {
			box, color = t.BoxChecked, t.Success
		}
		out = append(out, fmt.Sprintf("%s %s %s %s  %s",
			ui.C(t.Muted, fmt.Sprintf("%*s.", idWidth, r.ID)),
			ui.C(color, box),
			ui.C(ui.PriorityColor(string(r.Priority)), fmt.Sprintf("%-6s", r.Priority)),
			ui.Truncate(r.Text, textWidth),
			ui.C(t.Muted, r.Created),
		))
	}
	return out
}

func groupLines(rows []view.Row) []string {
	var active, done []view.Row
	for _, r := range rows {
		if r.Completed {
			done = append(done, r)
		} else {
			active = append(active, r)
		}
	}
	var lines []string
	lines = append(lines, ui.C(ui.Current().Accent, "Active"))
	if len(active) == 0 {
		lines = append(lines, ui.C(ui.Current().Muted, "(none)"))
	} else {
		lines = append(lines, rowLines(active)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(ui.Current().Accent, "Completed"))
	if len(done) == 0 {
		lines = append(lines, ui.C(ui.Current().Muted, "(none)"))
	} else {
		lines = append(lines, rowLines(done)...)
	}
	return lines
}

func statsLines(st model.Stats) []string {
	t := ui.Current()
	lines := []string{
		ui.C(t.Title, "Stats"),
		ui.C(t.Muted, ui.ProgressBar(st.Completed, st.Total, 28)),
		"",
		fmt.Sprintf("%-10s %d", "Total", st.Total),
		fmt.Sprintf("%-10s %d", "Active", st.Active),
		fmt.Sprintf("%-10s %d", "Completed", st.Completed),
	}
	if len(st.PriorityCounts) > 0 {
		lines = append(lines, "")
		for _, p := range model.Priorities() {
			label := strings.ToUpper(string(p[:1])) + string(p[1:])
			lines = append(lines, fmt.Sprintf("%s %d",
				ui.C(ui.PriorityColor(string(p)), fmt.Sprintf("%-10s", label)),
				st.PriorityCounts[p]))
		}
	}
	return lines
}
