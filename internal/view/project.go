// Package view turns cached todos into what the user sees. Everything here is
// pure: no I/O, no access to the cache itself.
package view

import "github.com/Makepad-fr/tada/internal/model"

// Project returns the todos visible under f, in cache order.
func Project(todos []model.Todo, f model.Filter) []model.Todo {
	if f != model.FilterActive && f != model.FilterCompleted {
		out := make([]model.Todo, len(todos))
		copy(out, todos)
		return out
	}
	out := make([]model.Todo, 0, len(todos))
	for _, t := range todos {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Count tallies the whole collection.
func Count(todos []model.Todo) model.Stats {
	s := model.Stats{
		Total:          len(todos),
		PriorityCounts: make(map[model.Priority]int, 3),
	}
	for _, p := range model.Priorities() {
		s.PriorityCounts[p] = 0
	}
	for _, t := range todos {
		if t.Completed {
			s.Completed++
		} else {
			s.Active++
		}
		s.PriorityCounts[t.Priority]++
	}
	return s
}
