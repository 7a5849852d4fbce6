// Package store holds the client-side mirror of the server's todo collection.
//
// The cache only changes in response to confirmed server results. It has no
// method for speculative edits, so a failed request can never leave a trace.
// It is not safe for concurrent use; a single writer owns it.
package store

import "github.com/Makepad-fr/tada/internal/model"

// Cache is an ordered, id-unique list of todos.
type Cache struct {
	todos []model.Todo
	index map[model.ID]int
}

func New() *Cache {
	return &Cache{index: map[model.ID]int{}}
}

// ReplaceAll swaps the whole collection, typically after a list call. When
// the input repeats an id, the last value wins at the first position.
func (c *Cache) ReplaceAll(todos []model.Todo) {
	c.todos = make([]model.Todo, 0, len(todos))
	c.index = make(map[model.ID]int, len(todos))
	for _, t := range todos {
		c.Upsert(t)
	}
}

// Upsert appends t when its id is new, otherwise replaces the existing entry
// in place.
func (c *Cache) Upsert(t model.Todo) {
	if c.index == nil {
		c.index = map[model.ID]int{}
	}
	if i, ok := c.index[t.ID]; ok {
		c.todos[i] = t
		return
	}
	c.index[t.ID] = len(c.todos)
	c.todos = append(c.todos, t)
}

// Remove deletes the entry for id. It reports whether one existed.
func (c *Cache) Remove(id model.ID) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.todos = append(c.todos[:i], c.todos[i+1:]...)
	c.reindex()
	return true
}

// RemoveWhere deletes every entry matching pred, keeping the order of the
// rest, and returns how many were removed.
func (c *Cache) RemoveWhere(pred func(model.Todo) bool) int {
	kept := c.todos[:0]
	for _, t := range c.todos {
		if !pred(t) {
			kept = append(kept, t)
		}
	}
	removed := len(c.todos) - len(kept)
	// clear the tail so dropped records are not retained by the backing array
	for i := len(kept); i < len(c.todos); i++ {
		c.todos[i] = model.Todo{}
	}
	c.todos = kept
	if removed > 0 {
		c.reindex()
	}
	return removed
}

// Get returns the entry for id.
func (c *Cache) Get(id model.ID) (model.Todo, bool) {
	i, ok := c.index[id]
	if !ok {
		return model.Todo{}, false
	}
	return c.todos[i], true
}

// All returns a copy of the collection in order.
func (c *Cache) All() []model.Todo {
	out := make([]model.Todo, len(c.todos))
	copy(out, c.todos)
	return out
}

func (c *Cache) Len() int { return len(c.todos) }

func (c *Cache) reindex() {
	clear(c.index)
	for i, t := range c.todos {
		c.index[t.ID] = i
	}
}
