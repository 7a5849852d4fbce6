package app

import "github.com/Makepad-fr/tada/internal/model"

// Kind enumerates the user actions the orchestrator understands.
type Kind int

const (
	KindLoad Kind = iota
	KindCreate
	KindToggle
	KindBeginEdit
	KindCancelEdit
	KindEdit
	KindDelete
	KindFilter
	KindClearCompleted
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindCreate:
		return "create"
	case KindToggle:
		return "toggle"
	case KindBeginEdit:
		return "begin-edit"
	case KindCancelEdit:
		return "cancel-edit"
	case KindEdit:
		return "edit"
	case KindDelete:
		return "delete"
	case KindFilter:
		return "filter"
	case KindClearCompleted:
		return "clear-completed"
	}
	return "unknown"
}

// Command is one user action. Build it with the constructors below; only the
// fields relevant to Kind are read.
type Command struct {
	Kind     Kind
	ID       model.ID
	Text     string // raw user input, validated by the orchestrator
	Priority model.Priority
	Filter   model.Filter

	confirmed bool
}

// Confirmed marks a Delete or ClearCompleted as already approved by the user,
// skipping the orchestrator's own confirmation gate.
func (c Command) Confirmed() Command {
	c.confirmed = true
	return c
}

func Load() Command { return Command{Kind: KindLoad} }

func Create(text string, p model.Priority) Command {
	return Command{Kind: KindCreate, Text: text, Priority: p}
}

func Toggle(id model.ID) Command { return Command{Kind: KindToggle, ID: id} }

func BeginEdit(id model.ID) Command { return Command{Kind: KindBeginEdit, ID: id} }

func CancelEdit() Command { return Command{Kind: KindCancelEdit} }

// Edit submits new text and priority for the todo being edited. An empty
// priority keeps the current one.
func Edit(text string, p model.Priority) Command {
	return Command{Kind: KindEdit, Text: text, Priority: p}
}

func Delete(id model.ID) Command { return Command{Kind: KindDelete, ID: id} }

func SetFilter(f model.Filter) Command { return Command{Kind: KindFilter, Filter: f} }

func ClearCompleted() Command { return Command{Kind: KindClearCompleted} }
