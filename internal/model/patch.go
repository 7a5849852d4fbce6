package model

import "github.com/Makepad-fr/tada/internal/errs"

// Patch is a partial update. Nil fields are left unchanged by the server and
// omitted from the request body.
type Patch struct {
	Text      *string   `json:"text,omitempty"`
	Priority  *Priority `json:"priority,omitempty"`
	Completed *bool     `json:"completed,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.Text == nil && p.Priority == nil && p.Completed == nil
}

// Validate checks the fields that are set. Text is expected to be normalized
// already.
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return errs.New(errs.Validation, "Nothing to update.")
	}
	if p.Text != nil {
		if _, err := NormalizeText(*p.Text); err != nil {
			return err
		}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return errs.New(errs.Validation, "Priority must be low, medium or high.")
	}
	return nil
}

// Apply returns t with the patch merged in.
func (p Patch) Apply(t Todo) Todo {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

func TextPatch(text string) Patch {
	return Patch{Text: &text}
}

func CompletedPatch(done bool) Patch {
	return Patch{Completed: &done}
}

func PriorityPatch(p Priority) Patch {
	return Patch{Priority: &p}
}
