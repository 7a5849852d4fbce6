package app

import "github.com/Makepad-fr/tada/internal/errs"

// Level is the tone of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notification is a transient message for the user.
type Notification struct {
	Level   Level
	Title   string
	Message string
}

// Notifier presents notifications. It is called after an operation settles,
// never while a request is in flight.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// ConfirmFunc is a synchronous yes/no gate. It returns true to proceed.
type ConfirmFunc func(prompt string) bool

func failureNotice(err error) Notification {
	title := "Error"
	switch errs.KindOf(err) {
	case errs.Validation:
		title = "Invalid Input"
	case errs.NotFound:
		title = "Not Found"
	}
	return Notification{Level: LevelError, Title: title, Message: errs.MessageOf(err)}
}
