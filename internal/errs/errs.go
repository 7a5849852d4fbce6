// Package errs is the failure taxonomy shared by the remote client and the
// orchestration layer. Every failure carries a human-readable message that is
// safe to show to the user.
package errs

import "errors"

// Kind classifies a failure by how the user can recover from it.
type Kind string

const (
	// Validation is bad input, reported locally or by the server. The user
	// corrects it and retries.
	Validation Kind = "validation"
	// NotFound is a stale id, usually deleted elsewhere. Refreshing the list
	// recovers.
	NotFound Kind = "not_found"
	// Transport is a network or server failure. Retrying recovers.
	Transport Kind = "transport"
	// Load is a failure to fetch the collection.
	Load Kind = "load"
)

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP status when the failure came from a response, else 0
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a classified error with a message.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error with a message and cause.
func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the failure kind, defaulting to Transport for unclassified
// errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	return Transport
}

// MessageOf returns the user-facing message. Unclassified errors get a
// generic message so raw transport details never reach the screen.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Something went wrong. Please try again."
}

// StatusOf returns the HTTP status recorded on err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

func IsValidation(err error) bool { return is(err, Validation) }
func IsNotFound(err error) bool   { return is(err, NotFound) }
func IsTransport(err error) bool  { return is(err, Transport) }
func IsLoad(err error) bool       { return is(err, Load) }

func is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
