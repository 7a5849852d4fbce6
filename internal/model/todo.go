// Package model holds the client's view of a todo record as the server
// returns it.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Makepad-fr/tada/internal/errs"
)

// MaxTextLength is the longest todo text accepted, in characters, after
// trimming.
const MaxTextLength = 200

// InvalidTextMessage is shown when text fails local validation.
const InvalidTextMessage = "Please enter a valid todo (1-200 characters)."

// Todo is one task record. Every field is server-owned; the client never
// fills one in on its own.
type Todo struct {
	ID        ID         `json:"id"`
	Text      string     `json:"text"`
	Priority  Priority   `json:"priority"`
	Completed bool       `json:"completed"`
	CreatedAt Timestamp  `json:"created_at"`
	UpdatedAt *Timestamp `json:"updated_at,omitempty"`
}

// NormalizeText trims raw user input and checks its length.
func NormalizeText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(text); n == 0 || n > MaxTextLength {
		return "", errs.New(errs.Validation, InvalidTextMessage)
	}
	return text, nil
}

// ID identifies a todo. Servers may use integers or opaque strings; both
// decode into an ID and integers encode back as JSON numbers.
type ID string

func (id ID) String() string { return string(id) }

func (id ID) numeric() bool {
	if id == "" {
		return false
	}
	n, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == string(id)
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("todo id: %w", err)
	}
	if n == "" {
		return fmt.Errorf("todo id: null")
	}
	*id = ID(n.String())
	return nil
}

// Timestamp is a server timestamp. Raw keeps the server's text so a cached
// record stays a faithful copy; Time is the parsed value, zero when the text
// did not match a known layout.
type Timestamp struct {
	Time time.Time
	Raw  string
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999", // naive isoformat()
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses s with the layouts servers commonly emit.
func ParseTimestamp(s string) Timestamp {
	ts := Timestamp{Raw: s}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			break
		}
	}
	return ts
}

// NewTimestamp wraps t, recording it in RFC 3339 form.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Raw: t.Format(time.RFC3339Nano)}
}

func (ts Timestamp) IsZero() bool { return ts.Raw == "" && ts.Time.IsZero() }

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	switch {
	case ts.Raw != "":
		return json.Marshal(ts.Raw)
	case ts.Time.IsZero():
		return []byte("null"), nil
	default:
		return json.Marshal(ts.Time.Format(time.RFC3339Nano))
	}
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		*ts = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*ts = ParseTimestamp(s)
	return nil
}
