// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Task represents a single task item as returned by the API.
type Task struct {
	ID          TaskID     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Deadline    *Timestamp `json:"deadline,omitempty"`
	Completed   bool       `json:"completed"`
}

// TaskID is an opaque server-assigned identifier.
// The API may send it as a JSON number or string; it is always kept as text.
type TaskID string

// UnmarshalJSON accepts both numeric and string identifiers.
func (id *TaskID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = TaskID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = TaskID(n.String())
	return nil
}

// MarshalJSON emits numeric identifiers as numbers so the API sees the
// same shape it sent.
func (id TaskID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// NewTask is the payload for creating a task.
type NewTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Deadline    *Timestamp `json:"deadline"`
}

// TaskUpdate is a partial task update. Nil fields are not sent.
type TaskUpdate struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Deadline    *Timestamp `json:"deadline,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
}

// Credentials are the username/password pair posted to the auth endpoints.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Layouts accepted when decoding a deadline. Offset-less layouts are
// interpreted in local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// wireLayout is how deadlines are sent back to the API.
const wireLayout = "2006-01-02T15:04:05"

// Timestamp is a deadline value. A malformed value from the API is kept
// with its raw text and reports !Valid().
type Timestamp struct {
	time.Time
	raw   string
	valid bool
}

// NewTimestamp wraps a time as a valid Timestamp.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t, valid: true}
}

// ParseTimestamp parses s with the accepted layouts. Unparseable input
// yields an invalid Timestamp rather than an error.
func ParseTimestamp(s string) *Timestamp {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &Timestamp{Time: t, raw: s, valid: true}
		}
	}
	return &Timestamp{raw: s}
}

// Valid reports whether the timestamp parsed.
func (t *Timestamp) Valid() bool {
	return t != nil && t.valid
}

// Raw returns the text the timestamp was decoded from, if any.
func (t *Timestamp) Raw() string {
	if t == nil {
		return ""
	}
	return t.raw
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Non-string values are kept as invalid raw text.
		*t = Timestamp{raw: string(b)}
		return nil
	}
	*t = *ParseTimestamp(s)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.valid {
		return json.Marshal(t.raw)
	}
	return json.Marshal(t.Time.In(time.Local).Format(wireLayout))
}
