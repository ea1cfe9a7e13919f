// Package taskview holds the pure, stateless task presentation helpers
// shared by the line output and the interactive dashboard.
package taskview

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"taskdash/internal/service"
)

const (
	// NoDeadline is shown for tasks without a deadline.
	NoDeadline = "No deadline"

	// InvalidDate is shown for deadlines the API sent in an unreadable form.
	InvalidDate = "Invalid Date"

	// DeadlineLayout renders deadlines as "05 Mar 2025 14:30".
	DeadlineLayout = "02 Jan 2006 15:04"
)

// IsOverdue reports whether a task with this deadline and completion flag
// is past due at now. Completed tasks, missing deadlines and unreadable
// deadlines are never overdue.
func IsOverdue(deadline *service.Timestamp, completed bool, now time.Time) bool {
	if completed || !deadline.Valid() {
		return false
	}
	return deadline.Time.Before(now)
}

// FormatDeadline renders a deadline for display.
func FormatDeadline(deadline *service.Timestamp) string {
	if deadline == nil {
		return NoDeadline
	}
	if !deadline.Valid() {
		return InvalidDate
	}
	return deadline.Time.Format(DeadlineLayout)
}

// Relative renders the deadline relative to now ("3 hours ago").
// It returns "" when there is nothing meaningful to show.
func Relative(deadline *service.Timestamp, now time.Time) string {
	if !deadline.Valid() {
		return ""
	}
	return humanize.RelTime(deadline.Time, now, "ago", "from now")
}

// Filter selects which tasks are displayed. It is view state only.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterCompleted Filter = "completed"
	FilterPending   Filter = "pending"
	FilterOverdue   Filter = "overdue"
)

// Filters lists every filter in display order.
var Filters = []Filter{FilterAll, FilterCompleted, FilterPending, FilterOverdue}

// ParseFilter parses a filter name case-insensitively. Empty means all.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown filter: %s", s)
}

// Label is the capitalized filter name used on buttons and tabs.
func (f Filter) Label() string {
	if f == "" {
		return ""
	}
	return strings.ToUpper(string(f[:1])) + string(f[1:])
}

// Match reports whether task is visible under f at now.
func (f Filter) Match(task service.Task, now time.Time) bool {
	switch f {
	case FilterCompleted:
		return task.Completed
	case FilterPending:
		return !task.Completed && !IsOverdue(task.Deadline, task.Completed, now)
	case FilterOverdue:
		return IsOverdue(task.Deadline, task.Completed, now)
	default:
		return true
	}
}

// Apply returns the tasks visible under f, preserving order. The input
// slice is not modified.
func Apply(tasks []service.Task, f Filter, now time.Time) []service.Task {
	out := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t, now) {
			out = append(out, t)
		}
	}
	return out
}
