// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"taskdash/internal/service"
	"taskdash/internal/taskview"
)

const (
	// ListSeparator is the separator line around a filter header.
	ListSeparator = "------------"

	// NoTasks is printed when a filter matches nothing.
	NoTasks = "No tasks found."

	// OverdueTag marks overdue tasks.
	OverdueTag = "(Overdue)"

	// detailIndent lines up description and deadline under the title.
	detailIndent = "          "
)

// FormatTask formats a task entry.
// Format: "{N:>4}  [x] {TITLE}\n", then an indented description line when
// present and an indented deadline line when a deadline is set.
func FormatTask(w io.Writer, num int, task service.Task, now time.Time) {
	check := " "
	if task.Completed {
		check = "x"
	}
	fmt.Fprintf(w, "%4d  [%s] %s\n", num, check, NormalizeTitle(task.Title))

	if desc := NormalizeText(task.Description); desc != "" {
		fmt.Fprintf(w, "%s%s\n", detailIndent, desc)
	}
	if task.Deadline != nil {
		fmt.Fprintf(w, "%s%s\n", detailIndent, FormatDeadlineLine(task, now))
	}
}

// FormatDeadlineLine renders the deadline with its relative time and the
// overdue tag.
func FormatDeadlineLine(task service.Task, now time.Time) string {
	line := taskview.FormatDeadline(task.Deadline)
	if rel := taskview.Relative(task.Deadline, now); rel != "" {
		line += " (" + rel + ")"
	}
	if taskview.IsOverdue(task.Deadline, task.Completed, now) {
		line += " " + OverdueTag
	}
	return line
}

// FormatFilterHeader formats the header above a filtered listing.
func FormatFilterHeader(w io.Writer, f taskview.Filter, shown, total int) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintf(w, "%s (%d of %d)\n", f.Label(), shown, total)
	fmt.Fprintln(w, ListSeparator)
}

// NormalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func NormalizeTitle(title string) string {
	title = NormalizeText(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
