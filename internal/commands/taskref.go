package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"taskdash/internal/dashboard"
	"taskdash/internal/service"
)

// IDPrefix marks a reference by server ID rather than position.
const IDPrefix = "id:"

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Position int            // 1-based position in list output; 0 when ID is set
	ID       service.TaskID // server ID from an "id:" reference
}

var (
	// ErrTaskRefRequired indicates no task reference was provided.
	ErrTaskRefRequired = errors.New("task reference required")

	// ErrTaskOutOfRange indicates a position past the end of the list.
	ErrTaskOutOfRange = errors.New("task number out of range")

	// ErrInvalidTaskRef is wrapped by every malformed reference.
	ErrInvalidTaskRef = errors.New("invalid task reference")

	// ErrUnexpectedArgument reports arguments after the reference.
	ErrUnexpectedArgument = errors.New("unexpected argument")
)

// ParseTaskRef parses a task reference from args.
//
// Accepted forms:
//  1. all digits: 1-based position in `list` output (server order)
//  2. id:<ID>: the task's server ID
//
// Extra arguments are an error.
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return TaskRef{}, fmt.Errorf("%w: %s", ErrUnexpectedArgument, args[1])
	}

	arg := args[0]
	if strings.HasPrefix(arg, IDPrefix) {
		id := strings.TrimSpace(strings.TrimPrefix(arg, IDPrefix))
		if id == "" {
			return TaskRef{}, fmt.Errorf("%w: %s", ErrInvalidTaskRef, arg)
		}
		return TaskRef{ID: service.TaskID(id)}, nil
	}

	if !isAllDigits(arg) {
		return TaskRef{}, fmt.Errorf("%w: %s", ErrInvalidTaskRef, arg)
	}
	num, err := strconv.Atoi(arg)
	if err != nil {
		return TaskRef{}, fmt.Errorf("%w: %s", ErrInvalidTaskRef, arg)
	}
	if num < 1 {
		return TaskRef{}, fmt.Errorf("%w: %d", ErrTaskOutOfRange, num)
	}
	return TaskRef{Position: num}, nil
}

// Resolve finds the referenced task in tasks, which must be in server
// order.
func (r TaskRef) Resolve(tasks []service.Task) (service.Task, error) {
	if r.ID != "" {
		for _, t := range tasks {
			if t.ID == r.ID {
				return t, nil
			}
		}
		return service.Task{}, fmt.Errorf("%w: %s%s", dashboard.ErrTaskNotFound, IDPrefix, r.ID)
	}
	if r.Position < 1 || r.Position > len(tasks) {
		return service.Task{}, fmt.Errorf("%w: %d", ErrTaskOutOfRange, r.Position)
	}
	return tasks[r.Position-1], nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
