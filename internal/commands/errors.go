package commands

import (
	"errors"
	"fmt"
	"io"

	"taskdash/internal/backend/restapi"
	"taskdash/internal/dashboard"
	"taskdash/internal/exitcode"
)

// reportError prints err and maps it to an exit code.
func reportError(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, dashboard.ErrTitleRequired),
		errors.Is(err, dashboard.ErrInvalidDeadline),
		errors.Is(err, dashboard.ErrTaskNotFound),
		errors.Is(err, dashboard.ErrTaskCompleted),
		errors.Is(err, dashboard.ErrUnknownField),
		errors.Is(err, dashboard.ErrBusy),
		errors.Is(err, ErrTaskRefRequired),
		errors.Is(err, ErrTaskOutOfRange),
		errors.Is(err, ErrInvalidTaskRef),
		errors.Is(err, ErrUnexpectedArgument):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errors.Is(err, restapi.ErrUnauthorized):
		fmt.Fprintf(errOut, "error: %v (run: taskdash login)\n", err)
		return exitcode.AuthError
	case errors.Is(err, restapi.ErrNotFound):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	var apiErr *restapi.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}
