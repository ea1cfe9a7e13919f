// Package exitcode defines the process exit codes.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError covers bad arguments, empty titles, unknown task refs and
	// declined confirmations.
	UserError = 1

	// AuthError covers missing or rejected credentials and config problems.
	AuthError = 2

	// BackendError covers API, network and local storage failures.
	BackendError = 3
)
