// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service defines the interface for task backend operations.
// All REST calls go through this interface; commands and views never
// build HTTP requests themselves.
type Service interface {
	// Login posts credentials and returns the issued bearer token.
	Login(ctx context.Context, creds Credentials) (string, error)

	// Register creates an account. The returned message is informational.
	Register(ctx context.Context, creds Credentials) (string, error)

	// ListTasks returns the caller's tasks in API order.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task and returns the server's copy.
	CreateTask(ctx context.Context, task NewTask) (Task, error)

	// UpdateTask applies a partial update and returns the server's copy.
	UpdateTask(ctx context.Context, id TaskID, update TaskUpdate) (Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, id TaskID) error
}
