// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"taskdash/internal/service"
)

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = errors.New("task not found")

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu     sync.RWMutex
	tasks  []service.Task
	nextID int
	calls  []string
	users  map[string]string

	// Token is returned by a successful Login.
	Token string

	// Gate, when set, holds every call until it receives a value, is
	// closed, or the call's context ends.
	Gate chan struct{}

	// Error injection for testing
	LoginErr      error
	RegisterErr   error
	ListTasksErr  error
	CreateTaskErr error
	UpdateTaskErr error
	DeleteTaskErr error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		nextID: 1,
		users:  make(map[string]string),
		Token:  "fake-token",
	}
}

// AddTask adds a task and returns its ID.
func (f *FakeService) AddTask(title string, completed bool, deadline *service.Timestamp) service.TaskID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := service.TaskID(strconv.Itoa(f.nextID))
	f.nextID++
	f.tasks = append(f.tasks, service.Task{
		ID:        id,
		Title:     title,
		Deadline:  deadline,
		Completed: completed,
	})
	return id
}

// AddUser registers credentials accepted by Login.
func (f *FakeService) AddUser(username, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[username] = password
}

// Tasks returns a copy of the stored tasks.
func (f *FakeService) Tasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.Task(nil), f.tasks...)
}

// Calls returns the names of the methods invoked so far, in order.
func (f *FakeService) Calls() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeService) enter(ctx context.Context, name string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	gate := f.Gate
	f.mu.Unlock()

	if gate == nil {
		return ctx.Err()
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, creds service.Credentials) (string, error) {
	if err := f.enter(ctx, "Login"); err != nil {
		return "", err
	}
	if f.LoginErr != nil {
		return "", f.LoginErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if pw, ok := f.users[creds.Username]; !ok || pw != creds.Password {
		return "", errors.New("incorrect username or password")
	}
	return f.Token, nil
}

// Register implements service.Service.
func (f *FakeService) Register(ctx context.Context, creds service.Credentials) (string, error) {
	if err := f.enter(ctx, "Register"); err != nil {
		return "", err
	}
	if f.RegisterErr != nil {
		return "", f.RegisterErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[creds.Username]; ok {
		return "", errors.New("username already registered")
	}
	f.users[creds.Username] = creds.Password
	return fmt.Sprintf("user %s created", creds.Username), nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	if err := f.enter(ctx, "ListTasks"); err != nil {
		return nil, err
	}
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	return f.Tasks(), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	if err := f.enter(ctx, "CreateTask"); err != nil {
		return service.Task{}, err
	}
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	created := service.Task{
		ID:          service.TaskID(strconv.Itoa(f.nextID)),
		Title:       task.Title,
		Description: task.Description,
		Deadline:    task.Deadline,
	}
	f.nextID++
	f.tasks = append(f.tasks, created)
	return created, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id service.TaskID, update service.TaskUpdate) (service.Task, error) {
	if err := f.enter(ctx, "UpdateTask"); err != nil {
		return service.Task{}, err
	}
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.tasks {
		if f.tasks[i].ID != id {
			continue
		}
		t := &f.tasks[i]
		if update.Title != nil {
			t.Title = *update.Title
		}
		if update.Description != nil {
			t.Description = *update.Description
		}
		if update.Deadline != nil {
			t.Deadline = update.Deadline
		}
		if update.Completed != nil {
			t.Completed = *update.Completed
		}
		return *t, nil
	}
	return service.Task{}, ErrNotFound
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id service.TaskID) error {
	if err := f.enter(ctx, "DeleteTask"); err != nil {
		return err
	}
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
