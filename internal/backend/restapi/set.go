package restapi

import (
	"github.com/go-kit/kit/endpoint"

	"taskdash/internal/service"
)

// Set collects one client endpoint per REST operation.
type Set struct {
	LoginEndpoint      endpoint.Endpoint
	RegisterEndpoint   endpoint.Endpoint
	ListTasksEndpoint  endpoint.Endpoint
	CreateTaskEndpoint endpoint.Endpoint
	UpdateTaskEndpoint endpoint.Endpoint
	DeleteTaskEndpoint endpoint.Endpoint
}

var (
	_ endpoint.Failer = LoginResponse{}
	_ endpoint.Failer = RegisterResponse{}
	_ endpoint.Failer = ListTasksResponse{}
	_ endpoint.Failer = TaskResponse{}
	_ endpoint.Failer = DeleteTaskResponse{}
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"-"`
	Err   error  `json:"-"`
}

func (r LoginResponse) Failed() error { return r.Err }

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Message string `json:"-"`
	Err     error  `json:"-"`
}

func (r RegisterResponse) Failed() error { return r.Err }

type ListTasksRequest struct{}

type ListTasksResponse struct {
	Tasks []service.Task
	Err   error
}

func (r ListTasksResponse) Failed() error { return r.Err }

type CreateTaskRequest struct {
	Task service.NewTask
}

// UpdateTaskRequest targets /tasks/{ID}; only Update goes in the body.
type UpdateTaskRequest struct {
	ID     service.TaskID
	Update service.TaskUpdate
}

// TaskResponse is returned by create and update.
type TaskResponse struct {
	Task service.Task
	Err  error
}

func (r TaskResponse) Failed() error { return r.Err }

type DeleteTaskRequest struct {
	ID service.TaskID
}

type DeleteTaskResponse struct {
	Err error
}

func (r DeleteTaskResponse) Failed() error { return r.Err }
