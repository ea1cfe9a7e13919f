// Package restapi implements the service.Service interface against the task
// REST API using go-kit HTTP client endpoints.
package restapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"taskdash/internal/service"
)

const (
	// DefaultTimeout bounds a single API call when Options.Timeout is zero.
	DefaultTimeout = 10 * time.Second

	// breakerTimeout is how long an open breaker waits before probing again.
	breakerTimeout = 30 * time.Second
)

var (
	// ErrTimeout is returned when a call exceeds its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("service unavailable")
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. http://127.0.0.1:8000.
	BaseURL string

	// Timeout bounds each call.
	Timeout time.Duration

	// Tokens supplies the bearer token for task endpoints. May be nil for a
	// client that only logs in or registers.
	Tokens oauth2.TokenSource

	// HTTPClient overrides the default http.Client (for testing).
	HTTPClient *http.Client

	Logger log.Logger
}

// Client implements service.Service over HTTP.
type Client struct {
	set     Set
	timeout time.Duration
}

var _ service.Service = (*Client)(nil)

// New builds the endpoint set for baseURL.
func New(opts Options) (*Client, error) {
	instance := opts.BaseURL
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q has no host", opts.BaseURL)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(100*time.Millisecond), 20))

	options := []httptransport.ClientOption{
		httptransport.SetClient(httpClient),
		httptransport.ClientBefore(setHeaders),
	}
	authOptions := append([]httptransport.ClientOption{}, options...)
	if opts.Tokens != nil {
		authOptions = append(authOptions, httptransport.ClientBefore(bearer(opts.Tokens)))
	}

	wrap := func(name string, e endpoint.Endpoint) endpoint.Endpoint {
		e = limiter(e)
		e = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: breakerTimeout,
		}))(e)
		return LoggingMiddleware(log.With(logger, "method", name))(e)
	}

	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/auth/login"),
			encodeHTTPGenericRequest,
			decodeHTTPLoginResponse,
			options...,
		).Endpoint()
		loginEndpoint = wrap("Login", loginEndpoint)
	}

	var registerEndpoint endpoint.Endpoint
	{
		registerEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/auth/register"),
			encodeHTTPGenericRequest,
			decodeHTTPRegisterResponse,
			options...,
		).Endpoint()
		registerEndpoint = wrap("Register", registerEndpoint)
	}

	var listTasksEndpoint endpoint.Endpoint
	{
		listTasksEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/tasks"),
			encodeHTTPEmptyRequest,
			decodeHTTPListTasksResponse,
			authOptions...,
		).Endpoint()
		listTasksEndpoint = wrap("ListTasks", listTasksEndpoint)
	}

	var createTaskEndpoint endpoint.Endpoint
	{
		createTaskEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/tasks"),
			encodeHTTPCreateTaskRequest,
			decodeHTTPTaskResponse,
			authOptions...,
		).Endpoint()
		createTaskEndpoint = wrap("CreateTask", createTaskEndpoint)
	}

	var updateTaskEndpoint endpoint.Endpoint
	{
		updateTaskEndpoint = httptransport.NewClient(
			"PUT",
			copyURL(u, "/tasks"),
			encodeHTTPUpdateTaskRequest,
			decodeHTTPTaskResponse,
			authOptions...,
		).Endpoint()
		updateTaskEndpoint = wrap("UpdateTask", updateTaskEndpoint)
	}

	var deleteTaskEndpoint endpoint.Endpoint
	{
		deleteTaskEndpoint = httptransport.NewClient(
			"DELETE",
			copyURL(u, "/tasks"),
			encodeHTTPDeleteTaskRequest,
			decodeHTTPDeleteTaskResponse,
			authOptions...,
		).Endpoint()
		deleteTaskEndpoint = wrap("DeleteTask", deleteTaskEndpoint)
	}

	return &Client{
		set: Set{
			LoginEndpoint:      loginEndpoint,
			RegisterEndpoint:   registerEndpoint,
			ListTasksEndpoint:  listTasksEndpoint,
			CreateTaskEndpoint: createTaskEndpoint,
			UpdateTaskEndpoint: updateTaskEndpoint,
			DeleteTaskEndpoint: deleteTaskEndpoint,
		},
		timeout: timeout,
	}, nil
}

// Login posts credentials and returns the issued token.
func (c *Client) Login(ctx context.Context, creds service.Credentials) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.set.LoginEndpoint(ctx, LoginRequest{Username: creds.Username, Password: creds.Password})
	if err != nil {
		return "", wrapError("login", err)
	}
	resp := response.(LoginResponse)
	return resp.Token, resp.Err
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, creds service.Credentials) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.set.RegisterEndpoint(ctx, RegisterRequest{Username: creds.Username, Password: creds.Password})
	if err != nil {
		return "", wrapError("register", err)
	}
	resp := response.(RegisterResponse)
	return resp.Message, resp.Err
}

// ListTasks returns the caller's tasks in API order.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.set.ListTasksEndpoint(ctx, ListTasksRequest{})
	if err != nil {
		return nil, wrapError("list tasks", err)
	}
	resp := response.(ListTasksResponse)
	return resp.Tasks, resp.Err
}

// CreateTask creates a task and returns the server's copy.
func (c *Client) CreateTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.set.CreateTaskEndpoint(ctx, CreateTaskRequest{Task: task})
	if err != nil {
		return service.Task{}, wrapError("create task", err)
	}
	resp := response.(TaskResponse)
	return resp.Task, resp.Err
}

// UpdateTask sends a partial update and returns the server's copy.
func (c *Client) UpdateTask(ctx context.Context, id service.TaskID, update service.TaskUpdate) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.set.UpdateTaskEndpoint(ctx, UpdateTaskRequest{ID: id, Update: update})
	if err != nil {
		return service.Task{}, wrapError("update task", err)
	}
	resp := response.(TaskResponse)
	return resp.Task, resp.Err
}

// DeleteTask deletes a task. Any 2xx body is ignored.
func (c *Client) DeleteTask(ctx context.Context, id service.TaskID) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.set.DeleteTaskEndpoint(ctx, DeleteTaskRequest{ID: id})
	if err != nil {
		return wrapError("delete task", err)
	}
	return response.(DeleteTaskResponse).Err
}

// wrapError maps transport failures to user-facing errors. API errors pass
// through unchanged so their detail is shown as is.
func wrapError(op string, err error) error {
	var apiErr *APIError
	var urlErr *url.Error
	switch {
	case errors.As(err, &apiErr):
		return err
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &urlErr) && urlErr.Timeout():
		return ErrTimeout
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
