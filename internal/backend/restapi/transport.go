package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"taskdash/internal/service"
)

// AuthHeader returns the Authorization header for a bearer token.
func AuthHeader(token string) http.Header {
	r := &http.Request{Header: make(http.Header)}
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(r)
	return r.Header
}

// setHeaders is applied to every request.
func setHeaders(ctx context.Context, r *http.Request) context.Context {
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	r.Header.Set("X-Request-ID", uuid.NewString())
	return ctx
}

// bearer adds the current token, if any. Without one the request goes out
// unauthenticated and the API answers 401.
func bearer(tokens oauth2.TokenSource) httptransport.RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		tok, err := tokens.Token()
		if err != nil || tok.AccessToken == "" {
			return ctx
		}
		for k, v := range AuthHeader(tok.AccessToken) {
			r.Header[k] = v
		}
		return ctx
	}
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = strings.TrimSuffix(base.Path, "/") + path
	return &next
}

// encodeHTTPGenericRequest JSON-encodes any request to the request body.
func encodeHTTPGenericRequest(_ context.Context, r *http.Request, request interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request); err != nil {
		return err
	}
	r.Body = io.NopCloser(&buf)
	r.ContentLength = int64(buf.Len())
	return nil
}

func encodeHTTPEmptyRequest(_ context.Context, _ *http.Request, _ interface{}) error {
	return nil
}

func encodeHTTPCreateTaskRequest(ctx context.Context, r *http.Request, request interface{}) error {
	req := request.(CreateTaskRequest)
	return encodeHTTPGenericRequest(ctx, r, req.Task)
}

func encodeHTTPUpdateTaskRequest(ctx context.Context, r *http.Request, request interface{}) error {
	req := request.(UpdateTaskRequest)
	r.URL.Path += "/" + string(req.ID)
	return encodeHTTPGenericRequest(ctx, r, req.Update)
}

func encodeHTTPDeleteTaskRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(DeleteTaskRequest)
	r.URL.Path += "/" + string(req.ID)
	return nil
}

// checkStatus splits non-2xx responses in two. 4xx errors travel inside the
// response so they do not trip the circuit breaker; 5xx errors are returned
// from the endpoint and count as failures.
func checkStatus(r *http.Response) (clientErr, serverErr error) {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return nil, nil
	}
	apiErr := decodeAPIError(r)
	if r.StatusCode >= 500 {
		return nil, apiErr
	}
	return apiErr, nil
}

func decodeHTTPLoginResponse(_ context.Context, r *http.Response) (interface{}, error) {
	clientErr, serverErr := checkStatus(r)
	if serverErr != nil {
		return nil, serverErr
	}
	if clientErr != nil {
		return LoginResponse{Err: clientErr}, nil
	}

	var body struct {
		AccessToken string `json:"access_token"`
		Token       string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	token := body.AccessToken
	if token == "" {
		token = body.Token
	}
	if token == "" {
		return LoginResponse{Err: ErrNoToken}, nil
	}
	return LoginResponse{Token: token}, nil
}

func decodeHTTPRegisterResponse(_ context.Context, r *http.Response) (interface{}, error) {
	clientErr, serverErr := checkStatus(r)
	if serverErr != nil {
		return nil, serverErr
	}
	if clientErr != nil {
		return RegisterResponse{Err: clientErr}, nil
	}

	// The success body is not part of the contract; pick up a message if
	// there is one.
	var body struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	data, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(data, &body)
	msg := body.Message
	if msg == "" {
		msg = body.Detail
	}
	return RegisterResponse{Message: msg}, nil
}

func decodeHTTPListTasksResponse(_ context.Context, r *http.Response) (interface{}, error) {
	clientErr, serverErr := checkStatus(r)
	if serverErr != nil {
		return nil, serverErr
	}
	if clientErr != nil {
		return ListTasksResponse{Err: clientErr}, nil
	}

	var tasks []service.Task
	if err := json.NewDecoder(r.Body).Decode(&tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	return ListTasksResponse{Tasks: tasks}, nil
}

func decodeHTTPTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	clientErr, serverErr := checkStatus(r)
	if serverErr != nil {
		return nil, serverErr
	}
	if clientErr != nil {
		return TaskResponse{Err: clientErr}, nil
	}

	var task service.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		return nil, err
	}
	return TaskResponse{Task: task}, nil
}

func decodeHTTPDeleteTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	clientErr, serverErr := checkStatus(r)
	if serverErr != nil {
		return nil, serverErr
	}
	if clientErr != nil {
		return DeleteTaskResponse{Err: clientErr}, nil
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return DeleteTaskResponse{}, nil
}
