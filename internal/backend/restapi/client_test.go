package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"taskdash/internal/service"
	"taskdash/internal/testutil"
)

func newClient(t *testing.T, baseURL string, tokens oauth2.TokenSource) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: baseURL, Tokens: tokens, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func staticToken(tok string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok})
}

func TestLogin_ReturnsAccessToken(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("alice", "secret")
	c := newClient(t, api.URL, nil)

	token, err := c.Login(context.Background(), service.Credentials{Username: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token == "" {
		t.Fatal("Login() returned empty token")
	}

	req := api.LastRequest()
	if req.Method != http.MethodPost || req.Path != "/auth/login" {
		t.Errorf("request = %s %s, want POST /auth/login", req.Method, req.Path)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if req.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
	if got := req.Header.Get("Authorization"); got != "" {
		t.Errorf("Authorization = %q on login, want none", got)
	}

	var body map[string]string
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["username"] != "alice" || body["password"] != "secret" {
		t.Errorf("body = %v", body)
	}
}

func TestLogin_TokenFieldFallback(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{"access_token", `{"access_token":"a1","token":"t1"}`, "a1", nil},
		{"token", `{"token":"t1"}`, "t1", nil},
		{"neither", `{"token_type":"bearer"}`, "", ErrNoToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := testutil.NewFakeAPI(t)
			api.FailNext(http.StatusOK, tt.body)
			c := newClient(t, api.URL, nil)

			got, err := c.Login(context.Background(), service.Credentials{Username: "u", Password: "p"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Login() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("alice", "secret")
	c := newClient(t, api.URL, nil)

	_, err := c.Login(context.Background(), service.Credentials{Username: "alice", Password: "wrong"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
	}
	if got := Detail(err); got != "Invalid credentials" {
		t.Errorf("Detail() = %q, want %q", got, "Invalid credentials")
	}
}

func TestRegister(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	c := newClient(t, api.URL, nil)
	creds := service.Credentials{Username: "bob", Password: "pw"}

	if _, err := c.Register(context.Background(), creds); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := c.Login(context.Background(), creds); err != nil {
		t.Fatalf("Login() after Register error = %v", err)
	}

	_, err := c.Register(context.Background(), creds)
	if err == nil {
		t.Fatal("second Register() succeeded, want error")
	}
	if err.Error() != "Username already taken" {
		t.Errorf("error = %q, want detail text", err)
	}
}

func TestTasks_CRUDWithBearer(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("alice", "secret")
	token := api.IssueToken("alice")
	c := newClient(t, api.URL, staticToken(token))
	ctx := context.Background()

	deadline := time.Date(2030, 1, 2, 9, 30, 0, 0, time.Local)
	created, err := c.CreateTask(ctx, service.NewTask{
		Title:       "Write report",
		Description: "quarterly",
		Deadline:    service.NewTimestamp(deadline),
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if created.ID == "" || created.Title != "Write report" || created.Completed {
		t.Errorf("CreateTask() = %+v", created)
	}
	if !created.Deadline.Valid() || !created.Deadline.Equal(deadline) {
		t.Errorf("deadline = %v, want %v", created.Deadline, deadline)
	}

	req := api.LastRequest()
	if got, want := req.Header.Get("Authorization"), "Bearer "+token; got != want {
		t.Errorf("Authorization = %q, want %q", got, want)
	}
	if !strings.Contains(string(req.Body), `"deadline":"2030-01-02T09:30:00"`) {
		t.Errorf("create body = %s, want local deadline", req.Body)
	}

	done := true
	updated, err := c.UpdateTask(ctx, created.ID, service.TaskUpdate{Completed: &done})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if !updated.Completed {
		t.Error("UpdateTask() did not complete the task")
	}
	req = api.LastRequest()
	if req.Method != http.MethodPut || req.Path != "/tasks/"+string(created.ID) {
		t.Errorf("request = %s %s", req.Method, req.Path)
	}
	if got := strings.TrimSpace(string(req.Body)); got != `{"completed":true}` {
		t.Errorf("update body = %s, want only completed", got)
	}

	tasks, err := c.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != created.ID || !tasks[0].Completed {
		t.Errorf("ListTasks() = %+v", tasks)
	}

	if err := c.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	tasks, err = c.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("ListTasks() after delete = %+v, want empty", tasks)
	}
}

func TestListTasks_OrderedByDeadline(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("alice", "secret")
	later := time.Date(2030, 5, 1, 0, 0, 0, 0, time.Local)
	sooner := time.Date(2030, 1, 1, 0, 0, 0, 0, time.Local)
	api.SeedTask("alice", service.Task{Title: "later", Deadline: service.NewTimestamp(later)})
	api.SeedTask("alice", service.Task{Title: "sooner", Deadline: service.NewTimestamp(sooner)})
	api.SeedTask("bob", service.Task{Title: "not mine"})

	c := newClient(t, api.URL, staticToken(api.IssueToken("alice")))
	tasks, err := c.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	if got := strings.Join(titles, ","); got != "sooner,later" {
		t.Errorf("titles = %s, want sooner,later", got)
	}
}

func TestTasks_WithoutTokenIsUnauthorized(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	c := newClient(t, api.URL, oauth2.StaticTokenSource(&oauth2.Token{}))

	_, err := c.ListTasks(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("ListTasks() error = %v, want ErrUnauthorized", err)
	}
	if got := api.LastRequest().Header.Get("Authorization"); got != "" {
		t.Errorf("Authorization = %q, want none", got)
	}
}

func TestUpdateTask_NotFound(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("alice", "secret")
	c := newClient(t, api.URL, staticToken(api.IssueToken("alice")))

	title := "x"
	_, err := c.UpdateTask(context.Background(), "42", service.TaskUpdate{Title: &title})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateTask() error = %v, want ErrNotFound", err)
	}
	if err.Error() != "Task not found" {
		t.Errorf("error = %q", err)
	}
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"string", 400, `{"detail":"Bad thing"}`, "Bad thing"},
		{"list", 422, `{"detail":[{"msg":"Field required"},{"msg":"Too short"}]}`, "Field required; Too short"},
		{"object", 400, `{"detail":{"code":7}}`, `{"code":7}`},
		{"no body", 400, ``, "request failed: 400 Bad Request"},
		{"not json", 502, `<html>bad gateway</html>`, "request failed: 502 Bad Gateway"},
		{"server detail", 500, `{"detail":"db down"}`, "db down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := testutil.NewFakeAPI(t)
			api.FailNext(tt.status, tt.body)
			c := newClient(t, api.URL, staticToken("x"))

			_, err := c.ListTasks(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestCreateTask_ValidationErrorFromAPI(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("alice", "secret")
	c := newClient(t, api.URL, staticToken(api.IssueToken("alice")))

	_, err := c.CreateTask(context.Background(), service.NewTask{Title: "no deadline"})
	if err == nil {
		t.Fatal("CreateTask() succeeded, want validation error")
	}
	if got := Detail(err); got != "Field required" {
		t.Errorf("Detail() = %q, want %q", got, "Field required")
	}
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = c.ListTasks(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("ListTasks() error = %v, want ErrTimeout", err)
	}
	if err.Error() != "request timed out" {
		t.Errorf("Error() = %q", err)
	}
}

func TestCanceledContextIsNotATimeout(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	c := newClient(t, api.URL, staticToken("x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListTasks(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ListTasks() error = %v, want context.Canceled", err)
	}
}

func TestBaseURLWithPathPrefix(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/api/", staticToken("x"))
	if _, err := c.ListTasks(context.Background()); err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if gotPath != "/api/tasks" {
		t.Errorf("path = %q, want /api/tasks", gotPath)
	}
}

func TestNew_InvalidBaseURL(t *testing.T) {
	if _, err := New(Options{BaseURL: "http://"}); err == nil {
		t.Error("New() with empty host succeeded, want error")
	}
}

func TestAuthHeader(t *testing.T) {
	h := AuthHeader("abc.def")
	if got := h.Get("Authorization"); got != "Bearer abc.def" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer abc.def")
	}
}
