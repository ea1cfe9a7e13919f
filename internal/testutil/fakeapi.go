package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"taskdash/internal/service"
)

// FakeAPISecret signs the tokens issued by FakeAPI.
const FakeAPISecret = "fake-api-secret"

// RecordedRequest is a request seen by FakeAPI.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type fakeFailure struct {
	status int
	body   string
}

// FakeAPI is an httptest server implementing the task REST API: bcrypt
// password storage, HS256 bearer tokens and FastAPI-style error bodies.
type FakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string][]byte
	tasks    map[string][]service.Task
	nextID   int
	requests []RecordedRequest
	failures []fakeFailure
}

// NewFakeAPI starts a FakeAPI that is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	a := &FakeAPI{
		users:  make(map[string][]byte),
		tasks:  make(map[string][]service.Task),
		nextID: 1,
	}

	r := mux.NewRouter()
	r.Use(a.record)
	r.HandleFunc("/auth/register", a.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", a.login).Methods(http.MethodPost)
	r.HandleFunc("/tasks", a.authed(a.listTasks)).Methods(http.MethodGet)
	r.HandleFunc("/tasks", a.authed(a.createTask)).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id:[0-9]+}", a.authed(a.updateTask)).Methods(http.MethodPut)
	r.HandleFunc("/tasks/{id:[0-9]+}", a.authed(a.deleteTask)).Methods(http.MethodDelete)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	a.Server = httptest.NewServer(r)
	t.Cleanup(a.Close)
	return a
}

// AddUser registers a user directly.
func (a *FakeAPI) AddUser(username, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[username] = hash
}

// IssueToken returns a valid bearer token for username.
func (a *FakeAPI) IssueToken(username string) string {
	return SignToken(username, time.Now().Add(time.Hour))
}

// SeedTask stores a task for username and returns its assigned ID.
func (a *FakeAPI) SeedTask(username string, t service.Task) service.TaskID {
	a.mu.Lock()
	defer a.mu.Unlock()
	t.ID = service.TaskID(strconv.Itoa(a.nextID))
	a.nextID++
	a.tasks[username] = append(a.tasks[username], t)
	return t.ID
}

// UserTasks returns a copy of username's stored tasks.
func (a *FakeAPI) UserTasks(username string) []service.Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]service.Task(nil), a.tasks[username]...)
}

// FailNext makes the next request answer with status and a raw body.
func (a *FakeAPI) FailNext(status int, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = append(a.failures, fakeFailure{status: status, body: body})
}

// Requests returns every request seen so far.
func (a *FakeAPI) Requests() []RecordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]RecordedRequest(nil), a.requests...)
}

// LastRequest returns the most recent request.
func (a *FakeAPI) LastRequest() RecordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.requests) == 0 {
		return RecordedRequest{}
	}
	return a.requests[len(a.requests)-1]
}

// SignToken returns an HS256 token for username signed with FakeAPISecret.
func SignToken(username string, exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": username,
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte(FakeAPISecret))
	if err != nil {
		panic(err)
	}
	return signed
}

func (a *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		a.mu.Lock()
		a.requests = append(a.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		var fail *fakeFailure
		if len(a.failures) > 0 {
			fail = &a.failures[0]
			a.failures = a.failures[1:]
		}
		a.mu.Unlock()

		if fail != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			io.WriteString(w, fail.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userHandler func(w http.ResponseWriter, r *http.Request, username string)

func (a *FakeAPI) authed(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeDetail(w, http.StatusUnauthorized, "Missing token")
			return
		}
		raw := strings.TrimSpace(header[len("bearer "):])

		token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(FakeAPISecret), nil
		})
		if err != nil || !token.Valid {
			writeDetail(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		claims, _ := token.Claims.(jwt.MapClaims)
		username, _ := claims["sub"].(string)
		if username == "" {
			writeDetail(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		a.mu.Lock()
		_, ok := a.users[username]
		a.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusNotFound, "User not found")
			return
		}
		next(w, r, username)
	}
}

type credentialsBody struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeValidation(w, "body", "Input should be a valid dictionary or object")
		return "", "", false
	}
	if body.Username == nil {
		writeValidation(w, "username", "Field required")
		return "", "", false
	}
	if body.Password == nil {
		writeValidation(w, "password", "Field required")
		return "", "", false
	}
	return *body.Username, *body.Password, true
}

func (a *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	username, password, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	a.mu.Lock()
	_, exists := a.users[username]
	a.mu.Unlock()
	if exists {
		writeDetail(w, http.StatusBadRequest, "Username already taken")
		return
	}
	a.AddUser(username, password)

	a.mu.Lock()
	id := len(a.users)
	a.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "username": username})
}

func (a *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	username, password, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	a.mu.Lock()
	hash, exists := a.users[username]
	a.mu.Unlock()
	if !exists || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": a.IssueToken(username),
		"token_type":   "bearer",
	})
}

// listTasks orders by deadline with missing deadlines first, as the
// backing SQL query does.
func (a *FakeAPI) listTasks(w http.ResponseWriter, _ *http.Request, username string) {
	tasks := a.UserTasks(username)
	sort.SliceStable(tasks, func(i, j int) bool {
		di, dj := tasks[i].Deadline, tasks[j].Deadline
		if di == nil || dj == nil {
			return di == nil && dj != nil
		}
		return di.Before(dj.Time)
	})
	if tasks == nil {
		tasks = []service.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (a *FakeAPI) createTask(w http.ResponseWriter, r *http.Request, username string) {
	var body struct {
		Title       *string            `json:"title"`
		Description string             `json:"description"`
		Deadline    *service.Timestamp `json:"deadline"`
		Completed   bool               `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeValidation(w, "body", "Input should be a valid dictionary or object")
		return
	}
	if body.Title == nil {
		writeValidation(w, "title", "Field required")
		return
	}
	if body.Deadline == nil {
		writeValidation(w, "deadline", "Field required")
		return
	}
	if !body.Deadline.Valid() {
		writeValidation(w, "deadline", "Input should be a valid datetime")
		return
	}

	id := a.SeedTask(username, service.Task{
		Title:       *body.Title,
		Description: body.Description,
		Deadline:    body.Deadline,
		Completed:   body.Completed,
	})
	a.writeTask(w, username, id)
}

func (a *FakeAPI) updateTask(w http.ResponseWriter, r *http.Request, username string) {
	var update service.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeValidation(w, "body", "Input should be a valid dictionary or object")
		return
	}
	if update.Deadline != nil && !update.Deadline.Valid() {
		writeValidation(w, "deadline", "Input should be a valid datetime")
		return
	}
	id := service.TaskID(mux.Vars(r)["id"])

	a.mu.Lock()
	found := false
	for i := range a.tasks[username] {
		t := &a.tasks[username][i]
		if t.ID != id {
			continue
		}
		found = true
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
	}
	a.mu.Unlock()

	if !found {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	a.writeTask(w, username, id)
}

func (a *FakeAPI) deleteTask(w http.ResponseWriter, r *http.Request, username string) {
	id := service.TaskID(mux.Vars(r)["id"])

	a.mu.Lock()
	tasks := a.tasks[username]
	found := false
	for i, t := range tasks {
		if t.ID == id {
			a.tasks[username] = append(tasks[:i], tasks[i+1:]...)
			found = true
			break
		}
	}
	a.mu.Unlock()

	if !found {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *FakeAPI) writeTask(w http.ResponseWriter, username string, id service.TaskID) {
	for _, t := range a.UserTasks(username) {
		if t.ID == id {
			writeJSON(w, http.StatusOK, t)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Task not found")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"detail": []map[string]interface{}{{
			"type": "missing",
			"loc":  []string{"body", field},
			"msg":  msg,
		}},
	})
}
