// Package dashboard holds the task dashboard state: the fetched collection,
// its fetch lifecycle, the active filter and the add form, plus the task
// mutations. Views render from its snapshots and never call the API
// themselves.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"taskdash/internal/backend/restapi"
	"taskdash/internal/service"
	"taskdash/internal/taskview"
)

// FetchFailed is shown when a fetch fails without a server detail.
const FetchFailed = "Failed to fetch tasks"

var (
	// ErrTitleRequired is returned by Add when the title is blank.
	ErrTitleRequired = errors.New("title is required")

	// ErrInvalidDeadline is returned by Add when the deadline does not parse.
	ErrInvalidDeadline = errors.New("invalid deadline")

	// ErrTaskNotFound is returned for an ID not in the collection.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskCompleted is returned when editing a completed task.
	ErrTaskCompleted = errors.New("completed tasks cannot be edited")

	// ErrBusy is returned while another mutation of the same task (or
	// another add) is in flight.
	ErrBusy = errors.New("operation already in progress")

	// ErrUnknownField is returned by ParseField.
	ErrUnknownField = errors.New("unknown field")
)

// State is the fetch lifecycle state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Field is an inline-editable task field.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
)

// ParseField parses an editable field name.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldTitle, FieldDescription:
		return f, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownField, s)
}

// Form is the add-task form. Deadline is free text in any layout
// service.ParseTimestamp accepts; empty means no deadline.
type Form struct {
	Title       string
	Description string
	Deadline    string
}

// Session is the auth state the controller follows.
type Session interface {
	Current() string
	Subscribe(fn func(token string)) func()
}

// Options configures a Controller.
type Options struct {
	Logger log.Logger

	// OnChange is called, outside any lock, after the state changes in a
	// way a view should re-render for. It may be called from any goroutine.
	OnChange func()
}

// Controller owns the dashboard state. All methods are safe for concurrent
// use.
type Controller struct {
	svc      service.Service
	session  Session
	logger   log.Logger
	onChange func()

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	tasks       []service.Task
	state       State
	errMsg      string
	filter      taskview.Filter
	form        Form
	notice      string
	busy        map[service.TaskID]bool
	adding      bool
	fetchSeq    int
}

// New creates an unmounted controller.
func New(svc service.Service, session Session, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		svc:      svc,
		session:  session,
		logger:   logger,
		onChange: opts.OnChange,
		ctx:      ctx,
		cancel:   cancel,
		filter:   taskview.FilterAll,
		busy:     make(map[service.TaskID]bool),
	}
}

// Mount ties the controller to ctx, follows the session and fetches when a
// token is present. The returned error is the initial fetch's.
func (c *Controller) Mount(ctx context.Context) error {
	c.Bind(ctx)

	c.mu.Lock()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.unsubscribe = c.session.Subscribe(c.tokenChanged)
	c.mu.Unlock()

	if c.session.Current() == "" {
		return nil
	}
	return c.Fetch()
}

// Bind ties requests to ctx without following the session or fetching.
// Unmount cancels them as after Mount.
func (c *Controller) Bind(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(ctx)
}

// Unmount stops following the session and cancels every in-flight request.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.cancel()
}

func (c *Controller) tokenChanged(token string) {
	if token == "" {
		c.clear()
		return
	}
	go c.Fetch()
}

// clear drops the collection after logout. A fetch still in flight is
// discarded when it returns.
func (c *Controller) clear() {
	c.mu.Lock()
	c.fetchSeq++
	c.tasks = nil
	c.state = StateIdle
	c.errMsg = ""
	c.mu.Unlock()
	c.changed()
}

// Fetch reloads the collection. Only the latest fetch updates the state.
func (c *Controller) Fetch() error {
	c.mu.Lock()
	ctx := c.ctx
	c.fetchSeq++
	seq := c.fetchSeq
	c.state = StateLoading
	c.errMsg = ""
	c.mu.Unlock()
	c.changed()

	tasks, err := c.svc.ListTasks(ctx)

	c.mu.Lock()
	if seq != c.fetchSeq {
		c.mu.Unlock()
		return err
	}
	if err != nil && ctx.Err() != nil {
		// Unmounted while loading.
		c.state = StateIdle
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.state = StateError
		c.errMsg = fetchErrorMessage(err)
	} else {
		c.tasks = tasks
		c.state = StateIdle
	}
	c.mu.Unlock()
	c.changed()

	if err != nil {
		level.Warn(c.logger).Log("msg", "fetch tasks failed", "err", err)
	}
	return err
}

func fetchErrorMessage(err error) string {
	if d := restapi.Detail(err); d != "" {
		return d
	}
	return FetchFailed
}

// Add creates a task from form. On success the form is reset; on any
// failure it is kept as given.
func (c *Controller) Add(form Form) (service.Task, error) {
	c.mu.Lock()
	c.form = form
	title := strings.TrimSpace(form.Title)
	if title == "" {
		c.mu.Unlock()
		return service.Task{}, ErrTitleRequired
	}
	var deadline *service.Timestamp
	if d := strings.TrimSpace(form.Deadline); d != "" {
		deadline = service.ParseTimestamp(d)
		if !deadline.Valid() {
			c.mu.Unlock()
			return service.Task{}, fmt.Errorf("%w: %s", ErrInvalidDeadline, d)
		}
	}
	if c.adding {
		c.mu.Unlock()
		return service.Task{}, ErrBusy
	}
	c.adding = true
	ctx := c.ctx
	c.mu.Unlock()

	created, err := c.svc.CreateTask(ctx, service.NewTask{
		Title:       title,
		Description: form.Description,
		Deadline:    deadline,
	})

	c.mu.Lock()
	c.adding = false
	if err == nil {
		c.tasks = append(c.tasks, created)
		c.form = Form{}
	}
	c.mu.Unlock()

	if err != nil {
		return service.Task{}, c.fail("add task", err)
	}
	c.changed()
	return created, nil
}

// Toggle flips a task's completion.
func (c *Controller) Toggle(id service.TaskID) (service.Task, error) {
	ctx, task, err := c.begin(id)
	if err != nil {
		return service.Task{}, err
	}
	completed := !task.Completed
	updated, err := c.svc.UpdateTask(ctx, id, service.TaskUpdate{Completed: &completed})
	return c.finishUpdate(id, "update task", updated, err)
}

// Edit sets a text field of an open task. An unchanged value is not sent.
func (c *Controller) Edit(id service.TaskID, field Field, value string) (service.Task, error) {
	var update service.TaskUpdate
	switch field {
	case FieldTitle:
		update.Title = &value
	case FieldDescription:
		update.Description = &value
	default:
		return service.Task{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	c.mu.Lock()
	task, ok := c.find(id)
	if !ok {
		c.mu.Unlock()
		return service.Task{}, ErrTaskNotFound
	}
	if task.Completed {
		c.mu.Unlock()
		return service.Task{}, ErrTaskCompleted
	}
	if (field == FieldTitle && task.Title == value) ||
		(field == FieldDescription && task.Description == value) {
		c.mu.Unlock()
		return task, nil
	}
	c.mu.Unlock()

	ctx, _, err := c.begin(id)
	if err != nil {
		return service.Task{}, err
	}
	updated, err := c.svc.UpdateTask(ctx, id, update)
	return c.finishUpdate(id, "update task", updated, err)
}

// Delete removes a task after confirm approves it. It reports whether the
// task was deleted; a declined confirmation is not an error.
func (c *Controller) Delete(id service.TaskID, confirm func(service.Task) bool) (bool, error) {
	c.mu.Lock()
	task, ok := c.find(id)
	c.mu.Unlock()
	if !ok {
		return false, ErrTaskNotFound
	}
	if confirm != nil && !confirm(task) {
		return false, nil
	}

	ctx, _, err := c.begin(id)
	if err != nil {
		return false, err
	}
	err = c.svc.DeleteTask(ctx, id)

	c.mu.Lock()
	delete(c.busy, id)
	if err == nil {
		for i, t := range c.tasks {
			if t.ID == id {
				c.tasks = append(c.tasks[:i:i], c.tasks[i+1:]...)
				break
			}
		}
	}
	c.mu.Unlock()

	if err != nil {
		return false, c.fail("delete task", err)
	}
	c.changed()
	return true, nil
}

// begin marks id busy and returns the request context and the current task.
func (c *Controller) begin(id service.TaskID) (context.Context, service.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	task, ok := c.find(id)
	if !ok {
		return nil, service.Task{}, ErrTaskNotFound
	}
	if c.busy[id] {
		return nil, service.Task{}, ErrBusy
	}
	c.busy[id] = true
	return c.ctx, task, nil
}

func (c *Controller) finishUpdate(id service.TaskID, op string, updated service.Task, err error) (service.Task, error) {
	c.mu.Lock()
	delete(c.busy, id)
	if err == nil {
		for i := range c.tasks {
			if c.tasks[i].ID == id {
				c.tasks[i] = updated
				break
			}
		}
	}
	c.mu.Unlock()

	if err != nil {
		return service.Task{}, c.fail(op, err)
	}
	c.changed()
	return updated, nil
}

// fail records a mutation failure for the view. The collection is left
// as it was.
func (c *Controller) fail(op string, err error) error {
	level.Warn(c.logger).Log("msg", op+" failed", "err", err)
	c.mu.Lock()
	c.notice = fmt.Sprintf("Failed to %s: %v", op, err)
	c.mu.Unlock()
	c.changed()
	return err
}

// find must be called with c.mu held.
func (c *Controller) find(id service.TaskID) (service.Task, bool) {
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

// State returns the fetch state and, in StateError, its message.
func (c *Controller) State() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.errMsg
}

// Tasks returns a copy of the collection in server order.
func (c *Controller) Tasks() []service.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]service.Task(nil), c.tasks...)
}

// Task returns the task with id.
func (c *Controller) Task(id service.TaskID) (service.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.find(id)
}

// Visible returns the tasks shown under the active filter at now.
func (c *Controller) Visible(now time.Time) []service.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return taskview.Apply(c.tasks, c.filter, now)
}

// Filter returns the active filter.
func (c *Controller) Filter() taskview.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// SetFilter changes the active filter. No request is made.
func (c *Controller) SetFilter(f taskview.Filter) {
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
	c.changed()
}

// Form returns the add form as last submitted, or empty after a
// successful add.
func (c *Controller) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Busy reports whether a mutation of id is in flight.
func (c *Controller) Busy(id service.TaskID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[id]
}

// Notice returns the last mutation failure message.
func (c *Controller) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// ClearNotice dismisses the notice.
func (c *Controller) ClearNotice() {
	c.mu.Lock()
	c.notice = ""
	c.mu.Unlock()
}
