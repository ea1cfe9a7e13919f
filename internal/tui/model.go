// Package tui is the interactive dashboard: login and register screens and
// the task list with filter tabs, add form, toggle, inline edit and delete.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-kit/kit/log"

	"taskdash/internal/account"
	"taskdash/internal/dashboard"
	"taskdash/internal/output"
	"taskdash/internal/service"
	"taskdash/internal/taskview"
)

// refreshInterval re-renders the list so overdue markers follow the clock.
const refreshInterval = 30 * time.Second

// Session is the auth state the dashboard follows and changes.
type Session interface {
	dashboard.Session
	Login(ctx context.Context, token string) error
	Logout(ctx context.Context) error
}

type screen int

const (
	screenLogin screen = iota
	screenRegister
	screenDashboard
)

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeEdit
	modeConfirmDelete
)

// Add form fields, in focus order.
const (
	addTitle = iota
	addDescription
	addDeadline
	addFields
)

type (
	// changedMsg asks for a re-render after the controller changed.
	changedMsg struct{}

	// tokenMsg carries a token change seen by the session.
	tokenMsg struct{ token string }

	authDoneMsg struct {
		register bool
		err      error
	}

	addDoneMsg struct{ err error }
	opDoneMsg  struct{ err error }
	tickMsg    time.Time
)

// Model is the Bubble Tea model of the dashboard. It is only touched on the
// program goroutine; API calls run in commands and report back as messages.
type Model struct {
	ctx     context.Context
	svc     service.Service
	session Session
	ctl     *dashboard.Controller
	logger  log.Logger
	now     func() time.Time

	keys     keyMap
	formKeys formKeys
	help     help.Model
	spinner  spinner.Model
	width    int

	screen   screen
	auth     authForm
	authBusy bool
	authMsg  string
	authOK   bool

	mode      mode
	cursor    int
	add       [addFields]textinput.Model
	addFocus  int
	adding    bool
	editor    textinput.Model
	editID    service.TaskID
	editField dashboard.Field
	deleteID  service.TaskID
	status    string
}

func newModel(ctx context.Context, opts Options, notify func(tea.Msg)) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = cursorStyle

	m := &Model{
		ctx:      ctx,
		svc:      opts.Service,
		session:  opts.Session,
		logger:   logger,
		now:      now,
		keys:     newKeyMap(),
		formKeys: newFormKeys(),
		help:     help.New(),
		spinner:  s,
		auth:     newAuthForm(),
		add:      newAddInputs(),
	}
	m.ctl = dashboard.New(opts.Service, opts.Session, dashboard.Options{
		Logger:   logger,
		OnChange: func() { notify(changedMsg{}) },
	})
	if opts.Session.Current() != "" {
		m.screen = screenDashboard
	}
	return m
}

func newAddInputs() [addFields]textinput.Model {
	var in [addFields]textinput.Model
	for i := range in {
		in[i] = textinput.New()
	}
	in[addTitle].Placeholder = "What needs to be done?"
	in[addTitle].CharLimit = 200
	in[addDescription].Placeholder = "optional"
	in[addDeadline].Placeholder = "YYYY-MM-DD HH:MM"
	in[addDeadline].CharLimit = 32
	return in
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.mount(), m.spinner.Tick, textinput.Blink, tick())
}

func (m *Model) mount() tea.Cmd {
	ctl, ctx := m.ctl, m.ctx
	return func() tea.Msg {
		// A fetch failure is shown through the controller state.
		_ = ctl.Mount(ctx)
		return changedMsg{}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m, tick()

	case changedMsg:
		m.clampCursor()
		return m, nil

	case tokenMsg:
		return m, m.tokenChanged(msg.token)

	case authDoneMsg:
		m.authDone(msg)
		return m, nil

	case addDoneMsg:
		m.addDone(msg.err)
		return m, nil

	case opDoneMsg:
		if msg.err != nil && isLocal(msg.err) {
			m.status = msg.err.Error()
		}
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.screen != screenDashboard {
			return m, m.updateAuth(msg)
		}
		return m, m.updateDashboard(msg)
	}

	return m, m.updateFocused(msg)
}

// updateFocused forwards non-key messages such as cursor blinks to the
// input that has focus.
func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case m.screen != screenDashboard:
		f := &m.auth
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	case m.mode == modeAdd:
		m.add[m.addFocus], cmd = m.add[m.addFocus].Update(msg)
	case m.mode == modeEdit:
		m.editor, cmd = m.editor.Update(msg)
	}
	return cmd
}

func (m *Model) tokenChanged(token string) tea.Cmd {
	if token == "" {
		if m.screen == screenDashboard {
			m.screen = screenLogin
			m.auth = newAuthForm()
			m.authBusy = false
			m.authMsg = ""
		}
		m.mode = modeBrowse
		m.cursor = 0
		m.status = ""
		return textinput.Blink
	}
	if m.screen != screenDashboard {
		m.screen = screenDashboard
		m.authMsg = ""
		m.auth = newAuthForm()
	}
	return nil
}

// Auth screens.

func (m *Model) updateAuth(km tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(km, m.formKeys.Cancel):
		return tea.Quit
	case key.Matches(km, m.formKeys.Switch):
		if m.authBusy {
			return nil
		}
		if m.screen == screenLogin {
			m.screen = screenRegister
		} else {
			m.screen = screenLogin
		}
		m.authMsg = ""
		return nil
	case key.Matches(km, m.formKeys.Submit):
		if !m.auth.lastField() {
			m.auth.move(1)
			return nil
		}
		return m.submitAuth()
	}
	return m.auth.update(km, m.formKeys)
}

func (m *Model) submitAuth() tea.Cmd {
	if m.authBusy {
		return nil
	}
	creds, err := account.Validate(m.auth.credentials())
	if err != nil {
		m.authMsg, m.authOK = err.Error(), false
		if m.screen == screenLogin {
			m.authMsg = account.LoginFailedMessage
		}
		return nil
	}
	m.authBusy = true
	m.authMsg = ""

	ctx, svc, session, logger := m.ctx, m.svc, m.session, m.logger
	if m.screen == screenRegister {
		return func() tea.Msg {
			return authDoneMsg{register: true, err: account.Register(ctx, svc, creds)}
		}
	}
	return func() tea.Msg {
		return authDoneMsg{err: account.Login(ctx, svc, session, creds, logger)}
	}
}

func (m *Model) authDone(msg authDoneMsg) {
	m.authBusy = false
	switch {
	case msg.err != nil && msg.register:
		m.authMsg, m.authOK = account.RegistrationFailed(msg.err), false
	case msg.err != nil:
		m.authMsg, m.authOK = account.Message(msg.err), false
	case msg.register:
		m.screen = screenLogin
		m.authMsg, m.authOK = account.RegisteredMessage, true
		m.auth.inputs[1].Reset()
		if m.auth.focus != 1 {
			m.auth.move(1)
		}
	default:
		m.tokenChanged(m.session.Current())
	}
}

// Dashboard screen.

func (m *Model) updateDashboard(km tea.KeyMsg) tea.Cmd {
	switch m.mode {
	case modeAdd:
		return m.updateAdd(km)
	case modeEdit:
		return m.updateEdit(km)
	case modeConfirmDelete:
		return m.updateConfirm(km)
	}

	m.status = ""
	m.ctl.ClearNotice()
	visible := m.visible()

	switch {
	case key.Matches(km, m.keys.Quit):
		return tea.Quit
	case key.Matches(km, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return nil
	case key.Matches(km, m.keys.Down):
		if m.cursor < len(visible)-1 {
			m.cursor++
		}
		return nil
	case key.Matches(km, m.keys.NextFilter):
		m.shiftFilter(1)
		return nil
	case key.Matches(km, m.keys.PrevFilter):
		m.shiftFilter(-1)
		return nil
	case key.Matches(km, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return nil
	case key.Matches(km, m.keys.Refresh):
		ctl := m.ctl
		return func() tea.Msg {
			_ = ctl.Fetch()
			return changedMsg{}
		}
	case key.Matches(km, m.keys.Logout):
		ctx, session := m.ctx, m.session
		return func() tea.Msg {
			if err := session.Logout(ctx); err != nil {
				return opDoneMsg{err: fmt.Errorf("logout: %w", err)}
			}
			return tokenMsg{}
		}
	case key.Matches(km, m.keys.Add):
		m.mode = modeAdd
		m.focusAdd(addTitle)
		return textinput.Blink
	}

	if m.cursor < 0 || m.cursor >= len(visible) {
		return nil
	}
	task := visible[m.cursor]

	switch {
	case key.Matches(km, m.keys.Toggle):
		return m.run(func(ctl *dashboard.Controller) error {
			_, err := ctl.Toggle(task.ID)
			return err
		})
	case key.Matches(km, m.keys.EditTitle):
		return m.openEdit(task, dashboard.FieldTitle)
	case key.Matches(km, m.keys.EditDesc):
		return m.openEdit(task, dashboard.FieldDescription)
	case key.Matches(km, m.keys.Delete):
		m.mode = modeConfirmDelete
		m.deleteID = task.ID
	}
	return nil
}

// run performs a controller operation off the program goroutine.
func (m *Model) run(fn func(*dashboard.Controller) error) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		return opDoneMsg{err: fn(ctl)}
	}
}

func (m *Model) shiftFilter(delta int) {
	cur := m.ctl.Filter()
	i := 0
	for j, f := range taskview.Filters {
		if f == cur {
			i = j
			break
		}
	}
	n := len(taskview.Filters)
	m.ctl.SetFilter(taskview.Filters[(i+delta+n)%n])
	m.cursor = 0
}

func (m *Model) focusAdd(i int) {
	m.add[m.addFocus].Blur()
	m.addFocus = (i + addFields) % addFields
	m.add[m.addFocus].Focus()
}

func (m *Model) updateAdd(km tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(km, m.formKeys.Cancel):
		m.mode = modeBrowse
		m.status = ""
		m.add[m.addFocus].Blur()
		return nil
	case key.Matches(km, m.formKeys.Next):
		m.focusAdd(m.addFocus + 1)
		return nil
	case key.Matches(km, m.formKeys.Prev):
		m.focusAdd(m.addFocus - 1)
		return nil
	case key.Matches(km, m.formKeys.Submit):
		if m.adding {
			return nil
		}
		m.adding = true
		m.status = ""
		m.ctl.ClearNotice()
		form := dashboard.Form{
			Title:       m.add[addTitle].Value(),
			Description: m.add[addDescription].Value(),
			Deadline:    m.add[addDeadline].Value(),
		}
		ctl := m.ctl
		return func() tea.Msg {
			_, err := ctl.Add(form)
			return addDoneMsg{err: err}
		}
	}
	var cmd tea.Cmd
	m.add[m.addFocus], cmd = m.add[m.addFocus].Update(km)
	return cmd
}

// addDone resets the form after a successful add. On failure the form is
// kept so the user can correct it.
func (m *Model) addDone(err error) {
	m.adding = false
	if err != nil {
		if isLocal(err) {
			m.status = err.Error()
		}
		return
	}
	m.add = newAddInputs()
	m.addFocus = addTitle
	m.mode = modeBrowse
	m.status = ""
	m.clampCursor()
}

func (m *Model) openEdit(task service.Task, field dashboard.Field) tea.Cmd {
	if task.Completed {
		m.status = dashboard.ErrTaskCompleted.Error()
		return nil
	}
	m.editor = textinput.New()
	m.editor.CharLimit = 500
	if field == dashboard.FieldTitle {
		m.editor.SetValue(task.Title)
	} else {
		m.editor.SetValue(task.Description)
	}
	m.editor.CursorEnd()
	m.editor.Focus()
	m.editID, m.editField = task.ID, field
	m.mode = modeEdit
	return textinput.Blink
}

func (m *Model) updateEdit(km tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(km, m.formKeys.Cancel):
		m.mode = modeBrowse
		return nil
	case key.Matches(km, m.formKeys.Submit):
		value := m.editor.Value()
		if m.editField == dashboard.FieldTitle && strings.TrimSpace(value) == "" {
			m.status = dashboard.ErrTitleRequired.Error()
			return nil
		}
		m.mode = modeBrowse
		m.status = ""
		id, field := m.editID, m.editField
		return m.run(func(ctl *dashboard.Controller) error {
			_, err := ctl.Edit(id, field, value)
			return err
		})
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(km)
	return cmd
}

func (m *Model) updateConfirm(km tea.KeyMsg) tea.Cmd {
	m.mode = modeBrowse
	if km.String() != "y" && km.String() != "Y" {
		return nil
	}
	id := m.deleteID
	return m.run(func(ctl *dashboard.Controller) error {
		// The user already confirmed in the dialog.
		_, err := ctl.Delete(id, func(service.Task) bool { return true })
		return err
	})
}

func (m *Model) visible() []service.Task {
	return m.ctl.Visible(m.now())
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// isLocal reports whether err was rejected before reaching the API. API
// failures are shown through the controller notice instead.
func isLocal(err error) bool {
	for _, target := range []error{
		dashboard.ErrTitleRequired,
		dashboard.ErrInvalidDeadline,
		dashboard.ErrTaskNotFound,
		dashboard.ErrTaskCompleted,
		dashboard.ErrBusy,
		dashboard.ErrUnknownField,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Views.

func (m *Model) View() string {
	if m.screen != screenDashboard {
		return m.authView()
	}
	return m.dashboardView()
}

func (m *Model) authView() string {
	var b strings.Builder
	heading := "Login"
	if m.screen == screenRegister {
		heading = "Register"
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n")
	b.WriteString(m.auth.view())
	b.WriteString("\n\n")

	switch {
	case m.authBusy:
		b.WriteString(m.spinner.View() + " Please wait...")
		b.WriteString("\n")
	case m.authMsg != "" && m.authOK:
		b.WriteString(successStyle.Render(m.authMsg))
		b.WriteString("\n")
	case m.authMsg != "":
		b.WriteString(errorStyle.Render(m.authMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{
		m.formKeys.Next, m.formKeys.Submit, m.formKeys.Switch, m.formKeys.Cancel,
	}))
	return b.String()
}

func (m *Model) dashboardView() string {
	now := m.now()
	var b strings.Builder
	b.WriteString(titleStyle.Render("Tasks"))
	b.WriteString("\n")
	b.WriteString(m.tabsView(now))
	b.WriteString("\n\n")

	state, errMsg := m.ctl.State()
	switch state {
	case dashboard.StateLoading:
		b.WriteString(m.spinner.View() + " Loading tasks...\n")
	case dashboard.StateError:
		b.WriteString(errorStyle.Render(errMsg))
		b.WriteString(deadlineStyle.Render("  (r to retry)"))
		b.WriteString("\n")
	default:
		visible := m.ctl.Visible(now)
		if len(visible) == 0 {
			b.WriteString(deadlineStyle.Render(output.NoTasks))
			b.WriteString("\n")
		}
		for i, t := range visible {
			b.WriteString(m.taskView(t, i == m.cursor, now))
		}
	}

	if notice := m.ctl.Notice(); notice != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(notice))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.status))
		b.WriteString("\n")
	}

	switch m.mode {
	case modeAdd:
		b.WriteString(dialogStyle.Render(m.addView()))
		b.WriteString("\n")
	case modeEdit:
		b.WriteString(dialogStyle.Render(m.editView()))
		b.WriteString("\n")
	case modeConfirmDelete:
		b.WriteString(dialogStyle.Render(m.confirmView()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.mode == modeBrowse {
		b.WriteString(m.help.View(m.keys))
	} else {
		b.WriteString(m.help.View(m.formKeys))
	}
	return b.String()
}

func (m *Model) tabsView(now time.Time) string {
	tasks := m.ctl.Tasks()
	active := m.ctl.Filter()
	tabs := make([]string, 0, len(taskview.Filters))
	for _, f := range taskview.Filters {
		label := fmt.Sprintf("%s (%d)", f.Label(), len(taskview.Apply(tasks, f, now)))
		if f == active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) taskView(t service.Task, selected bool, now time.Time) string {
	var b strings.Builder
	if selected {
		b.WriteString(cursorStyle.Render("> "))
	} else {
		b.WriteString("  ")
	}

	line := "[ ] " + output.NormalizeTitle(t.Title)
	if t.Completed {
		line = completedStyle.Render("[x] " + output.NormalizeTitle(t.Title))
	}
	b.WriteString(line)
	if m.ctl.Busy(t.ID) {
		b.WriteString(" ")
		b.WriteString(busyStyle.Render(m.spinner.View()))
	}
	b.WriteString("\n")

	if desc := output.NormalizeText(t.Description); desc != "" {
		b.WriteString("      ")
		b.WriteString(descStyle.Render(desc))
		b.WriteString("\n")
	}
	if t.Deadline != nil {
		style := deadlineStyle
		if taskview.IsOverdue(t.Deadline, t.Completed, now) {
			style = overdueStyle
		}
		b.WriteString("      ")
		b.WriteString(style.Render(output.FormatDeadlineLine(t, now)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) addView() string {
	labels := [addFields]string{"Title", "Description", "Deadline"}
	rows := make([]string, 0, addFields+1)
	rows = append(rows, "New task")
	for i := range m.add {
		rows = append(rows, labelStyle.Render(labels[i])+m.add[i].View())
	}
	if m.adding {
		rows = append(rows, m.spinner.View()+" Saving...")
	}
	return strings.Join(rows, "\n")
}

func (m *Model) editView() string {
	label := "Edit title"
	if m.editField == dashboard.FieldDescription {
		label = "Edit description"
	}
	return label + "\n" + m.editor.View()
}

func (m *Model) confirmView() string {
	title := "this task"
	if t, ok := m.ctl.Task(m.deleteID); ok {
		title = fmt.Sprintf("%q", output.NormalizeTitle(t.Title))
	}
	return fmt.Sprintf("Delete %s? (y/N)", title)
}
