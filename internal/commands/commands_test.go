package commands_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"taskdash/internal/backend/restapi"
	"taskdash/internal/commands"
	"taskdash/internal/exitcode"
	"taskdash/internal/testutil"
)

func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, &commands.Runtime{})

	if code != exitcode.Success || stderr != "" {
		t.Errorf("code = %d stderr = %q", code, stderr)
	}
	if want := "taskdash " + commands.Version + "\n"; stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestHelpCommand(t *testing.T) {
	stdout, _, code := runCommand(t, &commands.HelpCmd{}, &commands.Runtime{})

	if code != exitcode.Success {
		t.Errorf("code = %d", code)
	}
	for _, want := range []string{"Usage:", "taskdash list", "taskdash login", "--base-url"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestListCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Write report", false, nil)
	svc.AddTask("Ship it", true, nil)
	rt := newRuntime(t, svc, "tok", "")

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, rt)
	if code != exitcode.Success || stderr != "" {
		t.Fatalf("code = %d stderr = %q", code, stderr)
	}
	want := "   1  [ ] Write report\n   2  [x] Ship it\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestListCommand_FilterKeepsPositions(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("done first", true, nil)
	svc.AddTask("open second", false, nil)
	rt := newRuntime(t, svc, "tok", "")

	stdout, _, code := runCommand(t, &commands.ListCmd{}, rt, "--filter", "Pending")
	if code != exitcode.Success {
		t.Fatalf("code = %d", code)
	}
	want := "------------\nPending (1 of 2)\n------------\n   2  [ ] open second\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestListCommand_Empty(t *testing.T) {
	rt := newRuntime(t, testutil.NewFakeService(), "tok", "")

	stdout, _, _ := runCommand(t, &commands.ListCmd{}, rt)
	if stdout != "No tasks found.\n" {
		t.Errorf("stdout = %q", stdout)
	}

	rt.Config.Quiet = true
	stdout, _, _ = runCommand(t, &commands.ListCmd{}, rt)
	if stdout != "" {
		t.Errorf("quiet stdout = %q", stdout)
	}
}

func TestListCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		listErr  error
		wantCode int
		wantErr  string
	}{
		{
			name:     "unknown filter",
			args:     []string{"-f", "bogus"},
			wantCode: exitcode.UserError,
			wantErr:  "error: unknown filter: bogus\n",
		},
		{
			name:     "unauthorized",
			listErr:  &restapi.APIError{StatusCode: 401, Detail: "Invalid token"},
			wantCode: exitcode.AuthError,
			wantErr:  "error: Invalid token (run: taskdash login)\n",
		},
		{
			name:     "server error",
			listErr:  &restapi.APIError{StatusCode: 500},
			wantCode: exitcode.BackendError,
			wantErr:  "error: backend error: request failed: 500 Internal Server Error\n",
		},
		{
			name:     "network",
			listErr:  restapi.ErrTimeout,
			wantCode: exitcode.BackendError,
			wantErr:  "error: backend error: request timed out\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.ListTasksErr = tt.listErr
			rt := newRuntime(t, svc, "tok", "")

			stdout, stderr, code := runCommand(t, &commands.ListCmd{}, rt, tt.args...)
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if stderr != tt.wantErr {
				t.Errorf("stderr = %q, want %q", stderr, tt.wantErr)
			}
			if stdout != "" {
				t.Errorf("stdout = %q", stdout)
			}
		})
	}
}

func TestAddCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	rt := newRuntime(t, svc, "tok", "")

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, rt,
		"-d", "two liters", "--deadline", "2030-01-11 09:00", "Buy", "milk")
	if code != exitcode.Success || stderr != "" {
		t.Fatalf("code = %d stderr = %q", code, stderr)
	}
	if stdout != "ok (id:1)\n" {
		t.Errorf("stdout = %q", stdout)
	}

	tasks := svc.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("tasks = %+v", tasks)
	}
	got := tasks[0]
	if got.Title != "Buy milk" || got.Description != "two liters" {
		t.Errorf("task = %+v", got)
	}
	if got.Deadline == nil || got.Deadline.Format("2006-01-02 15:04") != "2030-01-11 09:00" {
		t.Errorf("deadline = %v", got.Deadline)
	}
}

func TestAddCommand_Errors(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		createErr error
		wantCode  int
		wantErr   string
	}{
		{"no title", nil, nil, exitcode.UserError, "error: title required\n"},
		{"blank title", []string{"  "}, nil, exitcode.UserError, "error: title required\n"},
		{"bad deadline", []string{"--deadline", "tomorrow", "x"}, nil, exitcode.UserError, "error: invalid deadline: tomorrow\n"},
		{
			"validation",
			[]string{"x"},
			&restapi.APIError{StatusCode: 422, Detail: "Field required"},
			exitcode.UserError,
			"error: Field required\n",
		},
		{"backend", []string{"x"}, errors.New("connection refused"), exitcode.BackendError, "error: backend error: connection refused\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.CreateTaskErr = tt.createErr
			rt := newRuntime(t, svc, "tok", "")

			_, stderr, code := runCommand(t, &commands.AddCmd{}, rt, tt.args...)
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if stderr != tt.wantErr {
				t.Errorf("stderr = %q, want %q", stderr, tt.wantErr)
			}
		})
	}
}

func TestDoneCommand_Toggles(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", false, nil)
	id := svc.AddTask("b", false, nil)
	rt := newRuntime(t, svc, "tok", "")

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, rt, "2")
	if code != exitcode.Success || stdout != "ok (completed)\n" {
		t.Fatalf("code = %d stdout = %q stderr = %q", code, stdout, stderr)
	}

	stdout, _, code = runCommand(t, &commands.DoneCmd{}, rt, "id:"+string(id))
	if code != exitcode.Success || stdout != "ok (reopened)\n" {
		t.Fatalf("code = %d stdout = %q", code, stdout)
	}
	if svc.Tasks()[1].Completed {
		t.Error("task still completed")
	}
}

func TestDoneCommand_RefErrors(t *testing.T) {
	tests := []struct {
		args    []string
		wantErr string
	}{
		{nil, "error: task reference required\n"},
		{[]string{"3"}, "error: task number out of range: 3\n"},
		{[]string{"0"}, "error: task number out of range: 0\n"},
		{[]string{"abc"}, "error: invalid task reference: abc\n"},
		{[]string{"1", "2"}, "error: unexpected argument: 2\n"},
		{[]string{"id:99"}, "error: task not found: id:99\n"},
	}
	for _, tt := range tests {
		svc := testutil.NewFakeService()
		svc.AddTask("only", false, nil)
		rt := newRuntime(t, svc, "tok", "")

		_, stderr, code := runCommand(t, &commands.DoneCmd{}, rt, tt.args...)
		if code != exitcode.UserError {
			t.Errorf("%v: code = %d", tt.args, code)
		}
		if stderr != tt.wantErr {
			t.Errorf("%v: stderr = %q, want %q", tt.args, stderr, tt.wantErr)
		}
		for _, c := range svc.Calls() {
			if c == "UpdateTask" {
				t.Errorf("%v: UpdateTask called", tt.args)
			}
		}
	}
}

func TestEditCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("old", false, nil)
	rt := newRuntime(t, svc, "tok", "")

	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, rt, "-t", "new", "-d", "", "1")
	if code != exitcode.Success || stdout != "ok\n" {
		t.Fatalf("code = %d stdout = %q stderr = %q", code, stdout, stderr)
	}
	if got := svc.Tasks()[0]; got.Title != "new" {
		t.Errorf("task = %+v", got)
	}
}

func TestEditCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"nothing", []string{"1"}, "error: nothing to edit (use --title or --description)\n"},
		{"blank title", []string{"--title", " ", "1"}, "error: title is required\n"},
		{"completed", []string{"--title", "x", "2"}, "error: completed tasks cannot be edited\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.AddTask("open", false, nil)
			svc.AddTask("closed", true, nil)
			rt := newRuntime(t, svc, "tok", "")

			_, stderr, code := runCommand(t, &commands.EditCmd{}, rt, tt.args...)
			if code != exitcode.UserError {
				t.Errorf("code = %d", code)
			}
			if stderr != tt.wantErr {
				t.Errorf("stderr = %q, want %q", stderr, tt.wantErr)
			}
		})
	}
}

func TestRmCommand(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		input      string
		wantOut    string
		wantPrompt bool
		wantLeft   int
	}{
		{"yes flag", []string{"--yes", "1"}, "", "ok\n", false, 0},
		{"confirmed", []string{"1"}, "y\n", "ok\n", true, 0},
		{"confirmed long", []string{"1"}, "YES\n", "ok\n", true, 0},
		{"declined", []string{"1"}, "n\n", "canceled\n", true, 1},
		{"no input", []string{"1"}, "", "canceled\n", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.AddTask("Pay rent", false, nil)
			rt := newRuntime(t, svc, "tok", tt.input)

			stdout, stderr, code := runCommand(t, &commands.RmCmd{}, rt, tt.args...)
			if code != exitcode.Success {
				t.Fatalf("code = %d stderr = %q", code, stderr)
			}
			if stdout != tt.wantOut {
				t.Errorf("stdout = %q, want %q", stdout, tt.wantOut)
			}
			prompted := stderr == `Delete "Pay rent"? [y/N] `
			if prompted != tt.wantPrompt {
				t.Errorf("stderr = %q", stderr)
			}
			if n := len(svc.Tasks()); n != tt.wantLeft {
				t.Errorf("tasks left = %d, want %d", n, tt.wantLeft)
			}
		})
	}
}

func TestRmCommand_DeleteFails(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("Pay rent", false, nil)
	svc.DeleteTaskErr = &restapi.APIError{StatusCode: 404, Detail: "Task not found"}
	rt := newRuntime(t, svc, "tok", "")

	_, stderr, code := runCommand(t, &commands.RmCmd{}, rt, "-y", "1")
	if code != exitcode.UserError || stderr != "error: Task not found\n" {
		t.Errorf("code = %d stderr = %q", code, stderr)
	}
	if len(svc.Tasks()) != 1 {
		t.Error("task removed despite failure")
	}
}

func TestWhoamiCommand(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantOut  string
		wantCode int
	}{
		{"opaque", "abc123", "logged in (opaque token)\n", exitcode.Success},
		{
			"jwt",
			testutil.SignToken("alice", testNow.Add(2*time.Hour)),
			"user: alice\nexpires: 10 Jan 2030 14:00 (2 hours from now)\n",
			exitcode.Success,
		},
		{
			"expired",
			testutil.SignToken("alice", testNow.Add(-72*time.Hour)),
			"user: alice\nexpired: 07 Jan 2030 12:00 (3 days ago)\n",
			exitcode.AuthError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newRuntime(t, testutil.NewFakeService(), tt.token, "")

			stdout, _, code := runCommand(t, &commands.WhoamiCmd{}, rt)
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if stdout != tt.wantOut {
				t.Errorf("stdout = %q, want %q", stdout, tt.wantOut)
			}
		})
	}
}
