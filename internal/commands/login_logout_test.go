package commands_test

import (
	"errors"
	"strings"
	"testing"

	"taskdash/internal/account"
	"taskdash/internal/backend/restapi"
	"taskdash/internal/commands"
	"taskdash/internal/exitcode"
	"taskdash/internal/testutil"
)

func TestLoginCommand_Flags(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("alice", "secret")
	rt := newRuntime(t, svc, "", "")

	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, rt, "-u", " alice ", "-p", "secret")
	if code != exitcode.Success || stdout != "ok\n" || stderr != "" {
		t.Fatalf("code = %d stdout = %q stderr = %q", code, stdout, stderr)
	}
	if got := rt.Auth.Current(); got != "fake-token" {
		t.Errorf("token = %q, want fake-token", got)
	}
}

func TestLoginCommand_Prompts(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("alice", "secret")
	rt := newRuntime(t, svc, "", "alice\nsecret\n")

	stdout, stderr, code := runCommand(t, &commands.LoginCmd{}, rt)
	if code != exitcode.Success || stdout != "ok\n" {
		t.Fatalf("code = %d stdout = %q stderr = %q", code, stdout, stderr)
	}
	if stderr != "Username: Password: " {
		t.Errorf("prompts = %q", stderr)
	}
}

func TestLoginCommand_Failure(t *testing.T) {
	tests := []struct {
		name     string
		loginErr error
	}{
		{"wrong password", nil},
		{"server detail", &restapi.APIError{StatusCode: 401, Detail: "Invalid credentials"}},
		{"no token", restapi.ErrNoToken},
		{"server down", errors.New("connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.AddUser("alice", "secret")
			svc.LoginErr = tt.loginErr
			rt := newRuntime(t, svc, "", "")

			_, stderr, code := runCommand(t, &commands.LoginCmd{}, rt, "-u", "alice", "-p", "nope")
			if code != exitcode.AuthError {
				t.Errorf("code = %d, want %d", code, exitcode.AuthError)
			}
			if want := "error: " + account.LoginFailedMessage + "\n"; stderr != want {
				t.Errorf("stderr = %q, want %q", stderr, want)
			}
			if rt.Auth.LoggedIn() {
				t.Error("token stored after failed login")
			}
		})
	}
}

func TestLoginCommand_MissingInput(t *testing.T) {
	tests := []struct {
		input   string
		wantErr string
	}{
		{"", "username required"},
		{"  \n", "username required"},
		{"alice\n\n", "password required"},
	}
	for _, tt := range tests {
		svc := testutil.NewFakeService()
		rt := newRuntime(t, svc, "", tt.input)

		_, stderr, code := runCommand(t, &commands.LoginCmd{}, rt)
		if code != exitcode.UserError {
			t.Errorf("%q: code = %d", tt.input, code)
		}
		if !strings.HasSuffix(stderr, "error: "+tt.wantErr+"\n") {
			t.Errorf("%q: stderr = %q", tt.input, stderr)
		}
		if len(svc.Calls()) != 0 {
			t.Errorf("%q: calls = %v", tt.input, svc.Calls())
		}
	}
}

func TestRegisterCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	rt := newRuntime(t, svc, "", "")

	stdout, stderr, code := runCommand(t, &commands.RegisterCmd{}, rt, "-u", "bob", "-p", "pw")
	if code != exitcode.Success || stderr != "" {
		t.Fatalf("code = %d stderr = %q", code, stderr)
	}
	if stdout != account.RegisteredMessage+"\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if rt.Auth.LoggedIn() {
		t.Error("register must not log in")
	}
}

func TestRegisterCommand_Failure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{
			"taken",
			&restapi.APIError{StatusCode: 400, Detail: "Username already taken"},
			exitcode.UserError,
			"error: Registration failed: Username already taken\n",
		},
		{
			"no detail",
			&restapi.APIError{StatusCode: 500},
			exitcode.BackendError,
			"error: Registration failed: request failed: 500 Internal Server Error\n",
		},
		{
			"network",
			errors.New("connection refused"),
			exitcode.BackendError,
			"error: Registration failed: connection refused\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.RegisterErr = tt.err
			rt := newRuntime(t, svc, "", "")

			_, stderr, code := runCommand(t, &commands.RegisterCmd{}, rt, "-u", "bob", "-p", "pw")
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if stderr != tt.wantErr {
				t.Errorf("stderr = %q, want %q", stderr, tt.wantErr)
			}
		})
	}
}

func TestLogoutCommand(t *testing.T) {
	rt := newRuntime(t, testutil.NewFakeService(), "tok", "")

	stdout, _, code := runCommand(t, &commands.LogoutCmd{}, rt)
	if code != exitcode.Success || stdout != "ok\n" {
		t.Fatalf("code = %d stdout = %q", code, stdout)
	}
	if rt.Auth.LoggedIn() {
		t.Error("still logged in")
	}

	stdout, _, code = runCommand(t, &commands.LogoutCmd{}, rt)
	if code != exitcode.Success || stdout != "not logged in\n" {
		t.Errorf("second logout: code = %d stdout = %q", code, stdout)
	}
}
