package account_test

import (
	"context"
	"errors"
	"testing"

	"taskdash/internal/account"
	"taskdash/internal/service"
	"taskdash/internal/testutil"
)

type tokenStore struct{ token string }

func (s *tokenStore) Login(_ context.Context, token string) error {
	s.token = token
	return nil
}

func TestLogin_FailuresShowFixedMessage(t *testing.T) {
	tests := []struct {
		name  string
		creds service.Credentials
		calls int
	}{
		{"blank username", service.Credentials{Username: "  ", Password: "secret"}, 0},
		{"blank password", service.Credentials{Username: "alice"}, 0},
		{"wrong password", service.Credentials{Username: "alice", Password: "nope"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.Token = "tok"
			store := &tokenStore{}

			err := account.Login(context.Background(), svc, store, tt.creds, nil)
			if !errors.Is(err, account.ErrLoginFailed) {
				t.Fatalf("err = %v, want ErrLoginFailed", err)
			}
			if got := account.Message(err); got != account.LoginFailedMessage {
				t.Errorf("message = %q", got)
			}
			if n := len(svc.Calls()); n != tt.calls {
				t.Errorf("calls = %v, want %d", svc.Calls(), tt.calls)
			}
			if store.token != "" {
				t.Errorf("token stored on failure: %q", store.token)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	creds, err := account.Validate(service.Credentials{Username: " alice ", Password: "pw"})
	if err != nil || creds.Username != "alice" {
		t.Fatalf("got %+v, %v", creds, err)
	}
	if _, err := account.Validate(service.Credentials{Password: "pw"}); !errors.Is(err, account.ErrUsernameRequired) {
		t.Errorf("err = %v", err)
	}
	if _, err := account.Validate(service.Credentials{Username: "alice"}); !errors.Is(err, account.ErrPasswordRequired) {
		t.Errorf("err = %v", err)
	}
}
