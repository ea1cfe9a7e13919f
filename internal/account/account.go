// Package account runs the login and register flows shared by the
// commands and the interactive dashboard.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"taskdash/internal/backend/restapi"
	"taskdash/internal/service"
)

const (
	// LoginFailedMessage is shown for every login failure. The server's
	// detail is only logged.
	LoginFailedMessage = "Invalid username or password"

	// RegisteredMessage is shown after a successful registration.
	RegisteredMessage = "Registered successfully! You can login now."
)

var (
	// ErrLoginFailed is returned by Login for blank credentials, when the
	// API rejects them or when it answers without a token.
	ErrLoginFailed = errors.New("login failed")

	ErrUsernameRequired = errors.New("username required")
	ErrPasswordRequired = errors.New("password required")
)

// TokenStore receives the token after a successful login.
type TokenStore interface {
	Login(ctx context.Context, token string) error
}

// Validate trims the username and rejects empty fields.
func Validate(creds service.Credentials) (service.Credentials, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" {
		return creds, ErrUsernameRequired
	}
	if creds.Password == "" {
		return creds, ErrPasswordRequired
	}
	return creds, nil
}

// Login posts creds and stores the returned token.
func Login(ctx context.Context, svc service.Service, store TokenStore, creds service.Credentials, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	creds, err := Validate(creds)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	token, err := svc.Login(ctx, creds)
	if err != nil {
		level.Debug(logger).Log("msg", "login failed", "username", creds.Username, "err", err)
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	if err := store.Login(ctx, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	level.Debug(logger).Log("msg", "logged in", "username", creds.Username)
	return nil
}

// Register creates an account.
func Register(ctx context.Context, svc service.Service, creds service.Credentials) error {
	creds, err := Validate(creds)
	if err != nil {
		return err
	}
	_, err = svc.Register(ctx, creds)
	return err
}

// Message renders the user-facing text for a Login or Register error.
func Message(err error) string {
	if errors.Is(err, ErrLoginFailed) {
		return LoginFailedMessage
	}
	return err.Error()
}

// RegistrationFailed renders a registration error with the server's detail
// when there is one.
func RegistrationFailed(err error) string {
	if d := restapi.Detail(err); d != "" {
		return "Registration failed: " + d
	}
	return "Registration failed: " + err.Error()
}
