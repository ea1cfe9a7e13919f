package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"taskdash/internal/account"
	"taskdash/internal/service"
)

// promptLine writes label to errOut and reads one line from rt.In.
func promptLine(rt *Runtime, errOut io.Writer, label string) (string, error) {
	fmt.Fprint(errOut, label)
	line, err := rt.lineReader().ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptPassword reads without echo when rt.In is a terminal.
func promptPassword(rt *Runtime, errOut io.Writer, label string) (string, error) {
	f, ok := rt.In.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return promptLine(rt, errOut, label)
	}
	fmt.Fprint(errOut, label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(errOut)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readCredentials fills in whatever the flags left empty by prompting.
func readCredentials(rt *Runtime, errOut io.Writer, username, password string) (service.Credentials, error) {
	var err error
	if username == "" {
		if username, err = promptLine(rt, errOut, "Username: "); err != nil {
			return service.Credentials{}, err
		}
	}
	if strings.TrimSpace(username) == "" {
		return service.Credentials{}, account.ErrUsernameRequired
	}

	if password == "" {
		if password, err = promptPassword(rt, errOut, "Password: "); err != nil {
			return service.Credentials{}, err
		}
	}
	if password == "" {
		return service.Credentials{}, account.ErrPasswordRequired
	}
	return account.Validate(service.Credentials{Username: username, Password: password})
}
