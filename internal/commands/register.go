package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskdash/internal/account"
	"taskdash/internal/backend/restapi"
	"taskdash/internal/exitcode"
)

func init() {
	Register(&RegisterCmd{})
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	username string
	password string
}

func (c *RegisterCmd) Name() string       { return "register" }
func (c *RegisterCmd) Aliases() []string  { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string   { return "Create an account" }
func (c *RegisterCmd) Usage() string      { return "taskdash register [--username <name>] [--password <password>]" }
func (c *RegisterCmd) NeedsSession() bool { return true }
func (c *RegisterCmd) NeedsAuth() bool    { return false }

func (c *RegisterCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.username, "username", "u", "", "")
	fs.StringVarP(&c.password, "password", "p", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, rt *Runtime, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	creds, err := readCredentials(rt, errOut, c.username, c.password)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if err := account.Register(ctx, rt.Service, creds); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", account.RegistrationFailed(err))
		var apiErr *restapi.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			return exitcode.UserError
		}
		return exitcode.BackendError
	}

	if !rt.Config.Quiet {
		fmt.Fprintln(out, account.RegisteredMessage)
	}
	return exitcode.Success
}
