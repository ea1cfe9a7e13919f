package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskdash/internal/account"
	"taskdash/internal/exitcode"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	username string
	password string
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Log in and store the token" }
func (c *LoginCmd) Usage() string      { return "taskdash login [--username <name>] [--password <password>]" }
func (c *LoginCmd) NeedsSession() bool { return true }
func (c *LoginCmd) NeedsAuth() bool    { return false }

func (c *LoginCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.username, "username", "u", "", "")
	fs.StringVarP(&c.password, "password", "p", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, rt *Runtime, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	creds, err := readCredentials(rt, errOut, c.username, c.password)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if err := account.Login(ctx, rt.Service, rt.Auth, creds, rt.logger()); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", account.Message(err))
		return exitcode.AuthError
	}

	if !rt.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
