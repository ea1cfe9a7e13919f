package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"taskdash/internal/auth"
	"taskdash/internal/exitcode"
	"taskdash/internal/taskview"
)

func init() {
	Register(&WhoamiCmd{})
}

// WhoamiCmd implements the whoami command. It decodes the stored token
// locally and makes no request.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string       { return "whoami" }
func (c *WhoamiCmd) Aliases() []string  { return nil }
func (c *WhoamiCmd) Synopsis() string   { return "Show the logged-in user" }
func (c *WhoamiCmd) Usage() string      { return "taskdash whoami" }
func (c *WhoamiCmd) NeedsSession() bool { return true }
func (c *WhoamiCmd) NeedsAuth() bool    { return true }

func (c *WhoamiCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, rt *Runtime, args []string, out, errOut io.Writer) int {
	claims := auth.ParseClaims(rt.Auth.Current())
	if !claims.JWT {
		fmt.Fprintln(out, "logged in (opaque token)")
		return exitcode.Success
	}

	subject := claims.Subject
	if subject == "" {
		subject = "(unknown)"
	}
	fmt.Fprintf(out, "user: %s\n", subject)

	if claims.ExpiresAt.IsZero() {
		return exitcode.Success
	}
	now := rt.now()
	when := fmt.Sprintf("%s (%s)",
		claims.ExpiresAt.In(now.Location()).Format(taskview.DeadlineLayout),
		humanize.RelTime(claims.ExpiresAt, now, "ago", "from now"))
	if claims.Expired(now) {
		fmt.Fprintf(out, "expired: %s\n", when)
		fmt.Fprintln(errOut, "error: token expired (run: taskdash login)")
		return exitcode.AuthError
	}
	fmt.Fprintf(out, "expires: %s\n", when)
	return exitcode.Success
}
