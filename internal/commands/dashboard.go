package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/go-kit/kit/log"
	"github.com/spf13/pflag"

	"taskdash/internal/exitcode"
	"taskdash/internal/tui"
)

func init() {
	Register(&DashboardCmd{})
}

// DashboardCmd opens the interactive dashboard. It starts on the login
// screen when no token is stored, so it does not require one.
type DashboardCmd struct{}

func (c *DashboardCmd) Name() string       { return "dashboard" }
func (c *DashboardCmd) Aliases() []string  { return []string{"ui"} }
func (c *DashboardCmd) Synopsis() string   { return "Open the interactive dashboard" }
func (c *DashboardCmd) Usage() string      { return "taskdash [dashboard]" }
func (c *DashboardCmd) NeedsSession() bool { return true }
func (c *DashboardCmd) NeedsAuth() bool    { return false }

func (c *DashboardCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *DashboardCmd) Run(ctx context.Context, rt *Runtime, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	// Log lines would tear the full-screen view; only --debug asks for them.
	logger := log.NewNopLogger()
	if rt.Config.Debug {
		logger = rt.logger()
	}

	err := tui.Run(ctx, tui.Options{
		Service: rt.Service,
		Session: rt.Auth,
		Logger:  logger,
		Now:     rt.Now,
		In:      rt.In,
		Out:     out,
	})
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
