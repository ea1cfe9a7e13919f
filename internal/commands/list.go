package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskdash/internal/exitcode"
	"taskdash/internal/output"
	"taskdash/internal/taskview"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
type ListCmd struct {
	filter string
}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List tasks" }
func (c *ListCmd) Usage() string      { return "taskdash list [--filter all|completed|pending|overdue]" }
func (c *ListCmd) NeedsSession() bool { return true }
func (c *ListCmd) NeedsAuth() bool    { return true }

func (c *ListCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.filter, "filter", "f", "all", "")
}

// Run prints matching tasks numbered by their position in the full list,
// so the numbers stay valid refs whatever the filter.
func (c *ListCmd) Run(ctx context.Context, rt *Runtime, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	filter, err := taskview.ParseFilter(c.filter)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	ctl, err := mountController(ctx, rt)
	if err != nil {
		return reportError(errOut, err)
	}
	defer ctl.Unmount()

	now := rt.now()
	ctl.SetFilter(filter)
	tasks := ctl.Tasks()
	visible := ctl.Visible(now)

	if filter != taskview.FilterAll {
		output.FormatFilterHeader(out, filter, len(visible), len(tasks))
	}
	if len(visible) == 0 {
		if !rt.Config.Quiet {
			fmt.Fprintln(out, output.NoTasks)
		}
		return exitcode.Success
	}
	for i, task := range tasks {
		if filter.Match(task, now) {
			output.FormatTask(out, i+1, task, now)
		}
	}
	return exitcode.Success
}
