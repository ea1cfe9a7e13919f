package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"taskdash/internal/dashboard"
	"taskdash/internal/exitcode"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
	deadline    string
}

func (c *AddCmd) Name() string       { return "add" }
func (c *AddCmd) Aliases() []string  { return []string{"create"} }
func (c *AddCmd) Synopsis() string   { return "Create a task" }
func (c *AddCmd) NeedsSession() bool { return true }
func (c *AddCmd) NeedsAuth() bool    { return true }

func (c *AddCmd) Usage() string {
	return "taskdash add [--description <text>] [--deadline <time>] <title...>"
}

func (c *AddCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.description, "description", "d", "", "")
	fs.StringVar(&c.deadline, "deadline", "", "")
}

func (c *AddCmd) Run(ctx context.Context, rt *Runtime, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	ctl := newController(rt)
	ctl.Bind(ctx)
	defer ctl.Unmount()

	task, err := ctl.Add(dashboard.Form{
		Title:       title,
		Description: c.description,
		Deadline:    c.deadline,
	})
	if err != nil {
		return reportError(errOut, err)
	}

	if !rt.Config.Quiet {
		fmt.Fprintf(out, "ok (id:%s)\n", task.ID)
	}
	return exitcode.Success
}
