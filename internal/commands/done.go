package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskdash/internal/exitcode"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. It toggles, so running it on a
// completed task reopens it.
type DoneCmd struct{}

func (c *DoneCmd) Name() string       { return "done" }
func (c *DoneCmd) Aliases() []string  { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string   { return "Toggle task completion" }
func (c *DoneCmd) Usage() string      { return "taskdash done <ref>" }
func (c *DoneCmd) NeedsSession() bool { return true }
func (c *DoneCmd) NeedsAuth() bool    { return true }

func (c *DoneCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, rt *Runtime, args []string, out, errOut io.Writer) int {
	if _, err := ParseTaskRef(args); err != nil {
		return reportError(errOut, err)
	}

	ctl, err := mountController(ctx, rt)
	if err != nil {
		return reportError(errOut, err)
	}
	defer ctl.Unmount()

	ref, err := resolveRef(ctl, args)
	if err != nil {
		return reportError(errOut, err)
	}

	task, err := ctl.Toggle(ref.ID)
	if err != nil {
		return reportError(errOut, err)
	}

	if !rt.Config.Quiet {
		if task.Completed {
			fmt.Fprintln(out, "ok (completed)")
		} else {
			fmt.Fprintln(out, "ok (reopened)")
		}
	}
	return exitcode.Success
}
