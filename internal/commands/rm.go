package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"taskdash/internal/exitcode"
	"taskdash/internal/service"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	yes bool
}

func (c *RmCmd) Name() string       { return "rm" }
func (c *RmCmd) Aliases() []string  { return []string{"delete"} }
func (c *RmCmd) Synopsis() string   { return "Delete a task" }
func (c *RmCmd) Usage() string      { return "taskdash rm [--yes] <ref>" }
func (c *RmCmd) NeedsSession() bool { return true }
func (c *RmCmd) NeedsAuth() bool    { return true }

func (c *RmCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.yes, "yes", "y", false, "")
}

func (c *RmCmd) Run(ctx context.Context, rt *Runtime, args []string, out, errOut io.Writer) int {
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

	confirm := func(task service.Task) bool {
		if c.yes {
			return true
		}
		return confirmDelete(rt, task, errOut)
	}
	deleted, err := ctl.Delete(ref.ID, confirm)
	if err != nil {
		return reportError(errOut, err)
	}

	if !rt.Config.Quiet {
		if deleted {
			fmt.Fprintln(out, "ok")
		} else {
			fmt.Fprintln(out, "canceled")
		}
	}
	return exitcode.Success
}

// confirmDelete asks on errOut and reads the answer from rt.In. Anything
// but y or yes declines, including end of input.
func confirmDelete(rt *Runtime, task service.Task, errOut io.Writer) bool {
	fmt.Fprintf(errOut, "Delete %q? [y/N] ", task.Title)
	line, _ := rt.lineReader().ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
