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
	Register(&EditCmd{})
}

// EditCmd implements the edit command.
type EditCmd struct {
	title       string
	description string
	flags       *pflag.FlagSet
}

func (c *EditCmd) Name() string       { return "edit" }
func (c *EditCmd) Aliases() []string  { return nil }
func (c *EditCmd) Synopsis() string   { return "Change a task's title or description" }
func (c *EditCmd) NeedsSession() bool { return true }
func (c *EditCmd) NeedsAuth() bool    { return true }

func (c *EditCmd) Usage() string {
	return "taskdash edit [--title <text>] [--description <text>] <ref>"
}

func (c *EditCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.title, "title", "t", "", "")
	fs.StringVarP(&c.description, "description", "d", "", "")
	c.flags = fs
}

func (c *EditCmd) changed(name string) bool {
	return c.flags != nil && c.flags.Changed(name)
}

func (c *EditCmd) Run(ctx context.Context, rt *Runtime, args []string, out, errOut io.Writer) int {
	if _, err := ParseTaskRef(args); err != nil {
		return reportError(errOut, err)
	}

	type edit struct {
		field dashboard.Field
		value string
	}
	var edits []edit
	if c.changed("title") {
		if strings.TrimSpace(c.title) == "" {
			return reportError(errOut, dashboard.ErrTitleRequired)
		}
		edits = append(edits, edit{dashboard.FieldTitle, c.title})
	}
	if c.changed("description") {
		edits = append(edits, edit{dashboard.FieldDescription, c.description})
	}
	if len(edits) == 0 {
		fmt.Fprintln(errOut, "error: nothing to edit (use --title or --description)")
		return exitcode.UserError
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

	for _, e := range edits {
		if _, err := ctl.Edit(ref.ID, e.field, e.value); err != nil {
			return reportError(errOut, err)
		}
	}

	if !rt.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
