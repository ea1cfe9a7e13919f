package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskdash/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "taskdash help" }
func (c *HelpCmd) NeedsSession() bool { return false }
func (c *HelpCmd) NeedsAuth() bool    { return false }

func (c *HelpCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, rt *Runtime, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, HelpText)
	return exitcode.Success
}

// HelpText is the full usage summary.
const HelpText = `Usage:
  taskdash                                      Open the interactive dashboard
  taskdash dashboard [common flags]
  taskdash list [common flags] [--filter all|completed|pending|overdue]
  taskdash add [common flags] [--description <text>] [--deadline <time>] <title...>
  taskdash done [common flags] <ref>            Toggle completion
  taskdash edit [common flags] [--title <text>] [--description <text>] <ref>
  taskdash rm [common flags] [--yes] <ref>
  taskdash login [common flags] [--username <name>] [--password <password>]
  taskdash register [common flags] [--username <name>] [--password <password>]
  taskdash logout [common flags]
  taskdash whoami [common flags]
  taskdash help
  taskdash version

A <ref> is a task number from 'taskdash list' or id:<ID>.
Deadlines are local times such as 2025-03-05T14:30 or "2025-03-05 14:30".

Common flags:
  --config <dir>     Override config directory
  --base-url <url>   API address (default http://127.0.0.1:8000)
  --quiet            Suppress informational output
  --debug            Print debug logs to stderr
`
