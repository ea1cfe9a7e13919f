// Package commands provides the command interface and implementations.
package commands

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/spf13/pflag"

	"taskdash/internal/auth"
	"taskdash/internal/config"
	"taskdash/internal/service"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsSession returns true if the command uses local storage, the auth
	// holder or the API. Only help and version return false.
	NeedsSession() bool

	// NeedsAuth returns true if the command requires a stored token.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *pflag.FlagSet)

	// Run executes the command.
	// rt.Service and rt.Auth are nil if NeedsSession() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, rt *Runtime, args []string, out, errOut io.Writer) int
}

// Runtime carries what a command runs against.
type Runtime struct {
	Config  *config.Config
	Service service.Service
	Auth    *auth.Holder
	Logger  log.Logger

	// In is read for prompts and confirmations.
	In io.Reader

	// Now is the clock used for overdue checks. Nil means time.Now.
	Now func() time.Time

	reader *bufio.Reader
}

func (rt *Runtime) now() time.Time {
	if rt.Now != nil {
		return rt.Now()
	}
	return time.Now()
}

func (rt *Runtime) logger() log.Logger {
	if rt.Logger == nil {
		return log.NewNopLogger()
	}
	return rt.Logger
}

// lineReader shares one buffered reader across prompts so input read
// ahead by one prompt is not lost to the next.
func (rt *Runtime) lineReader() *bufio.Reader {
	if rt.reader == nil {
		in := rt.In
		if in == nil {
			in = eofReader{}
		}
		rt.reader = bufio.NewReader(in)
	}
	return rt.reader
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
