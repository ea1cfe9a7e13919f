// Package cli builds the taskdash command line on top of the command
// registry and wires each run to its configuration, storage and backend.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"taskdash/internal/auth"
	"taskdash/internal/backend/restapi"
	"taskdash/internal/commands"
	"taskdash/internal/config"
	"taskdash/internal/exitcode"
	"taskdash/internal/localstore"
	"taskdash/internal/service"
)

// defaultCommand runs when no command is given.
const defaultCommand = "dashboard"

// ServiceFactory creates the backend for one run. tokens supplies the
// bearer token for task calls.
type ServiceFactory func(ctx context.Context, cfg *config.Config, tokens oauth2.TokenSource, logger log.Logger) (service.Service, error)

// RESTServiceFactory talks to the REST API at cfg.BaseURL.
func RESTServiceFactory(ctx context.Context, cfg *config.Config, tokens oauth2.TokenSource, logger log.Logger) (service.Service, error) {
	c, err := restapi.New(restapi.Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Tokens:  tokens,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory

	// In is read by prompts and the dashboard. Nil means no input.
	In io.Reader

	// Now overrides the clock for overdue checks.
	Now func() time.Time
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory) *Dispatcher {
	if factory == nil {
		factory = RESTServiceFactory
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// globalFlags are accepted by every command.
type globalFlags struct {
	configDir string
	baseURL   string
	quiet     bool
	debug     bool
}

// usageError marks argument and flag errors reported by the parser.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	code := exitcode.Success
	root := d.rootCommand(out, errOut, &code)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", usageText(err))
		return exitcode.UserError
	}
	return code
}

func (d *Dispatcher) rootCommand(out, errOut io.Writer, code *int) *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:           "taskdash",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &usageError{msg: "unknown command: " + args[0]}
			}
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Fprint(out, commands.HelpText)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&g.configDir, "config", "", "")
	pf.StringVar(&g.baseURL, "base-url", "", "")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "")
	pf.BoolVar(&g.debug, "debug", false, "")

	for _, c := range d.registry.All() {
		cc := d.cobraCommand(c, &g, out, errOut, code)
		if c.Name() == "help" {
			root.SetHelpCommand(cc)
			continue
		}
		root.AddCommand(cc)
	}

	if def, ok := d.registry.Find(defaultCommand); ok {
		def.RegisterFlags(root.Flags())
		root.RunE = func(cmd *cobra.Command, args []string) error {
			*code = d.runCommand(cmd.Context(), def, &g, args, out, errOut)
			return nil
		}
	}
	return root
}

func (d *Dispatcher) cobraCommand(c commands.Command, g *globalFlags, out, errOut io.Writer, code *int) *cobra.Command {
	cc := &cobra.Command{
		Use:           c.Name(),
		Aliases:       c.Aliases(),
		Short:         c.Synopsis(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			*code = d.runCommand(cmd.Context(), c, g, args, out, errOut)
			return nil
		},
	}
	c.RegisterFlags(cc.Flags())
	return cc
}

// runCommand loads configuration and, for commands that need it, opens
// local storage, the auth holder and the backend before running c.
func (d *Dispatcher) runCommand(ctx context.Context, c commands.Command, g *globalFlags, args []string, out, errOut io.Writer) int {
	cfg, err := config.Load(g.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	if g.baseURL != "" {
		cfg.BaseURL = strings.TrimRight(g.baseURL, "/")
	}
	cfg.Quiet = g.quiet
	cfg.Debug = g.debug

	logger := NewLogger(errOut, cfg.Debug)
	rt := &commands.Runtime{
		Config: cfg,
		Logger: logger,
		In:     d.In,
		Now:    d.Now,
	}
	if !c.NeedsSession() {
		return c.Run(ctx, rt, args, out, errOut)
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	store, err := localstore.Open(ctx, cfg.StorePath(), localstore.Options{
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	})
	if err != nil {
		fmt.Fprintf(errOut, "error: open local storage: %v\n", err)
		return exitcode.BackendError
	}
	defer store.Close()

	holder, err := auth.New(ctx, store, logger)
	if err != nil {
		fmt.Fprintf(errOut, "error: read token: %v\n", err)
		return exitcode.BackendError
	}
	defer holder.Close()
	rt.Auth = holder

	if c.NeedsAuth() && !holder.LoggedIn() {
		fmt.Fprintln(errOut, "error: not logged in (run: taskdash login)")
		return exitcode.AuthError
	}

	svc, err := d.factory(ctx, cfg, holder, logger)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	rt.Service = svc

	level.Debug(logger).Log("msg", "running command", "command", c.Name(), "base_url", cfg.BaseURL)
	return c.Run(ctx, rt, args, out, errOut)
}

// usageText normalizes parser errors to the "unknown flag: -x" form.
func usageText(err error) string {
	msg := err.Error()
	var ue *usageError
	if errors.As(err, &ue) {
		msg = ue.msg
	}
	if strings.HasPrefix(msg, "unknown shorthand flag: ") {
		if i := strings.LastIndex(msg, " in "); i >= 0 {
			return "unknown flag: " + msg[i+len(" in "):]
		}
	}
	return msg
}

// NewLogger returns the process logger: logfmt on w, warnings and errors
// only unless debug is set.
func NewLogger(w io.Writer, debug bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	if debug {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowWarn())
}
