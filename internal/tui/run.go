package tui

import (
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-kit/kit/log"

	"taskdash/internal/service"
)

// Options configures Run.
type Options struct {
	Service service.Service
	Session Session
	Logger  log.Logger

	// Now is the clock used for overdue markers. Nil means time.Now.
	Now func() time.Time

	// In and Out default to the terminal.
	In  io.Reader
	Out io.Writer
}

// Run shows the dashboard until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	var p *tea.Program
	ready := make(chan struct{})

	// Session and controller callbacks fire on other goroutines and may
	// fire while Update holds the program, so messages are sent async.
	notify := func(msg tea.Msg) {
		go func() {
			<-ready
			p.Send(msg)
		}()
	}

	m := newModel(ctx, opts, notify)

	progOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if opts.In != nil {
		progOpts = append(progOpts, tea.WithInput(opts.In))
	}
	if opts.Out != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Out))
	}
	p = tea.NewProgram(m, progOpts...)
	close(ready)

	unsubscribe := opts.Session.Subscribe(func(token string) {
		notify(tokenMsg{token: token})
	})
	defer unsubscribe()
	defer m.ctl.Unmount()

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}
