package commands

import (
	"context"

	"github.com/go-kit/kit/log"

	"taskdash/internal/dashboard"
)

// mountController mounts a dashboard controller for a single command run.
// The caller must Unmount it.
func mountController(ctx context.Context, rt *Runtime) (*dashboard.Controller, error) {
	c := newController(rt)
	if err := c.Mount(ctx); err != nil {
		c.Unmount()
		return nil, err
	}
	return c, nil
}

// resolveRef parses args as a task reference against the fetched tasks.
func resolveRef(c *dashboard.Controller, args []string) (TaskRef, error) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return TaskRef{}, err
	}
	task, err := ref.Resolve(c.Tasks())
	if err != nil {
		return TaskRef{}, err
	}
	return TaskRef{ID: task.ID}, nil
}

// newController builds an unmounted controller. Mutation failures are
// already reported on stderr, so its warnings are only logged with --debug.
func newController(rt *Runtime) *dashboard.Controller {
	logger := log.NewNopLogger()
	if rt.Config.Debug {
		logger = rt.logger()
	}
	return dashboard.New(rt.Service, rt.Auth, dashboard.Options{Logger: logger})
}
