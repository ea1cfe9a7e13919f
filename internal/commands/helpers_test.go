package commands_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"taskdash/internal/auth"
	"taskdash/internal/commands"
	"taskdash/internal/config"
	"taskdash/internal/localstore"
	"taskdash/internal/testutil"
)

var testNow = time.Date(2030, 1, 10, 12, 0, 0, 0, time.UTC)

// newRuntime builds a runtime over svc with a real holder on temporary
// storage. A non-empty token is stored before the runtime is returned.
func newRuntime(t *testing.T, svc *testutil.FakeService, token, input string) *commands.Runtime {
	t.Helper()
	ctx := context.Background()

	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store, err := localstore.Open(ctx, filepath.Join(cfg.Dir, config.StoreFile), localstore.Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	holder, err := auth.New(ctx, store, nil)
	if err != nil {
		t.Fatalf("new holder: %v", err)
	}
	t.Cleanup(holder.Close)
	if token != "" {
		if err := holder.Login(ctx, token); err != nil {
			t.Fatal(err)
		}
	}

	return &commands.Runtime{
		Config:  cfg,
		Service: svc,
		Auth:    holder,
		In:      strings.NewReader(input),
		Now:     func() time.Time { return testNow },
	}
}

// runCommand parses args with the command's own flags and runs it.
func runCommand(t *testing.T, cmd commands.Command, rt *commands.Runtime, args ...string) (stdout, stderr string, code int) {
	t.Helper()

	fs := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}

	var outBuf, errBuf bytes.Buffer
	code = cmd.Run(context.Background(), rt, fs.Args(), &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}
