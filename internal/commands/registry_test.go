package commands_test

import (
	"testing"

	"taskdash/internal/commands"
)

func TestRegistry_FindByAlias(t *testing.T) {
	r := commands.NewRegistry()
	if err := r.Register(&commands.RmCmd{}); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"rm", "delete"} {
		c, ok := r.Find(name)
		if !ok || c.Name() != "rm" {
			t.Errorf("Find(%q) = %v, %v", name, c, ok)
		}
	}
	if _, ok := r.Find("remove"); ok {
		t.Error("Find(remove) succeeded")
	}
}

func TestRegistry_RejectsClash(t *testing.T) {
	r := commands.NewRegistry()
	if err := r.Register(&commands.DoneCmd{}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&commands.DoneCmd{}); err == nil || err.Error() != "command already registered: done" {
		t.Errorf("duplicate name: %v", err)
	}
	if len(r.All()) != 1 {
		t.Errorf("All() = %d commands after rejected register", len(r.All()))
	}
}

func TestDefaultRegistry_Commands(t *testing.T) {
	want := []string{
		"add", "dashboard", "done", "edit", "help", "list", "login",
		"logout", "register", "rm", "version", "whoami",
	}
	all := commands.DefaultRegistry.All()
	if len(all) != len(want) {
		t.Fatalf("registered %d commands, want %d", len(all), len(want))
	}
	for i, c := range all {
		if c.Name() != want[i] {
			t.Errorf("All()[%d] = %s, want %s", i, c.Name(), want[i])
		}
		if (c.Name() == "help" || c.Name() == "version") == c.NeedsSession() {
			t.Errorf("%s: NeedsSession = %v", c.Name(), c.NeedsSession())
		}
	}
}
