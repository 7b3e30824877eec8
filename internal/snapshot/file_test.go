package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maksimkurb/pbr-lens/internal/routing"
)

func writeDump(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, RulesV4File, "0:\tfrom all lookup local\n32766:\tfrom all lookup main\n")
	writeDump(t, dir, RoutesV4File, "192.25.25.0/24 dev eth1 proto kernel scope link\n")
	writeDump(t, dir, RulesV6File, "0:\tfrom all lookup local\n")

	source := NewFileSource(dir)

	rules, err := source.Rules(routing.V4)
	if err != nil {
		t.Fatalf("Rules(V4) failed: %v", err)
	}
	if rules != "0:\tfrom all lookup local\n32766:\tfrom all lookup main\n" {
		t.Errorf("Rules(V4) = %q", rules)
	}

	routes, err := source.Routes(routing.V4)
	if err != nil {
		t.Fatalf("Routes(V4) failed: %v", err)
	}
	if routes != "192.25.25.0/24 dev eth1 proto kernel scope link\n" {
		t.Errorf("Routes(V4) = %q", routes)
	}

	// routes.v6 was never written: a missing dump file is an empty blob.
	routes, err = source.Routes(routing.V6)
	if err != nil {
		t.Fatalf("Routes(V6) failed: %v", err)
	}
	if routes != "" {
		t.Errorf("Routes(V6) = %q, want empty", routes)
	}
}

func TestFileSource_MissingDirectoryIsEmpty(t *testing.T) {
	source := NewFileSource(filepath.Join(t.TempDir(), "does-not-exist"))

	rules, err := source.Rules(routing.V4)
	if err != nil {
		t.Fatalf("Rules(V4) failed: %v", err)
	}
	if rules != "" {
		t.Errorf("Rules(V4) = %q, want empty", rules)
	}
}

func TestFileSource_FeedsRouteManager(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, RulesV4File, "0:\tfrom all lookup local\n32766:\tfrom all lookup main\n")
	writeDump(t, dir, RoutesV4File, "192.25.25.0/24 dev eth1 proto kernel scope link\n")

	manager := routing.NewRouteManager(NewFileSource(dir))
	if err := manager.BuildTables(); err != nil {
		t.Fatalf("BuildTables failed: %v", err)
	}

	if got := len(manager.Rules(routing.V4)); got != 2 {
		t.Errorf("parsed %d v4 rules, want 2", got)
	}
	if manager.Tables(routing.V4)["main"] == nil {
		t.Error("main table missing after build")
	}
	if got := len(manager.Rules(routing.V6)); got != 0 {
		t.Errorf("parsed %d v6 rules, want 0", got)
	}
}
