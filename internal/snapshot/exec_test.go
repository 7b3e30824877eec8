package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maksimkurb/pbr-lens/internal/routing"
)

// fakeIP writes a shell script standing in for the `ip` binary. The script
// echoes its arguments so tests can assert on the exact invocation.
func fakeIP(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ip")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("writing fake ip script: %v", err)
	}
	return path
}

func TestExecSource_Rules(t *testing.T) {
	bin := fakeIP(t, `echo "args: $@"`)
	source := NewExecSource(bin)

	out, err := source.Rules(routing.V4)
	if err != nil {
		t.Fatalf("Rules(V4) failed: %v", err)
	}
	if out != "args: -4 rule show\n" {
		t.Errorf("Rules(V4) = %q", out)
	}

	out, err = source.Rules(routing.V6)
	if err != nil {
		t.Fatalf("Rules(V6) failed: %v", err)
	}
	if out != "args: -6 rule show\n" {
		t.Errorf("Rules(V6) = %q", out)
	}
}

func TestExecSource_Routes(t *testing.T) {
	bin := fakeIP(t, `echo "args: $@"`)
	source := NewExecSource(bin)

	out, err := source.Routes(routing.V4)
	if err != nil {
		t.Fatalf("Routes(V4) failed: %v", err)
	}
	if out != "args: -4 route show table all\n" {
		t.Errorf("Routes(V4) = %q", out)
	}
}

func TestExecSource_FailureIncludesStderr(t *testing.T) {
	bin := fakeIP(t, `echo "RTNETLINK answers: Operation not permitted" >&2; exit 2`)
	source := NewExecSource(bin)

	_, err := source.Rules(routing.V4)
	if err == nil {
		t.Fatal("Rules succeeded with a failing binary")
	}
	if !strings.Contains(err.Error(), "Operation not permitted") {
		t.Errorf("error %q does not carry the binary's stderr", err)
	}
}

func TestExecSource_MissingBinary(t *testing.T) {
	source := NewExecSource(filepath.Join(t.TempDir(), "no-such-ip"))
	if _, err := source.Rules(routing.V4); err == nil {
		t.Fatal("Rules succeeded with a missing binary")
	}
}
