// Package snapshot acquires the ip(8) state the routing core parses: from
// the live system via the `ip` binary or netlink, or replayed from dump
// files. All three sources speak the same iproute2 line grammar, so the core
// has a single parsing pipeline regardless of where the snapshot came from.
package snapshot

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/maksimkurb/pbr-lens/internal/errors"
	"github.com/maksimkurb/pbr-lens/internal/log"
	"github.com/maksimkurb/pbr-lens/internal/routing"
)

// ExecSource captures snapshots by invoking the `ip` binary. It deliberately
// runs without a timeout: a hung binary is the operator's problem, not this
// tool's.
type ExecSource struct {
	// BinPath overrides the `ip` binary path; empty means $PATH lookup.
	BinPath string
}

// NewExecSource creates a source that shells out to `ip`.
func NewExecSource(binPath string) *ExecSource {
	return &ExecSource{BinPath: binPath}
}

// Rules returns the output of `ip -4|-6 rule show`.
func (s *ExecSource) Rules(family routing.Family) (string, error) {
	return s.run(family, "rule", "show")
}

// Routes returns the output of `ip -4|-6 route show table all`.
func (s *ExecSource) Routes(family routing.Family) (string, error) {
	return s.run(family, "route", "show", "table", "all")
}

func (s *ExecSource) run(family routing.Family, args ...string) (string, error) {
	bin := s.BinPath
	if bin == "" {
		bin = "ip"
	}

	familyFlag := "-4"
	if family == routing.V6 {
		familyFlag = "-6"
	}
	argv := append([]string{familyFlag}, args...)

	log.Debugf("Running %s %s", bin, strings.Join(argv, " "))

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(bin, argv...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := fmt.Sprintf("%s %s failed", bin, strings.Join(argv, " "))
		if stderr.Len() > 0 {
			msg += ": " + strings.TrimSpace(stderr.String())
		}
		return "", errors.NewSnapshotError(msg, err)
	}

	return stdout.String(), nil
}
