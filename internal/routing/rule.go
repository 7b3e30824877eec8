package routing

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// MaxRulePriority is the highest ip rule priority this tool accepts.
const MaxRulePriority = 32767

// PolicyRule is one parsed `ip rule show` line. Immutable once parsed.
type PolicyRule struct {
	Family   Family
	Priority int
	// Src is the `from` selector; `from all` becomes the family's full
	// address space.
	Src netip.Prefix
	// Table is the `lookup` target, verbatim (name or number).
	Table string
	// FwMark is the fwmark selector exactly as printed ("val" or
	// "val/mask"), empty when the rule has none. The parsed value and mask
	// live in fwValue/fwMask.
	FwMark          string
	InputInterface  string // iif selector, empty when unset
	OutputInterface string // oif selector, empty when unset
	// Raw is the parsed line with whitespace collapsed, kept for rendering
	// decision traces.
	Raw string

	fwValue uint32
	fwMask  uint32
}

func (r *PolicyRule) String() string {
	return r.Raw
}

// ParseRule parses a single non-empty line of `ip rule show` output for the
// given family.
//
// Grammar: <priority>: from <src> [fwmark <v[/m]>] [iif <iface>]
// [oif <iface>] lookup <table>. The selectors may appear in any order and any
// subset, but the line must end with `lookup <table>`.
func ParseRule(family Family, line string) (*PolicyRule, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty rule line")
	}

	prioText, rest, found := strings.Cut(line, ":")
	if !found {
		return nil, fmt.Errorf("rule line has no priority separator: %q", line)
	}

	priority, err := strconv.Atoi(strings.TrimSpace(prioText))
	if err != nil {
		return nil, fmt.Errorf("invalid rule priority %q: %w", prioText, err)
	}
	if priority < 0 || priority > MaxRulePriority {
		return nil, fmt.Errorf("rule priority %d out of range [0, %d]", priority, MaxRulePriority)
	}

	fields := strings.Fields(rest)
	if len(fields) < 2 || fields[0] != "from" {
		return nil, fmt.Errorf("rule line must start with \"from <src>\": %q", line)
	}

	rule := &PolicyRule{
		Family:   family,
		Priority: priority,
		Raw:      fmt.Sprintf("%d: %s", priority, strings.Join(fields, " ")),
	}

	if fields[1] == "all" {
		rule.Src = family.AllPrefix()
	} else {
		src, err := parsePrefix(family, fields[1])
		if err != nil {
			return nil, fmt.Errorf("invalid rule source %q: %w", fields[1], err)
		}
		rule.Src = src
	}

	i := 2
	for i < len(fields) {
		key := fields[i]
		if i+1 >= len(fields) {
			return nil, fmt.Errorf("missing value after %q", key)
		}
		value := fields[i+1]
		i += 2

		switch key {
		case "fwmark":
			fwValue, fwMask, err := parseFwMark(value)
			if err != nil {
				return nil, fmt.Errorf("invalid fwmark %q: %w", value, err)
			}
			rule.FwMark = value
			rule.fwValue = fwValue
			rule.fwMask = fwMask
		case "iif":
			rule.InputInterface = value
		case "oif":
			rule.OutputInterface = value
		case "lookup":
			if i != len(fields) {
				return nil, fmt.Errorf("rule line must end with \"lookup <table>\": %q", line)
			}
			rule.Table = value
		default:
			return nil, fmt.Errorf("unknown rule selector %q", key)
		}
	}

	if rule.Table == "" {
		return nil, fmt.Errorf("rule line has no \"lookup <table>\": %q", line)
	}

	return rule, nil
}

// parseFwMark parses "val" or "val/mask" (decimal or 0x hex). Without an
// explicit mask the full 32 bits are compared.
func parseFwMark(s string) (value, mask uint32, err error) {
	valText, maskText, hasMask := strings.Cut(s, "/")

	v, err := strconv.ParseUint(valText, 0, 32)
	if err != nil {
		return 0, 0, err
	}

	m := uint64(^uint32(0))
	if hasMask {
		m, err = strconv.ParseUint(maskText, 0, 32)
		if err != nil {
			return 0, 0, err
		}
	}

	return uint32(v), uint32(m), nil
}

// Matches reports whether the rule selects the given packet. It is a pure
// predicate; neither the rule nor the packet is modified.
//
// An oif selector can only match a packet whose egress interface is already
// known: OutputInterface starts empty and is only filled in by a previous
// successful decision.
func (r *PolicyRule) Matches(p *Packet) bool {
	if p.Family != r.Family {
		return false
	}
	if !r.Src.Contains(p.Src.Unmap()) {
		return false
	}
	if r.FwMark != "" && (p.FwMark&r.fwMask) != (r.fwValue&r.fwMask) {
		return false
	}
	if r.InputInterface != "" && r.InputInterface != p.InputInterface {
		return false
	}
	if r.OutputInterface != "" && r.OutputInterface != p.OutputInterface {
		return false
	}
	return true
}
