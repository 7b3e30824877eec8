package routing

import (
	"fmt"
	"net/netip"
	"strings"
)

// RouteType is the kernel route type printed as the first token of an
// `ip route` line. Unicast routes carry no type token.
type RouteType string

const (
	RouteUnicast     RouteType = "unicast"
	RouteLocal       RouteType = "local"
	RouteUnreachable RouteType = "unreachable"
	RouteBroadcast   RouteType = "broadcast"
	RouteAnycast     RouteType = "anycast"
	RouteMulticast   RouteType = "multicast"
	RouteBlackhole   RouteType = "blackhole"
	RouteProhibit    RouteType = "prohibit"
	RouteThrow       RouteType = "throw"
)

var routeTypes = map[string]RouteType{
	"local":       RouteLocal,
	"unreachable": RouteUnreachable,
	"broadcast":   RouteBroadcast,
	"anycast":     RouteAnycast,
	"multicast":   RouteMulticast,
	"blackhole":   RouteBlackhole,
	"prohibit":    RouteProhibit,
	"throw":       RouteThrow,
}

// Route is one parsed `ip route show table all` line. Immutable once parsed.
type Route struct {
	Type    RouteType
	Family  Family
	Dst     netip.Prefix
	Gateway netip.Addr // zero value when the route has no `via`
	// OutputInterface is the `dev` value; every parseable route has one.
	OutputInterface string
	// Table is the table id the route belongs to, verbatim (name or number).
	// Kernel output omits `table` for the main table.
	Table string
	// Raw is the parsed line with whitespace collapsed, kept for rendering
	// decision traces.
	Raw string
}

func (r *Route) String() string {
	return r.Raw
}

// ParseRoute parses a single non-empty line of `ip route show table all`
// output for the given family.
//
// Grammar: [<type>] <dst> [via <next_hop>] dev <iface> [table <id>]
// [ignored tokens...]. Trailing attributes (metric, proto, scope, src, pref,
// expires, ...) are ignored.
func ParseRoute(family Family, line string) (*Route, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty route line")
	}

	route := &Route{
		Type:   RouteUnicast,
		Family: family,
		Table:  "main",
		Raw:    strings.Join(fields, " "),
	}

	if t, ok := routeTypes[fields[0]]; ok {
		route.Type = t
		fields = fields[1:]
	}

	// At minimum: destination plus `dev <iface>`.
	if len(fields) < 3 {
		return nil, fmt.Errorf("route line too short: %q", route.Raw)
	}

	dst, err := parsePrefix(family, fields[0])
	if err != nil {
		return nil, fmt.Errorf("invalid destination %q: %w", fields[0], err)
	}
	route.Dst = dst

	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "via":
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("missing value after %q", fields[i])
			}
			gw, err := parseAddr(family, fields[i+1])
			if err != nil {
				return nil, fmt.Errorf("invalid gateway %q: %w", fields[i+1], err)
			}
			route.Gateway = gw
			i++
		case "dev":
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("missing value after %q", fields[i])
			}
			route.OutputInterface = fields[i+1]
			i++
		case "table":
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("missing value after %q", fields[i])
			}
			route.Table = fields[i+1]
			i++
		default:
			// metric, proto, scope, src, pref, ... and their values.
		}
	}

	if route.OutputInterface == "" {
		return nil, fmt.Errorf("route has no output device: %q", route.Raw)
	}

	return route, nil
}

// parsePrefix parses a destination or source prefix token. `default` is the
// family's zero-length prefix; a bare address gets the family's host length.
func parsePrefix(family Family, s string) (netip.Prefix, error) {
	if s == "default" {
		return family.AllPrefix(), nil
	}
	if strings.Contains(s, "/") {
		pfx, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		if FamilyOf(pfx.Addr()) != family {
			return netip.Prefix{}, fmt.Errorf("prefix %s is not %s", s, family)
		}
		return pfx.Masked(), nil
	}
	addr, err := parseAddr(family, s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, family.HostBits()), nil
}

func parseAddr(family Family, s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, err
	}
	if FamilyOf(addr) != family {
		return netip.Addr{}, fmt.Errorf("address %s is not %s", s, family)
	}
	return addr, nil
}
