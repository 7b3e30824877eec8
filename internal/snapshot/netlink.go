package snapshot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/maksimkurb/pbr-lens/internal/errors"
	"github.com/maksimkurb/pbr-lens/internal/log"
	"github.com/maksimkurb/pbr-lens/internal/routing"
)

// NetlinkSource captures the live kernel state via rtnetlink instead of
// shelling out to `ip`. The listed rules and routes are rendered into the
// same iproute2 line grammar the other sources produce, so the routing core
// keeps a single parsing pipeline.
type NetlinkSource struct {
	// linkName resolves an interface index to its name. Overridable for
	// tests; defaults to a cached netlink.LinkByIndex.
	linkName func(index int) (string, error)

	linkCache map[int]string
}

// NewNetlinkSource creates a source listing rules and routes via netlink.
func NewNetlinkSource() *NetlinkSource {
	s := &NetlinkSource{linkCache: make(map[int]string)}
	s.linkName = s.lookupLinkName
	return s
}

// Rules lists the family's policy rules and renders them as `ip rule show`
// lines.
func (s *NetlinkSource) Rules(family routing.Family) (string, error) {
	rules, err := netlink.RuleList(nlFamily(family))
	if err != nil {
		return "", errors.NewSnapshotError("listing "+family.String()+" rules via netlink", err)
	}

	var sb strings.Builder
	for i := range rules {
		sb.WriteString(formatRule(&rules[i]))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// Routes lists all tables' routes for the family and renders them as
// `ip route show table all` lines. Routes without an output device (the
// kernel's blackhole/prohibit/unreachable forms) are skipped: the grammar
// requires `dev`.
func (s *NetlinkSource) Routes(family routing.Family) (string, error) {
	filter := &netlink.Route{Table: unix.RT_TABLE_UNSPEC}
	nlRoutes, err := netlink.RouteListFiltered(nlFamily(family), filter, netlink.RT_FILTER_TABLE)
	if err != nil {
		return "", errors.NewSnapshotError("listing "+family.String()+" routes via netlink", err)
	}

	var sb strings.Builder
	for i := range nlRoutes {
		route := &nlRoutes[i]
		if route.LinkIndex <= 0 {
			log.Debugf("Skipping %s route without output device (table %d, type %d)",
				family, route.Table, route.Type)
			continue
		}

		dev, err := s.linkName(route.LinkIndex)
		if err != nil {
			log.Warnf("Skipping %s route in table %d: cannot resolve link index %d: %v",
				family, route.Table, route.LinkIndex, err)
			continue
		}

		sb.WriteString(formatRoute(route, dev))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func (s *NetlinkSource) lookupLinkName(index int) (string, error) {
	if name, ok := s.linkCache[index]; ok {
		return name, nil
	}
	link, err := netlink.LinkByIndex(index)
	if err != nil {
		return "", err
	}
	name := link.Attrs().Name
	s.linkCache[index] = name
	return name, nil
}

func nlFamily(family routing.Family) int {
	if family == routing.V6 {
		return netlink.FAMILY_V6
	}
	return netlink.FAMILY_V4
}

// formatRule renders a netlink rule in `ip rule show` form:
// `<prio>: from <src|all> [fwmark <v>[/<m>]] [iif <dev>] [oif <dev>] lookup <table>`.
func formatRule(rule *netlink.Rule) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d: from ", rule.Priority)

	if rule.Src == nil {
		sb.WriteString("all")
	} else {
		sb.WriteString(rule.Src.String())
	}

	if rule.Mark != 0 || rule.Mask != nil {
		fmt.Fprintf(&sb, " fwmark 0x%x", rule.Mark)
		if rule.Mask != nil {
			fmt.Fprintf(&sb, "/0x%x", *rule.Mask)
		}
	}
	if rule.IifName != "" {
		sb.WriteString(" iif " + rule.IifName)
	}
	if rule.OifName != "" {
		sb.WriteString(" oif " + rule.OifName)
	}

	sb.WriteString(" lookup " + tableName(rule.Table))
	return sb.String()
}

// formatRoute renders a netlink route in `ip route show table all` form:
// `[<type>] <dst|default> [via <gw>] dev <name> [table <id>]`. The table
// token is omitted for main, matching kernel output.
func formatRoute(route *netlink.Route, dev string) string {
	var sb strings.Builder

	if typeToken := routeTypeToken(route.Type); typeToken != "" {
		sb.WriteString(typeToken + " ")
	}

	if route.Dst == nil {
		sb.WriteString("default")
	} else {
		sb.WriteString(route.Dst.String())
	}

	if route.Gw != nil {
		sb.WriteString(" via " + route.Gw.String())
	}
	sb.WriteString(" dev " + dev)

	if route.Table != 0 && route.Table != unix.RT_TABLE_MAIN {
		sb.WriteString(" table " + tableName(route.Table))
	}
	return sb.String()
}

// tableName maps the well-known table ids to the names iproute2 prints.
func tableName(table int) string {
	switch table {
	case unix.RT_TABLE_LOCAL:
		return "local"
	case unix.RT_TABLE_MAIN:
		return "main"
	case unix.RT_TABLE_DEFAULT:
		return "default"
	default:
		return strconv.Itoa(table)
	}
}

// routeTypeToken returns the leading type token for non-unicast routes.
func routeTypeToken(rtnType int) string {
	switch rtnType {
	case unix.RTN_LOCAL:
		return "local"
	case unix.RTN_BROADCAST:
		return "broadcast"
	case unix.RTN_ANYCAST:
		return "anycast"
	case unix.RTN_MULTICAST:
		return "multicast"
	case unix.RTN_UNREACHABLE:
		return "unreachable"
	case unix.RTN_BLACKHOLE:
		return "blackhole"
	case unix.RTN_PROHIBIT:
		return "prohibit"
	case unix.RTN_THROW:
		return "throw"
	default:
		return ""
	}
}
