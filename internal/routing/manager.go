package routing

import (
	"strings"

	"github.com/maksimkurb/pbr-lens/internal/errors"
	"github.com/maksimkurb/pbr-lens/internal/log"
)

// Source supplies the ip(8) snapshot text the tables are built from. The
// snapshot package provides exec, file and netlink implementations.
type Source interface {
	// Rules returns the text of `ip -4|-6 rule show`.
	Rules(family Family) (string, error)
	// Routes returns the text of `ip -4|-6 route show table all`.
	Routes(family Family) (string, error)
}

// BuildStats counts parsed and skipped lines of one family's snapshot.
type BuildStats struct {
	Rules         int
	Routes        int
	SkippedRules  int
	SkippedRoutes int
}

// RouteManager owns the parsed policy lists and routing tables of one
// snapshot and replays the kernel's policy-routing decision against them.
//
// Two-phase lifecycle: construct, then BuildTables. Rebuilding is allowed and
// replaces all prior state; identical input text yields identical state. The
// manager itself is never mutated by decisions, so any number of sequential
// decisions may run against one build.
type RouteManager struct {
	source Source

	// Policy lists stay in the exact order the kernel printed them; that
	// order IS the evaluation order and is never re-sorted.
	rules  map[Family][]*PolicyRule
	tables map[Family]map[string]*Table
	stats  map[Family]*BuildStats
}

// NewRouteManager creates a manager reading from the given snapshot source.
func NewRouteManager(source Source) *RouteManager {
	return &RouteManager{
		source: source,
		rules:  make(map[Family][]*PolicyRule),
		tables: make(map[Family]map[string]*Table),
		stats:  make(map[Family]*BuildStats),
	}
}

// BuildTables pulls the four snapshot blobs (v4/v6 rules, v4/v6 routes) from
// the source and parses them into per-family policy lists and table maps.
//
// A line that fails to parse is logged and skipped; it never aborts the
// build. A failing source does: that error is the collaborator's, wrapped and
// returned.
func (m *RouteManager) BuildTables() error {
	rules := make(map[Family][]*PolicyRule, 2)
	tables := make(map[Family]map[string]*Table, 2)
	stats := make(map[Family]*BuildStats, 2)

	for _, family := range []Family{V4, V6} {
		st := &BuildStats{}
		stats[family] = st

		ruleText, err := m.source.Rules(family)
		if err != nil {
			return errors.NewSnapshotError("loading "+family.String()+" rules", err)
		}
		for _, line := range nonEmptyLines(ruleText) {
			rule, err := ParseRule(family, line)
			if err != nil {
				log.Warnf("Skipping unparsable %s rule %q: %v", family, line, err)
				st.SkippedRules++
				continue
			}
			rules[family] = append(rules[family], rule)
			st.Rules++
		}

		routeText, err := m.source.Routes(family)
		if err != nil {
			return errors.NewSnapshotError("loading "+family.String()+" routes", err)
		}
		tables[family] = make(map[string]*Table)
		for _, line := range nonEmptyLines(routeText) {
			route, err := ParseRoute(family, line)
			if err != nil {
				log.Warnf("Skipping unparsable %s route %q: %v", family, line, err)
				st.SkippedRoutes++
				continue
			}
			table := tables[family][route.Table]
			if table == nil {
				table = NewTable(route.Table)
				tables[family][route.Table] = table
			}
			table.AddRoute(route)
			st.Routes++
		}

		log.Debugf("Built %s state: %d rules, %d routes in %d tables (%d rule / %d route lines skipped)",
			family, st.Rules, st.Routes, len(tables[family]), st.SkippedRules, st.SkippedRoutes)
	}

	m.rules = rules
	m.tables = tables
	m.stats = stats
	return nil
}

// ProcessPacket walks the packet's family policy list in priority order,
// looks up the packet destination in each matching rule's table and stops at
// the first rule whose table yields ANY route -- including unreachable,
// blackhole and prohibit routes, which signal a forwarding failure rather
// than a usable path. That mirrors the kernel: rule evaluation terminates on
// the first table hit, whatever the route type.
//
// Rules that do not match the packet are skipped and do not appear in the
// trace. On success the packet's OutputInterface is set to the winning
// route's device; this is the only mutation the manager ever performs.
func (m *RouteManager) ProcessPacket(packet *Packet) *Decision {
	decision := &Decision{}
	tables := m.tables[packet.Family]

	for _, rule := range m.rules[packet.Family] {
		if !rule.Matches(packet) {
			continue
		}

		// A table id that never appeared in the route snapshot behaves
		// like an empty table.
		var route *Route
		if table := tables[rule.Table]; table != nil {
			route = table.LookupRoute(packet.Dst)
		}

		decision.append(rule, route)

		if route != nil {
			packet.OutputInterface = route.OutputInterface
			break
		}
	}

	return decision
}

// Rules returns the family's policy list in evaluation order.
func (m *RouteManager) Rules(family Family) []*PolicyRule {
	return m.rules[family]
}

// Tables returns the family's table map, keyed by table id.
func (m *RouteManager) Tables(family Family) map[string]*Table {
	return m.tables[family]
}

// Stats returns the parse counters of the last build for the family.
func (m *RouteManager) Stats(family Family) BuildStats {
	if st := m.stats[family]; st != nil {
		return *st
	}
	return BuildStats{}
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
