package routing

import (
	"net/netip"

	"github.com/gaissmai/bart"
)

// Table holds the routes of one kernel routing table for one family.
//
// Routes keep their insertion order for rendering; lookups go through a bart
// table for longest-prefix match. When several routes carry the same
// destination prefix, the first inserted one wins the lookup.
type Table struct {
	ID string

	routes []*Route
	lpm    bart.Table[*Route]
}

// NewTable creates an empty routing table for the given table id.
func NewTable(id string) *Table {
	return &Table{ID: id}
}

// AddRoute appends a route, preserving insertion order.
func (t *Table) AddRoute(route *Route) {
	t.routes = append(t.routes, route)

	pfx := route.Dst.Masked()
	if _, ok := t.lpm.Get(pfx); !ok {
		t.lpm.Insert(pfx, route)
	}
}

// Routes returns the table's routes in insertion order. The returned slice is
// shared; callers must not modify it.
func (t *Table) Routes() []*Route {
	return t.routes
}

// Len returns the number of routes in the table.
func (t *Table) Len() int {
	return len(t.routes)
}

// LookupRoute returns the route whose destination prefix contains addr with
// the greatest prefix length, or nil when no route covers it.
func (t *Table) LookupRoute(addr netip.Addr) *Route {
	if route, ok := t.lpm.Lookup(addr.Unmap()); ok {
		return route
	}
	return nil
}
