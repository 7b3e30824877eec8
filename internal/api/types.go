package api

import (
	"github.com/maksimkurb/pbr-lens/internal/routing"
)

// DataResponse wraps successful JSON responses.
type DataResponse struct {
	Data interface{} `json:"data"`
}

// DecisionRequest is the packet submitted to POST /api/v1/decision. Src and
// Dst accept address literals or hostnames.
type DecisionRequest struct {
	Family   uint8  `json:"family,omitempty"`
	Protocol string `json:"protocol,omitempty"`
	Src      string `json:"src"`
	Dst      string `json:"dst"`
	SrcPort  uint16 `json:"src_port,omitempty"`
	DstPort  uint16 `json:"dst_port,omitempty"`
	IIF      string `json:"iif,omitempty"`
	FwMark   uint32 `json:"fwmark,omitempty"`
}

// RuleInfo is the JSON shape of one parsed policy rule.
type RuleInfo struct {
	Priority int    `json:"priority"`
	Src      string `json:"src"`
	Table    string `json:"table"`
	FwMark   string `json:"fwmark,omitempty"`
	IIF      string `json:"iif,omitempty"`
	OIF      string `json:"oif,omitempty"`
	Raw      string `json:"raw"`
}

// RouteInfo is the JSON shape of one parsed route.
type RouteInfo struct {
	Type      string `json:"type"`
	Dst       string `json:"dst"`
	Gateway   string `json:"gateway,omitempty"`
	Interface string `json:"interface"`
	Table     string `json:"table"`
	Raw       string `json:"raw"`
}

// TableInfo is one routing table with its routes in insertion order.
type TableInfo struct {
	ID     string      `json:"id"`
	Routes []RouteInfo `json:"routes"`
}

// DecisionStep is one (rule, route) pair of a decision trace.
type DecisionStep struct {
	Rule  RuleInfo   `json:"rule"`
	Route *RouteInfo `json:"route"` // null when the rule's table had no covering route
}

// DecisionResponse is the trace and verdict of one decision.
type DecisionResponse struct {
	Steps           []DecisionStep `json:"steps"`
	Routed          bool           `json:"routed"`
	OutputInterface string         `json:"output_interface,omitempty"`
	Verdict         string         `json:"verdict"`
}

func ruleInfo(rule *routing.PolicyRule) RuleInfo {
	return RuleInfo{
		Priority: rule.Priority,
		Src:      rule.Src.String(),
		Table:    rule.Table,
		FwMark:   rule.FwMark,
		IIF:      rule.InputInterface,
		OIF:      rule.OutputInterface,
		Raw:      rule.Raw,
	}
}

func routeInfo(route *routing.Route) RouteInfo {
	info := RouteInfo{
		Type:      string(route.Type),
		Dst:       route.Dst.String(),
		Interface: route.OutputInterface,
		Table:     route.Table,
		Raw:       route.Raw,
	}
	if route.Gateway.IsValid() {
		info.Gateway = route.Gateway.String()
	}
	return info
}
