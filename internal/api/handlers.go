package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/maksimkurb/pbr-lens/internal/resolve"
	"github.com/maksimkurb/pbr-lens/internal/routing"
)

// Handler manages all API endpoints.
//
// The routing core itself is single-threaded; the handler serializes rebuilds
// against decisions with a RWMutex so concurrent API calls stay safe.
type Handler struct {
	mu        sync.RWMutex
	manager   *routing.RouteManager
	resolver  *resolve.Resolver
	templates routing.OutputTemplates
}

// NewHandler creates an API handler around a built RouteManager.
func NewHandler(manager *routing.RouteManager, resolver *resolve.Resolver, templates routing.OutputTemplates) *Handler {
	return &Handler{
		manager:   manager,
		resolver:  resolver,
		templates: templates,
	}
}

// Decide runs one policy-routing decision.
// POST /api/v1/decision
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteInvalidRequest(w, "Invalid JSON: "+err.Error())
		return
	}
	if req.Src == "" || req.Dst == "" {
		WriteInvalidRequest(w, "src and dst are required")
		return
	}

	family, err := routing.ParseFamily(req.Family)
	if err != nil {
		WriteInvalidRequest(w, err.Error())
		return
	}
	protocol, err := routing.ParseProtocol(req.Protocol)
	if err != nil {
		WriteInvalidRequest(w, err.Error())
		return
	}

	src, err := h.resolver.LookupAddr(req.Src, family)
	if err != nil {
		WriteInvalidRequest(w, "src: "+err.Error())
		return
	}
	dst, err := h.resolver.LookupAddr(req.Dst, family)
	if err != nil {
		WriteInvalidRequest(w, "dst: "+err.Error())
		return
	}

	packet := &routing.Packet{
		Family:         family,
		Protocol:       protocol,
		Src:            src,
		Dst:            dst,
		SrcPort:        req.SrcPort,
		DstPort:        req.DstPort,
		FwMark:         req.FwMark,
		InputInterface: req.IIF,
	}

	h.mu.RLock()
	decision := h.manager.ProcessPacket(packet)
	h.mu.RUnlock()

	response := DecisionResponse{
		Steps:           []DecisionStep{},
		Routed:          decision.Route() != nil,
		OutputInterface: packet.OutputInterface,
		Verdict:         decision.Verdict(h.templates),
	}
	for _, step := range decision.Steps() {
		apiStep := DecisionStep{Rule: ruleInfo(step.Rule)}
		if step.Route != nil {
			info := routeInfo(step.Route)
			apiStep.Route = &info
		}
		response.Steps = append(response.Steps, apiStep)
	}

	writeJSONData(w, response)
}

// GetRules returns the parsed policy rules of one family in evaluation order.
// GET /api/v1/rules?family=4|6
func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	family, ok := familyParam(w, r)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	rules := []RuleInfo{}
	for _, rule := range h.manager.Rules(family) {
		rules = append(rules, ruleInfo(rule))
	}
	writeJSONData(w, rules)
}

// GetRoutes returns the parsed routing tables of one family, sorted by table
// id; routes keep insertion order.
// GET /api/v1/routes?family=4|6
func (h *Handler) GetRoutes(w http.ResponseWriter, r *http.Request) {
	family, ok := familyParam(w, r)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	tables := h.manager.Tables(family)
	ids := make([]string, 0, len(tables))
	for id := range tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	response := []TableInfo{}
	for _, id := range ids {
		info := TableInfo{ID: id, Routes: []RouteInfo{}}
		for _, route := range tables[id].Routes() {
			info.Routes = append(info.Routes, routeInfo(route))
		}
		response = append(response, info)
	}
	writeJSONData(w, response)
}

// Rebuild re-reads the snapshot source and rebuilds all tables.
// POST /api/v1/rebuild
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	err := h.manager.BuildTables()
	h.mu.Unlock()

	if err != nil {
		WriteInternalError(w, "Rebuild failed: "+err.Error())
		return
	}
	writeJSONData(w, map[string]string{"status": "rebuilt"})
}

// CheckHealth reports liveness and per-family parse counters.
// GET /api/v1/health
func (h *Handler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	writeJSONData(w, map[string]interface{}{
		"status": "ok",
		"v4":     h.manager.Stats(routing.V4),
		"v6":     h.manager.Stats(routing.V6),
	})
}

func familyParam(w http.ResponseWriter, r *http.Request) (routing.Family, bool) {
	switch r.URL.Query().Get("family") {
	case "", "4":
		return routing.V4, true
	case "6":
		return routing.V6, true
	default:
		WriteInvalidRequest(w, "family must be 4 or 6")
		return 0, false
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(DataResponse{Data: data})
}

// writeJSONData writes a successful JSON response with data.
func writeJSONData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}

// decodeJSON decodes JSON from the request body.
func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
