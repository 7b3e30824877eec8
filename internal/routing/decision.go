package routing

import (
	"fmt"
	"io"

	"github.com/valyala/fasttemplate"
)

// Default verdict templates, overridable via the [output] config section.
const (
	DefaultSuccessTemplate = "packet will be routed to {{prefix}} via interface {{interface}}"
	DefaultFailureTemplate = "packet will NOT be routed: no route found"
)

// OutputTemplates are the fasttemplate strings for the final verdict line of
// a decision trace. Placeholders: {{prefix}}, {{interface}}, {{type}},
// {{table}} (failure templates usually use none of them).
type OutputTemplates struct {
	Success string
	Failure string
}

// DefaultTemplates returns the built-in verdict templates.
func DefaultTemplates() OutputTemplates {
	return OutputTemplates{
		Success: DefaultSuccessTemplate,
		Failure: DefaultFailureTemplate,
	}
}

// Step is one (rule, route) pair of a decision trace. Route is nil when the
// rule matched but its table had no covering route.
type Step struct {
	Rule  *PolicyRule
	Route *Route
}

// Decision is the ordered trace of one policy-routing decision. It is
// append-only while the decision runs and immutable afterwards; the last step
// (if its route is non-nil) is the decision's outcome.
type Decision struct {
	steps []Step
}

// Steps returns the trace in evaluation order. The returned slice is shared;
// callers must not modify it.
func (d *Decision) Steps() []Step {
	return d.steps
}

// Route returns the winning route, or nil when no rule's table yielded one.
// An empty or all-nil trace is a valid "no applicable rule / no route"
// outcome, not an error.
func (d *Decision) Route() *Route {
	if len(d.steps) == 0 {
		return nil
	}
	return d.steps[len(d.steps)-1].Route
}

// Output writes the human-readable trace with the default verdict templates.
func (d *Decision) Output(w io.Writer) error {
	return d.OutputTemplated(w, DefaultTemplates())
}

// OutputTemplated writes the trace in `ip route get` diagnostic style: each
// matched rule's original text followed by the found route's original text
// (or "no route matched"), then the verdict line.
func (d *Decision) OutputTemplated(w io.Writer, templates OutputTemplates) error {
	if len(d.steps) == 0 {
		_, err := io.WriteString(w, "no policy matched\n")
		return err
	}

	for _, step := range d.steps {
		if _, err := fmt.Fprintf(w, "%s\n", step.Rule.Raw); err != nil {
			return err
		}
		routeText := "no route matched"
		if step.Route != nil {
			routeText = step.Route.Raw
		}
		if _, err := fmt.Fprintf(w, "    %s\n", routeText); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, d.Verdict(templates)+"\n")
	return err
}

// Verdict renders the final verdict line through fasttemplate.
func (d *Decision) Verdict(templates OutputTemplates) string {
	route := d.Route()
	if route == nil {
		return fasttemplate.ExecuteStringStd(templates.Failure, "{{", "}}", nil)
	}

	t := fasttemplate.New(templates.Success, "{{", "}}")
	return t.ExecuteString(map[string]interface{}{
		"prefix":    route.Dst.String(),
		"interface": route.OutputInterface,
		"type":      string(route.Type),
		"table":     route.Table,
	})
}

// append records one evaluation step.
func (d *Decision) append(rule *PolicyRule, route *Route) {
	d.steps = append(d.steps, Step{Rule: rule, Route: route})
}
