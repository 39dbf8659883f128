package authz

import (
	id "brokergate/pkg/domain"
)

// Policy declares a route's authorization requirements. Policies live in an
// explicit table built at router construction so the full authorization
// surface is enumerable and testable, instead of being scattered across
// handler annotations.
type Policy struct {
	// AllowedRoles gates the route. Empty means public by declaration.
	AllowedRoles []id.Role
	// RequireTenant forces tenant resolution: the request fails unless an
	// active tenant can be established (or the caller is privileged).
	RequireTenant bool
	// OwnershipEntity opts the route into the IDOR guard for the named
	// entity type. Applies only when the route carries an {id} parameter;
	// list routes rely entirely on store-level filtering. Routes must opt in
	// explicitly; the guard is silent for undeclared routes.
	OwnershipEntity string
}

// Route pairs an HTTP method and chi pattern with its policy.
type Route struct {
	Method  string
	Pattern string
	Policy  Policy
}

// Table is the startup-built route-to-policy map. The router mounts handlers
// from it; tests enumerate it to assert every route declares a policy.
type Table struct {
	routes []Route
}

// NewTable constructs an empty policy table.
func NewTable() *Table {
	return &Table{}
}

// Add declares a route's policy and returns the table for chaining.
func (t *Table) Add(method, pattern string, policy Policy) *Table {
	t.routes = append(t.routes, Route{Method: method, Pattern: pattern, Policy: policy})
	return t
}

// Routes returns the declared routes in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Lookup finds the policy declared for a method and pattern.
func (t *Table) Lookup(method, pattern string) (Policy, bool) {
	for _, r := range t.routes {
		if r.Method == method && r.Pattern == pattern {
			return r.Policy, true
		}
	}
	return Policy{}, false
}
