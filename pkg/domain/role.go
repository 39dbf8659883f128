package domain

import (
	dErrors "brokergate/pkg/domain-errors"
)

// Role is the caller's platform role, carried in the access token and checked
// against each route's allowed-role set.
type Role string

const (
	RoleAnonymous   Role = "anonymous"
	RoleBroker      Role = "broker"
	RoleAgent       Role = "agent"
	RoleInspector   Role = "inspector"
	RoleTenantAdmin Role = "tenant_admin"
	// RoleSuperAdmin is the platform-operator role. It is the only role that
	// may cross tenant boundaries and the only role that bypasses per-route
	// allowed-role sets. Every cross-tenant action it performs is audited.
	RoleSuperAdmin Role = "super_admin"
)

var knownRoles = map[Role]struct{}{
	RoleAnonymous:   {},
	RoleBroker:      {},
	RoleAgent:       {},
	RoleInspector:   {},
	RoleTenantAdmin: {},
	RoleSuperAdmin:  {},
}

// ParseRole validates a role string from an access token. Unknown roles are
// rejected rather than defaulted: a token minted with a role this build does
// not know must not be granted any access.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := knownRoles[r]; !ok {
		return "", dErrors.Newf(dErrors.CodeUnauthorized, "unknown role %q", s)
	}
	return r, nil
}

// Privileged reports whether the role may act across tenant boundaries.
func (r Role) Privileged() bool { return r == RoleSuperAdmin }

// Authenticated reports whether the role represents a logged-in caller.
func (r Role) Authenticated() bool { return r != "" && r != RoleAnonymous }

func (r Role) String() string { return string(r) }
