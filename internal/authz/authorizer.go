package authz

import (
	"fmt"

	id "brokergate/pkg/domain"
	dErrors "brokergate/pkg/domain-errors"
	"brokergate/pkg/requestcontext"
)

// Outcome is the transient result of a role check. Reason carries the
// attempted and required roles for logs; it is never exposed to the caller
// beyond the generic envelope message.
type Outcome struct {
	Allowed bool
	Code    dErrors.Code
	Reason  string
}

// Err converts a denied outcome into its typed error. Allowed outcomes
// return nil.
func (o Outcome) Err() error {
	if o.Allowed {
		return nil
	}
	return dErrors.New(o.Code, o.Reason)
}

// AuthorizeRole evaluates a route's declared allowed-role set against the
// caller.
//
//   - An empty set means the route is public by declaration.
//   - The privileged role passes unconditionally. This superuser bypass is
//     intentional: it is the one role permitted to ignore the set.
//   - An unauthenticated caller on a restricted route is Unauthenticated,
//     distinct from Forbidden (401 vs 403).
func AuthorizeRole(sec requestcontext.SecurityContext, allowedRoles []id.Role) Outcome {
	if len(allowedRoles) == 0 {
		return Outcome{Allowed: true}
	}
	if sec.Privileged() {
		return Outcome{Allowed: true}
	}
	if !sec.Authenticated() {
		return Outcome{
			Allowed: false,
			Code:    dErrors.CodeUnauthorized,
			Reason:  "authentication required",
		}
	}
	for _, role := range allowedRoles {
		if sec.Role == role {
			return Outcome{Allowed: true}
		}
	}
	return Outcome{
		Allowed: false,
		Code:    dErrors.CodeForbidden,
		Reason:  fmt.Sprintf("role %s not in allowed set %v", sec.Role, allowedRoles),
	}
}
