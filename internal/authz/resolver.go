// Package authz implements the authorization pipeline: role gate, tenant
// resolution, ownership verification, and the audit hook, composed in a fixed
// order in front of every route handler.
package authz

import (
	id "brokergate/pkg/domain"
	dErrors "brokergate/pkg/domain-errors"
)

// HeaderTenantID is the inbound tenant header. Mandatory for non-privileged
// and anonymous callers; an optional override for the privileged role.
const HeaderTenantID = "X-Tenant-ID"

// ResolveTenant derives the active tenant for a request from the caller's
// role, the caller's home tenant, and the raw tenant header.
//
// Pure given its inputs; no side effects. The rules:
//
//   - Privileged: the header, when present, selects any tenant; otherwise the
//     home tenant. Both may be absent; platform operators may run
//     tenant-less for cross-tenant aggregate routes.
//   - Non-privileged, authenticated: the header must be present and must
//     equal the home tenant. Absence or mismatch is a tenant mismatch; the
//     active tenant is never silently defaulted.
//   - Anonymous: the header alone determines the tenant and must be present.
func ResolveTenant(role id.Role, homeTenant id.TenantID, tenantHeader string) (id.TenantID, error) {
	if role.Privileged() {
		if tenantHeader == "" {
			return homeTenant, nil
		}
		tenant, err := id.ParseTenantID(tenantHeader)
		if err != nil {
			return id.TenantID{}, err
		}
		return tenant, nil
	}

	if role.Authenticated() {
		if tenantHeader == "" {
			return id.TenantID{}, dErrors.New(dErrors.CodeTenantMismatch, "tenant header is required")
		}
		tenant, err := id.ParseTenantID(tenantHeader)
		if err != nil {
			return id.TenantID{}, err
		}
		if tenant != homeTenant {
			return id.TenantID{}, dErrors.New(dErrors.CodeTenantMismatch, "tenant header does not match caller tenant")
		}
		return tenant, nil
	}

	// Anonymous: no caller identity, so the tenant comes purely from the
	// header.
	if tenantHeader == "" {
		return id.TenantID{}, dErrors.New(dErrors.CodeTenantRequired, "tenant header is required")
	}
	tenant, err := id.ParseTenantID(tenantHeader)
	if err != nil {
		return id.TenantID{}, err
	}
	return tenant, nil
}
