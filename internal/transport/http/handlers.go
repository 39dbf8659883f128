package httptransport

import (
	"context"

	"brokergate/internal/audit"
	"brokergate/internal/scope"
	id "brokergate/pkg/domain"
	"brokergate/pkg/requestcontext"
)

// auditMutation records a mutation performed by a privileged caller. Actions
// by regular tenant users are not audited by this layer; the platform
// operator's are, always, and under the tenant that owns the touched
// resource, so a tenant's trail shows what was done to it.
func (h *Handler) auditMutation(ctx context.Context, action audit.Action, entityType string, rec scope.Record, before, after map[string]any) {
	sec, ok := requestcontext.Security(ctx)
	if !ok || !sec.Privileged() {
		return
	}

	entityID, _ := rec["id"].(string)
	column, scoped := h.store.TenantColumn(entityType)
	if !scoped {
		column = scope.DefaultTenantColumn
	}
	tenantRaw, _ := rec[column].(string)
	tenant, err := id.ParseTenantID(tenantRaw)
	if err != nil {
		tenant = sec.ActiveTenant
	}

	if !tenant.IsNil() && tenant != sec.HomeTenant {
		_ = h.recorder.LogCrossTenant(ctx, tenant, action, entityType, entityID, before, after)
		return
	}
	h.recorder.Log(ctx, action, entityType, entityID, before, after)
}

// snapshot converts a record to an audit snapshot map.
func snapshot(rec scope.Record) map[string]any {
	if rec == nil {
		return nil
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
