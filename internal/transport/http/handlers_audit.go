package httptransport

import (
	"net/http"

	"brokergate/internal/audit"
	id "brokergate/pkg/domain"
	dErrors "brokergate/pkg/domain-errors"
	"brokergate/pkg/platform/httputil"
)

// handleAuditList returns a tenant's audit trail. Operator-only: the tenant
// is an explicit query parameter, not the caller's own, which is exactly the
// cross-tenant read the privileged role exists for.
func (h *Handler) handleAuditList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, err := id.ParseTenantID(r.URL.Query().Get("tenant_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "tenant_id query parameter is required"))
		return
	}

	entries, err := h.auditStore.ListByTenant(ctx, tenantID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries"))
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
