// Package httptransport is the thin HTTP layer. Handlers delegate to the
// scoped store and audit recorder; all authorization decisions happen in the
// pipeline middleware declared per route in the policy table.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"brokergate/internal/audit"
	"brokergate/internal/authz"
	"brokergate/internal/scope"
	id "brokergate/pkg/domain"
	request "brokergate/pkg/platform/middleware/request"
	"brokergate/pkg/platform/middleware/requesttime"
)

// Handler wires route handlers to their collaborators.
type Handler struct {
	store      *scope.ScopedStore
	recorder   *audit.Recorder
	auditStore audit.Store
	logger     *slog.Logger
}

// NewHandler constructs the HTTP handler set.
func NewHandler(store *scope.ScopedStore, recorder *audit.Recorder, auditStore audit.Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:      store,
		recorder:   recorder,
		auditStore: auditStore,
		logger:     logger,
	}
}

// Policies is the explicit route-to-policy table, built once at startup.
// Every mounted route appears here; a route missing from this table simply
// does not exist, so the authorization surface is enumerable in one place.
func Policies() *authz.Table {
	staff := []id.Role{id.RoleBroker, id.RoleAgent, id.RoleTenantAdmin}
	admin := []id.Role{id.RoleTenantAdmin}
	operator := []id.Role{id.RoleSuperAdmin}

	t := authz.NewTable()
	t.Add(http.MethodGet, "/healthz", authz.Policy{})

	t.Add(http.MethodPost, "/v1/listings", authz.Policy{AllowedRoles: staff, RequireTenant: true})
	t.Add(http.MethodGet, "/v1/listings", authz.Policy{AllowedRoles: staff, RequireTenant: true})
	t.Add(http.MethodGet, "/v1/listings/{id}", authz.Policy{AllowedRoles: staff, RequireTenant: true, OwnershipEntity: "listings"})
	t.Add(http.MethodPut, "/v1/listings/{id}", authz.Policy{AllowedRoles: staff, RequireTenant: true, OwnershipEntity: "listings"})
	t.Add(http.MethodDelete, "/v1/listings/{id}", authz.Policy{AllowedRoles: admin, RequireTenant: true, OwnershipEntity: "listings"})

	t.Add(http.MethodPost, "/v1/qrcodes", authz.Policy{AllowedRoles: staff, RequireTenant: true})
	// Public scan endpoint: anonymous callers resolve a QR code, tenant
	// determined purely by header.
	t.Add(http.MethodGet, "/v1/qrcodes/{id}", authz.Policy{RequireTenant: true, OwnershipEntity: "qr_codes"})

	t.Add(http.MethodGet, "/v1/applications", authz.Policy{AllowedRoles: admin, RequireTenant: true})
	t.Add(http.MethodPost, "/v1/applications", authz.Policy{AllowedRoles: staff, RequireTenant: true})
	t.Add(http.MethodPost, "/v1/applications/{id}/approve", authz.Policy{AllowedRoles: admin, RequireTenant: true, OwnershipEntity: "applications"})
	t.Add(http.MethodPost, "/v1/applications/{id}/reject", authz.Policy{AllowedRoles: admin, RequireTenant: true, OwnershipEntity: "applications"})

	t.Add(http.MethodGet, "/v1/admin/audit", authz.Policy{AllowedRoles: operator})

	return t
}

// NewRouter mounts every declared route behind the pipeline. Mounting is
// driven by the policy table so a handler cannot be reached without a policy.
func NewRouter(h *Handler, pipe *authz.Pipeline, table *authz.Table) http.Handler {
	handlers := map[string]http.HandlerFunc{
		"GET /healthz": h.handleHealth,

		"POST /v1/listings":        h.handleListingCreate,
		"GET /v1/listings":         h.handleListingList,
		"GET /v1/listings/{id}":    h.handleListingGet,
		"PUT /v1/listings/{id}":    h.handleListingUpdate,
		"DELETE /v1/listings/{id}": h.handleListingDelete,

		"POST /v1/qrcodes":     h.handleQRCodeCreate,
		"GET /v1/qrcodes/{id}": h.handleQRCodeGet,

		"GET /v1/applications":               h.handleApplicationList,
		"POST /v1/applications":              h.handleApplicationCreate,
		"POST /v1/applications/{id}/approve": h.handleApplicationApprove,
		"POST /v1/applications/{id}/reject":  h.handleApplicationReject,

		"GET /v1/admin/audit": h.handleAuditList,
	}

	r := chi.NewRouter()
	r.Use(request.WithRequestID)
	r.Use(requesttime.Middleware)
	r.Use(pipe.Authenticate)

	for _, route := range table.Routes() {
		handler, ok := handlers[route.Method+" "+route.Pattern]
		if !ok {
			// A declared policy with no handler is a wiring bug; fail at
			// startup, not at request time.
			panic("no handler for route " + route.Method + " " + route.Pattern)
		}
		r.With(pipe.Require(route.Policy)).Method(route.Method, route.Pattern, handler)
	}

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
