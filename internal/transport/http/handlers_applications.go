package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"brokergate/internal/audit"
	"brokergate/internal/scope"
	id "brokergate/pkg/domain"
	dErrors "brokergate/pkg/domain-errors"
	"brokergate/pkg/platform/httputil"
	"brokergate/pkg/requestcontext"
)

const entityApplications = "applications"

type createApplicationRequest struct {
	ListingID string `json:"listing_id"`
	Applicant string `json:"applicant"`
}

func (h *Handler) handleApplicationCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[createApplicationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if req.Applicant == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "applicant is required"))
		return
	}
	listingID, err := id.ParseEntityID(req.ListingID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "listing_id must be a valid UUID"))
		return
	}
	if _, err := h.store.FindUnique(ctx, entityListings, listingID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	now := requestcontext.Now(ctx).UTC()
	rec := scope.Record{
		"id":         id.NewEntityID().String(),
		"listing_id": listingID.String(),
		"applicant":  req.Applicant,
		"status":     "pending",
		"created_at": now,
		"updated_at": now,
	}
	created, err := h.store.Create(ctx, entityApplications, rec)
	if err != nil {
		h.logger.ErrorContext(ctx, "application create failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleApplicationList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := scope.Filter{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}
	applications, err := h.store.FindMany(ctx, entityApplications, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if applications == nil {
		applications = []scope.Record{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"applications": applications})
}

func (h *Handler) handleApplicationApprove(w http.ResponseWriter, r *http.Request) {
	h.resolveApplication(w, r, "approved", audit.ActionApplicationApproved)
}

func (h *Handler) handleApplicationReject(w http.ResponseWriter, r *http.Request) {
	h.resolveApplication(w, r, "rejected", audit.ActionApplicationRejected)
}

// resolveApplication moves a pending application to a terminal status.
// Tenant admins resolve their own tenant's applications; the platform
// operator may resolve any tenant's, which lands in that tenant's audit
// trail via auditMutation.
func (h *Handler) resolveApplication(w http.ResponseWriter, r *http.Request, status string, action audit.Action) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	entityID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	before, err := h.store.FindUnique(ctx, entityApplications, entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if current, _ := before["status"].(string); current != "pending" {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeConflict, "application is already %s", current))
		return
	}

	updated, err := h.store.Update(ctx, entityApplications, entityID, scope.Record{
		"status":     status,
		"updated_at": requestcontext.Now(ctx).UTC(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "application resolve failed",
			"request_id", requestID,
			"application_id", entityID,
			"status", status,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "application resolved",
		"request_id", requestID,
		"application_id", entityID,
		"status", status,
	)
	h.auditMutation(ctx, action, entityApplications, updated, snapshot(before), snapshot(updated))
	httputil.WriteJSON(w, http.StatusOK, updated)
}
