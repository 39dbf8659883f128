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

const entityListings = "listings"

type createListingRequest struct {
	Title   string `json:"title"`
	Price   int64  `json:"price"`
	Address string `json:"address"`
	// TenantID is honored only for platform operators creating a listing on
	// a tenant's behalf; the scoped store rejects it for everyone else.
	TenantID string `json:"tenant_id,omitempty"`
}

type updateListingRequest struct {
	Title   *string `json:"title,omitempty"`
	Price   *int64  `json:"price,omitempty"`
	Address *string `json:"address,omitempty"`
	Status  *string `json:"status,omitempty"`
}

func (h *Handler) handleListingCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[createListingRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if req.Title == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "title is required"))
		return
	}

	now := requestcontext.Now(ctx).UTC()
	rec := scope.Record{
		"id":         id.NewEntityID().String(),
		"title":      req.Title,
		"price":      req.Price,
		"address":    req.Address,
		"status":     "draft",
		"created_at": now,
		"updated_at": now,
	}
	if req.TenantID != "" {
		rec["tenant_id"] = req.TenantID
	}

	created, err := h.store.Create(ctx, entityListings, rec)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing create failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.auditMutation(ctx, audit.ActionListingCreated, entityListings, created, nil, snapshot(created))
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListingList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := scope.Filter{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}

	listings, err := h.store.FindMany(ctx, entityListings, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if listings == nil {
		listings = []scope.Record{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (h *Handler) handleListingGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entityID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	listing, err := h.store.FindUnique(ctx, entityListings, entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listing)
}

func (h *Handler) handleListingUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	entityID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[updateListingRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	changes := scope.Record{"updated_at": requestcontext.Now(ctx).UTC()}
	if req.Title != nil {
		changes["title"] = *req.Title
	}
	if req.Price != nil {
		changes["price"] = *req.Price
	}
	if req.Address != nil {
		changes["address"] = *req.Address
	}
	if req.Status != nil {
		changes["status"] = *req.Status
	}

	before, err := h.store.FindUnique(ctx, entityListings, entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	updated, err := h.store.Update(ctx, entityListings, entityID, changes)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing update failed",
			"request_id", requestID,
			"listing_id", entityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.auditMutation(ctx, audit.ActionListingUpdated, entityListings, updated, snapshot(before), snapshot(updated))
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleListingDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	entityID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	before, err := h.store.FindUnique(ctx, entityListings, entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.store.Delete(ctx, entityListings, entityID); err != nil {
		h.logger.ErrorContext(ctx, "listing delete failed",
			"request_id", requestID,
			"listing_id", entityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.auditMutation(ctx, audit.ActionListingDeleted, entityListings, before, snapshot(before), nil)
	w.WriteHeader(http.StatusNoContent)
}
