package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"brokergate/internal/scope"
	id "brokergate/pkg/domain"
	dErrors "brokergate/pkg/domain-errors"
	"brokergate/pkg/platform/httputil"
	"brokergate/pkg/requestcontext"
)

const entityQRCodes = "qr_codes"

type createQRCodeRequest struct {
	ListingID string `json:"listing_id"`
	Target    string `json:"target"`
}

func (h *Handler) handleQRCodeCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[createQRCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	listingID, err := id.ParseEntityID(req.ListingID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "listing_id must be a valid UUID"))
		return
	}
	if req.Target == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "target is required"))
		return
	}

	// The listing lookup goes through the scoped store, so a caller cannot
	// attach a QR code to another tenant's listing.
	if _, err := h.store.FindUnique(ctx, entityListings, listingID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec := scope.Record{
		"id":         id.NewEntityID().String(),
		"listing_id": listingID.String(),
		"target":     req.Target,
		"scans":      int64(0),
		"created_at": requestcontext.Now(ctx).UTC(),
	}
	created, err := h.store.Create(ctx, entityQRCodes, rec)
	if err != nil {
		h.logger.ErrorContext(ctx, "qr code create failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

// handleQRCodeGet resolves a QR code by id. The route is public: the scan
// comes from an unauthenticated device, and the tenant comes purely from the
// tenant header. A code belonging to another tenant is a plain not-found:
// scanning must not reveal whether an id exists elsewhere.
func (h *Handler) handleQRCodeGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entityID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	code, err := h.store.FindUnique(ctx, entityQRCodes, entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, code)
}
