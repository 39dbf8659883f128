// Package httputil centralizes JSON encoding and domain-error translation for
// HTTP handlers so every endpoint renders the same envelopes.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "brokergate/pkg/domain-errors"
)

// errorEnvelope is the wire shape for all layer-generated failures:
// {"error":{"code":"FORBIDDEN","message":"..."}}. JSON only, no HTML fallback.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a domain error into the JSON error envelope. Messages
// stay generic: the detailed reason (attempted role, mismatched tenant) is for
// logs and audit, never for the response body.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), errorEnvelope{
		Error: errorBody{
			Code:    dErrors.PublicCode(code),
			Message: publicMessage(code),
		},
	})
}

func publicMessage(code dErrors.Code) string {
	switch code {
	case dErrors.CodeUnauthorized:
		return "authentication required"
	case dErrors.CodeForbidden, dErrors.CodeTenantMismatch, dErrors.CodeTenantRequired:
		return "access denied"
	case dErrors.CodeNotFound:
		return "resource not found"
	case dErrors.CodeValidation:
		return "invalid request"
	case dErrors.CodeConflict:
		return "conflict"
	default:
		return "internal error"
	}
}

// Decode parses a JSON request body into T, logging and answering a 400 on
// malformed input. Returns ok=false when the handler should stop.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(ctx, "malformed request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeValidation, "malformed request body"))
		var zero T
		return zero, false
	}
	return req, true
}
