// Package request assigns a correlation id to each inbound request and makes
// it available to downstream logging via requestcontext.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"brokergate/pkg/requestcontext"
)

// HeaderRequestID is honored when a trusted proxy already assigned an id.
const HeaderRequestID = "X-Request-ID"

// WithRequestID attaches a request id to the context and echoes it in the
// response so clients can correlate failures with server logs.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID reads the request id set by WithRequestID.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
