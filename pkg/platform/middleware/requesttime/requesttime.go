// Package requesttime pins a single "now" per HTTP request. Everything
// downstream, from domain timestamps to audit entries, reads the same
// instant, so one request never produces records that disagree about when it
// happened.
package requesttime

import (
	"net/http"
	"time"

	"brokergate/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and
// stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
