// Package requestid assigns a correlation id to every request.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"domopass/pkg/requestcontext"
)

const headerRequestID = "X-Request-ID"

// Middleware reads the X-Request-ID header or generates a new id, and
// stores it in the context. The id is echoed back on the response so
// callers can correlate logs.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(headerRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
