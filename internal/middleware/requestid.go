package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the header both read from and echoed to the client.
const RequestIDHeader = "X-Request-ID"

// RequestID is the outermost middleware in the chain: it reads an
// inbound request id or generates a UUID, echoes it back on the
// response, and attaches it to the request context so every downstream
// log line can carry it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := withRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
