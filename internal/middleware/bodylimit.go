package middleware

import (
	"net/http"

	"github.com/erc8004/agent-gateway/internal/apierror"
)

// DefaultBodyLimitBytes is the default request body cap: 100 KiB.
const DefaultBodyLimitBytes = 100 * 1024

// BodyLimit caps the request body at limitBytes. http.MaxBytesReader
// makes the breach surface as a read error inside the handler's own
// json.Decode, which would normally render as a generic 400; to give
// callers the {success,error} envelope with the right code, a request
// whose Content-Length already exceeds the limit is rejected up front.
func BodyLimit(limitBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limitBytes {
				apierror.WriteError(w, apierror.BadRequest("request body exceeds the maximum allowed size"))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limitBytes)
			next.ServeHTTP(w, r)
		})
	}
}
