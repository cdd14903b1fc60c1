package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/erc8004/agent-gateway/internal/apierror"
)

// timeoutBody is the envelope body http.TimeoutHandler writes when a
// handler doesn't finish within its deadline. It's computed once since
// the message never varies by request. http.TimeoutHandler always
// answers with 503, which matches CodeUpstreamUnavailable's status.
var timeoutBody = func() string {
	b, _ := json.Marshal(apierror.Envelope{
		Success: false,
		Error:   apierror.UpstreamUnavailable("handler", nil),
	})
	return string(b)
}()

// Timeout wraps non-streaming handlers with an http.TimeoutHandler, so a
// slow or hung downstream call can't hold the connection open
// indefinitely. The MCP SSE stream and the search streaming endpoint run
// outside this middleware since they're expected to stay open.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, timeoutBody)
	}
}
