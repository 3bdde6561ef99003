// Package requestid assigns every request a correlation ID. An inbound
// X-Request-ID header is kept when present so IDs survive proxies.
package requestid

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"zgjedhjet/pkg/requestcontext"
)

// Header is the request/response header carrying the correlation ID.
const Header = "X-Request-ID"

const maxInboundLength = 128

// Middleware injects the request ID into the context and echoes it in the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(Header))
		if reqID == "" || len(reqID) > maxInboundLength {
			reqID = uuid.NewString()
		}
		w.Header().Set(Header, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
