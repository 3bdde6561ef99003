package metadata

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

type contextKeyClientIP struct{}
type contextKeyClient struct{}

// Client summarizes the User-Agent of the caller.
type Client struct {
	Browser string
	OS      string
	Bot     bool
}

// String renders the client as "browser/os", or "bot" for crawlers.
func (c Client) String() string {
	if c.Bot {
		return "bot"
	}
	if c.Browser == "" && c.OS == "" {
		return "unknown"
	}
	return c.Browser + "/" + c.OS
}

// ClientMetadata extracts client IP address and User-Agent from the request
// and adds them to the context for the access log.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientIP retrieves the client IP address from the context.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(contextKeyClientIP{}).(string); ok {
		return ip
	}
	return ""
}

// GetClient retrieves the parsed User-Agent from the context.
func GetClient(ctx context.Context) Client {
	if c, ok := ctx.Value(contextKeyClient{}).(Client); ok {
		return c
	}
	return Client{}
}

// WithClientMetadata injects client IP and parsed User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, contextKeyClientIP{}, clientIP)
	return context.WithValue(ctx, contextKeyClient{}, ParseUserAgent(userAgent))
}

// ParseUserAgent reduces a User-Agent header to browser and OS names.
func ParseUserAgent(header string) Client {
	if strings.TrimSpace(header) == "" {
		return Client{}
	}
	ua := useragent.New(header)
	browser, _ := ua.Browser()
	return Client{
		Browser: browser,
		OS:      ua.OSInfo().Name,
		Bot:     ua.Bot(),
	}
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// first entry is the original client
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" or "[::1]:port"
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
