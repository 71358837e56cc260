package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address of the client that sent r. Forwarding headers
// are honoured only when trustProxy is set: X-Forwarded-For first (its
// leftmost entry), then X-Real-IP. Otherwise, and as a fallback, the host
// part of RemoteAddr is used. Bracketed IPv6 addresses are unwrapped.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.Trim(r.RemoteAddr, "[]")
	}
	return ip
}

// IsLoopback reports whether r came from the local machine.
func IsLoopback(r *http.Request) bool {
	ip := net.ParseIP(ClientIP(r, false))
	return ip != nil && ip.IsLoopback()
}
