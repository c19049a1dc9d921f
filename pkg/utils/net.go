package utils

import (
	"net/http"
	"strings"
)

// ExtractClientIP extracts the real client IP address from HTTP request
// headers. It checks, in order: X-Forwarded-For (first entry), X-Real-IP,
// then RemoteAddr with the port stripped.
//
// The extracted IP feeds the rate-limit identifier, so behind a reverse
// proxy the proxy must set one of the forwarding headers or every caller
// shares the proxy's address and one abuser can exhaust the shared window.
func ExtractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		xff = strings.TrimSpace(xff)
		// "client, proxy1, proxy2" - the first entry is the original client
		if idx := strings.IndexByte(xff, ','); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	remoteAddr := r.RemoteAddr

	// [::1]:8080
	if strings.HasPrefix(remoteAddr, "[") {
		if idx := strings.LastIndexByte(remoteAddr, ']'); idx != -1 {
			return remoteAddr[1:idx]
		}
	}

	// 127.0.0.1:8080
	if idx := strings.LastIndexByte(remoteAddr, ':'); idx != -1 {
		return remoteAddr[:idx]
	}

	return remoteAddr
}
