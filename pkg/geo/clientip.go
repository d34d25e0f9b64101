package geo

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the client's source address from an HTTP request.
// Precedence is fixed:
//  1. X-Forwarded-For (first valid hop)
//  2. X-Real-IP (reverse proxy)
//  3. RemoteAddr (direct connection)
//  4. Unknown sentinel
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// X-Forwarded-For can contain multiple hops, take the first valid one
		for ip := range strings.SplitSeq(forwarded, ",") {
			if parsed := parseIP(ip); parsed != "" {
				return parsed
			}
		}
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if parsed := parseIP(ip); parsed != "" {
			return parsed
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr may already be a bare IP
		host = r.RemoteAddr
	}
	if parsed := parseIP(host); parsed != "" {
		return parsed
	}

	return Unknown
}

// FromRequest extracts the client IP and resolves it in one step. A nil
// resolver yields the sentinel Info carrying only the address.
func FromRequest(r *http.Request, resolver Resolver) Info {
	ip := ClientIP(r)
	if resolver == nil {
		return UnknownInfo().WithIP(ip)
	}
	return resolver.Resolve(r.Context(), ip)
}

// parseIP validates and normalizes an IP address string.
// Returns empty string if the IP is invalid.
func parseIP(ipStr string) string {
	ipStr = strings.TrimSpace(ipStr)
	if ipStr == "" {
		return ""
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}
	return ip.String()
}
