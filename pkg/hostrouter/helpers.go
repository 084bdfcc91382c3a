package hostrouter

import (
	"net/http"
	"slices"
	"strings"
)

// GetSubdomain extracts the subdomain from a request given a base domain.
// The port is stripped and the host lowercased first. Returns empty string if
// host doesn't match the base domain or has no subdomain.
//
// Examples:
//
//	GetSubdomain(req, "example.com") // req.Host = "foo.example.com" -> "foo"
//	GetSubdomain(req, "example.com") // req.Host = "bar.foo.example.com" -> "bar.foo"
//	GetSubdomain(req, "example.com") // req.Host = "example.com" -> ""
//	GetSubdomain(req, "example.com") // req.Host = "other.com" -> ""
func GetSubdomain(r *http.Request, baseDomain string) string {
	host := normalizeHost(r.Host)
	base := strings.ToLower(strings.TrimSpace(baseDomain))
	if host == "" || base == "" || host == base {
		return ""
	}

	suffix := "." + base
	if !strings.HasSuffix(host, suffix) {
		return ""
	}

	return strings.TrimSuffix(host, suffix)
}

// TenantSubdomain returns the tenant slug a request was addressed to.
// Only a single label directly under baseDomain counts; nested labels and
// reserved names (compared case-insensitively) yield an empty string.
func TenantSubdomain(r *http.Request, baseDomain string, reserved ...string) string {
	sub := GetSubdomain(r, baseDomain)
	if sub == "" || strings.Contains(sub, ".") {
		return ""
	}
	if slices.ContainsFunc(reserved, func(s string) bool { return strings.EqualFold(s, sub) }) {
		return ""
	}
	return sub
}

func normalizeHost(host string) string {
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		// Leave bare IPv6 literals alone.
		if !strings.Contains(host[idx:], "]") {
			host = host[:idx]
		}
	}
	return strings.ToLower(host)
}
