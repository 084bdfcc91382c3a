package slug

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Domain derives a tenant subdomain from an organization domain.
// The public suffix and a leading "www." are dropped; what remains is passed to Make.
// Returns an empty string for an empty domain.
func Domain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimSuffix(d, ".")
	d = strings.TrimPrefix(d, "www.")
	if d == "" {
		return ""
	}

	name := d
	if suffix, _ := publicsuffix.PublicSuffix(d); suffix != "" && suffix != d {
		name = strings.TrimSuffix(d, "."+suffix)
	}

	return Make(name)
}
