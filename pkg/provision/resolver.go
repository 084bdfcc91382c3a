package provision

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dmitrymomot/teamauth/pkg/slug"
)

// Resolver derives the tenant candidate of a login.
type Resolver struct {
	cfg Config
}

// NewResolver creates a Resolver. Zero-valued fields of cfg fall back to DefaultConfig.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg.withDefaults()}
}

// ChooseStrategy applies the precedence rule: an explicit tenant from the request
// context wins, then an organization domain, then the personal default.
func ChooseStrategy(domain string, existing uuid.UUID) TenantStrategy {
	switch {
	case existing != uuid.Nil:
		return StrategyExistingTenant
	case strings.TrimSpace(domain) != "":
		return StrategyDomainDerived
	default:
		return StrategyDefaultPersonal
	}
}

// Resolve builds the tenant candidate for an optional organization domain and an
// optional tenant taken from the request context. Without a domain, both domain
// and subdomain stay empty and the name is the default tenant name.
func (r *Resolver) Resolve(domain string, existing uuid.UUID) TenantCandidate {
	domain = strings.ToLower(strings.TrimSpace(domain))

	c := TenantCandidate{
		Strategy:         ChooseStrategy(domain, existing),
		ExistingTenantID: existing,
		Name:             r.cfg.DefaultTenantName,
	}

	if domain == "" {
		return c
	}

	c.OrganizationDomain = domain
	c.SubdomainSlug = slug.Domain(domain)
	if validNameLength(c.SubdomainSlug) {
		c.Name = capitalize(c.SubdomainSlug)
	}

	return c
}

// capitalize upper-cases the first character and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
