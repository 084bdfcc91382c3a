package provision

import (
	"time"

	"github.com/google/uuid"
)

// RawProfile is the profile as reported by the identity provider, before any
// normalization. Empty strings mean the provider did not send the field.
type RawProfile struct {
	ID           string // provider-scoped user id
	Email        string
	Name         string
	Picture      string
	HostedDomain string // organization domain, e.g. a Google Workspace "hd"
	Locale       string
}

// ExternalProfile is the canonical, normalized form of a RawProfile.
// It is built once per login attempt and not modified afterwards.
type ExternalProfile struct {
	ProviderUserID     string
	Email              string
	DisplayName        string
	AvatarURL          string
	OrganizationDomain string // empty when absent
	LocaleHint         string // empty when absent
}

// UserCandidate holds the attributes a new user would be created with.
type UserCandidate struct {
	Email        string
	DisplayName  string
	LanguageCode string // empty: storage applies the system default
	AvatarURL    string
}

// TenantStrategy tells how the target tenant of a login is chosen.
type TenantStrategy int

const (
	// StrategyDefaultPersonal applies when there is neither an explicit tenant nor
	// an organization domain. Only an exact linkage match may reuse a tenant.
	StrategyDefaultPersonal TenantStrategy = iota
	// StrategyDomainDerived resolves the tenant from the organization domain.
	StrategyDomainDerived
	// StrategyExistingTenant targets the tenant named by the request context.
	StrategyExistingTenant
)

// String implements fmt.Stringer.
func (s TenantStrategy) String() string {
	switch s {
	case StrategyDefaultPersonal:
		return "default_personal"
	case StrategyDomainDerived:
		return "domain_derived"
	case StrategyExistingTenant:
		return "existing_tenant"
	default:
		return "unknown"
	}
}

// TenantCandidate describes the tenant a login should land in.
// SubdomainSlug is derived from OrganizationDomain only; both are empty
// when the profile has no organization domain.
type TenantCandidate struct {
	Strategy           TenantStrategy
	ExistingTenantID   uuid.UUID // uuid.Nil when absent
	Name               string
	OrganizationDomain string
	SubdomainSlug      string
}

// Credentials is the token set handed over by the OAuth protocol layer.
type Credentials struct {
	ProviderScopedID string
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int // seconds
	Scopes           []string
}

// Tenant is a persisted tenant (team) record.
type Tenant struct {
	CreatedAt time.Time
	Name      string
	Domain    string
	Subdomain string
	ID        uuid.UUID
}

// User is a persisted user record scoped to one tenant.
type User struct {
	CreatedAt      time.Time
	LastSignedInAt time.Time
	Email          string
	Name           string
	Language       string
	AvatarURL      string
	LastSignedInIP string
	ID             uuid.UUID
	TenantID       uuid.UUID
}

// Linkage binds one external provider account to exactly one user.
// There is at most one linkage per (user, provider).
type Linkage struct {
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ProviderName     string
	ProviderScopedID string
	ProviderTenantID string
	AccessToken      string
	RefreshToken     string
	Scopes           []string
	ExpiresIn        int
	ID               uuid.UUID
	UserID           uuid.UUID
	TenantID         uuid.UUID
}
