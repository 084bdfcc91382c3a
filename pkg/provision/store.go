package provision

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence collaborator. WithinTx runs fn in one transaction at
// serializable isolation: commit when fn returns nil, roll back otherwise.
// Implementations wrap unique constraint violations and serialization failures
// with ErrTransientStorage.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the lookups and writes available inside a transaction.
// Lookups return ErrNotFound when nothing matches.
//
// Implementations must enforce these uniqueness constraints:
//   - tenant domain and tenant subdomain, when non-empty
//   - user (tenant, email)
//   - linkage (user, provider) and linkage (tenant, provider, provider scoped id)
type Tx interface {
	TenantByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	TenantByDomain(ctx context.Context, domain string) (*Tenant, error)
	TenantBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
	CreateTenant(ctx context.Context, t *Tenant) error

	UserByLinkage(ctx context.Context, tenantID uuid.UUID, provider, providerScopedID string) (*User, error)
	UserByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*User, error)
	// UserByEmailOutside finds the oldest user with email in any tenant other than tenantID.
	UserByEmailOutside(ctx context.Context, tenantID uuid.UUID, email string) (*User, error)
	CreateUser(ctx context.Context, u *User) error
	TouchUser(ctx context.Context, userID uuid.UUID, ip string, at time.Time) error

	// LinkageByIdentity finds the linkage of an external account in any tenant.
	// When the account is linked in several tenants, the oldest linkage wins.
	LinkageByIdentity(ctx context.Context, provider, providerScopedID string) (*Linkage, error)
	LinkageByUser(ctx context.Context, userID uuid.UUID, provider string) (*Linkage, error)
	CreateLinkage(ctx context.Context, l *Linkage) error
	UpdateLinkage(ctx context.Context, l *Linkage) error
}
