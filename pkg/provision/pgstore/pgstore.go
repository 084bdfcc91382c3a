// Package pgstore is the PostgreSQL provision.Store. Every provisioning attempt
// runs in one serializable transaction; unique violations and serialization
// failures surface as provision.ErrTransientStorage so the caller retries.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/teamauth/pkg/db"
	"github.com/dmitrymomot/teamauth/pkg/provision"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations holds the schema as goose migrations, rooted at the migrations directory.
var Migrations fs.FS = mustSub(migrations, "migrations")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Store implements provision.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithinTx implements provision.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx provision.Tx) error) error {
	err := db.WithSerializableTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
	return classify(err)
}

// classify marks errors worth retrying. Already classified errors pass through.
func classify(err error) error {
	if err == nil || errors.Is(err, provision.ErrTransientStorage) {
		return err
	}
	if db.IsRetryable(err) || pgconn.SafeToRetry(err) {
		return errors.Join(provision.ErrTransientStorage, err)
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return provision.ErrNotFound
	}
	return classify(err)
}

type pgTx struct {
	tx pgx.Tx
}

const tenantColumns = `id, name, COALESCE(domain, ''), COALESCE(subdomain, ''), created_at`

func scanTenant(row pgx.Row) (*provision.Tenant, error) {
	var t provision.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Domain, &t.Subdomain, &t.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (p *pgTx) TenantByID(ctx context.Context, id uuid.UUID) (*provision.Tenant, error) {
	return scanTenant(p.tx.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
}

func (p *pgTx) TenantByDomain(ctx context.Context, domain string) (*provision.Tenant, error) {
	return scanTenant(p.tx.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE domain = $1`, domain))
}

func (p *pgTx) TenantBySubdomain(ctx context.Context, subdomain string) (*provision.Tenant, error) {
	return scanTenant(p.tx.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1`, subdomain))
}

func (p *pgTx) CreateTenant(ctx context.Context, t *provision.Tenant) error {
	_, err := p.tx.Exec(ctx,
		`INSERT INTO tenants (id, name, domain, subdomain, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)`,
		t.ID, t.Name, t.Domain, t.Subdomain, t.CreatedAt)
	return classify(err)
}

const userColumns = `u.id, u.tenant_id, u.email, u.name, COALESCE(u.language, ''), COALESCE(u.avatar_url, ''),
	COALESCE(u.last_signed_in_ip, ''), COALESCE(u.last_signed_in_at, u.created_at), u.created_at`

func scanUser(row pgx.Row) (*provision.User, error) {
	var u provision.User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Language, &u.AvatarURL,
		&u.LastSignedInIP, &u.LastSignedInAt, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (p *pgTx) UserByLinkage(ctx context.Context, tenantID uuid.UUID, provider, providerScopedID string) (*provision.User, error) {
	return scanUser(p.tx.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 JOIN user_authentications a ON a.user_id = u.id
		 WHERE a.tenant_id = $1 AND a.provider_name = $2 AND a.provider_id = $3`,
		tenantID, provider, providerScopedID))
}

func (p *pgTx) UserByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*provision.User, error) {
	return scanUser(p.tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.tenant_id = $1 AND u.email = $2`,
		tenantID, email))
}

func (p *pgTx) UserByEmailOutside(ctx context.Context, tenantID uuid.UUID, email string) (*provision.User, error) {
	return scanUser(p.tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u
		 WHERE u.tenant_id <> $1 AND u.email = $2
		 ORDER BY u.created_at, u.id LIMIT 1`,
		tenantID, email))
}

func (p *pgTx) CreateUser(ctx context.Context, u *provision.User) error {
	_, err := p.tx.Exec(ctx,
		`INSERT INTO users (id, tenant_id, email, name, language, avatar_url, last_signed_in_ip, last_signed_in_at, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9)`,
		u.ID, u.TenantID, u.Email, u.Name, u.Language, u.AvatarURL, u.LastSignedInIP, u.LastSignedInAt, u.CreatedAt)
	return classify(err)
}

func (p *pgTx) TouchUser(ctx context.Context, userID uuid.UUID, ip string, at time.Time) error {
	tag, err := p.tx.Exec(ctx,
		`UPDATE users SET last_signed_in_ip = NULLIF($2, ''), last_signed_in_at = $3 WHERE id = $1`,
		userID, ip, at)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return provision.ErrNotFound
	}
	return nil
}

const linkageColumns = `id, user_id, tenant_id, provider_name, provider_id, provider_tenant_id,
	access_token, refresh_token, expires_in, scopes, created_at, updated_at`

func scanLinkage(row pgx.Row) (*provision.Linkage, error) {
	var l provision.Linkage
	err := row.Scan(&l.ID, &l.UserID, &l.TenantID, &l.ProviderName, &l.ProviderScopedID, &l.ProviderTenantID,
		&l.AccessToken, &l.RefreshToken, &l.ExpiresIn, &l.Scopes, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (p *pgTx) LinkageByIdentity(ctx context.Context, provider, providerScopedID string) (*provision.Linkage, error) {
	return scanLinkage(p.tx.QueryRow(ctx,
		`SELECT `+linkageColumns+` FROM user_authentications
		 WHERE provider_name = $1 AND provider_id = $2
		 ORDER BY created_at, id LIMIT 1`,
		provider, providerScopedID))
}

func (p *pgTx) LinkageByUser(ctx context.Context, userID uuid.UUID, provider string) (*provision.Linkage, error) {
	return scanLinkage(p.tx.QueryRow(ctx,
		`SELECT `+linkageColumns+` FROM user_authentications WHERE user_id = $1 AND provider_name = $2`,
		userID, provider))
}

func (p *pgTx) CreateLinkage(ctx context.Context, l *provision.Linkage) error {
	_, err := p.tx.Exec(ctx,
		`INSERT INTO user_authentications (`+linkageColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		l.ID, l.UserID, l.TenantID, l.ProviderName, l.ProviderScopedID, l.ProviderTenantID,
		l.AccessToken, l.RefreshToken, l.ExpiresIn, scopes(l.Scopes), l.CreatedAt, l.UpdatedAt)
	return classify(err)
}

func (p *pgTx) UpdateLinkage(ctx context.Context, l *provision.Linkage) error {
	tag, err := p.tx.Exec(ctx,
		`UPDATE user_authentications
		 SET provider_id = $2, provider_tenant_id = $3, access_token = $4, refresh_token = $5,
		     expires_in = $6, scopes = $7, updated_at = $8
		 WHERE id = $1`,
		l.ID, l.ProviderScopedID, l.ProviderTenantID, l.AccessToken, l.RefreshToken,
		l.ExpiresIn, scopes(l.Scopes), l.UpdatedAt)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return provision.ErrNotFound
	}
	return nil
}

// scopes keeps the column NOT NULL for linkages without scopes.
func scopes(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
