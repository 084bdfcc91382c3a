package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/teamauth/pkg/logger"
)

const (
	// One extra attempt re-runs the find steps after a lost race.
	maxAttempts = 2

	// Suffixes tried when a derived subdomain is already taken: acme, acme2 ... acme10.
	maxSubdomainCandidates = 10
)

// Request is the input of a single provisioning call.
type Request struct {
	IP               string
	ProviderName     string
	ProviderTenantID string // provider-scoped organization id, e.g. the hosted domain
	Tenant           TenantCandidate
	User             UserCandidate
	Credentials      Credentials
}

// Result is what the provisioner resolved. Records are copies owned by the caller.
type Result struct {
	User        *User
	Tenant      *Tenant
	Linkage     *Linkage
	Strategy    TenantStrategy
	IsNewUser   bool
	IsNewTenant bool
}

// Provisioner finds or creates the tenant, user and linkage of a login.
type Provisioner struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
	newID func() uuid.UUID
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provisioner) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Provisioner) {
		if now != nil {
			p.now = now
		}
	}
}

// WithIDGenerator overrides uuid.New for new records.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(p *Provisioner) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// NewProvisioner creates a Provisioner on top of store.
func NewProvisioner(store Store, opts ...Option) *Provisioner {
	p := &Provisioner{
		store: store,
		log:   logger.NewNope(),
		now:   time.Now,
		newID: uuid.New,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision resolves the tenant, then the user inside it, then upserts the linkage,
// all in one transaction. The linkage is written last, so a failure in an earlier
// step never persists tokens. A transient storage error is retried once; the
// second attempt finds whatever the concurrent winner committed.
func (p *Provisioner) Provision(ctx context.Context, req Request) (*Result, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	log := p.log.With(
		slog.String("provider", req.ProviderName),
		slog.String("strategy", req.Tenant.Strategy.String()),
		slog.String("email", logger.MaskEmail(req.User.Email)),
	)

	var (
		res *Result
		err error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err = p.attempt(ctx, req)
		if err == nil || !IsTransient(err) {
			break
		}
		log.WarnContext(ctx, "provisioning attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrConflict), errors.Is(err, ErrValidation):
			log.InfoContext(ctx, "provisioning rejected", slog.String("error", err.Error()))
		default:
			log.ErrorContext(ctx, "provisioning failed", slog.String("error", err.Error()))
		}
		return nil, err
	}

	log.InfoContext(ctx, "account provisioned",
		slog.String("tenant_id", res.Tenant.ID.String()),
		slog.String("user_id", res.User.ID.String()),
		slog.Bool("new_tenant", res.IsNewTenant),
		slog.Bool("new_user", res.IsNewUser),
	)

	return res, nil
}

func (p *Provisioner) attempt(ctx context.Context, req Request) (*Result, error) {
	res := &Result{Strategy: req.Tenant.Strategy}

	err := p.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		tenant, created, err := p.resolveTenant(ctx, tx, req)
		if err != nil {
			return err
		}
		res.Tenant, res.IsNewTenant = tenant, created

		user, created, err := p.resolveUser(ctx, tx, tenant, req)
		if err != nil {
			return err
		}
		res.User, res.IsNewUser = user, created

		linkage, err := p.upsertLinkage(ctx, tx, tenant, user, req)
		if err != nil {
			return err
		}
		res.Linkage = linkage

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (p *Provisioner) resolveTenant(ctx context.Context, tx Tx, req Request) (*Tenant, bool, error) {
	c := req.Tenant

	switch c.Strategy {
	case StrategyExistingTenant:
		t, err := tx.TenantByID(ctx, c.ExistingTenantID)
		if errors.Is(err, ErrNotFound) {
			return nil, false, &ValidationError{Field: "tenant", Reason: "unknown tenant " + c.ExistingTenantID.String()}
		}
		if err != nil {
			return nil, false, fmt.Errorf("find tenant by id: %w", err)
		}
		return t, false, nil

	case StrategyDomainDerived:
		t, err := tx.TenantByDomain(ctx, c.OrganizationDomain)
		if err == nil {
			return t, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, fmt.Errorf("find tenant by domain: %w", err)
		}
		return p.createTenant(ctx, tx, c)

	case StrategyDefaultPersonal:
		// Only the exact external identity may lead back to an existing tenant.
		l, err := tx.LinkageByIdentity(ctx, req.ProviderName, req.Credentials.ProviderScopedID)
		if err == nil {
			t, err := tx.TenantByID(ctx, l.TenantID)
			if err != nil {
				return nil, false, fmt.Errorf("find linked tenant: %w", err)
			}
			return t, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, fmt.Errorf("find linkage by identity: %w", err)
		}
		return p.createTenant(ctx, tx, c)

	default:
		return nil, false, &ValidationError{Field: "tenant", Reason: "unknown strategy"}
	}
}

func (p *Provisioner) createTenant(ctx context.Context, tx Tx, c TenantCandidate) (*Tenant, bool, error) {
	subdomain, err := availableSubdomain(ctx, tx, c.SubdomainSlug)
	if err != nil {
		return nil, false, err
	}

	t := &Tenant{
		ID:        p.newID(),
		Name:      c.Name,
		Domain:    c.OrganizationDomain,
		Subdomain: subdomain,
		CreatedAt: p.now().UTC(),
	}
	if err := tx.CreateTenant(ctx, t); err != nil {
		return nil, false, fmt.Errorf("create tenant: %w", err)
	}

	return t, true, nil
}

// availableSubdomain returns base or the first free numbered variant of it.
// Tenants are never matched by subdomain: two domains may share a slug.
func availableSubdomain(ctx context.Context, tx Tx, base string) (string, error) {
	if base == "" {
		return "", nil
	}

	for i := 1; i <= maxSubdomainCandidates; i++ {
		candidate := base
		if i > 1 {
			candidate = base + strconv.Itoa(i)
		}
		_, err := tx.TenantBySubdomain(ctx, candidate)
		if errors.Is(err, ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("check subdomain: %w", err)
		}
	}

	return "", nil
}

func (p *Provisioner) resolveUser(ctx context.Context, tx Tx, tenant *Tenant, req Request) (*User, bool, error) {
	now := p.now().UTC()

	u, err := tx.UserByLinkage(ctx, tenant.ID, req.ProviderName, req.Credentials.ProviderScopedID)
	if err == nil {
		return p.touch(ctx, tx, u, req.IP, now)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("find user by linkage: %w", err)
	}

	u, err = tx.UserByEmail(ctx, tenant.ID, req.User.Email)
	if err == nil {
		return p.touch(ctx, tx, u, req.IP, now)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("find user by email: %w", err)
	}

	owner, err := tx.UserByEmailOutside(ctx, tenant.ID, req.User.Email)
	if err == nil {
		return nil, false, &ConflictError{
			Email:         req.User.Email,
			OwnerTenantID: owner.TenantID,
			TargetTenant:  tenant.ID,
		}
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("find user in other tenants: %w", err)
	}

	u = &User{
		ID:             p.newID(),
		TenantID:       tenant.ID,
		Email:          req.User.Email,
		Name:           req.User.DisplayName,
		Language:       req.User.LanguageCode,
		AvatarURL:      req.User.AvatarURL,
		LastSignedInIP: req.IP,
		LastSignedInAt: now,
		CreatedAt:      now,
	}
	if err := tx.CreateUser(ctx, u); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	return u, true, nil
}

func (p *Provisioner) touch(ctx context.Context, tx Tx, u *User, ip string, at time.Time) (*User, bool, error) {
	if err := tx.TouchUser(ctx, u.ID, ip, at); err != nil {
		return nil, false, fmt.Errorf("touch user: %w", err)
	}
	u.LastSignedInIP, u.LastSignedInAt = ip, at
	return u, false, nil
}

func (p *Provisioner) upsertLinkage(ctx context.Context, tx Tx, tenant *Tenant, user *User, req Request) (*Linkage, error) {
	now := p.now().UTC()
	creds := req.Credentials

	l, err := tx.LinkageByUser(ctx, user.ID, req.ProviderName)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find linkage by user: %w", err)
	}

	if err == nil {
		if l.ProviderScopedID != creds.ProviderScopedID {
			p.log.WarnContext(ctx, "rebinding linkage to a new provider account",
				slog.String("user_id", user.ID.String()),
				slog.String("provider", req.ProviderName),
			)
		}
		l.ProviderScopedID = creds.ProviderScopedID
		l.ProviderTenantID = req.ProviderTenantID
		l.AccessToken = creds.AccessToken
		// Providers omit the refresh token on silent re-consent; keep the old one.
		if creds.RefreshToken != "" {
			l.RefreshToken = creds.RefreshToken
		}
		l.ExpiresIn = creds.ExpiresIn
		l.Scopes = dedupeScopes(creds.Scopes)
		l.UpdatedAt = now
		if err := tx.UpdateLinkage(ctx, l); err != nil {
			return nil, fmt.Errorf("update linkage: %w", err)
		}
		return l, nil
	}

	l = &Linkage{
		ID:               p.newID(),
		UserID:           user.ID,
		TenantID:         tenant.ID,
		ProviderName:     req.ProviderName,
		ProviderScopedID: creds.ProviderScopedID,
		ProviderTenantID: req.ProviderTenantID,
		AccessToken:      creds.AccessToken,
		RefreshToken:     creds.RefreshToken,
		ExpiresIn:        creds.ExpiresIn,
		Scopes:           dedupeScopes(creds.Scopes),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.CreateLinkage(ctx, l); err != nil {
		return nil, fmt.Errorf("create linkage: %w", err)
	}

	return l, nil
}

func validate(req *Request) error {
	req.User.Email = NormalizeEmail(req.User.Email)

	if req.User.Email == "" {
		return &ValidationError{Field: "email", Reason: "missing"}
	}
	addr, err := mail.ParseAddress(req.User.Email)
	if err != nil || addr.Address != req.User.Email || addr.Name != "" {
		return &ValidationError{Field: "email", Reason: "malformed"}
	}
	if req.ProviderName == "" {
		return &ValidationError{Field: "provider", Reason: "missing"}
	}
	if req.Credentials.ProviderScopedID == "" {
		return &ValidationError{Field: "provider user id", Reason: "missing"}
	}
	if req.Tenant.Strategy == StrategyDomainDerived && req.Tenant.OrganizationDomain == "" {
		return &ValidationError{Field: "tenant", Reason: "domain strategy without a domain"}
	}
	if req.Tenant.Strategy == StrategyExistingTenant && req.Tenant.ExistingTenantID == uuid.Nil {
		return &ValidationError{Field: "tenant", Reason: "existing tenant strategy without a tenant"}
	}

	return nil
}

// dedupeScopes drops empty and repeated scopes, keeping first occurrences in order.
func dedupeScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	seen := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
