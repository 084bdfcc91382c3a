package provision

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Login bundles what the OAuth and request-context collaborators know about one
// completed provider handshake.
type Login struct {
	Provider         string
	Profile          RawProfile
	Credentials      Credentials // ProviderScopedID is taken from Profile.ID
	ExistingTenantID uuid.UUID   // uuid.Nil when the login did not start on a tenant host
	IP               string
	Client           Client
}

// Service runs a login through normalization, tenant resolution, provisioning
// and result assembly.
type Service struct {
	store       Store
	normalizer  *Normalizer
	resolver    *Resolver
	provisioner *Provisioner
}

// NewService wires the pipeline. opts configure the underlying Provisioner.
func NewService(cfg Config, store Store, opts ...Option) *Service {
	return &Service{
		store:       store,
		normalizer:  NewNormalizer(cfg),
		resolver:    NewResolver(cfg),
		provisioner: NewProvisioner(store, opts...),
	}
}

// Authenticate provisions the account behind l and returns the result for the
// session layer. Errors match ErrValidation, ErrConflict or ErrTransientStorage
// when they fall in those classes.
func (s *Service) Authenticate(ctx context.Context, l Login) (*AuthenticationResult, error) {
	profile, user := s.normalizer.Normalize(l.Profile)
	tenant := s.resolver.Resolve(profile.OrganizationDomain, l.ExistingTenantID)

	creds := l.Credentials
	creds.ProviderScopedID = profile.ProviderUserID

	res, err := s.provisioner.Provision(ctx, Request{
		IP:               l.IP,
		ProviderName:     l.Provider,
		ProviderTenantID: profile.OrganizationDomain,
		Tenant:           tenant,
		User:             user,
		Credentials:      creds,
	})

	return Assemble(l.Client, res, err)
}

// TenantIDBySubdomain looks up the tenant a tenant-specific login host points at.
// Returns uuid.Nil without error when no tenant uses the subdomain.
func (s *Service) TenantIDBySubdomain(ctx context.Context, subdomain string) (uuid.UUID, error) {
	if subdomain == "" {
		return uuid.Nil, nil
	}

	var id uuid.UUID
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		t, err := tx.TenantBySubdomain(ctx, subdomain)
		if err != nil {
			return err
		}
		id = t.ID
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}

	return id, nil
}
