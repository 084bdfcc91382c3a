package provision_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/teamauth/pkg/provision"
	"github.com/dmitrymomot/teamauth/pkg/provision/memstore"
)

func request(email, providerUserID, domain string) provision.Request {
	r := provision.NewResolver(testConfig())
	return provision.Request{
		IP:               "10.0.0.1",
		ProviderName:     "google",
		ProviderTenantID: domain,
		Tenant:           r.Resolve(domain, uuid.Nil),
		User:             provision.UserCandidate{Email: email, DisplayName: "Jane Doe"},
		Credentials: provision.Credentials{
			ProviderScopedID: providerUserID,
			AccessToken:      "access-" + providerUserID,
			RefreshToken:     "refresh-" + providerUserID,
			ExpiresIn:        3600,
			Scopes:           []string{"openid", "email"},
		},
	}
}

func inTenant(req provision.Request, id uuid.UUID) provision.Request {
	req.Tenant.Strategy = provision.StrategyExistingTenant
	req.Tenant.ExistingTenantID = id
	return req
}

func TestProvision_DomainLogin(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	p := provision.NewProvisioner(store)
	ctx := context.Background()

	first, err := p.Provision(ctx, request("jane@acme.com", "g-1", "acme.com"))
	require.NoError(t, err)
	require.True(t, first.IsNewTenant)
	require.True(t, first.IsNewUser)
	require.Equal(t, provision.StrategyDomainDerived, first.Strategy)
	require.Equal(t, "Acme", first.Tenant.Name)
	require.Equal(t, "acme.com", first.Tenant.Domain)
	require.Equal(t, "acme", first.Tenant.Subdomain)
	require.Equal(t, first.Tenant.ID, first.User.TenantID)
	require.Equal(t, "10.0.0.1", first.User.LastSignedInIP)
	require.Equal(t, first.User.ID, first.Linkage.UserID)
	require.Equal(t, first.Tenant.ID, first.Linkage.TenantID)
	require.Equal(t, "acme.com", first.Linkage.ProviderTenantID)

	t.Run("repeat login is idempotent", func(t *testing.T) {
		again, err := p.Provision(ctx, request("jane@acme.com", "g-1", "acme.com"))
		require.NoError(t, err)
		require.False(t, again.IsNewTenant)
		require.False(t, again.IsNewUser)
		require.Equal(t, first.Tenant.ID, again.Tenant.ID)
		require.Equal(t, first.User.ID, again.User.ID)
		require.Equal(t, first.Linkage.ID, again.Linkage.ID)

		tenants, users, linkages := store.Counts()
		require.Equal(t, 1, tenants)
		require.Equal(t, 1, users)
		require.Equal(t, 1, linkages)
	})

	t.Run("colleague joins the same tenant", func(t *testing.T) {
		bob, err := p.Provision(ctx, request("bob@acme.com", "g-2", "acme.com"))
		require.NoError(t, err)
		require.False(t, bob.IsNewTenant)
		require.True(t, bob.IsNewUser)
		require.Equal(t, first.Tenant.ID, bob.Tenant.ID)
	})
}

func TestProvision_LinkageUpdatedInPlace(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	p := provision.NewProvisioner(store)
	ctx := context.Background()

	first, err := p.Provision(ctx, request("jane@acme.com", "g-1", "acme.com"))
	require.NoError(t, err)

	req := request("jane@acme.com", "g-1", "acme.com")
	req.Credentials.AccessToken = "access-new"
	req.Credentials.RefreshToken = ""
	req.Credentials.ExpiresIn = 1800
	req.Credentials.Scopes = []string{"openid", "profile", "openid", ""}

	second, err := p.Provision(ctx, req)
	require.NoError(t, err)
	require.Equal(t, first.Linkage.ID, second.Linkage.ID)
	require.Equal(t, "access-new", second.Linkage.AccessToken)
	require.Equal(t, "refresh-g-1", second.Linkage.RefreshToken)
	require.Equal(t, 1800, second.Linkage.ExpiresIn)
	require.Equal(t, []string{"openid", "profile"}, second.Linkage.Scopes)

	req.Credentials.RefreshToken = "refresh-rotated"
	third, err := p.Provision(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "refresh-rotated", third.Linkage.RefreshToken)

	_, _, linkages := store.Counts()
	require.Equal(t, 1, linkages)
}

func TestProvision_PersonalTenant(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	p := provision.NewProvisioner(store)
	ctx := context.Background()

	first, err := p.Provision(ctx, request("jane@gmail.com", "g-1", ""))
	require.NoError(t, err)
	require.True(t, first.IsNewTenant)
	require.Equal(t, provision.StrategyDefaultPersonal, first.Strategy)
	require.Equal(t, "My Team", first.Tenant.Name)
	require.Empty(t, first.Tenant.Domain)
	require.Empty(t, first.Tenant.Subdomain)

	again, err := p.Provision(ctx, request("jane@gmail.com", "g-1", ""))
	require.NoError(t, err)
	require.False(t, again.IsNewTenant)
	require.False(t, again.IsNewUser)
	require.Equal(t, first.Tenant.ID, again.Tenant.ID)
	require.Equal(t, first.User.ID, again.User.ID)

	other, err := p.Provision(ctx, request("john@gmail.com", "g-2", ""))
	require.NoError(t, err)
	require.True(t, other.IsNewTenant)
	require.NotEqual(t, first.Tenant.ID, other.Tenant.ID)

	tenants, users, linkages := store.Counts()
	require.Equal(t, 2, tenants)
	require.Equal(t, 2, users)
	require.Equal(t, 2, linkages)
}

func TestProvision_SubdomainCollision(t *testing.T) {
	t.Parallel()

	p := provision.NewProvisioner(memstore.New())
	ctx := context.Background()

	com, err := p.Provision(ctx, request("a@acme.com", "g-1", "acme.com"))
	require.NoError(t, err)
	dotIO, err := p.Provision(ctx, request("a@acme.io", "g-2", "acme.io"))
	require.NoError(t, err)
	dotNet, err := p.Provision(ctx, request("a@acme.net", "g-3", "acme.net"))
	require.NoError(t, err)

	require.NotEqual(t, com.Tenant.ID, dotIO.Tenant.ID)
	require.Equal(t, "acme", com.Tenant.Subdomain)
	require.Equal(t, "acme2", dotIO.Tenant.Subdomain)
	require.Equal(t, "acme3", dotNet.Tenant.Subdomain)
}

func TestProvision_Conflict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("existing tenant", func(t *testing.T) {
		t.Parallel()

		store := memstore.New()
		p := provision.NewProvisioner(store)

		owner, err := p.Provision(ctx, request("jane@acme.com", "g-1", "acme.com"))
		require.NoError(t, err)
		target, err := p.Provision(ctx, request("bob@other.com", "g-2", "other.com"))
		require.NoError(t, err)

		_, err = p.Provision(ctx, inTenant(request("jane@acme.com", "g-9", ""), target.Tenant.ID))
		require.ErrorIs(t, err, provision.ErrConflict)

		var conflict *provision.ConflictError
		require.ErrorAs(t, err, &conflict)
		require.Equal(t, owner.Tenant.ID, conflict.OwnerTenantID)
		require.Equal(t, target.Tenant.ID, conflict.TargetTenant)
		require.Equal(t, "jane@acme.com", conflict.Email)

		tenants, users, linkages := store.Counts()
		require.Equal(t, 2, tenants)
		require.Equal(t, 2, users)
		require.Equal(t, 2, linkages)
	})

	t.Run("new domain tenant is rolled back", func(t *testing.T) {
		t.Parallel()

		store := memstore.New()
		p := provision.NewProvisioner(store)

		_, err := p.Provision(ctx, request("jane@acme.com", "g-1", ""))
		require.NoError(t, err)

		_, err = p.Provision(ctx, request("jane@acme.com", "g-1", "acme.com"))
		require.ErrorIs(t, err, provision.ErrConflict)
		require.False(t, provision.IsTransient(err))

		tenants, users, linkages := store.Counts()
		require.Equal(t, 1, tenants)
		require.Equal(t, 1, users)
		require.Equal(t, 1, linkages)
	})
}

func TestProvision_ExistingTenant(t *testing.T) {
	t.Parallel()

	p := provision.NewProvisioner(memstore.New())
	ctx := context.Background()

	acme, err := p.Provision(ctx, request("jane@acme.com", "g-1", "acme.com"))
	require.NoError(t, err)

	// A personal address joins the tenant the login started from.
	res, err := p.Provision(ctx, inTenant(request("bob@gmail.com", "g-2", ""), acme.Tenant.ID))
	require.NoError(t, err)
	require.False(t, res.IsNewTenant)
	require.True(t, res.IsNewUser)
	require.Equal(t, acme.Tenant.ID, res.Tenant.ID)
	require.Equal(t, provision.StrategyExistingTenant, res.Strategy)

	t.Run("unknown tenant", func(t *testing.T) {
		_, err := p.Provision(ctx, inTenant(request("bob@gmail.com", "g-2", ""), uuid.New()))
		require.ErrorIs(t, err, provision.ErrValidation)
	})
}

func TestProvision_Validation(t *testing.T) {
	t.Parallel()

	p := provision.NewProvisioner(memstore.New())

	tests := []struct {
		name  string
		req   func() provision.Request
		field string
	}{
		{
			name:  "missing email",
			req:   func() provision.Request { return request("", "g-1", "") },
			field: "email",
		},
		{
			name:  "malformed email",
			req:   func() provision.Request { return request("not-an-email", "g-1", "") },
			field: "email",
		},
		{
			name:  "display form email",
			req:   func() provision.Request { return request("Jane <jane@acme.com>", "g-1", "") },
			field: "email",
		},
		{
			name:  "missing provider user id",
			req:   func() provision.Request { return request("jane@acme.com", "", "") },
			field: "provider user id",
		},
		{
			name: "missing provider",
			req: func() provision.Request {
				r := request("jane@acme.com", "g-1", "")
				r.ProviderName = ""
				return r
			},
			field: "provider",
		},
		{
			name: "domain strategy without domain",
			req: func() provision.Request {
				r := request("jane@acme.com", "g-1", "")
				r.Tenant.Strategy = provision.StrategyDomainDerived
				return r
			},
			field: "tenant",
		},
		{
			name: "existing tenant strategy without tenant",
			req: func() provision.Request {
				r := request("jane@acme.com", "g-1", "")
				r.Tenant.Strategy = provision.StrategyExistingTenant
				return r
			},
			field: "tenant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := p.Provision(context.Background(), tt.req())
			require.ErrorIs(t, err, provision.ErrValidation)

			var verr *provision.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestProvision_EmailIsNormalized(t *testing.T) {
	t.Parallel()

	p := provision.NewProvisioner(memstore.New())
	ctx := context.Background()

	first, err := p.Provision(ctx, request(" Jane@ACME.com ", "g-1", "acme.com"))
	require.NoError(t, err)
	require.Equal(t, "jane@acme.com", first.User.Email)

	again, err := p.Provision(ctx, request("jane@acme.com", "g-1", "acme.com"))
	require.NoError(t, err)
	require.Equal(t, first.User.ID, again.User.ID)
}

func TestProvision_ConcurrentLogins(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	p := provision.NewProvisioner(store)

	const workers = 16
	var wg sync.WaitGroup
	results := make([]*provision.Result, workers)
	errs := make([]error, workers)

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = p.Provision(context.Background(), request("jane@acme.com", "g-1", "acme.com"))
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		require.Equal(t, results[0].Tenant.ID, results[i].Tenant.ID)
		require.Equal(t, results[0].User.ID, results[i].User.ID)
	}

	tenants, users, linkages := store.Counts()
	require.Equal(t, 1, tenants)
	require.Equal(t, 1, users)
	require.Equal(t, 1, linkages)
}

// racingStore lets a concurrent login commit right before the first attempt,
// then fails that attempt the way a unique constraint violation would.
type racingStore struct {
	inner    provision.Store
	failures int
	calls    atomic.Int32
	before   func()
}

func (s *racingStore) WithinTx(ctx context.Context, fn func(context.Context, provision.Tx) error) error {
	n := int(s.calls.Add(1))
	if n <= s.failures {
		if n == 1 && s.before != nil {
			s.before()
		}
		return errors.Join(provision.ErrTransientStorage, errors.New("duplicate key value"))
	}
	return s.inner.WithinTx(ctx, fn)
}

func TestProvision_RetriesTransientErrorOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("second attempt finds the winner", func(t *testing.T) {
		t.Parallel()

		inner := memstore.New()
		var winner *provision.Result
		store := &racingStore{inner: inner, failures: 1}
		store.before = func() {
			var err error
			winner, err = provision.NewProvisioner(inner).Provision(ctx, request("jane@acme.com", "g-1", "acme.com"))
			require.NoError(t, err)
		}

		res, err := provision.NewProvisioner(store).Provision(ctx, request("jane@acme.com", "g-1", "acme.com"))
		require.NoError(t, err)
		require.EqualValues(t, 2, store.calls.Load())
		require.False(t, res.IsNewTenant)
		require.False(t, res.IsNewUser)
		require.Equal(t, winner.Tenant.ID, res.Tenant.ID)
		require.Equal(t, winner.User.ID, res.User.ID)
	})

	t.Run("gives up after the retry", func(t *testing.T) {
		t.Parallel()

		store := &racingStore{inner: memstore.New(), failures: 5}
		_, err := provision.NewProvisioner(store).Provision(ctx, request("jane@acme.com", "g-1", "acme.com"))
		require.ErrorIs(t, err, provision.ErrTransientStorage)
		require.EqualValues(t, 2, store.calls.Load())
	})
}

func TestProvision_Options(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	id := uuid.MustParse("0193a3c4-0000-7000-8000-000000000001")
	var issued int
	p := provision.NewProvisioner(memstore.New(),
		provision.WithClock(func() time.Time { return fixed }),
		provision.WithIDGenerator(func() uuid.UUID {
			issued++
			b := id
			b[15] = byte(issued)
			return b
		}),
		provision.WithLogger(nil),
	)

	res, err := p.Provision(context.Background(), request("jane@acme.com", "g-1", "acme.com"))
	require.NoError(t, err)
	require.Equal(t, fixed, res.Tenant.CreatedAt)
	require.Equal(t, fixed, res.User.LastSignedInAt)
	require.Equal(t, fixed, res.Linkage.UpdatedAt)
	require.Equal(t, byte(1), res.Tenant.ID[15])
	require.Equal(t, byte(2), res.User.ID[15])
	require.Equal(t, byte(3), res.Linkage.ID[15])
}
