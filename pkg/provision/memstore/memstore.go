// Package memstore is an in-memory provision.Store for tests and single-process
// development setups. Transactions are serialized by one mutex and rolled back
// through an undo log, so concurrent logins behave as under serializable isolation.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/teamauth/pkg/provision"
)

// ErrUniqueViolation is returned when a write breaks a uniqueness constraint.
// It is always joined with provision.ErrTransientStorage.
var ErrUniqueViolation = errors.New("memstore: unique constraint violation")

// Store keeps tenants, users and linkages in maps.
type Store struct {
	mu       sync.Mutex
	tenants  map[uuid.UUID]provision.Tenant
	users    map[uuid.UUID]provision.User
	linkages map[uuid.UUID]provision.Linkage
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		tenants:  make(map[uuid.UUID]provision.Tenant),
		users:    make(map[uuid.UUID]provision.User),
		linkages: make(map[uuid.UUID]provision.Linkage),
	}
}

// WithinTx implements provision.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx provision.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &tx{s: s}
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
		if err != nil {
			tx.rollback()
		}
	}()

	return fn(ctx, tx)
}

// Counts returns the number of stored tenants, users and linkages.
func (s *Store) Counts() (tenants, users, linkages int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tenants), len(s.users), len(s.linkages)
}

type tx struct {
	s    *Store
	undo []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func conflict(what string) error {
	return errors.Join(provision.ErrTransientStorage, fmt.Errorf("%w: %s", ErrUniqueViolation, what))
}

func (t *tx) TenantByID(_ context.Context, id uuid.UUID) (*provision.Tenant, error) {
	tn, ok := t.s.tenants[id]
	if !ok {
		return nil, provision.ErrNotFound
	}
	return &tn, nil
}

func (t *tx) TenantByDomain(_ context.Context, domain string) (*provision.Tenant, error) {
	return t.findTenant(func(tn provision.Tenant) bool { return domain != "" && tn.Domain == domain })
}

func (t *tx) TenantBySubdomain(_ context.Context, subdomain string) (*provision.Tenant, error) {
	return t.findTenant(func(tn provision.Tenant) bool { return subdomain != "" && tn.Subdomain == subdomain })
}

func (t *tx) findTenant(match func(provision.Tenant) bool) (*provision.Tenant, error) {
	for _, tn := range t.s.tenants {
		if match(tn) {
			return &tn, nil
		}
	}
	return nil, provision.ErrNotFound
}

func (t *tx) CreateTenant(_ context.Context, tn *provision.Tenant) error {
	if _, ok := t.s.tenants[tn.ID]; ok {
		return conflict("tenant id")
	}
	for _, existing := range t.s.tenants {
		if tn.Domain != "" && existing.Domain == tn.Domain {
			return conflict("tenant domain")
		}
		if tn.Subdomain != "" && existing.Subdomain == tn.Subdomain {
			return conflict("tenant subdomain")
		}
	}

	t.s.tenants[tn.ID] = *tn
	id := tn.ID
	t.undo = append(t.undo, func() { delete(t.s.tenants, id) })
	return nil
}

func (t *tx) UserByLinkage(_ context.Context, tenantID uuid.UUID, provider, providerScopedID string) (*provision.User, error) {
	for _, l := range t.s.linkages {
		if l.TenantID == tenantID && l.ProviderName == provider && l.ProviderScopedID == providerScopedID {
			u, ok := t.s.users[l.UserID]
			if !ok {
				return nil, provision.ErrNotFound
			}
			return &u, nil
		}
	}
	return nil, provision.ErrNotFound
}

func (t *tx) UserByEmail(_ context.Context, tenantID uuid.UUID, email string) (*provision.User, error) {
	for _, u := range t.s.users {
		if u.TenantID == tenantID && u.Email == email {
			return &u, nil
		}
	}
	return nil, provision.ErrNotFound
}

func (t *tx) UserByEmailOutside(_ context.Context, tenantID uuid.UUID, email string) (*provision.User, error) {
	var found *provision.User
	for _, u := range t.s.users {
		if u.TenantID == tenantID || u.Email != email {
			continue
		}
		if found == nil || u.CreatedAt.Before(found.CreatedAt) {
			found = &u
		}
	}
	if found == nil {
		return nil, provision.ErrNotFound
	}
	return found, nil
}

func (t *tx) CreateUser(_ context.Context, u *provision.User) error {
	if _, ok := t.s.users[u.ID]; ok {
		return conflict("user id")
	}
	if _, ok := t.s.tenants[u.TenantID]; !ok {
		return fmt.Errorf("memstore: user references unknown tenant %s", u.TenantID)
	}
	for _, existing := range t.s.users {
		if existing.TenantID == u.TenantID && existing.Email == u.Email {
			return conflict("user email")
		}
	}

	t.s.users[u.ID] = *u
	id := u.ID
	t.undo = append(t.undo, func() { delete(t.s.users, id) })
	return nil
}

func (t *tx) TouchUser(_ context.Context, userID uuid.UUID, ip string, at time.Time) error {
	u, ok := t.s.users[userID]
	if !ok {
		return provision.ErrNotFound
	}
	prev := u
	u.LastSignedInIP, u.LastSignedInAt = ip, at
	t.s.users[userID] = u
	t.undo = append(t.undo, func() { t.s.users[userID] = prev })
	return nil
}

func (t *tx) LinkageByIdentity(_ context.Context, provider, providerScopedID string) (*provision.Linkage, error) {
	var found *provision.Linkage
	for _, l := range t.s.linkages {
		if l.ProviderName != provider || l.ProviderScopedID != providerScopedID {
			continue
		}
		if found == nil || l.CreatedAt.Before(found.CreatedAt) {
			found = &l
		}
	}
	if found == nil {
		return nil, provision.ErrNotFound
	}
	found.Scopes = slices.Clone(found.Scopes)
	return found, nil
}

func (t *tx) LinkageByUser(_ context.Context, userID uuid.UUID, provider string) (*provision.Linkage, error) {
	for _, l := range t.s.linkages {
		if l.UserID == userID && l.ProviderName == provider {
			l.Scopes = slices.Clone(l.Scopes)
			return &l, nil
		}
	}
	return nil, provision.ErrNotFound
}

func (t *tx) CreateLinkage(_ context.Context, l *provision.Linkage) error {
	if _, ok := t.s.linkages[l.ID]; ok {
		return conflict("linkage id")
	}
	if _, ok := t.s.users[l.UserID]; !ok {
		return fmt.Errorf("memstore: linkage references unknown user %s", l.UserID)
	}
	if err := t.checkLinkage(l); err != nil {
		return err
	}

	stored := *l
	stored.Scopes = slices.Clone(l.Scopes)
	t.s.linkages[l.ID] = stored
	id := l.ID
	t.undo = append(t.undo, func() { delete(t.s.linkages, id) })
	return nil
}

func (t *tx) UpdateLinkage(_ context.Context, l *provision.Linkage) error {
	prev, ok := t.s.linkages[l.ID]
	if !ok {
		return provision.ErrNotFound
	}
	if err := t.checkLinkage(l); err != nil {
		return err
	}

	stored := *l
	stored.Scopes = slices.Clone(l.Scopes)
	t.s.linkages[l.ID] = stored
	t.undo = append(t.undo, func() { t.s.linkages[prev.ID] = prev })
	return nil
}

func (t *tx) checkLinkage(l *provision.Linkage) error {
	for id, existing := range t.s.linkages {
		if id == l.ID {
			continue
		}
		if existing.UserID == l.UserID && existing.ProviderName == l.ProviderName {
			return conflict("linkage user/provider")
		}
		if existing.TenantID == l.TenantID && existing.ProviderName == l.ProviderName &&
			existing.ProviderScopedID == l.ProviderScopedID {
			return conflict("linkage provider identity")
		}
	}
	return nil
}
