// Package cache provides small read-through caches for hot lookups.
//
// [Memory] is a size-bounded LRU with per-entry TTL for a single process.
// [Redis] stores JSON-encoded values in Redis so several server instances
// share them. Both satisfy [Cache].
//
// [Loader] adds the read-through path and collapses concurrent misses on a
// key into one load:
//
//	tenants := cache.NewLoader[uuid.UUID](cache.NewMemory[uuid.UUID](cache.WithMaxEntries(10_000)), time.Minute)
//
//	id, err := tenants.Get(ctx, subdomain, func(ctx context.Context) (uuid.UUID, bool, error) {
//	    id, err := svc.TenantIDBySubdomain(ctx, subdomain)
//	    return id, id != uuid.Nil, err
//	})
//
// Returning ok=false from the load function keeps a miss out of the cache, so
// a tenant created a moment later is found on the next request.
package cache
