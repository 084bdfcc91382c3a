package cache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache stores values of type V under string keys. A non-positive ttl in Set
// means the entry does not expire.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LoadFunc computes a value on a cache miss. Returning ok=false skips
// caching the value, e.g. for negative lookups.
type LoadFunc[V any] func(ctx context.Context) (value V, ok bool, err error)

// Loader fronts a Cache with a read-through path. Concurrent misses on the
// same key share one LoadFunc call.
type Loader[V any] struct {
	cache Cache[V]
	ttl   time.Duration
	group singleflight.Group
}

// NewLoader returns a Loader caching loaded values for ttl.
func NewLoader[V any](c Cache[V], ttl time.Duration) *Loader[V] {
	return &Loader[V]{cache: c, ttl: ttl}
}

type loaded[V any] struct {
	value V
	ok    bool
}

// Get returns the cached value for key or loads it with fn. Cache read and
// write failures degrade to calling fn; only fn's error is returned.
func (l *Loader[V]) Get(ctx context.Context, key string, fn LoadFunc[V]) (V, error) {
	if v, err := l.cache.Get(ctx, key); err == nil {
		return v, nil
	}

	res, err, _ := l.group.Do(key, func() (any, error) {
		v, ok, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			_ = l.cache.Set(ctx, key, v, l.ttl)
		}
		return loaded[V]{value: v, ok: ok}, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	return res.(loaded[V]).value, nil
}

// Invalidate drops key from the underlying cache.
func (l *Loader[V]) Invalidate(ctx context.Context, key string) error {
	if err := l.cache.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
