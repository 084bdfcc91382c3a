package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time // zero: never
}

// Memory is a size-bounded LRU cache. Expired entries are dropped lazily on
// read or when they reach the tail of the eviction list.
type Memory[V any] struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front is most recently used
	maxEntries int
	now        func() time.Time
}

// MemoryOption configures Memory.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	maxEntries int
	now        func() time.Time
}

// WithMaxEntries bounds the cache; the least recently used entry is evicted
// first. Zero means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(o *memoryOptions) { o.maxEntries = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewMemory creates an empty in-memory cache.
func NewMemory[V any](opts ...MemoryOption) *Memory[V] {
	o := &memoryOptions{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return &Memory[V]{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: o.maxEntries,
		now:        o.now,
	}
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	elem, ok := m.items[key]
	if !ok {
		return zero, ErrNotFound
	}
	e := elem.Value.(*entry[V])
	if m.expired(e) {
		m.remove(elem)
		return zero, ErrNotFound
	}

	m.order.MoveToFront(elem)
	return e.value, nil
}

func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}

	if elem, ok := m.items[key]; ok {
		e := elem.Value.(*entry[V])
		e.value, e.expiresAt = value, expiresAt
		m.order.MoveToFront(elem)
		return nil
	}

	if m.maxEntries > 0 && len(m.items) >= m.maxEntries {
		m.remove(m.order.Back())
	}

	m.items[key] = m.order.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	return nil
}

func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key]; ok {
		m.remove(elem)
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory[V]) expired(e *entry[V]) bool {
	return !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)
}

// remove must be called with mu held.
func (m *Memory[V]) remove(elem *list.Element) {
	m.order.Remove(elem)
	delete(m.items, elem.Value.(*entry[V]).key)
}

var _ Cache[any] = (*Memory[any])(nil)
