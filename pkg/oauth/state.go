package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStateTTL bounds how long a user may stay on the consent screen.
const DefaultStateTTL = 10 * time.Minute

// State is what the login start handler remembers for the callback.
type State struct {
	Provider  string `json:"provider"`
	Subdomain string `json:"subdomain,omitempty"` // tenant host the login started on
	Client    string `json:"client,omitempty"`
}

// StateStore keeps login states between redirect and callback.
// Consume must succeed at most once per token.
type StateStore interface {
	Save(ctx context.Context, token string, s State, ttl time.Duration) error
	Consume(ctx context.Context, token string) (State, error)
}

// NewStateToken returns a random URL-safe state token.
func NewStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("oauth: generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MemoryStateStore is a StateStore for a single process.
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]memoryState
}

type memoryState struct {
	expiresAt time.Time
	state     State
}

// NewMemoryStateStore creates an empty MemoryStateStore.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{entries: make(map[string]memoryState)}
}

// Save stores s under token. Expired entries are swept on every call.
func (m *MemoryStateStore) Save(_ context.Context, token string, s State, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.entries[token] = memoryState{state: s, expiresAt: now.Add(ttl)}
	return nil
}

// Consume returns and deletes the state saved under token.
func (m *MemoryStateStore) Consume(_ context.Context, token string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[token]
	delete(m.entries, token)
	if !ok || !time.Now().Before(e.expiresAt) {
		return State{}, ErrInvalidState
	}
	return e.state, nil
}

// RedisStateStore shares login states between instances. GETDEL makes
// Consume single-use even under concurrent callbacks.
type RedisStateStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStateStore creates a RedisStateStore. Keys are prefixed with "oauth:state:".
func NewRedisStateStore(client redis.UniversalClient) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: "oauth:state:"}
}

func (r *RedisStateStore) Save(ctx context.Context, token string, s State, ttl time.Duration) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("oauth: encode state: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+token, b, ttl).Err(); err != nil {
		return fmt.Errorf("oauth: save state: %w", err)
	}
	return nil
}

func (r *RedisStateStore) Consume(ctx context.Context, token string) (State, error) {
	b, err := r.client.GetDel(ctx, r.prefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, ErrInvalidState
	}
	if err != nil {
		return State{}, fmt.Errorf("oauth: load state: %w", err)
	}

	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return State{}, errors.Join(ErrInvalidState, err)
	}
	return s, nil
}
