package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoToken means no session token is stored.
var ErrNoToken = errors.New("session: no token")

// TokenStore keeps the transient session token and the one-shot
// "just authenticated" flag between views.
type TokenStore interface {
	SaveToken(ctx context.Context, token string, ttl time.Duration) error
	LoadToken(ctx context.Context) (string, error)
	DeleteToken(ctx context.Context) error
	MarkAuthenticated(ctx context.Context) error
	// ConsumeAuthenticated returns the flag and clears it.
	ConsumeAuthenticated(ctx context.Context) (bool, error)
}

// MemoryStore is a process-local TokenStore.
type MemoryStore struct {
	mu       sync.Mutex
	token    string
	expires  time.Time
	justAuth bool
	now      func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) SaveToken(_ context.Context, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.expires = time.Time{}
	if ttl > 0 {
		m.expires = m.now().Add(ttl)
	}
	return nil
}

func (m *MemoryStore) LoadToken(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || (!m.expires.IsZero() && !m.now().Before(m.expires)) {
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *MemoryStore) DeleteToken(_ context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.justAuth = false
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) MarkAuthenticated(_ context.Context) error {
	m.mu.Lock()
	m.justAuth = true
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ConsumeAuthenticated(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.justAuth
	m.justAuth = false
	return v, nil
}

const flagTTL = 5 * time.Minute

// RedisStore persists the session token in redis so separate CLI
// invocations share one login. Keys expire with the session.
type RedisStore struct {
	redis     *redis.Client
	namespace string
}

// NewRedisStore creates a store whose keys are scoped by namespace
// (typically the API base URL plus the OS user).
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	return &RedisStore{redis: client, namespace: namespace}
}

func (s *RedisStore) tokenKey() string { return fmt.Sprintf("clinic:session:%s:token", s.namespace) }
func (s *RedisStore) flagKey() string  { return fmt.Sprintf("clinic:session:%s:just_authenticated", s.namespace) }

func (s *RedisStore) SaveToken(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.tokenKey(), token, ttl).Err(); err != nil {
		return fmt.Errorf("session: save token: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadToken(ctx context.Context) (string, error) {
	token, err := s.redis.Get(ctx, s.tokenKey()).Result()
	if err == redis.Nil {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("session: load token: %w", err)
	}
	return token, nil
}

func (s *RedisStore) DeleteToken(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.tokenKey(), s.flagKey()).Err(); err != nil {
		return fmt.Errorf("session: delete token: %w", err)
	}
	return nil
}

func (s *RedisStore) MarkAuthenticated(ctx context.Context) error {
	if err := s.redis.Set(ctx, s.flagKey(), "1", flagTTL).Err(); err != nil {
		return fmt.Errorf("session: mark authenticated: %w", err)
	}
	return nil
}

func (s *RedisStore) ConsumeAuthenticated(ctx context.Context) (bool, error) {
	_, err := s.redis.GetDel(ctx, s.flagKey()).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session: consume flag: %w", err)
	}
	return true, nil
}
