// Package session persists per-browser admin state (the principal, the
// identity provider session and pending notifications) in redis or memory.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("session key not found")

// Store is the backing storage for every session scope.
type Store interface {
	Get(ctx context.Context, sid, key string) ([]byte, error)
	Set(ctx context.Context, sid, key string, value []byte, ttl time.Duration) error
	// SetNX writes key only when it is absent and reports whether it did.
	SetNX(ctx context.Context, sid, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, sid string, keys ...string) error
}

// NewID returns a fresh, unguessable session id.
func NewID() string {
	return uuid.NewString()
}

func redisKey(sid, key string) string {
	return fmt.Sprintf("session:%s:%s", sid, key)
}

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, sid, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, redisKey(sid, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session key %q: %w", key, err)
	}
	return data, nil
}

func (s *redisStore) Set(ctx context.Context, sid, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, redisKey(sid, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session key %q: %w", key, err)
	}
	return nil
}

func (s *redisStore) SetNX(ctx context.Context, sid, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, redisKey(sid, key), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim session key %q: %w", key, err)
	}
	return ok, nil
}

func (s *redisStore) Delete(ctx context.Context, sid string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = redisKey(sid, k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete session keys: %w", err)
	}
	return nil
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore keeps sessions in process memory. Used in development and
// tests when no redis is configured.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *memoryStore) Get(ctx context.Context, sid, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := redisKey(sid, key)
	e, ok := s.entries[k]
	if !ok {
		return nil, ErrNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, k)
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *memoryStore) Set(ctx context.Context, sid, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[redisKey(sid, key)] = e
	return nil
}

func (s *memoryStore) SetNX(ctx context.Context, sid, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := redisKey(sid, key)
	if e, ok := s.entries[k]; ok && (e.expiresAt.IsZero() || s.now().Before(e.expiresAt)) {
		return false, nil
	}
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[k] = e
	return true, nil
}

func (s *memoryStore) Delete(ctx context.Context, sid string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, redisKey(sid, k))
	}
	return nil
}
