package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Keys used inside a scope.
const (
	KeyAdminData = "admin_data"
	KeyIdentity  = "identity"
	KeyFlash     = "flash"

	// Locks held while a non-repeatable step runs.
	KeyLoginLock         = "login_busy"
	KeyCreateStoreLock   = "create_store_busy"
	KeyCreateProductLock = "create_product_busy"
)

// Scope is one browser session's view of the Store.
type Scope struct {
	store Store
	sid   string
	ttl   time.Duration
}

func NewScope(store Store, sid string, ttl time.Duration) *Scope {
	return &Scope{store: store, sid: sid, ttl: ttl}
}

func (s *Scope) ID() string {
	return s.sid
}

// Load decodes key into v. A missing key returns ErrNotFound.
func (s *Scope) Load(ctx context.Context, key string, v any) error {
	data, err := s.store.Get(ctx, s.sid, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode session key %q: %w", key, err)
	}
	return nil
}

func (s *Scope) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode session key %q: %w", key, err)
	}
	return s.store.Set(ctx, s.sid, key, data, s.ttl)
}

func (s *Scope) Remove(ctx context.Context, keys ...string) error {
	return s.store.Delete(ctx, s.sid, keys...)
}

// Lock claims key for ttl. It reports false while another request of the
// same session holds it. The ttl bounds a lock whose holder never unlocks.
func (s *Scope) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.store.SetNX(ctx, s.sid, key, []byte("1"), ttl)
}

func (s *Scope) Unlock(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.sid, key)
}

// FlashKind separates success and failure notifications.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

// AddFlash queues a notification for the next rendered page.
func (s *Scope) AddFlash(ctx context.Context, kind FlashKind, message string) error {
	var pending []Flash
	if err := s.Load(ctx, KeyFlash, &pending); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	pending = append(pending, Flash{Kind: kind, Message: message})
	return s.Save(ctx, KeyFlash, pending)
}

// PopFlashes returns and clears the queued notifications.
func (s *Scope) PopFlashes(ctx context.Context) ([]Flash, error) {
	var pending []Flash
	if err := s.Load(ctx, KeyFlash, &pending); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := s.Remove(ctx, KeyFlash); err != nil {
		return nil, err
	}
	return pending, nil
}
