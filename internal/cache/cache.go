// Package cache is the process-wide read cache in front of the backend.
// Reads are keyed, kept fresh for a stale window and evicted after a gc
// window of disuse. Mutations invalidate the keys they affect; nothing is
// ever patched locally.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dxt-admin/internal/apiclient"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrTypeMismatch = errors.New("cached value has a different type")

type Config struct {
	StaleTime time.Duration
	GCTime    time.Duration

	// Reads retry Retries times with delay min(BaseDelay*2^n, MaxDelay).
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Mutations retry MutationRetries times after MutationDelay.
	MutationRetries int
	MutationDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{
		StaleTime:       5 * time.Minute,
		GCTime:          10 * time.Minute,
		Retries:         2,
		BaseDelay:       time.Second,
		MaxDelay:        30 * time.Second,
		MutationRetries: 1,
		MutationDelay:   time.Second,
	}
}

type entry struct {
	key       Key
	value     any
	fetchedAt time.Time
	lastUsed  time.Time
	stale     bool
}

// EntryInfo describes a cached read.
type EntryInfo struct {
	Value     any
	FetchedAt time.Time
	Stale     bool
}

type Cache struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	// invalidations counts Invalidate calls; a fetch that overlaps one is
	// stored stale.
	invalidations uint64

	group singleflight.Group
	stop  chan struct{}
	once  sync.Once
}

// New creates the cache and starts its janitor. Call Close to stop it.
func New(cfg Config, logger *zap.Logger) *Cache {
	c := &Cache{
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) janitor() {
	interval := c.cfg.GCTime / 2
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.sweep(); n > 0 {
				c.logger.Debug("Evicted unused cache entries", zap.Int("count", n))
			}
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for k, e := range c.entries {
		if now.Sub(e.lastUsed) >= c.cfg.GCTime {
			delete(c.entries, k)
			evicted++
		}
	}
	return evicted
}

// Query returns the cached value for key while it is fresh, otherwise it
// fetches, retrying failed reads. Concurrent queries for one key share a
// single fetch.
func Query[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	id := key.String()

	c.mu.Lock()
	if e, ok := c.entries[id]; ok {
		e.lastUsed = c.now()
		if !e.stale && c.now().Sub(e.fetchedAt) < c.cfg.StaleTime {
			v, ok := e.value.(T)
			c.mu.Unlock()
			if !ok {
				return zero, fmt.Errorf("%w: %v", ErrTypeMismatch, key)
			}
			return v, nil
		}
	}
	c.mu.Unlock()

	ch := c.group.DoChan(id, func() (any, error) {
		c.mu.Lock()
		started := c.invalidations
		c.mu.Unlock()

		value, err := c.fetchWithRetry(context.WithoutCancel(ctx), key, func(ctx context.Context) (any, error) {
			return fetch(ctx)
		})
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		now := c.now()
		c.entries[id] = &entry{
			key:       key,
			value:     value,
			fetchedAt: now,
			lastUsed:  now,
			stale:     c.invalidations != started,
		}
		c.mu.Unlock()
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("%w: %v", ErrTypeMismatch, key)
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *Cache) fetchWithRetry(ctx context.Context, key Key, fetch func(ctx context.Context) (any, error)) (any, error) {
	policy := c.readBackOff()
	attempt := 0

	var value any
	err := backoff.Retry(func() error {
		attempt++
		v, err := fetch(ctx)
		if err == nil {
			value = v
			return nil
		}
		if !retryableRead(err) {
			return backoff.Permanent(err)
		}
		c.logger.Debug("Cache read failed",
			zap.Strings("key", key),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}, backoff.WithContext(policy, ctx))
	return value, err
}

func (c *Cache) readBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.cfg.MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(max(c.cfg.Retries, 0)))
}

// Invalidate marks every entry under prefix stale so the next read refetches.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidations++
	marked := 0
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) && !e.stale {
			e.stale = true
			marked++
		}
	}
	return marked
}

// Entry returns what is cached under key without touching it.
func (c *Cache) Entry(key Key) (EntryInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return EntryInfo{}, false
	}
	return EntryInfo{
		Value:     e.value,
		FetchedAt: e.fetchedAt,
		Stale:     e.stale || c.now().Sub(e.fetchedAt) >= c.cfg.StaleTime,
	}, true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// retryableRead excludes failures a retry cannot fix: a dead session and a
// payload of the wrong shape.
func retryableRead(err error) bool {
	switch {
	case errors.Is(err, context.Canceled):
		return false
	case apiclient.IsUnauthorized(err):
		return false
	case errors.Is(err, apiclient.ErrInvalidPayload):
		return false
	}
	return true
}
