package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestStores_RoundTripAndDelete(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	stores := map[string]Store{
		"redis":  redisStore,
		"memory": NewMemoryStore(),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sid := NewID()

			_, err := store.Get(ctx, sid, KeyAdminData)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set(ctx, sid, KeyAdminData, []byte(`{"id":"a1"}`), time.Hour))
			data, err := store.Get(ctx, sid, KeyAdminData)
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":"a1"}`, string(data))

			_, err = store.Get(ctx, NewID(), KeyAdminData)
			assert.ErrorIs(t, err, ErrNotFound, "sessions do not see each other")

			require.NoError(t, store.Delete(ctx, sid, KeyAdminData, KeyIdentity))
			_, err = store.Get(ctx, sid, KeyAdminData)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRedisStore_KeysExpire(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sid", KeyIdentity, []byte(`{}`), time.Minute))
	assert.True(t, mr.Exists("session:sid:identity"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "sid", KeyIdentity)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_KeysExpire(t *testing.T) {
	now := time.Now()
	store := &memoryStore{entries: map[string]memoryEntry{}, now: func() time.Time { return now }}
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sid", KeyFlash, []byte(`[]`), time.Minute))
	now = now.Add(time.Minute)
	_, err := store.Get(ctx, "sid", KeyFlash)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScope_LockHasOneHolder(t *testing.T) {
	redisStore, mr := newRedisStore(t)
	stores := map[string]Store{
		"redis":  redisStore,
		"memory": NewMemoryStore(),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			scope := NewScope(store, NewID(), time.Hour)

			var (
				winners atomic.Int32
				wg      sync.WaitGroup
				start   = make(chan struct{})
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					ok, err := scope.Lock(ctx, KeyLoginLock, time.Minute)
					assert.NoError(t, err)
					if ok {
						winners.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()
			assert.Equal(t, int32(1), winners.Load())

			other := NewScope(store, NewID(), time.Hour)
			ok, err := other.Lock(ctx, KeyLoginLock, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "locks are per session")

			require.NoError(t, scope.Unlock(ctx, KeyLoginLock))
			ok, err = scope.Lock(ctx, KeyLoginLock, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}

	t.Run("redis lock expires", func(t *testing.T) {
		ctx := context.Background()
		scope := NewScope(redisStore, NewID(), time.Hour)
		ok, _ := scope.Lock(ctx, KeyCreateStoreLock, time.Minute)
		require.True(t, ok)

		mr.FastForward(2 * time.Minute)
		ok, err := scope.Lock(ctx, KeyCreateStoreLock, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestMemoryStore_LockExpires(t *testing.T) {
	now := time.Now()
	store := &memoryStore{entries: map[string]memoryEntry{}, now: func() time.Time { return now }}
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "sid", KeyLoginLock, []byte("1"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _ = store.SetNX(ctx, "sid", KeyLoginLock, []byte("1"), time.Minute)
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, _ = store.SetNX(ctx, "sid", KeyLoginLock, []byte("1"), time.Minute)
	assert.True(t, ok)
}

func TestProperty_FlashesAreDeliveredOnce(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("queued notifications pop in order and only once", prop.ForAll(
		func(messages []string) bool {
			ctx := context.Background()
			scope := NewScope(NewMemoryStore(), NewID(), time.Hour)

			for i, m := range messages {
				kind := FlashSuccess
				if i%2 == 1 {
					kind = FlashError
				}
				if err := scope.AddFlash(ctx, kind, m); err != nil {
					return false
				}
			}

			got, err := scope.PopFlashes(ctx)
			if err != nil || len(got) != len(messages) {
				return false
			}
			for i, f := range got {
				if f.Message != messages[i] {
					return false
				}
			}

			again, err := scope.PopFlashes(ctx)
			return err == nil && len(again) == 0
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
