package cache

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dxt-admin/internal/apiclient"
	"dxt-admin/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 4 * time.Millisecond
	cfg.MutationDelay = time.Millisecond
	return cfg
}

func newTestCache(t *testing.T) *Cache {
	c := New(testConfig(), zap.NewNop())
	t.Cleanup(c.Close)
	return c
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (n *recordingNotifier) Success(ctx context.Context, message string) {
	n.mu.Lock()
	n.successes = append(n.successes, message)
	n.mu.Unlock()
}

func (n *recordingNotifier) Failure(ctx context.Context, message string) {
	n.mu.Lock()
	n.failures = append(n.failures, message)
	n.mu.Unlock()
}

func TestKey_HasPrefix(t *testing.T) {
	assert.True(t, StoreAnalyticsKey("s1").HasPrefix(StoreDetailKey("s1")))
	assert.True(t, StoreListKey("page=1").HasPrefix(StoreListsKey()))
	assert.True(t, StoreDetailKey("s1").HasPrefix(StoresKey()))
	assert.False(t, StoreDetailKey("s1").HasPrefix(StoreListsKey()))
	assert.False(t, StoreDetailKey("s10").HasPrefix(StoreDetailKey("s1")))
	assert.False(t, AnalyticsOverviewKey().HasPrefix(StoresKey()))
}

func TestQuery_FreshEntriesAreShared(t *testing.T) {
	c := newTestCache(t)
	var calls atomic.Int32
	fetch := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "v", nil
	}

	for i := 0; i < 3; i++ {
		v, err := Query(context.Background(), c, StoreDetailKey("s1"), fetch)
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestQuery_StaleWindowRefetches(t *testing.T) {
	c := newTestCache(t)
	now := time.Now()
	c.now = func() time.Time { return now }

	var calls atomic.Int32
	fetch := func(ctx context.Context) (int32, error) { return calls.Add(1), nil }

	_, err := Query(context.Background(), c, AnalyticsOverviewKey(), fetch)
	require.NoError(t, err)

	now = now.Add(4 * time.Minute)
	v, _ := Query(context.Background(), c, AnalyticsOverviewKey(), fetch)
	assert.Equal(t, int32(1), v)

	now = now.Add(2 * time.Minute)
	v, _ = Query(context.Background(), c, AnalyticsOverviewKey(), fetch)
	assert.Equal(t, int32(2), v)
}

func TestQuery_ConcurrentReadsShareOneFetch(t *testing.T) {
	c := newTestCache(t)
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "list", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Query(context.Background(), c, StoreListKey("page=1"), fetch)
			assert.NoError(t, err)
			assert.Equal(t, "list", v)
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestQuery_RetriesTwiceThenFails(t *testing.T) {
	c := newTestCache(t)
	var calls atomic.Int32
	boom := errors.New("connection reset")

	_, err := Query(context.Background(), c, StoreDetailKey("s1"), func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestQuery_RecoversOnRetry(t *testing.T) {
	c := newTestCache(t)
	var calls atomic.Int32

	v, err := Query(context.Background(), c, StoreDetailKey("s1"), func(ctx context.Context) (string, error) {
		if calls.Add(1) < 3 {
			return "", &apiclient.APIError{StatusCode: http.StatusBadGateway}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestQuery_UnauthorizedAndInvalidPayloadAreNotRetried(t *testing.T) {
	for _, failure := range []error{
		&apiclient.APIError{StatusCode: http.StatusUnauthorized},
		apiclient.ErrInvalidPayload,
	} {
		c := newTestCache(t)
		var calls atomic.Int32
		_, err := Query(context.Background(), c, StoreDetailKey("s1"), func(ctx context.Context) (string, error) {
			calls.Add(1)
			return "", failure
		})
		assert.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	}
}

func TestInvalidate_Prefix(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	fetch := func(ctx context.Context) (string, error) { return "x", nil }

	for _, k := range []Key{
		StoreListKey("page=1"), StoreListKey("page=2"),
		StoreDetailKey("s1"), StoreAnalyticsKey("s1"),
		StoreDetailKey("s2"), AnalyticsOverviewKey(),
	} {
		_, err := Query(ctx, c, k, fetch)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, c.Invalidate(StoreDetailKey("s1")))
	assert.Equal(t, 2, c.Invalidate(StoreListsKey()))

	stale := func(k Key) bool {
		e, ok := c.Entry(k)
		require.True(t, ok)
		return e.Stale
	}
	assert.True(t, stale(StoreAnalyticsKey("s1")))
	assert.True(t, stale(StoreListKey("page=2")))
	assert.False(t, stale(StoreDetailKey("s2")))
	assert.False(t, stale(AnalyticsOverviewKey()))
}

func TestQuery_FetchOverlappingInvalidationIsStoredStale(t *testing.T) {
	c := newTestCache(t)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		Query(context.Background(), c, StoreDetailKey("s1"), func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
	}()

	<-started
	c.Invalidate(StoreDetailKey("s1"))
	close(release)
	<-done

	e, ok := c.Entry(StoreDetailKey("s1"))
	require.True(t, ok)
	assert.True(t, e.Stale)
}

func TestSweep_EvictsUnusedEntries(t *testing.T) {
	c := newTestCache(t)
	now := time.Now()
	c.now = func() time.Time { return now }
	fetch := func(ctx context.Context) (string, error) { return "x", nil }

	Query(context.Background(), c, StoreDetailKey("s1"), fetch)
	now = now.Add(6 * time.Minute)
	Query(context.Background(), c, StoreDetailKey("s2"), fetch)

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, c.sweep())
	_, ok := c.Entry(StoreDetailKey("s1"))
	assert.False(t, ok)
	_, ok = c.Entry(StoreDetailKey("s2"))
	assert.True(t, ok)
}

func TestMutate_RetriesOnceOnServerError(t *testing.T) {
	c := newTestCache(t)
	var calls atomic.Int32

	_, err := Mutate(context.Background(), c, Mutation[domain.StoreActionResponse]{
		Name: "suspend",
		Run: func(ctx context.Context) (domain.StoreActionResponse, error) {
			calls.Add(1)
			return domain.StoreActionResponse{}, &apiclient.APIError{StatusCode: http.StatusServiceUnavailable}
		},
		Failure: "Failed to update store status",
	})
	assert.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())

	calls.Store(0)
	_, err = Mutate(context.Background(), c, Mutation[domain.StoreActionResponse]{
		Name: "suspend",
		Run: func(ctx context.Context) (domain.StoreActionResponse, error) {
			calls.Add(1)
			return domain.StoreActionResponse{}, &apiclient.APIError{StatusCode: http.StatusBadRequest}
		},
	})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "client errors are not retried")
}

// A failed mutation leaves the cached detail untouched and notifies; a later
// successful mutation of the same store forces the detail to refetch.
func TestProperty_MutationFailureKeepsCacheAndSuccessInvalidates(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("failure is visible and harmless, success invalidates", prop.ForAll(
		func(failure int, message string) bool {
			c := New(testConfig(), zap.NewNop())
			defer c.Close()
			ctx := context.Background()
			notifier := &recordingNotifier{}

			var fetches atomic.Int32
			fetchDetail := func(ctx context.Context) (domain.StoreDetail, error) {
				n := fetches.Add(1)
				return domain.StoreDetail{ID: "s1", IsActive: n == 1}, nil
			}
			before, err := Query(ctx, c, StoreDetailKey("s1"), fetchDetail)
			if err != nil {
				return false
			}
			snapshot, _ := c.Entry(StoreDetailKey("s1"))

			failing := func(ctx context.Context) (domain.StoreActionResponse, error) {
				switch failure {
				case 0:
					return domain.StoreActionResponse{Success: false, Message: message}, nil
				case 1:
					return domain.StoreActionResponse{}, &apiclient.APIError{StatusCode: http.StatusBadRequest, Message: message}
				default:
					return domain.StoreActionResponse{}, &apiclient.APIError{StatusCode: http.StatusInternalServerError}
				}
			}
			_, err = Mutate(ctx, c, Mutation[domain.StoreActionResponse]{
				Name:        "suspend",
				Run:         failing,
				Invalidates: []Key{StoreDetailKey("s1"), StoreListsKey()},
				Success:     "Store suspended successfully",
				Failure:     "Failed to update store status",
				Notifier:    notifier,
			})
			if err == nil || len(notifier.failures) != 1 || len(notifier.successes) != 0 {
				return false
			}
			expected := message
			if failure == 2 {
				expected = "Failed to update store status"
			}
			if notifier.failures[0] != expected {
				return false
			}

			after, ok := c.Entry(StoreDetailKey("s1"))
			if !ok || after.Stale || !after.FetchedAt.Equal(snapshot.FetchedAt) {
				return false
			}
			again, _ := Query(ctx, c, StoreDetailKey("s1"), fetchDetail)
			if fetches.Load() != 1 || again.IsActive != before.IsActive {
				return false
			}

			_, err = Mutate(ctx, c, Mutation[domain.StoreActionResponse]{
				Name: "suspend",
				Run: func(ctx context.Context) (domain.StoreActionResponse, error) {
					return domain.StoreActionResponse{Success: true}, nil
				},
				Invalidates: []Key{StoreDetailKey("s1"), StoreListsKey()},
				Success:     "Store suspended successfully",
				Notifier:    notifier,
			})
			if err != nil || len(notifier.successes) != 1 {
				return false
			}

			refreshed, err := Query(ctx, c, StoreDetailKey("s1"), fetchDetail)
			return err == nil && fetches.Load() == 2 && !refreshed.IsActive
		},
		gen.IntRange(0, 2),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
