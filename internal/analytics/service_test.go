package analytics

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"dxt-admin/internal/apiclient"
	"dxt-admin/internal/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAPI struct {
	calls int
	body  string
	err   error
}

func (f *fakeAPI) Get(ctx context.Context, path string, q url.Values, out any) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.body), out)
}

func newCache(t *testing.T) *cache.Cache {
	cfg := cache.DefaultConfig()
	cfg.Retries = 0
	c := cache.New(cfg, zap.NewNop())
	t.Cleanup(c.Close)
	return c
}

func TestOverview_CachedBetweenCalls(t *testing.T) {
	api := &fakeAPI{body: `{"totalStores":12,"totalProducts":340,"totalOrders":55,"imagesProcessed":1200}`}
	svc := NewService(api, newCache(t), zap.NewNop())

	o, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, o.TotalStores)
	assert.Equal(t, 1200, o.ImagesProcessed)

	_, err = svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls)
}

func TestOverview_ZerosOnFailure(t *testing.T) {
	api := &fakeAPI{err: &apiclient.APIError{StatusCode: 404, Message: "not found"}}
	o, err := NewService(api, newCache(t), zap.NewNop()).Overview(context.Background())
	assert.Error(t, err)
	assert.Zero(t, o)
}
