package database

import (
	"context"
	"net"
	"testing"

	"dxt-admin/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func redisConfig(t *testing.T, addr string) config.RedisConfig {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	return config.RedisConfig{Host: host, Port: port}
}

func TestNew_HealthReportsConnection(t *testing.T) {
	mr := miniredis.RunT(t)

	svc, err := New(redisConfig(t, mr.Addr()), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	require.NoError(t, svc.Client().Set(context.Background(), "k", "v", 0).Err())
	health := svc.Health(context.Background())
	assert.Equal(t, "up", health["status"])
	assert.Contains(t, health, "total_conns")

	mr.Close()
	health = svc.Health(context.Background())
	assert.Equal(t, "down", health["status"])
	assert.NotEmpty(t, health["error"])
}

func TestNew_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(redisConfig(t, addr), zap.NewNop())
	assert.ErrorContains(t, err, "failed to connect to redis")
}
