// Package database owns the Redis connection behind sessions, staged uploads
// and login throttling.
package database

import (
	"context"
	"fmt"
	"net"
	"time"

	"dxt-admin/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// pingTimeout bounds the connection check at startup and in health reports.
const pingTimeout = 5 * time.Second

type Service struct {
	client *redis.Client
	logger *zap.Logger
}

// New connects to Redis and verifies the connection.
func New(cfg config.RedisConfig, logger *zap.Logger) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", client.Options().Addr, err)
	}

	logger.Info("Connected to Redis", zap.String("addr", client.Options().Addr), zap.Int("db", cfg.DB))
	return &Service{client: client, logger: logger}, nil
}

func (s *Service) Client() *redis.Client {
	return s.client
}

// Health reports the connection state and pool counters.
func (s *Service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	stats := make(map[string]string)
	if err := s.client.Ping(ctx).Err(); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}

	pool := s.client.PoolStats()
	stats["status"] = "up"
	stats["total_conns"] = fmt.Sprint(pool.TotalConns)
	stats["idle_conns"] = fmt.Sprint(pool.IdleConns)
	stats["timeouts"] = fmt.Sprint(pool.Timeouts)
	return stats
}

func (s *Service) Close() error {
	s.logger.Info("Closing Redis connection")
	return s.client.Close()
}
