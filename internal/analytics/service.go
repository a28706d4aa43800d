// Package analytics reads the platform-wide counts shown on the dashboard.
package analytics

import (
	"context"
	"net/url"

	"dxt-admin/internal/cache"
	"dxt-admin/internal/domain"

	"go.uber.org/zap"
)

const OverviewPath = "/admin/analytics/overview"

type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

type Service struct {
	api    API
	cache  *cache.Cache
	logger *zap.Logger
}

func NewService(api API, c *cache.Cache, logger *zap.Logger) *Service {
	return &Service{api: api, cache: c, logger: logger}
}

// Overview returns the dashboard counts. The dashboard shows zeros when they
// cannot be loaded, so the error is only for the caller to note.
func (s *Service) Overview(ctx context.Context) (domain.AnalyticsOverview, error) {
	overview, err := cache.Query(ctx, s.cache, cache.AnalyticsOverviewKey(), func(ctx context.Context) (domain.AnalyticsOverview, error) {
		var out domain.AnalyticsOverview
		err := s.api.Get(ctx, OverviewPath, nil, &out)
		return out, err
	})
	if err != nil {
		s.logger.Warn("Failed to load analytics overview", zap.Error(err))
		return domain.AnalyticsOverview{}, err
	}
	return overview, nil
}
