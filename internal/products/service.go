package products

import (
	"context"
	"net/url"

	"dxt-admin/internal/cache"
	"dxt-admin/internal/domain"

	"go.uber.org/zap"
)

const (
	BulkCreatePath  = "/admin/products/bulk-create"
	MsgCreateFailed = "Failed to create product"

	// storeOptionsLimit is how many stores the form's dropdown lists.
	storeOptionsLimit = "100"
)

type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	PostJSON(ctx context.Context, path string, in, out any) error
}

type Service struct {
	api    API
	cache  *cache.Cache
	logger *zap.Logger
}

func NewService(api API, c *cache.Cache, logger *zap.Logger) *Service {
	return &Service{api: api, cache: c, logger: logger}
}

// Stores lists the stores offered in the form. A failed load leaves the
// dropdown empty.
func (s *Service) Stores(ctx context.Context) []domain.StoreListItem {
	q := url.Values{"limit": {storeOptionsLimit}}
	list, err := cache.Query(ctx, s.cache, cache.StoreListKey(q.Encode()), func(ctx context.Context) (domain.StoreList, error) {
		var out domain.StoreList
		err := s.api.Get(ctx, "/admin/stores", q, &out)
		return out, err
	})
	if err != nil {
		s.logger.Warn("Failed to fetch stores", zap.Error(err))
		return nil
	}
	return list.Stores
}

// Create sends the product in one request. A success:false answer is an
// error carrying the backend message.
func (s *Service) Create(ctx context.Context, req domain.BulkCreateRequest) (domain.BulkCreateResponse, error) {
	return cache.Mutate(ctx, s.cache, cache.Mutation[domain.BulkCreateResponse]{
		Name: "bulk_create_product",
		Run: func(ctx context.Context) (domain.BulkCreateResponse, error) {
			var out domain.BulkCreateResponse
			err := s.api.PostJSON(ctx, BulkCreatePath, req, &out)
			return out, err
		},
		Invalidates: []cache.Key{cache.AnalyticsOverviewKey()},
		Once:        true,
	})
}

// ErrorMessage is the inline text for a failed submission.
func ErrorMessage(err error) string {
	return cache.FailureMessage(err, MsgCreateFailed)
}

// Created is the success screen of a created product.
type Created struct {
	Message       string
	ProductID     string
	Images        int
	TotalVariants int
	FailedImages  int
}

func NewCreated(r domain.BulkCreateResponse) Created {
	return Created{
		Message:       r.Message,
		ProductID:     r.ProductID,
		Images:        len(r.ImageIDs),
		TotalVariants: r.TotalVariants,
		FailedImages:  len(r.FailedImages),
	}
}
