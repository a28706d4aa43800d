// Package stores drives the store directory and detail screens: the
// paginated list, the profile and analytics reads, diff-based edits,
// suspension, verification actions and store creation.
package stores

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"dxt-admin/internal/async"
	"dxt-admin/internal/cache"
	"dxt-admin/internal/domain"

	"go.uber.org/zap"
)

// API is the backend client the store workflows call.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	PostJSON(ctx context.Context, path string, in, out any) error
	PutJSON(ctx context.Context, path string, in, out any) error
	PatchJSON(ctx context.Context, path string, in, out any) error
}

// Notification copy shown after each mutation.
const (
	MsgUpdated          = "Store updated successfully"
	MsgUpdateFailed     = "Failed to update store"
	MsgSuspended        = "Store suspended successfully"
	MsgActivated        = "Store activated successfully"
	MsgStatusFailed     = "Failed to update store status"
	MsgGSTUpdated       = "GST verification status updated"
	MsgGSTFailed        = "Failed to update GST verification"
	MsgRouteUpdated     = "Route product status updated"
	MsgRouteFailed      = "Failed to update route product status"
	MsgCreateFailed     = "Failed to create store"
	MsgLoadStoresFailed = "Failed to load stores"
)

// Detail is the store detail screen: profile and analytics load
// independently, so one failing never hides the other.
type Detail struct {
	Profile   async.Result[domain.StoreDetail]
	Analytics async.Result[domain.StoreAnalytics]
}

type Service interface {
	List(ctx context.Context, page, limit int, search string) (domain.StoreList, error)
	Detail(ctx context.Context, id string) Detail
	Update(ctx context.Context, id string, req domain.UpdateStoreRequest) (domain.StoreActionResponse, error)
	SetSuspended(ctx context.Context, id string, suspend bool) (domain.StoreActionResponse, error)
	SetGSTVerified(ctx context.Context, id string, verified bool) (domain.StoreActionResponse, error)
	SetRouteProductStatus(ctx context.Context, id string, status domain.RouteProductStatus) (domain.StoreActionResponse, error)
	Create(ctx context.Context, req domain.CreateStoreRequest) (domain.CreateStoreResponse, error)
}

type service struct {
	api      API
	cache    *cache.Cache
	notifier cache.Notifier
	logger   *zap.Logger
}

// NewService binds the workflows to one admin's client. Notifications go
// to notifier; the cache is shared by every admin.
func NewService(api API, c *cache.Cache, notifier cache.Notifier, logger *zap.Logger) Service {
	return &service{
		api:      api,
		cache:    c,
		notifier: notifier,
		logger:   logger,
	}
}

// ListQuery encodes the store list parameters. An empty search is left out.
func ListQuery(page, limit int, search string) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if search != "" {
		q.Set("search", search)
	}
	return q
}

func (s *service) List(ctx context.Context, page, limit int, search string) (domain.StoreList, error) {
	q := ListQuery(page, limit, search)
	return cache.Query(ctx, s.cache, cache.StoreListKey(q.Encode()), func(ctx context.Context) (domain.StoreList, error) {
		var out domain.StoreList
		if err := s.api.Get(ctx, "/admin/stores", q, &out); err != nil {
			return out, err
		}
		return out, nil
	})
}

func (s *service) profile(ctx context.Context, id string) (domain.StoreDetail, error) {
	return cache.Query(ctx, s.cache, cache.StoreDetailKey(id), func(ctx context.Context) (domain.StoreDetail, error) {
		var out domain.StoreDetail
		err := s.api.Get(ctx, "/admin/stores/"+url.PathEscape(id), nil, &out)
		return out, err
	})
}

func (s *service) analytics(ctx context.Context, id string) (domain.StoreAnalytics, error) {
	return cache.Query(ctx, s.cache, cache.StoreAnalyticsKey(id), func(ctx context.Context) (domain.StoreAnalytics, error) {
		var out domain.StoreAnalytics
		err := s.api.Get(ctx, "/admin/stores/"+url.PathEscape(id)+"/analytics", nil, &out)
		return out, err
	})
}

func (s *service) Detail(ctx context.Context, id string) Detail {
	profile := async.Go(func() (domain.StoreDetail, error) { return s.profile(ctx, id) })
	analytics := async.Go(func() (domain.StoreAnalytics, error) { return s.analytics(ctx, id) })

	d := Detail{Profile: <-profile, Analytics: <-analytics}
	if d.Profile.Failed() {
		s.logger.Warn("Failed to load store", zap.String("store_id", id), zap.Error(d.Profile.Err))
	}
	if d.Analytics.Failed() {
		s.logger.Warn("Failed to load store analytics", zap.String("store_id", id), zap.Error(d.Analytics.Err))
	}
	return d
}

func (s *service) action(ctx context.Context, name, method, path string, body any, invalidates []cache.Key, success, failure string) (domain.StoreActionResponse, error) {
	return cache.Mutate(ctx, s.cache, cache.Mutation[domain.StoreActionResponse]{
		Name: name,
		Run: func(ctx context.Context) (domain.StoreActionResponse, error) {
			var out domain.StoreActionResponse
			var err error
			if method == http.MethodPut {
				err = s.api.PutJSON(ctx, path, body, &out)
			} else {
				err = s.api.PatchJSON(ctx, path, body, &out)
			}
			return out, err
		},
		Invalidates: invalidates,
		Success:     success,
		Failure:     failure,
		Notifier:    s.notifier,
	})
}

func storePath(id string) string {
	return "/admin/stores/" + url.PathEscape(id)
}

func (s *service) Update(ctx context.Context, id string, req domain.UpdateStoreRequest) (domain.StoreActionResponse, error) {
	return s.action(ctx, "update_store", http.MethodPut, storePath(id), req,
		[]cache.Key{cache.StoreDetailKey(id), cache.StoreListsKey()},
		MsgUpdated, MsgUpdateFailed)
}

func (s *service) SetSuspended(ctx context.Context, id string, suspend bool) (domain.StoreActionResponse, error) {
	success := MsgActivated
	if suspend {
		success = MsgSuspended
	}
	return s.action(ctx, "suspend_store", http.MethodPatch, storePath(id)+"/suspend", map[string]bool{"suspend": suspend},
		[]cache.Key{cache.StoreDetailKey(id), cache.StoreListsKey()},
		success, MsgStatusFailed)
}

func (s *service) SetGSTVerified(ctx context.Context, id string, verified bool) (domain.StoreActionResponse, error) {
	return s.action(ctx, "verify_gst", http.MethodPatch, storePath(id)+"/verify-gst", map[string]bool{"verified": verified},
		[]cache.Key{cache.StoreDetailKey(id)},
		MsgGSTUpdated, MsgGSTFailed)
}

func (s *service) SetRouteProductStatus(ctx context.Context, id string, status domain.RouteProductStatus) (domain.StoreActionResponse, error) {
	if !status.Requestable() {
		return domain.StoreActionResponse{}, fmt.Errorf("%w: %q", ErrInvalidRouteStatus, status)
	}
	return s.action(ctx, "route_product", http.MethodPatch, storePath(id)+"/route-product", map[string]string{"status": string(status)},
		[]cache.Key{cache.StoreDetailKey(id)},
		MsgRouteUpdated, MsgRouteFailed)
}

func (s *service) Create(ctx context.Context, req domain.CreateStoreRequest) (domain.CreateStoreResponse, error) {
	return cache.Mutate(ctx, s.cache, cache.Mutation[domain.CreateStoreResponse]{
		Name: "create_store",
		Run: func(ctx context.Context) (domain.CreateStoreResponse, error) {
			var out domain.CreateStoreResponse
			err := s.api.PostJSON(ctx, "/admin/stores/create", req, &out)
			return out, err
		},
		Invalidates: []cache.Key{cache.StoreListsKey(), cache.AnalyticsOverviewKey()},
		Once:        true,
	})
}
