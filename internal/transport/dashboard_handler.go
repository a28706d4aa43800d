package transport

import (
	"net/http"

	"dxt-admin/internal/analytics"
	"dxt-admin/internal/cache"
	"dxt-admin/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type dashboardView struct {
	Overview      domain.AnalyticsOverview
	OverviewError bool
}

type DashboardHandler struct {
	base
	cache *cache.Cache
}

func NewDashboardHandler(renderer *Renderer, c *cache.Cache, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		base:  base{renderer: renderer, logger: logger},
		cache: c,
	}
}

func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/dashboard/products", h.Products)
}

// Dashboard shows the admin, the platform counts and the quick actions.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	overview, err := analytics.NewService(sess.Client, h.cache, h.logger).Overview(r.Context())
	view := dashboardView{Overview: overview, OverviewError: err != nil}
	h.render(w, r, sess, http.StatusOK, "dashboard", "Dashboard", "dashboard", view)
}

// Products is the product management hub linking the two creation flows.
func (h *DashboardHandler) Products(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.render(w, r, sess, http.StatusOK, "products", "Products", "products", nil)
}
