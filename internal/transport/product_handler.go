package transport

import (
	"net/http"

	"dxt-admin/internal/cache"
	"dxt-admin/internal/domain"
	"dxt-admin/internal/middleware"
	"dxt-admin/internal/products"
	"dxt-admin/internal/selector"
	"dxt-admin/internal/session"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type productFormView struct {
	Form           products.Form
	Stores         []domain.StoreListItem
	MainCategories []string
	Strategies     []domain.ImageSharingStrategy
	Error          string
	Created        *products.Created
}

type ProductHandler struct {
	base
	cache     *cache.Cache
	selectors *selector.Registry
}

func NewProductHandler(renderer *Renderer, c *cache.Cache, selectors *selector.Registry, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		base:      base{renderer: renderer, logger: logger},
		cache:     c,
		selectors: selectors,
	}
}

func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard/products/import", h.Form)
	r.Post("/dashboard/products/import", h.Submit)
}

func (h *ProductHandler) view(r *http.Request, sess *middleware.Session, form products.Form) productFormView {
	return productFormView{
		Form:           form,
		Stores:         products.NewService(sess.Client, h.cache, h.logger).Stores(r.Context()),
		MainCategories: products.MainCategories,
		Strategies:     []domain.ImageSharingStrategy{domain.ImageSharingProductWide, domain.ImageSharingColorBased},
	}
}

// Form opens the manual creation form, pre-selecting the store picked in
// the store selector.
func (h *ProductHandler) Form(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	form := products.NewForm()
	if store, ok := h.selectors.For(sess.Scope.ID()).Selected(); ok {
		form.StoreID = store.ID
	}
	h.render(w, r, sess, http.StatusOK, "product_create", "Create Product", "products", h.view(r, sess, form))
}

// Submit handles the variant row buttons and the final submission. The
// pressed button arrives as "remove" (with the row id) or "action".
func (h *ProductHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	form := products.ParseForm(r.PostForm)
	if id := r.PostForm.Get("remove"); id != "" {
		form.RemoveVariant(id)
		h.render(w, r, sess, http.StatusOK, "product_create", "Create Product", "products", h.view(r, sess, form))
		return
	}
	switch r.PostForm.Get("action") {
	case "add-variant":
		form.AddVariant()
		h.render(w, r, sess, http.StatusOK, "product_create", "Create Product", "products", h.view(r, sess, form))
		return
	case "category":
		form.SubCategory = ""
		if subs := form.SubCategories(); len(subs) > 0 {
			form.SubCategory = subs[0]
		}
		h.render(w, r, sess, http.StatusOK, "product_create", "Create Product", "products", h.view(r, sess, form))
		return
	}

	view := h.view(r, sess, form)
	req, err := form.Request()
	if err != nil {
		view.Error = validationMessage(err, "Please check the form")
		h.render(w, r, sess, http.StatusUnprocessableEntity, "product_create", "Create Product", "products", view)
		return
	}

	release, err := h.claim(r, sess, session.KeyCreateProductLock)
	if err != nil {
		status, msg := h.claimFailure(err)
		view.Error = msg
		h.render(w, r, sess, status, "product_create", "Create Product", "products", view)
		return
	}
	defer release()

	resp, err := products.NewService(sess.Client, h.cache, h.logger).Create(r.Context(), req)
	if err != nil {
		view.Error = products.ErrorMessage(err)
		h.render(w, r, sess, http.StatusBadGateway, "product_create", "Create Product", "products", view)
		return
	}

	h.logger.Info("Product created", zap.String("product_id", resp.ProductID), zap.String("store_id", req.StoreID))
	created := products.NewCreated(resp)
	fresh := products.NewForm()
	fresh.StoreID = form.StoreID
	view = h.view(r, sess, fresh)
	view.Created = &created
	h.render(w, r, sess, http.StatusCreated, "product_create", "Create Product", "products", view)
}
