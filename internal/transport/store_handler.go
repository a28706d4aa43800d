package transport

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"dxt-admin/internal/cache"
	"dxt-admin/internal/domain"
	"dxt-admin/internal/middleware"
	"dxt-admin/internal/selector"
	"dxt-admin/internal/session"
	"dxt-admin/internal/stores"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type storeListView struct {
	State      stores.ListState
	List       domain.StoreList
	Error      string
	EmptyTitle string
	EmptyBody  string
	Pages      []pageLink
	Prev       string
	Next       string
}

type pageLink struct {
	Number  int
	URL     string
	Current bool
}

type storeCreateView struct {
	Form       stores.CreateForm
	Categories []string
	Error      string
}

type storeDetailView struct {
	ID           string
	Detail       stores.Detail
	Editing      bool
	EditFields   []stores.EditField
	Confirming   bool
	RouteStatus  domain.RouteProductStatus
	RouteActions []stores.RouteAction
}

// selectRequest is the JSON body picking a store in the selector.
type selectRequest struct {
	ID        string `json:"id" validate:"required"`
	StoreName string `json:"storeName" validate:"required"`
}

type StoreHandler struct {
	base
	cache     *cache.Cache
	selectors *selector.Registry
}

func NewStoreHandler(renderer *Renderer, c *cache.Cache, selectors *selector.Registry, logger *zap.Logger) *StoreHandler {
	return &StoreHandler{
		base:      base{renderer: renderer, logger: logger},
		cache:     c,
		selectors: selectors,
	}
}

func (h *StoreHandler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard/stores", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/create", h.CreatePage)
		r.Post("/create", h.Create)

		r.Get("/options", h.Options)
		r.Post("/options/select", h.SelectOption)
		r.Delete("/options/select", h.ClearOption)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Detail)
			r.Post("/edit", h.Edit)
			r.Post("/suspend", h.Suspend)
			r.Post("/activate", h.Activate)
			r.Post("/verify-gst", h.VerifyGST)
			r.Post("/route-product", h.RouteProduct)
		})
	})
}

func (h *StoreHandler) service(sess *middleware.Session) stores.Service {
	return stores.NewService(sess.Client, h.cache, sess, h.logger)
}

func listURL(s stores.ListState) string {
	q := s.Query()
	if len(q) == 0 {
		return "/dashboard/stores"
	}
	return "/dashboard/stores?" + q.Encode()
}

// List renders the paginated directory. A submitted or cleared search is
// folded into the canonical URL first.
func (h *StoreHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	state := stores.ListStateFromQuery(q)
	switch {
	case q.Has("clear"):
		seeOther(w, r, listURL(state.ClearSearch()))
		return
	case q.Has("q"):
		seeOther(w, r, listURL(state.SubmitSearch(q.Get("q"))))
		return
	}

	view := storeListView{State: state}
	list, err := h.service(sess).List(r.Context(), state.Page, stores.PageSize, state.Search)
	if err != nil {
		view.Error = stores.MsgLoadStoresFailed
		h.render(w, r, sess, http.StatusBadGateway, "stores", "Stores", "stores", view)
		return
	}

	view.List = list
	if len(list.Stores) == 0 {
		view.EmptyTitle, view.EmptyBody = state.EmptyMessage()
	}
	for _, n := range stores.PageLinks(list.Total, stores.PageSize) {
		view.Pages = append(view.Pages, pageLink{Number: n, URL: listURL(state.GoTo(n)), Current: n == state.Page})
	}
	if state.Page > 1 {
		view.Prev = listURL(state.GoTo(state.Page - 1))
	}
	if list.HasMore {
		view.Next = listURL(state.GoTo(state.Page + 1))
	}
	h.render(w, r, sess, http.StatusOK, "stores", "Stores", "stores", view)
}

func (h *StoreHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	view := storeCreateView{Form: stores.NewCreateForm(), Categories: stores.ProductCategories}
	h.render(w, r, sess, http.StatusOK, "store_create", "Create Store", "stores", view)
}

// Create submits the creation form. The credentials in the response are
// shown once and never stored.
func (h *StoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	form := stores.ParseCreateForm(r.PostForm)
	view := storeCreateView{Form: form, Categories: stores.ProductCategories}
	if err := form.Validate(); err != nil {
		view.Error = middleware.FirstValidationMessage(err, "Please check the highlighted fields")
		h.render(w, r, sess, http.StatusUnprocessableEntity, "store_create", "Create Store", "stores", view)
		return
	}

	release, err := h.claim(r, sess, session.KeyCreateStoreLock)
	if err != nil {
		status, msg := h.claimFailure(err)
		view.Error = msg
		h.render(w, r, sess, status, "store_create", "Create Store", "stores", view)
		return
	}
	defer release()

	resp, err := h.service(sess).Create(r.Context(), form.Request())
	if err != nil {
		view.Error = cache.FailureMessage(err, stores.MsgCreateFailed)
		h.render(w, r, sess, http.StatusBadGateway, "store_create", "Create Store", "stores", view)
		return
	}

	h.logger.Info("Store created", zap.String("dxtin", resp.DXTIN), zap.String("username", resp.StoreUsername))
	h.render(w, r, sess, http.StatusCreated, "store_created", "Store Created", "stores", resp)
}

// Detail renders the profile and analytics panels. ?edit=1 opens the edit
// form and ?confirm=suspend the suspension confirmation.
func (h *StoreHandler) Detail(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	detail := h.service(sess).Detail(r.Context(), id)

	view := storeDetailView{ID: id, Detail: detail}
	status := http.StatusOK
	if detail.Profile.OK() {
		profile := detail.Profile.Value
		view.RouteStatus = profile.RouteStatus()
		view.RouteActions = stores.RouteProductActions(view.RouteStatus)

		q := r.URL.Query()
		if q.Get("edit") == "1" {
			view.Editing = true
			view.EditFields = stores.NewEditForm(profile).Fields()
		}
		if q.Get("confirm") == "suspend" {
			flow, _ := stores.NewSuspendFlow(profile).Request()
			view.Confirming = flow.Step == stores.SuspendConfirming
		}
	} else if detail.Profile.Failed() && apiNotFound(detail.Profile.Err) {
		status = http.StatusNotFound
	}
	h.render(w, r, sess, status, "store_detail", "Store Details", "stores", view)
}

// Edit sends only the changed fields. An unchanged form closes without a
// request.
func (h *StoreHandler) Edit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	diff := stores.EditFormFromPost(r.PostForm).Diff()
	if diff.Empty() {
		seeOther(w, r, storePage(id))
		return
	}
	if _, err := h.service(sess).Update(r.Context(), id, diff); err != nil {
		seeOther(w, r, storePage(id)+"?edit=1")
		return
	}
	seeOther(w, r, storePage(id))
}

// Suspend asks for confirmation first; the confirmation form posts back
// with confirm=yes.
func (h *StoreHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	flow := stores.SuspendFlow{Active: true}
	if r.PostFormValue("confirm") != "yes" {
		flow, _ = flow.Request()
		if flow.Step == stores.SuspendConfirming {
			seeOther(w, r, storePage(id)+"?confirm=suspend")
			return
		}
	} else {
		flow.Step = stores.SuspendConfirming
	}

	_, suspend, err := flow.Confirm()
	if err != nil {
		seeOther(w, r, storePage(id)+"?confirm=suspend")
		return
	}
	h.service(sess).SetSuspended(r.Context(), id, suspend)
	seeOther(w, r, storePage(id))
}

func (h *StoreHandler) Activate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if _, send := (stores.SuspendFlow{Active: false}).Request(); send {
		h.service(sess).SetSuspended(r.Context(), id, false)
	}
	seeOther(w, r, storePage(id))
}

func (h *StoreHandler) VerifyGST(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	verified, err := strconv.ParseBool(r.PostFormValue("verified"))
	if err != nil {
		sess.Failure(r.Context(), stores.MsgGSTFailed)
		seeOther(w, r, storePage(id))
		return
	}
	h.service(sess).SetGSTVerified(r.Context(), id, verified)
	seeOther(w, r, storePage(id))
}

func (h *StoreHandler) RouteProduct(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	status := domain.RouteProductStatus(r.PostFormValue("status"))
	if _, err := h.service(sess).SetRouteProductStatus(r.Context(), id, status); errors.Is(err, stores.ErrInvalidRouteStatus) {
		sess.Failure(r.Context(), stores.MsgRouteFailed)
	}
	seeOther(w, r, storePage(id))
}

// Options serves the store selector. ?search= starts a new search and
// ?more=1 appends the next page.
func (h *StoreHandler) Options(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sel := h.selectors.For(sess.Scope.ID())

	var (
		view selector.View
		err  error
	)
	if r.URL.Query().Get("more") == "1" {
		view, err = sel.LoadMore(r.Context(), sess.Client)
	} else {
		view, err = sel.Search(r.Context(), sess.Client, strings.TrimSpace(r.URL.Query().Get("search")))
	}

	switch {
	case errors.Is(err, selector.ErrSuperseded):
		middleware.RespondWithError(w, http.StatusConflict, "Search replaced by a newer one")
	case err != nil:
		h.logger.Warn("Store selector fetch failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadGateway, stores.MsgLoadStoresFailed)
	default:
		middleware.RespondWithJSON(w, http.StatusOK, view)
	}
}

func (h *StoreHandler) SelectOption(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if errs := middleware.FormatValidationErrors(err); len(errs) > 0 {
			middleware.RespondWithValidationErrors(w, errs)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sel := h.selectors.For(sess.Scope.ID())
	sel.Select(domain.StoreListItem{ID: req.ID, StoreName: req.StoreName})
	middleware.RespondWithJSON(w, http.StatusOK, sel.View())
}

func (h *StoreHandler) ClearOption(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sel := h.selectors.For(sess.Scope.ID())
	sel.Clear()
	middleware.RespondWithJSON(w, http.StatusOK, sel.View())
}

func storePage(id string) string {
	return "/dashboard/stores/" + url.PathEscape(id)
}
