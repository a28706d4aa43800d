package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dxt-admin/internal/async"
	"dxt-admin/internal/csvimport"
	"dxt-admin/internal/domain"
	"dxt-admin/internal/products"
	"dxt-admin/internal/session"
	"dxt-admin/internal/stores"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	rd, err := NewRenderer(zap.NewNop())
	require.NoError(t, err)
	return rd
}

func render(t *testing.T, rd *Renderer, name string, p Page) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	rd.Render(w, http.StatusOK, name, p)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return w
}

func TestRenderer_LayoutShowsNavigationOnlyWhenSignedIn(t *testing.T) {
	rd := newTestRenderer(t)

	w := render(t, rd, "login", Page{Title: "Sign in", Data: loginView{Error: "Invalid email or password"}})
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.NotContains(t, w.Body.String(), "<nav>")
	assert.Contains(t, w.Body.String(), "Invalid email or password")

	admin := &domain.Admin{ID: "a1", Email: "ops@dxt.in", Role: "SUPER_ADMIN", Permissions: []string{"stores:write"}}
	w = render(t, rd, "dashboard", Page{
		Title:   "Dashboard",
		Section: "dashboard",
		Admin:   admin,
		Flashes: []session.Flash{{Kind: session.FlashSuccess, Message: "Store updated successfully"}},
		Data:    dashboardView{Overview: domain.AnalyticsOverview{TotalStores: 12}},
	})
	body := w.Body.String()
	assert.Contains(t, body, "<nav>")
	assert.Contains(t, body, "ops@dxt.in")
	assert.Contains(t, body, "stores:write")
	assert.Contains(t, body, `class="flash success"`)
	assert.Contains(t, body, "<h3>12</h3>")
}

func TestRenderer_UnknownPage(t *testing.T) {
	rd := newTestRenderer(t)
	w := httptest.NewRecorder()
	rd.Render(w, http.StatusOK, "missing", Page{})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRenderer_EscapesBackendText(t *testing.T) {
	rd := newTestRenderer(t)
	view := storeListView{
		State: stores.NewListState(),
		List:  domain.StoreList{Stores: []domain.StoreListItem{{ID: "s1", StoreName: "<script>alert(1)</script>"}}, Total: 1},
	}
	w := render(t, rd, "stores", Page{Data: view})
	assert.NotContains(t, w.Body.String(), "<script>alert(1)</script>")
	assert.Contains(t, w.Body.String(), "&lt;script&gt;")
}

func TestRenderer_StoreDetailPanelsAreIndependent(t *testing.T) {
	rd := newTestRenderer(t)
	profile := domain.StoreDetail{ID: "s1", StoreName: "Kurta House", IsActive: true, CreatedAt: 1700000000000}
	view := storeDetailView{
		ID: "s1",
		Detail: stores.Detail{
			Profile:   async.Ok(profile),
			Analytics: async.Fail[domain.StoreAnalytics](errors.New("boom")),
		},
		Confirming:   true,
		RouteStatus:  domain.RouteProductNotRequested,
		RouteActions: stores.RouteProductActions(domain.RouteProductNotRequested),
	}
	body := render(t, rd, "store_detail", Page{Data: view}).Body.String()
	assert.Contains(t, body, "Kurta House")
	assert.Contains(t, body, "Analytics are unavailable right now.")
	assert.Contains(t, body, "Confirm Suspend")
	assert.Contains(t, body, "Not Requested")
	assert.Contains(t, body, "Nov 14, 2023")

	view.Detail = stores.Detail{
		Profile:   async.Fail[domain.StoreDetail](errors.New("boom")),
		Analytics: async.Ok(domain.StoreAnalytics{TotalRevenue: 1234.5}),
	}
	view.Confirming = false
	body = render(t, rd, "store_detail", Page{Data: view}).Body.String()
	assert.Contains(t, body, "Failed to load store details.")
	assert.Contains(t, body, "₹1234.50")
	assert.NotContains(t, body, "Store Status")
}

func TestRenderer_EditFormCarriesSnapshot(t *testing.T) {
	rd := newTestRenderer(t)
	profile := domain.StoreDetail{ID: "s1", StoreName: "Kurta House"}
	view := storeDetailView{
		ID:         "s1",
		Detail:     stores.Detail{Profile: async.Ok(profile), Analytics: async.Ok(domain.StoreAnalytics{})},
		Editing:    true,
		EditFields: stores.NewEditForm(profile).Fields(),
	}
	body := render(t, rd, "store_detail", Page{Data: view}).Body.String()
	assert.Contains(t, body, `name="original.storeName" value="Kurta House"`)
	assert.Contains(t, body, `name="storeName" value="Kurta House"`)
}

func TestRenderer_FormPages(t *testing.T) {
	rd := newTestRenderer(t)

	body := render(t, rd, "store_create", Page{Data: storeCreateView{Form: stores.NewCreateForm(), Categories: stores.ProductCategories}}).Body.String()
	assert.Contains(t, body, `<option value="FASHION" selected>`)
	assert.Contains(t, body, `name="defaultIsCodAllowed" checked`)

	render(t, rd, "store_created", Page{Data: domain.CreateStoreResponse{DXTIN: "DXT123", StoreUsername: "kurta", TempPassword: "Tmp#1"}})

	form := products.NewForm()
	form.AddVariant()
	created := products.Created{ProductID: "p1", Images: 2, TotalVariants: 2, FailedImages: 1}
	body = render(t, rd, "product_create", Page{Data: productFormView{
		Form:           form,
		Stores:         []domain.StoreListItem{{ID: "s1", StoreName: "Kurta House"}},
		MainCategories: products.MainCategories,
		Strategies:     []domain.ImageSharingStrategy{domain.ImageSharingProductWide, domain.ImageSharingColorBased},
		Created:        &created,
	}}).Body.String()
	assert.Contains(t, body, "1 images could not be downloaded.")
	assert.Contains(t, body, products.VariantField(form.Variants[1].ID, "sellingPrice"))
	assert.Contains(t, body, "Mens Clothing")

	render(t, rd, "products", Page{})
}

func TestRenderer_ImportStates(t *testing.T) {
	rd := newTestRenderer(t)

	idle := csvimport.NewWorkflow()
	body := render(t, rd, "import_csv", Page{Data: importView{Workflow: idle, Categories: csvimport.Categories}}).Body.String()
	assert.Contains(t, body, "Upload file")
	assert.Contains(t, body, "disabled", "preview is disabled until a store is chosen")

	shown := csvimport.NewWorkflow()
	shown.State = csvimport.PreviewShown
	shown.FileName = "products.csv"
	shown.Preview = &domain.CsvPreview{
		TotalRows: 3, ValidRows: 2, InvalidRows: 1,
		PreviewProducts:   []domain.CsvProductGroup{{BaseProductName: "Kurta", Variants: []domain.CsvProductRow{{RowNumber: 2, SKU: "K-1", Price: 499}}}},
		InvalidRowDetails: []domain.InvalidRowDetail{{RowNumber: 4, Errors: []string{"price missing"}}},
	}
	body = render(t, rd, "import_csv", Page{Data: importView{
		Workflow: shown,
		Mapping:  []mappingRow{{Field: "productName", Column: "Title"}},
	}}).Body.String()
	assert.Contains(t, body, "Preview of products.csv")
	assert.Contains(t, body, `name="mapping.productName" value="Title"`)
	assert.Contains(t, body, "Row 4: price missing")
	assert.Contains(t, body, "Import 2 Products")

	done := csvimport.NewWorkflow()
	done.State = csvimport.ResultShown
	result := csvimport.NewResultView(domain.ImportResult{
		Success: true, ProductsCreated: 2, Duration: 1500,
		Errors: []domain.ImportRowError{{RowNumber: 4, ProductName: "Kurta", Error: "bad image"}},
	})
	body = render(t, rd, "import_csv", Page{Data: importView{Workflow: done, Result: &result}}).Body.String()
	assert.Contains(t, body, "Import Completed!")
	assert.Contains(t, body, "Row 4: Kurta - bad image")
	assert.Contains(t, body, "Completed in 1.50s")
}
