package transport

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"dxt-admin/internal/domain"
	"dxt-admin/internal/products"
	"dxt-admin/internal/session"
	"dxt-admin/internal/stores"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Page is the data every screen renders with.
type Page struct {
	Title   string
	Section string
	Admin   *domain.Admin
	Flashes []session.Flash
	Data    any
}

var mappingLabels = map[string]string{
	"productName":    "Product Name",
	"variant":        "Variant",
	"sku":            "SKU",
	"price":          "Price",
	"compareAtPrice": "Compare At Price",
	"inStock":        "In Stock",
	"productUrl":     "Product URL",
	"description":    "Description",
	"images":         "Images",
}

var funcs = template.FuncMap{
	"date": func(ms int64) string {
		if ms <= 0 {
			return "-"
		}
		return time.UnixMilli(ms).UTC().Format("Jan 2, 2006")
	},
	"money": func(v float64) string {
		return fmt.Sprintf("₹%.2f", v)
	},
	"rating": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
	"categoryLabel": products.Label,
	"routeLabel":    stores.RouteStatusLabel,
	"variantField":  products.VariantField,
	"mappingLabel": func(field string) string {
		if l, ok := mappingLabels[field]; ok {
			return l
		}
		return field
	},
	"storeURL":      storePage,
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
}

// Renderer executes the embedded page templates inside the shared layout.
type Renderer struct {
	pages  map[string]*template.Template
	logger *zap.Logger
}

// NewRenderer parses every page once at startup.
func NewRenderer(logger *zap.Logger) (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		t, err := template.New(path.Base(file)).Funcs(funcs).ParseFS(templateFS, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", file, err)
		}
		pages[strings.TrimSuffix(path.Base(file), ".html")] = t
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// Render writes page name with status. The page is rendered into a buffer
// first so a template error never leaves half a page behind.
func (rd *Renderer) Render(w http.ResponseWriter, status int, name string, p Page) {
	t, ok := rd.pages[name]
	if !ok {
		rd.logger.Error("Unknown page template", zap.String("page", name))
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		rd.logger.Error("Failed to render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
