package domain

// ColumnMapping points each logical import field at a column header of the
// uploaded file. It always serializes to exactly the nine keys below.
type ColumnMapping struct {
	ProductName    string `json:"productName"`
	Variant        string `json:"variant"`
	SKU            string `json:"sku"`
	Price          string `json:"price"`
	CompareAtPrice string `json:"compareAtPrice"`
	InStock        string `json:"inStock"`
	ProductURL     string `json:"productUrl"`
	Description    string `json:"description"`
	Images         string `json:"images"`
}

// MappingFields lists the logical field names in display order.
var MappingFields = []string{
	"productName",
	"variant",
	"sku",
	"price",
	"compareAtPrice",
	"inStock",
	"productUrl",
	"description",
	"images",
}

// Get returns the column mapped to field and whether field is known.
func (m *ColumnMapping) Get(field string) (string, bool) {
	p := m.ref(field)
	if p == nil {
		return "", false
	}
	return *p, true
}

// Set repoints field at column. It reports false for unknown fields.
func (m *ColumnMapping) Set(field, column string) bool {
	p := m.ref(field)
	if p == nil {
		return false
	}
	*p = column
	return true
}

func (m *ColumnMapping) ref(field string) *string {
	switch field {
	case "productName":
		return &m.ProductName
	case "variant":
		return &m.Variant
	case "sku":
		return &m.SKU
	case "price":
		return &m.Price
	case "compareAtPrice":
		return &m.CompareAtPrice
	case "inStock":
		return &m.InStock
	case "productUrl":
		return &m.ProductURL
	case "description":
		return &m.Description
	case "images":
		return &m.Images
	}
	return nil
}

type CsvProductRow struct {
	RowNumber      int      `json:"rowNumber" validate:"gte=0"`
	ProductName    string   `json:"productName"`
	Variant        *string  `json:"variant"`
	SKU            string   `json:"sku"`
	Price          float64  `json:"price"`
	CompareAtPrice *float64 `json:"compareAtPrice"`
	InStock        bool     `json:"inStock"`
	ProductURL     *string  `json:"productUrl"`
	Description    *string  `json:"description"`
	ImageURLs      []string `json:"imageUrls"`
	Warnings       []string `json:"warnings"`
}

// CsvProductGroup is the backend's grouping of rows sharing a base product name.
type CsvProductGroup struct {
	BaseProductName string          `json:"baseProductName"`
	Variants        []CsvProductRow `json:"variants" validate:"dive"`
	TotalImages     int             `json:"totalImages"`
	PriceRange      string          `json:"priceRange"`
}

type InvalidRowDetail struct {
	RowNumber   int      `json:"rowNumber"`
	ProductName string   `json:"productName,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// CsvPreview is the dry-run result of the preview endpoint.
type CsvPreview struct {
	Success           bool               `json:"success"`
	Message           string             `json:"message"`
	DetectedColumns   ColumnMapping      `json:"detectedColumns"`
	TotalRows         int                `json:"totalRows" validate:"gte=0"`
	ValidRows         int                `json:"validRows" validate:"gte=0"`
	InvalidRows       int                `json:"invalidRows" validate:"gte=0"`
	PreviewProducts   []CsvProductGroup  `json:"previewProducts" validate:"dive"`
	InvalidRowDetails []InvalidRowDetail `json:"invalidRowDetails,omitempty"`
	Warnings          []string           `json:"warnings,omitempty"`
}

type ImportRowError struct {
	RowNumber   int    `json:"rowNumber"`
	ProductName string `json:"productName"`
	Error       string `json:"error"`
}

// ImportResult is the commit outcome. Partial success is normal: Failed and
// Errors describe the rows that did not import.
type ImportResult struct {
	Success         bool             `json:"success"`
	Message         string           `json:"message"`
	ProductsCreated int              `json:"productsCreated" validate:"gte=0"`
	VariantsCreated int              `json:"variantsCreated" validate:"gte=0"`
	ImagesProcessed int              `json:"imagesProcessed" validate:"gte=0"`
	Failed          int              `json:"failed" validate:"gte=0"`
	Errors          []ImportRowError `json:"errors"`
	Duration        int64            `json:"duration"`
}
