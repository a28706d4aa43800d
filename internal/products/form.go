package products

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"dxt-admin/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrNoImageURLs     = domain.NewValidationError("Please provide at least one image URL")
	ErrInvalidVariants = domain.NewValidationError("All variants must have valid price and inventory")
	ErrStoreRequired   = domain.NewValidationError("Please select a store")
	ErrTitleRequired   = domain.NewValidationError("Please enter a product title")
)

var validate = validator.New()

// VariantRow is one variant as typed into the form.
type VariantRow struct {
	ID           string
	Size         string
	Color        string
	SKU          string
	MRP          string
	SellingPrice string
	Inventory    string
}

type Form struct {
	StoreID              string
	Title                string
	Description          string
	BrandName            string
	MainCategory         string
	SubCategory          string
	ImageURLs            string
	ImageSharingStrategy domain.ImageSharingStrategy
	IsReturnable         bool
	IsCodAllowed         bool
	IsPublished          bool
	Variants             []VariantRow
}

func newVariantRow() VariantRow {
	return VariantRow{ID: uuid.NewString(), SellingPrice: "0", Inventory: "0"}
}

// NewForm returns the form with its opening defaults and one empty variant.
func NewForm() Form {
	return Form{
		MainCategory:         DefaultMainCategory,
		SubCategory:          DefaultSubCategory,
		ImageSharingStrategy: domain.ImageSharingProductWide,
		IsCodAllowed:         true,
		IsPublished:          true,
		Variants:             []VariantRow{newVariantRow()},
	}
}

// VariantField is the input name of one variant attribute.
func VariantField(id, name string) string {
	return "variant." + id + "." + name
}

// ParseForm reads a submitted form. Variant rows are listed, in order, by
// their repeated "variant" id fields.
func ParseForm(form url.Values) Form {
	f := NewForm()
	get := func(name string) string { return strings.TrimSpace(form.Get(name)) }

	f.StoreID = get("storeId")
	f.Title = get("title")
	f.Description = get("description")
	f.BrandName = get("brandName")
	if v := get("mainCategory"); v != "" {
		f.MainCategory = v
	}
	f.SubCategory = get("subCategory")
	f.ImageURLs = form.Get("imageUrls")
	if v := get("imageSharingStrategy"); v != "" {
		f.ImageSharingStrategy = domain.ImageSharingStrategy(v)
	}
	f.IsReturnable = form.Has("isReturnable")
	f.IsCodAllowed = form.Has("isCodAllowed")
	f.IsPublished = form.Has("isPublished")

	f.Variants = f.Variants[:0]
	for _, id := range form["variant"] {
		if id == "" {
			continue
		}
		f.Variants = append(f.Variants, VariantRow{
			ID:           id,
			Size:         get(VariantField(id, "size")),
			Color:        get(VariantField(id, "color")),
			SKU:          get(VariantField(id, "sku")),
			MRP:          get(VariantField(id, "mrp")),
			SellingPrice: get(VariantField(id, "sellingPrice")),
			Inventory:    get(VariantField(id, "inventory")),
		})
	}
	if len(f.Variants) == 0 {
		f.Variants = append(f.Variants, newVariantRow())
	}
	return f
}

func (f *Form) AddVariant() {
	f.Variants = append(f.Variants, newVariantRow())
}

// RemoveVariant drops the row with id. The last row always stays.
func (f *Form) RemoveVariant(id string) {
	if len(f.Variants) <= 1 {
		return
	}
	for i, v := range f.Variants {
		if v.ID == id {
			f.Variants = append(f.Variants[:i], f.Variants[i+1:]...)
			return
		}
	}
}

// SubCategories returns the choices for the selected main category.
func (f Form) SubCategories() []string {
	return SubCategories(f.MainCategory)
}

// ParseImageURLs splits newline separated URLs, trimming each and dropping
// blank lines.
func ParseImageURLs(text string) []string {
	var urls []string
	for _, line := range strings.Split(text, "\n") {
		if u := strings.TrimSpace(line); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func (v VariantRow) input() (domain.VariantInput, bool) {
	price, err := strconv.ParseFloat(v.SellingPrice, 64)
	if err != nil || price <= 0 {
		return domain.VariantInput{}, false
	}
	inventory, err := strconv.Atoi(v.Inventory)
	if err != nil || inventory < 0 {
		return domain.VariantInput{}, false
	}

	in := domain.VariantInput{
		Attributes:   map[string]string{},
		SKU:          v.SKU,
		SellingPrice: price,
		Inventory:    inventory,
	}
	if mrp, err := strconv.ParseFloat(v.MRP, 64); err == nil && mrp > 0 {
		in.MRP = mrp
	}
	if v.Size != "" {
		in.Attributes["Size"] = v.Size
	}
	if v.Color != "" {
		in.Attributes["Color"] = v.Color
	}
	return in, true
}

// Request checks the form and builds the bulk-create payload. Any invalid
// variant rejects the whole submission.
func (f Form) Request() (domain.BulkCreateRequest, error) {
	if f.StoreID == "" {
		return domain.BulkCreateRequest{}, ErrStoreRequired
	}
	if f.Title == "" {
		return domain.BulkCreateRequest{}, ErrTitleRequired
	}
	urls := ParseImageURLs(f.ImageURLs)
	if len(urls) == 0 {
		return domain.BulkCreateRequest{}, ErrNoImageURLs
	}

	variants := make([]domain.VariantInput, 0, len(f.Variants))
	for _, row := range f.Variants {
		in, ok := row.input()
		if !ok {
			return domain.BulkCreateRequest{}, ErrInvalidVariants
		}
		variants = append(variants, in)
	}

	req := domain.BulkCreateRequest{
		StoreID:              f.StoreID,
		Title:                f.Title,
		Description:          f.Description,
		BrandName:            f.BrandName,
		MainCategory:         f.MainCategory,
		SubCategory:          f.SubCategory,
		ImageURLs:            urls,
		Variants:             variants,
		ImageSharingStrategy: f.ImageSharingStrategy,
		IsReturnable:         f.IsReturnable,
		IsCodAllowed:         f.IsCodAllowed,
		IsPublished:          f.IsPublished,
	}
	if err := validate.Struct(req); err != nil {
		return domain.BulkCreateRequest{}, fmt.Errorf("invalid product: %w", err)
	}
	return req, nil
}
