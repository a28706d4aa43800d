package domain

import "encoding/json"

// ImageSharingStrategy decides how uploaded images attach to variants.
type ImageSharingStrategy string

const (
	ImageSharingProductWide ImageSharingStrategy = "PRODUCT_WIDE"
	ImageSharingColorBased  ImageSharingStrategy = "COLOR_BASED"
)

// VariantInput is one sellable variant of a manually created product.
type VariantInput struct {
	Attributes   map[string]string `json:"attributes"`
	SKU          string            `json:"sku,omitempty"`
	MRP          float64           `json:"mrp,omitempty"`
	SellingPrice float64           `json:"sellingPrice" validate:"gt=0"`
	Inventory    int               `json:"inventory" validate:"gte=0"`
}

type BulkCreateRequest struct {
	StoreID              string               `json:"storeId" validate:"required"`
	Title                string               `json:"title" validate:"required"`
	Description          string               `json:"description"`
	BrandName            string               `json:"brandName,omitempty"`
	MainCategory         string               `json:"mainCategory" validate:"required"`
	SubCategory          string               `json:"subCategory"`
	ImageURLs            []string             `json:"imageUrls" validate:"min=1,dive,required"`
	Variants             []VariantInput       `json:"variants" validate:"min=1,dive"`
	ImageSharingStrategy ImageSharingStrategy `json:"imageSharingStrategy" validate:"oneof=PRODUCT_WIDE COLOR_BASED"`
	IsReturnable         bool                 `json:"isReturnable"`
	IsCodAllowed         bool                 `json:"isCodAllowed"`
	IsPublished          bool                 `json:"isPublished"`
}

// BulkCreateResponse reports the created product. Image download failures are
// listed in FailedImages without failing the product; their shape is owned by
// the backend, only the count is shown.
type BulkCreateResponse struct {
	Success       bool              `json:"success"`
	Message       string            `json:"message"`
	ProductID     string            `json:"productId"`
	ImageIDs      []string          `json:"imageIds"`
	TotalVariants int               `json:"totalVariants"`
	FailedImages  []json.RawMessage `json:"failedImages,omitempty"`
}

func (r BulkCreateResponse) Succeeded() bool { return r.Success }
func (r BulkCreateResponse) Reason() string  { return r.Message }
