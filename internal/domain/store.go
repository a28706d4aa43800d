package domain

// StoreListItem is one row of the paginated store directory.
type StoreListItem struct {
	ID            string `json:"id" validate:"required"`
	StoreName     string `json:"storeName"`
	StoreUsername string `json:"storeUsername"`
	DXTIN         string `json:"dxtin"`
}

// StoreList is the backend's page of stores.
type StoreList struct {
	Stores  []StoreListItem `json:"stores" validate:"dive"`
	Total   int             `json:"total" validate:"gte=0"`
	Page    int             `json:"page" validate:"gte=0"`
	Limit   int             `json:"limit" validate:"gte=0"`
	HasMore bool            `json:"hasMore"`
}

// RouteProductStatus is the payment-routing approval state of a store.
type RouteProductStatus string

const (
	RouteProductActivated    RouteProductStatus = "activated"
	RouteProductUnderReview  RouteProductStatus = "under_review"
	RouteProductRejected     RouteProductStatus = "rejected"
	RouteProductNotRequested RouteProductStatus = "not_requested"
)

// RequestableRouteStatuses are the statuses an admin may ask the backend for.
var RequestableRouteStatuses = []RouteProductStatus{
	RouteProductActivated,
	RouteProductUnderReview,
	RouteProductRejected,
}

// Requestable reports whether s can be sent to the route-product endpoint.
func (s RouteProductStatus) Requestable() bool {
	for _, r := range RequestableRouteStatuses {
		if s == r {
			return true
		}
	}
	return false
}

// StoreDetail is the full store profile. Timestamps are epoch milliseconds.
type StoreDetail struct {
	ID                  string             `json:"id" validate:"required"`
	DXTIN               string             `json:"dxtin"`
	Email               string             `json:"email"`
	PhoneNumber         string             `json:"phoneNumber"`
	WhatsappNumber      string             `json:"whatsappNumber,omitempty"`
	OwnerName           string             `json:"ownerName"`
	BusinessName        string             `json:"businessName"`
	BusinessType        string             `json:"businessType"`
	StoreName           string             `json:"storeName"`
	StoreUsername       string             `json:"storeUsername"`
	StoreLogo           string             `json:"storeLogo,omitempty"`
	StoreDescription    string             `json:"storeDescription"`
	ProductCategory     string             `json:"productCategory"`
	StoreType           string             `json:"storeType"`
	StoreRating         float64            `json:"storeRating"`
	ProductsCount       int                `json:"productsCount"`
	FollowersCount      int                `json:"followersCount"`
	Subdomain           string             `json:"subdomain,omitempty"`
	WebsiteURL          string             `json:"websiteUrl,omitempty"`
	IsActive            bool               `json:"isActive"`
	GSTVerified         bool               `json:"gstVerified"`
	CreatedAt           int64              `json:"createdAt"`
	LastUpdatedAt       int64              `json:"lastUpdatedAt"`
	LinkedAccountStatus string             `json:"linkedAccountStatus"`
	RouteProductStatus  RouteProductStatus `json:"routeProductStatus,omitempty"`
	CompletionStage     string             `json:"completionStage"`
}

// RouteStatus returns the route product status, defaulting to not_requested.
func (s *StoreDetail) RouteStatus() RouteProductStatus {
	if s.RouteProductStatus == "" {
		return RouteProductNotRequested
	}
	return s.RouteProductStatus
}

type StoreAnalytics struct {
	StoreID           string  `json:"storeId"`
	StoreName         string  `json:"storeName"`
	TotalProducts     int     `json:"totalProducts" validate:"gte=0"`
	PublishedProducts int     `json:"publishedProducts" validate:"gte=0"`
	DraftProducts     int     `json:"draftProducts" validate:"gte=0"`
	TotalOrders       int     `json:"totalOrders" validate:"gte=0"`
	TotalRevenue      float64 `json:"totalRevenue"`
	AverageOrderValue float64 `json:"averageOrderValue"`
	StoreRating       float64 `json:"storeRating"`
	TotalReviews      int     `json:"totalReviews" validate:"gte=0"`
}

// UpdateStoreRequest carries only the fields an admin changed; nil fields are
// left out of the request body.
type UpdateStoreRequest struct {
	StoreName        *string `json:"storeName,omitempty"`
	StoreDescription *string `json:"storeDescription,omitempty"`
	StoreLogo        *string `json:"storeLogo,omitempty"`
	OwnerName        *string `json:"ownerName,omitempty"`
	BusinessName     *string `json:"businessName,omitempty"`
	PhoneNumber      *string `json:"phoneNumber,omitempty"`
	WhatsappNumber   *string `json:"whatsappNumber,omitempty"`
	Email            *string `json:"email,omitempty"`
	WebsiteURL       *string `json:"websiteUrl,omitempty"`
}

// Empty reports whether no field is set.
func (r UpdateStoreRequest) Empty() bool {
	return r.StoreName == nil && r.StoreDescription == nil && r.StoreLogo == nil &&
		r.OwnerName == nil && r.BusinessName == nil && r.PhoneNumber == nil &&
		r.WhatsappNumber == nil && r.Email == nil && r.WebsiteURL == nil
}

type StoreActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	StoreID string `json:"storeId,omitempty"`
}

func (r StoreActionResponse) Succeeded() bool { return r.Success }
func (r StoreActionResponse) Reason() string  { return r.Message }

type CreateStoreRequest struct {
	StoreName              string `json:"storeName"`
	Email                  string `json:"email"`
	PhoneNumber            string `json:"phoneNumber"`
	WhatsappNumber         string `json:"whatsappNumber"`
	OwnerName              string `json:"ownerName"`
	BusinessName           string `json:"businessName"`
	BusinessType           string `json:"businessType"`
	StoreDescription       string `json:"storeDescription,omitempty"`
	StoreLogoURL           string `json:"storeLogoUrl,omitempty"`
	ProductCategory        string `json:"productCategory"`
	WebsiteURL             string `json:"websiteUrl,omitempty"`
	Subdomain              string `json:"subdomain,omitempty"`
	AddressLine1           string `json:"addressLine1,omitempty"`
	AddressLine2           string `json:"addressLine2,omitempty"`
	City                   string `json:"city,omitempty"`
	State                  string `json:"state,omitempty"`
	Pincode                string `json:"pincode,omitempty"`
	GSTNumber              string `json:"gstNumber,omitempty"`
	SellerRegistrationType string `json:"sellerRegistrationType,omitempty"`
	EnrollmentNumber       string `json:"enrollmentNumber,omitempty"`
	DefaultIsCodAllowed    bool   `json:"defaultIsCodAllowed"`
	DefaultIsReturnable    bool   `json:"defaultIsReturnable"`

	// Zero values are omitted so the backend applies its own defaults.
	DefaultShippingLocalCost    float64 `json:"defaultShippingLocalCost,omitempty"`
	DefaultShippingRegionalCost float64 `json:"defaultShippingRegionalCost,omitempty"`
	DefaultShippingNationalCost float64 `json:"defaultShippingNationalCost,omitempty"`
	DefaultDeliveryMinDays      int     `json:"defaultDeliveryMinDays,omitempty"`
	DefaultDeliveryMaxDays      int     `json:"defaultDeliveryMaxDays,omitempty"`
}

type CreateStoreResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	DXTIN         string `json:"dxtin"`
	StoreUsername string `json:"storeUsername"`
	TempPassword  string `json:"tempPassword"`
}

func (r CreateStoreResponse) Succeeded() bool { return r.Success }
func (r CreateStoreResponse) Reason() string  { return r.Message }
