package stores

import (
	"net/url"
	"strconv"
	"strings"

	"dxt-admin/internal/domain"

	"github.com/go-playground/validator/v10"
)

// ProductCategories are the store categories offered at creation and as
// the CSV import category override.
var ProductCategories = []string{"FASHION", "FOOTWEAR", "ELECTRONICS", "COSMETICS", "ACCESSORIES"}

const (
	DefaultProductCategory = "FASHION"
	DefaultBusinessType    = "Retail"

	RegistrationGST        = "GST_REGISTERED"
	RegistrationEnrollment = "ENROLLMENT_BASED"
)

var validate = validator.New()

// CreateForm is the store creation screen.
type CreateForm struct {
	StoreName        string `validate:"required"`
	Email            string `validate:"required,email"`
	PhoneNumber      string `validate:"required"`
	WhatsappNumber   string
	OwnerName        string `validate:"required"`
	BusinessName     string
	BusinessType     string
	StoreDescription string
	StoreLogoURL     string `validate:"omitempty,url"`
	ProductCategory  string `validate:"required,oneof=FASHION FOOTWEAR ELECTRONICS COSMETICS ACCESSORIES"`
	WebsiteURL       string `validate:"omitempty,url"`
	Subdomain        string

	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	Pincode      string

	GSTNumber              string
	SellerRegistrationType string `validate:"oneof=GST_REGISTERED ENROLLMENT_BASED"`
	EnrollmentNumber       string

	DefaultIsCodAllowed         bool
	DefaultIsReturnable         bool
	DefaultShippingLocalCost    float64 `validate:"gte=0"`
	DefaultShippingRegionalCost float64 `validate:"gte=0"`
	DefaultShippingNationalCost float64 `validate:"gte=0"`
	DefaultDeliveryMinDays      int     `validate:"gte=0"`
	DefaultDeliveryMaxDays      int     `validate:"gte=0,gtefield=DefaultDeliveryMinDays"`
}

// NewCreateForm returns the form with its opening defaults.
func NewCreateForm() CreateForm {
	return CreateForm{
		BusinessType:           DefaultBusinessType,
		ProductCategory:        DefaultProductCategory,
		SellerRegistrationType: RegistrationGST,
		DefaultIsCodAllowed:    true,
		DefaultIsReturnable:    true,
		DefaultDeliveryMinDays: 2,
		DefaultDeliveryMaxDays: 7,
	}
}

// ParseCreateForm reads a submitted creation form. Checkboxes absent from
// the submission are off.
func ParseCreateForm(form url.Values) CreateForm {
	f := NewCreateForm()
	get := func(name string) string { return strings.TrimSpace(form.Get(name)) }

	f.StoreName = get("storeName")
	f.Email = get("email")
	f.PhoneNumber = get("phoneNumber")
	f.WhatsappNumber = get("whatsappNumber")
	f.OwnerName = get("ownerName")
	f.BusinessName = get("businessName")
	if v := get("businessType"); v != "" {
		f.BusinessType = v
	}
	f.StoreDescription = get("storeDescription")
	f.StoreLogoURL = get("storeLogoUrl")
	if v := get("productCategory"); v != "" {
		f.ProductCategory = v
	}
	f.WebsiteURL = get("websiteUrl")
	f.Subdomain = get("subdomain")

	f.AddressLine1 = get("addressLine1")
	f.AddressLine2 = get("addressLine2")
	f.City = get("city")
	f.State = get("state")
	f.Pincode = get("pincode")

	f.GSTNumber = get("gstNumber")
	if v := get("sellerRegistrationType"); v != "" {
		f.SellerRegistrationType = v
	}
	f.EnrollmentNumber = get("enrollmentNumber")

	f.DefaultIsCodAllowed = form.Has("defaultIsCodAllowed")
	f.DefaultIsReturnable = form.Has("defaultIsReturnable")
	f.DefaultShippingLocalCost = parseFloat(get("defaultShippingLocalCost"))
	f.DefaultShippingRegionalCost = parseFloat(get("defaultShippingRegionalCost"))
	f.DefaultShippingNationalCost = parseFloat(get("defaultShippingNationalCost"))
	if v, ok := parseInt(get("defaultDeliveryMinDays")); ok {
		f.DefaultDeliveryMinDays = v
	}
	if v, ok := parseInt(get("defaultDeliveryMaxDays")); ok {
		f.DefaultDeliveryMaxDays = v
	}
	return f
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	return v, err == nil
}

// Validate checks the form before anything is sent.
func (f CreateForm) Validate() error {
	return validate.Struct(f)
}

// Request builds the creation payload. Whatsapp falls back to the phone
// number and the business name to the store name; the registration type is
// only sent with a GST number.
func (f CreateForm) Request() domain.CreateStoreRequest {
	req := domain.CreateStoreRequest{
		StoreName:        f.StoreName,
		Email:            f.Email,
		PhoneNumber:      f.PhoneNumber,
		WhatsappNumber:   firstNonEmpty(f.WhatsappNumber, f.PhoneNumber),
		OwnerName:        f.OwnerName,
		BusinessName:     firstNonEmpty(f.BusinessName, f.StoreName),
		BusinessType:     firstNonEmpty(f.BusinessType, DefaultBusinessType),
		StoreDescription: f.StoreDescription,
		StoreLogoURL:     f.StoreLogoURL,
		ProductCategory:  f.ProductCategory,
		WebsiteURL:       f.WebsiteURL,
		Subdomain:        f.Subdomain,
		AddressLine1:     f.AddressLine1,
		AddressLine2:     f.AddressLine2,
		City:             f.City,
		State:            f.State,
		Pincode:          f.Pincode,
		GSTNumber:        f.GSTNumber,
		EnrollmentNumber: f.EnrollmentNumber,

		DefaultIsCodAllowed:         f.DefaultIsCodAllowed,
		DefaultIsReturnable:         f.DefaultIsReturnable,
		DefaultShippingLocalCost:    f.DefaultShippingLocalCost,
		DefaultShippingRegionalCost: f.DefaultShippingRegionalCost,
		DefaultShippingNationalCost: f.DefaultShippingNationalCost,
		DefaultDeliveryMinDays:      f.DefaultDeliveryMinDays,
		DefaultDeliveryMaxDays:      f.DefaultDeliveryMaxDays,
	}
	if f.GSTNumber != "" {
		req.SellerRegistrationType = f.SellerRegistrationType
	}
	return req
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
