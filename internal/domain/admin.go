package domain

// Admin is the signed-in staff member as returned by the login endpoint.
type Admin struct {
	ID          string   `json:"id" validate:"required"`
	Email       string   `json:"email" validate:"required"`
	PhoneNumber string   `json:"phoneNumber"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	IsActive    bool     `json:"isActive"`
	CreatedAt   int64    `json:"createdAt"`
	LastLoginAt *int64   `json:"lastLoginAt"`
}

// HasPermission reports whether the admin was granted perm.
func (a *Admin) HasPermission(perm string) bool {
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// AccountTypeAdmin is the account type the login endpoint expects from this console.
const AccountTypeAdmin = "ADMIN"

type LoginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	AccountType string `json:"accountType"`
}

type LoginResponse struct {
	Success             bool   `json:"success"`
	Message             string `json:"message,omitempty"`
	CustomFirebaseToken string `json:"customFirebaseToken"`
	AdminData           *Admin `json:"adminData"`
}

// AnalyticsOverview holds the platform-wide dashboard counters.
type AnalyticsOverview struct {
	TotalStores     int `json:"totalStores" validate:"gte=0"`
	TotalProducts   int `json:"totalProducts" validate:"gte=0"`
	TotalOrders     int `json:"totalOrders" validate:"gte=0"`
	ImagesProcessed int `json:"imagesProcessed" validate:"gte=0"`
}
