// Package products is the manual product creation form: one product with
// its variants and image URLs, checked locally and sent as a single
// bulk-create request.
package products

import "strings"

var MainCategories = []string{
	"FASHION", "ELECTRONICS", "HOME_LIVING", "BEAUTY_PERSONAL_CARE",
	"SPORTS_FITNESS", "BOOKS_STATIONERY", "TOYS_GAMES", "GROCERIES",
	"HEALTH_WELLNESS", "AUTOMOTIVE", "JEWELLERY", "FOOD_BEVERAGES",
	"PET_SUPPLIES", "BABY_PRODUCTS", "OTHER",
}

// subCategories only covers the main categories that have a fixed list.
var subCategories = map[string][]string{
	"FASHION":     {"Mens_Clothing", "Womens_Clothing", "Kids_Clothing", "Footwear", "Accessories"},
	"ELECTRONICS": {"Mobile_Phones", "Laptops", "Cameras", "Audio", "Accessories"},
	"HOME_LIVING": {"Furniture", "Home_Decor", "Kitchen", "Bedding", "Storage"},
	"OTHER":       {"General", "Miscellaneous"},
}

const (
	DefaultMainCategory = "FASHION"
	DefaultSubCategory  = "Mens_Clothing"
)

// SubCategories returns the sub categories offered for main.
func SubCategories(main string) []string {
	return subCategories[main]
}

// Label turns a category code into display text.
func Label(code string) string {
	return strings.ReplaceAll(code, "_", " ")
}
