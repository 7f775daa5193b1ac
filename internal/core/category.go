package core

import "strings"

// Category is one of the fixed spending buckets of a trip ledger.
type Category string

const (
	Accommodation Category = "Accommodation"
	FoodAndDrinks Category = "Food and Drinks"
	Transport     Category = "Transport"
	Entertainment Category = "Entertainment"
	Shopping      Category = "Shopping"
	Miscellaneous Category = "Miscellaneous"
)

// Categories lists every category in display order.
var Categories = []Category{
	Accommodation,
	FoodAndDrinks,
	Transport,
	Entertainment,
	Shopping,
	Miscellaneous,
}

var categoryColumns = map[Category]string{
	Accommodation: "accommodation",
	FoodAndDrinks: "food_drinks",
	Transport:     "transport",
	Entertainment: "entertainment",
	Shopping:      "shopping",
	Miscellaneous: "miscellaneous",
}

// ExtraKey is the key used for uncategorized spend in submitted amount maps.
const ExtraKey = "extra"

// AllCategories returns a copy of the fixed category list.
func AllCategories() []Category {
	return append([]Category(nil), Categories...)
}

// Column returns the persisted column name for the category.
func (c Category) Column() string {
	return categoryColumns[c]
}

// IsValid reports whether c is one of the fixed categories.
func (c Category) IsValid() bool {
	_, ok := categoryColumns[c]
	return ok
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory accepts a display name or a column name, case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for c, col := range categoryColumns {
		if strings.EqualFold(s, string(c)) || strings.EqualFold(s, col) {
			return c, true
		}
	}
	return "", false
}
