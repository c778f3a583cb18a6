package model

import "time"

// Categories accepted for catalog items, in display order.
const (
	CategoryStaple = "staple"
	CategorySnack  = "snack"
	CategoryFruit  = "fruit"
	CategoryDrink  = "drink"
)

// CategoryAll is the filter value that matches every category.
const CategoryAll = "all"

var Categories = []string{CategoryStaple, CategorySnack, CategoryFruit, CategoryDrink}

// Icons are the display hints a food item may carry.
var Icons = []string{"fa-cutlery", "fa-birthday-cake", "fa-lemon-o", "fa-glass", "fa-coffee"}

const DefaultIcon = "fa-cutlery"

type FoodItem struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

// FoodSnapshot is the copy of a food item stored with a draw. It does not
// change when the catalog item is later renamed or deleted.
type FoodSnapshot struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type DrawRecord struct {
	ID        int64          `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Foods     []FoodSnapshot `json:"foods"`
}

// HasCategory reports whether any food in the record belongs to category.
func (d DrawRecord) HasCategory(category string) bool {
	for _, f := range d.Foods {
		if f.Category == category {
			return true
		}
	}
	return false
}

func IsValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

func IsValidIcon(icon string) bool {
	for _, v := range Icons {
		if v == icon {
			return true
		}
	}
	return false
}
