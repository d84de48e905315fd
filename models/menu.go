package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var MenuCategories = []string{
	"Starters", "Main Course", "Breads", "Rice", "Desserts", "Beverages",
	"Soups", "Salads", "Snacks", "Thali", "Combos",
}

var SpicyLevels = []string{"Mild", "Medium", "Hot", "Extra Hot"}

var Allergens = []string{"Milk", "Eggs", "Fish", "Shellfish", "Tree nuts", "Peanuts", "Wheat", "Soy"}

// Menu belongs to exactly one restaurant; Restaurant.MenuID points back at it.
type Menu struct {
	ID            uint                              `json:"id" gorm:"primaryKey"`
	RestaurantID  uint                              `json:"restaurant_id" gorm:"not null;uniqueIndex"`
	Categories    datatypes.JSONSlice[MenuCategory] `json:"categories"`
	Items         []MenuItem                        `json:"items" gorm:"foreignKey:MenuID"`
	SpecialOffers []SpecialOffer                    `json:"special_offers" gorm:"foreignKey:MenuID"`
	LastUpdated   time.Time                         `json:"last_updated"`
	CreatedAt     time.Time                         `json:"created_at"`
	UpdatedAt     time.Time                         `json:"updated_at"`
	DeletedAt     gorm.DeletedAt                    `json:"-" gorm:"index"`
}

type MenuCategory struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	IsAvailable  bool   `json:"is_available"`
	DisplayOrder int    `json:"display_order"`
}

type CustomizationOption struct {
	Name  string  `json:"name" validate:"required"`
	Price float64 `json:"price" validate:"gte=0"`
}

type CustomizationGroup struct {
	Name    string                `json:"name" validate:"required"`
	Options []CustomizationOption `json:"options" validate:"dive"`
}

type NutritionInfo struct {
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Carbohydrates float64 `json:"carbohydrates"`
	Fats          float64 `json:"fats"`
	Fiber         float64 `json:"fiber"`
}

type MenuItem struct {
	ID              uint                                    `json:"id" gorm:"primaryKey"`
	MenuID          uint                                    `json:"menu_id" gorm:"not null;index"`
	RestaurantID    uint                                    `json:"restaurant_id" gorm:"not null;index"`
	Name            string                                  `json:"name" gorm:"not null" validate:"required,max=50"`
	Description     string                                  `json:"description" validate:"required,max=500"`
	Price           float64                                 `json:"price" gorm:"not null" validate:"gte=0"`
	Category        string                                  `json:"category" gorm:"index" validate:"required,menu_category"`
	IsVeg           bool                                    `json:"is_veg" gorm:"index"`
	SpicyLevel      string                                  `json:"spicy_level" gorm:"default:'Medium'" validate:"omitempty,spicy_level"`
	IsAvailable     bool                                    `json:"is_available" gorm:"index"`
	PreparationTime int                                     `json:"preparation_time" validate:"min=1"`
	Customization   datatypes.JSONSlice[CustomizationGroup] `json:"customization" validate:"dive"`
	NutritionInfo   datatypes.JSONType[NutritionInfo]       `json:"nutrition_info"`
	Allergens       datatypes.JSONSlice[string]             `json:"allergens" validate:"dive,allergen"`
	Tags            datatypes.JSONSlice[string]             `json:"tags"`
	Popularity      int64                                   `json:"popularity" gorm:"default:0"`
	CreatedAt       time.Time                               `json:"created_at"`
	UpdatedAt       time.Time                               `json:"updated_at"`
}

// FindOption looks up a customization option by group and option name.
func (m *MenuItem) FindOption(group, option string) (CustomizationOption, bool) {
	for _, g := range m.Customization {
		if g.Name != group {
			continue
		}
		for _, o := range g.Options {
			if o.Name == option {
				return o, true
			}
		}
	}
	return CustomizationOption{}, false
}

// SpecialOffer is a percentage discount. An empty ApplicableItems list applies to every item.
type SpecialOffer struct {
	ID              uint                      `json:"id" gorm:"primaryKey"`
	MenuID          uint                      `json:"menu_id" gorm:"not null;index"`
	Name            string                    `json:"name" gorm:"not null" validate:"required"`
	Description     string                    `json:"description"`
	Discount        float64                   `json:"discount" validate:"gte=0,lte=100"`
	ValidFrom       *time.Time                `json:"valid_from"`
	ValidUntil      *time.Time                `json:"valid_until"`
	ApplicableItems datatypes.JSONSlice[uint] `json:"applicable_items"`
	IsActive        bool                      `json:"is_active"`
	CreatedAt       time.Time                 `json:"created_at"`
}

// AppliesTo reports whether the offer is live at now and covers itemID.
func (o SpecialOffer) AppliesTo(itemID uint, now time.Time) bool {
	if !o.IsActive {
		return false
	}
	if o.ValidFrom != nil && now.Before(*o.ValidFrom) {
		return false
	}
	if o.ValidUntil != nil && now.After(*o.ValidUntil) {
		return false
	}
	if len(o.ApplicableItems) == 0 {
		return true
	}
	for _, id := range o.ApplicableItems {
		if id == itemID {
			return true
		}
	}
	return false
}
