package models

import (
	"fmt"
	"time"

	"food-marketplace-api/apperr"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PriceRange string

const (
	PriceBudget   PriceRange = "$"
	PriceModerate PriceRange = "$$"
	PriceUpscale  PriceRange = "$$$"
	PriceLuxury   PriceRange = "$$$$"
)

type Address struct {
	Street  string  `json:"street" validate:"required"`
	City    string  `json:"city" validate:"required"`
	State   string  `json:"state" validate:"required"`
	ZipCode string  `json:"zip_code" validate:"required"`
	Lat     float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng     float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type Features struct {
	Delivery       bool `json:"delivery"`
	Takeout        bool `json:"takeout"`
	DineIn         bool `json:"dine_in"`
	Parking        bool `json:"parking"`
	OutdoorSeating bool `json:"outdoor_seating"`
}

// DefaultFeatures mirrors a freshly listed restaurant: delivery, takeout and dine-in on.
func DefaultFeatures() Features {
	return Features{Delivery: true, Takeout: true, DineIn: true}
}

// Toggle flips the named feature flag. It reports false for unknown names.
func (f *Features) Toggle(name string) bool {
	switch name {
	case "delivery":
		f.Delivery = !f.Delivery
	case "takeout":
		f.Takeout = !f.Takeout
	case "dine_in":
		f.DineIn = !f.DineIn
	case "parking":
		f.Parking = !f.Parking
	case "outdoor_seating":
		f.OutdoorSeating = !f.OutdoorSeating
	default:
		return false
	}
	return true
}

type DayHours struct {
	Open   string `json:"open" validate:"omitempty,hhmm"`
	Close  string `json:"close" validate:"omitempty,hhmm"`
	IsOpen bool   `json:"is_open"`
}

// BusinessHours is keyed by lower-case weekday name.
type BusinessHours map[string]DayHours

type BankDetails struct {
	AccountHolder string `json:"account_holder" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required,numeric,min=6,max=20"`
	BankName      string `json:"bank_name" validate:"required"`
	IFSCCode      string `json:"ifsc_code" validate:"required,len=11"`
	UPIID         string `json:"upi_id"`
}

type LicenseDocument struct {
	Number     string     `json:"number" validate:"required"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

type RestaurantDocuments struct {
	FSSAILicense LicenseDocument `json:"fssai_license"`
	GSTNumber    string          `json:"gst_number"`
	PANNumber    string          `json:"pan_number"`
}

// RestaurantStats is the running order aggregate maintained by the aggregates package.
// AvgOrderValue == TotalRevenue / TotalOrders whenever TotalOrders > 0, else 0.
type RestaurantStats struct {
	TotalOrders   int64   `json:"total_orders"`
	TotalRevenue  float64 `json:"total_revenue"`
	AvgOrderValue float64 `json:"avg_order_value"`
}

type Restaurant struct {
	ID                  uint                                    `json:"id" gorm:"primaryKey"`
	OwnerID             uint                                    `json:"owner_id" gorm:"not null;index"`
	Owner               *User                                   `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	MenuID              *uint                                   `json:"menu_id"`
	Menu                *Menu                                   `json:"menu,omitempty" gorm:"foreignKey:RestaurantID"`
	Name                string                                  `json:"name" gorm:"not null" validate:"required,max=50"`
	Description         string                                  `json:"description" validate:"required,max=500"`
	Cuisine             datatypes.JSONSlice[string]             `json:"cuisine" validate:"min=1,dive,required,max=30"`
	Address             datatypes.JSONType[Address]             `json:"address"`
	Phone               string                                  `json:"phone" validate:"required"`
	PriceRange          PriceRange                              `json:"price_range" validate:"required,oneof=$ $$ $$$ $$$$"`
	IsOpen              bool                                    `json:"is_open"`
	IsActive            bool                                    `json:"is_active"`
	Features            datatypes.JSONType[Features]            `json:"features"`
	BusinessHours       datatypes.JSONType[BusinessHours]       `json:"business_hours"`
	BankDetails         datatypes.JSONType[BankDetails]         `json:"-"`
	Documents           datatypes.JSONType[RestaurantDocuments] `json:"-"`
	Rating              float64                                 `json:"rating" gorm:"default:0"`
	TotalRatings        int64                                   `json:"total_ratings" gorm:"default:0"`
	AverageDeliveryTime int                                     `json:"average_delivery_time" gorm:"default:30"`
	MinimumOrder        float64                                 `json:"minimum_order" gorm:"default:0" validate:"gte=0"`
	Stats               RestaurantStats                         `json:"stats" gorm:"embedded;embeddedPrefix:stats_"`
	Version             int64                                   `json:"-" gorm:"not null;default:0"`
	CreatedAt           time.Time                               `json:"created_at"`
	UpdatedAt           time.Time                               `json:"updated_at"`
	DeletedAt           gorm.DeletedAt                          `json:"-" gorm:"index"`
}

// AcceptsOrders reports whether customers can currently order from the restaurant.
func (r *Restaurant) AcceptsOrders() bool {
	return r.IsActive && r.IsOpen
}

// RestaurantMonthlyStat is one calendar-month bucket of completed orders.
// Month is always the first day of the month at 00:00 UTC.
type RestaurantMonthlyStat struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	RestaurantID uint      `json:"-" gorm:"not null;uniqueIndex:idx_restaurant_month"`
	Month        time.Time `json:"month" gorm:"not null;uniqueIndex:idx_restaurant_month"`
	Orders       int64     `json:"orders"`
	Revenue      float64   `json:"revenue"`
}

// MonthBucket normalizes t to the first day of its month in UTC.
func MonthBucket(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// ValidateHours rejects unknown weekday keys and malformed HH:MM times.
func ValidateHours(hours BusinessHours) error {
	for day, h := range hours {
		known := false
		for _, d := range Weekdays {
			if d == day {
				known = true
				break
			}
		}
		if !known {
			return apperr.Validation("unknown weekday %q", day)
		}
		if err := Validate(h); err != nil {
			return fmt.Errorf("%s: %w", day, err)
		}
	}
	return nil
}
