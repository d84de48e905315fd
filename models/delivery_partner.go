package models

import (
	"time"

	"food-marketplace-api/apperr"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VehicleType string

const (
	VehicleBike    VehicleType = "BIKE"
	VehicleScooter VehicleType = "SCOOTER"
	VehicleBicycle VehicleType = "BICYCLE"
	VehicleCar     VehicleType = "CAR"
)

// GeoPoint is a GeoJSON point; Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

type PartnerDocuments struct {
	IDProof             string `json:"id_proof" validate:"required"`
	DrivingLicense      string `json:"driving_license" validate:"required"`
	VehicleRegistration string `json:"vehicle_registration" validate:"required"`
	Insurance           string `json:"insurance" validate:"required"`
}

type PartnerBankDetails struct {
	AccountNumber     string `json:"account_number" validate:"required"`
	IFSCCode          string `json:"ifsc_code" validate:"required"`
	AccountHolderName string `json:"account_holder_name" validate:"required"`
	BankName          string `json:"bank_name" validate:"required"`
}

type PartnerRating struct {
	OrderID   uint      `json:"order_id"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Shift struct {
	StartTime string `json:"start_time" validate:"hhmm"`
	EndTime   string `json:"end_time" validate:"hhmm"`
}

type WorkingDay struct {
	Day    string  `json:"day" validate:"required,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY SUNDAY"`
	Shifts []Shift `json:"shifts" validate:"dive"`
}

// DeliveryPartner is 1:1 with a User. ActiveOrderID != nil implies IsAvailable == false.
type DeliveryPartner struct {
	ID              uint                                   `json:"id" gorm:"primaryKey"`
	UserID          uint                                   `json:"user_id" gorm:"not null;uniqueIndex"`
	User            *User                                  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	VehicleType     VehicleType                            `json:"vehicle_type" gorm:"not null" validate:"required,oneof=BIKE SCOOTER BICYCLE CAR"`
	VehicleNumber   string                                 `json:"vehicle_number" gorm:"not null;uniqueIndex" validate:"required"`
	LicenseNumber   string                                 `json:"license_number" gorm:"not null;uniqueIndex" validate:"required"`
	CurrentLocation datatypes.JSONType[GeoPoint]           `json:"current_location"`
	IsAvailable     bool                                   `json:"is_available" gorm:"default:false"`
	IsVerified      bool                                   `json:"is_verified" gorm:"default:false"`
	Documents       datatypes.JSONType[PartnerDocuments]   `json:"documents"`
	BankDetails     datatypes.JSONType[PartnerBankDetails] `json:"-"`
	Ratings         datatypes.JSONSlice[PartnerRating]     `json:"ratings"`
	AverageRating   float64                                `json:"average_rating" gorm:"default:0"`
	TotalDeliveries int64                                  `json:"total_deliveries" gorm:"default:0"`
	TotalEarnings   float64                                `json:"total_earnings" gorm:"default:0"`
	ActiveOrderID   *uint                                  `json:"active_order_id"`
	WorkingHours    datatypes.JSONSlice[WorkingDay]        `json:"working_hours" validate:"dive"`
	Version         int64                                  `json:"-" gorm:"not null;default:0"`
	CreatedAt       time.Time                              `json:"created_at"`
	UpdatedAt       time.Time                              `json:"updated_at"`
}

// AssignOrder makes orderID the partner's active order.
func (p *DeliveryPartner) AssignOrder(orderID uint) error {
	if p.ActiveOrderID != nil {
		return apperr.Conflict("delivery partner already has an active order")
	}
	p.ActiveOrderID = &orderID
	p.IsAvailable = false
	return nil
}

// CompleteOrder releases the active order and puts the partner back on duty.
func (p *DeliveryPartner) CompleteOrder() {
	p.ActiveOrderID = nil
	p.IsAvailable = true
}

// ToggleAvailability flips IsAvailable. A partner with an active order cannot go available.
func (p *DeliveryPartner) ToggleAvailability() error {
	if !p.IsAvailable && p.ActiveOrderID != nil {
		return apperr.Conflict("cannot become available while an order is active")
	}
	p.IsAvailable = !p.IsAvailable
	return nil
}

// RecordDelivery adds one completed delivery worth amount to the running totals.
func (p *DeliveryPartner) RecordDelivery(amount float64) {
	p.TotalDeliveries++
	p.TotalEarnings = decimal.NewFromFloat(p.TotalEarnings).Add(decimal.NewFromFloat(amount)).Round(2).InexactFloat64()
}

func (p *DeliveryPartner) AddRating(r PartnerRating) {
	p.Ratings = append(p.Ratings, r)
	p.RecalculateAverageRating()
}

func (p *DeliveryPartner) RecalculateAverageRating() {
	if len(p.Ratings) == 0 {
		p.AverageRating = 0
		return
	}
	sum := 0
	for _, r := range p.Ratings {
		sum += r.Rating
	}
	p.AverageRating = float64(sum) / float64(len(p.Ratings))
}

func (p *DeliveryPartner) BeforeSave(tx *gorm.DB) error {
	p.RecalculateAverageRating()
	return nil
}
