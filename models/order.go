package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderStatus represents all possible states of a food delivery order
type OrderStatus string

const (
	StatusPlaced         OrderStatus = "PLACED"
	StatusConfirmed      OrderStatus = "CONFIRMED"
	StatusPreparing      OrderStatus = "PREPARING"
	StatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCancelled      OrderStatus = "CANCELLED"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPlaced,
	StatusConfirmed,
	StatusPreparing,
	StatusReadyForPickup,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCard   PaymentMethod = "CARD"
	PaymentUPI    PaymentMethod = "UPI"
	PaymentWallet PaymentMethod = "WALLET"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

type DeliveryAddress struct {
	Street  string   `json:"street" validate:"required"`
	City    string   `json:"city" validate:"required"`
	State   string   `json:"state" validate:"required"`
	ZipCode string   `json:"zip_code" validate:"required"`
	Lat     *float64 `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lng     *float64 `json:"lng,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

type Contact struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

// OrderRating is the customer's post-delivery rating; RatedAt is nil until rated.
type OrderRating struct {
	Food     *int       `json:"food,omitempty"`
	Delivery *int       `json:"delivery,omitempty"`
	Review   string     `json:"review,omitempty"`
	RatedAt  *time.Time `json:"rated_at,omitempty"`
}

type Order struct {
	ID                    uint                                `json:"id" gorm:"primaryKey"`
	CustomerID            uint                                `json:"customer_id" gorm:"not null;index"`
	Customer              *User                               `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	RestaurantID          uint                                `json:"restaurant_id" gorm:"not null;index"`
	Restaurant            *Restaurant                         `json:"restaurant,omitempty" gorm:"foreignKey:RestaurantID"`
	DeliveryPartnerID     *uint                               `json:"delivery_partner_id" gorm:"index"`
	DeliveryPartner       *DeliveryPartner                    `json:"delivery_partner,omitempty" gorm:"foreignKey:DeliveryPartnerID"`
	Items                 []OrderItem                         `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	DeliveryAddress       datatypes.JSONType[DeliveryAddress] `json:"delivery_address"`
	Contact               datatypes.JSONType[Contact]         `json:"contact"`
	PaymentMethod         PaymentMethod                       `json:"payment_method" gorm:"not null"`
	PaymentStatus         PaymentStatus                       `json:"payment_status" gorm:"not null;default:'PENDING'"`
	OrderStatus           OrderStatus                         `json:"order_status" gorm:"not null;default:'PLACED';index"`
	StatusHistory         []OrderStatusHistory                `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	Subtotal              float64                             `json:"subtotal"`
	TaxRate               float64                             `json:"tax_rate"`
	TaxAmount             float64                             `json:"tax_amount"`
	DeliveryFee           float64                             `json:"delivery_fee"`
	Discount              float64                             `json:"discount"`
	Total                 float64                             `json:"total"`
	SpecialInstructions   string                              `json:"special_instructions"`
	EstimatedTime         int                                 `json:"estimated_time_minutes"`
	EstimatedDeliveryTime time.Time                           `json:"estimated_delivery_time"`
	ActualDeliveryTime    *time.Time                          `json:"actual_delivery_time"`
	Rating                OrderRating                         `json:"rating" gorm:"embedded;embeddedPrefix:rating_"`
	CreatedAt             time.Time                           `json:"created_at"`
	UpdatedAt             time.Time                           `json:"updated_at"`
}

type OrderCustomization struct {
	Name   string  `json:"name"`
	Option string  `json:"option"`
	Price  float64 `json:"price"`
}

// OrderItem snapshots the menu item at order time so later menu edits never rewrite history.
type OrderItem struct {
	ID            uint                                    `json:"id" gorm:"primaryKey"`
	OrderID       uint                                    `json:"order_id" gorm:"not null;index"`
	MenuItemID    uint                                    `json:"menu_item_id" gorm:"not null"`
	Name          string                                  `json:"name" gorm:"not null"`
	Price         float64                                 `json:"price" gorm:"not null"`
	Quantity      int                                     `json:"quantity" gorm:"not null" validate:"min=1"`
	Customization datatypes.JSONSlice[OrderCustomization] `json:"customization"`
}

// OrderStatusHistory is the append-only audit trail of status changes.
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null;index"`
	FromStatus OrderStatus `json:"from_status"`
	Status     OrderStatus `json:"status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"`
	Note       string      `json:"note"`
	Timestamp  time.Time   `json:"timestamp" gorm:"not null"`
}

// BeforeSave keeps the totals consistent with the items whenever the items are saved with the order.
func (o *Order) BeforeSave(tx *gorm.DB) error {
	if o.Items != nil {
		o.RecalculateTotals()
	}
	return nil
}
