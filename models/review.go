package models

import "time"

type ReviewReply struct {
	Content   string     `json:"content,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Review is one customer's rating of one delivered order. Only visible reviews count
// toward the restaurant's rating.
type Review struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	UserID       uint        `json:"user_id" gorm:"not null;index"`
	User         *User       `json:"user,omitempty" gorm:"foreignKey:UserID"`
	RestaurantID uint        `json:"restaurant_id" gorm:"not null;index:idx_review_restaurant_visible,priority:1"`
	OrderID      uint        `json:"order_id" gorm:"not null;uniqueIndex"`
	Rating       int         `json:"rating" gorm:"not null" validate:"min=1,max=5"`
	Review       string      `json:"review" gorm:"not null" validate:"required,max=1000"`
	Reply        ReviewReply `json:"reply" gorm:"embedded;embeddedPrefix:reply_"`
	IsVisible    bool        `json:"is_visible" gorm:"index:idx_review_restaurant_visible,priority:2"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
