// Package aggregates keeps denormalized ratings and running totals in step with the reviews and
// orders they are derived from. Every write is a compare-and-swap on the row's version column.
package aggregates

import (
	"food-marketplace-api/apperr"
	"food-marketplace-api/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultMaxRetries = 5

type Updater struct {
	MaxRetries int
	Log        zerolog.Logger
}

func New(maxRetries int, log zerolog.Logger) *Updater {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Updater{MaxRetries: maxRetries, Log: log}
}

// cas runs attempt until it reports the swap applied, giving up with ErrConflict after MaxRetries.
func (u *Updater) cas(what string, id uint, attempt func() (bool, error)) error {
	for try := 1; try <= u.MaxRetries; try++ {
		applied, err := attempt()
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
		u.Log.Warn().Str("aggregate", what).Uint("id", id).Int("attempt", try).Msg("version changed underneath, retrying")
	}
	return apperr.Conflict("%s %d is being updated concurrently, try again", what, id)
}

// RecomputeRestaurantRating sets the restaurant's rating and rating count from its visible reviews.
func (u *Updater) RecomputeRestaurantRating(tx *gorm.DB, restaurantID uint) error {
	return u.cas("restaurant rating", restaurantID, func() (bool, error) {
		var r models.Restaurant
		if err := tx.Unscoped().Select("id", "version").First(&r, restaurantID).Error; err != nil {
			return false, apperr.FromDB(err, "restaurant")
		}

		var agg struct {
			Avg   float64
			Count int64
		}
		err := tx.Model(&models.Review{}).
			Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
			Where("restaurant_id = ? AND is_visible = ?", restaurantID, true).
			Scan(&agg).Error
		if err != nil {
			return false, err
		}

		res := tx.Unscoped().Model(&models.Restaurant{}).
			Where("id = ? AND version = ?", r.ID, r.Version).
			Updates(map[string]any{
				"rating":        agg.Avg,
				"total_ratings": agg.Count,
				"version":       gorm.Expr("version + 1"),
			})
		return res.RowsAffected == 1, res.Error
	})
}

// RecordOrderCompletion folds a delivered order into the restaurant's running stats, its monthly
// bucket, and the assigned partner's totals. The partner's active order is released.
func (u *Updater) RecordOrderCompletion(tx *gorm.DB, order *models.Order) error {
	if err := u.addRestaurantOrder(tx, order.RestaurantID, order.Total); err != nil {
		return err
	}
	if err := upsertMonthlyStat(tx, order); err != nil {
		return err
	}
	if order.DeliveryPartnerID == nil {
		return nil
	}
	return u.MutatePartner(tx, *order.DeliveryPartnerID, func(p *models.DeliveryPartner) error {
		p.RecordDelivery(order.Total)
		if p.ActiveOrderID != nil && *p.ActiveOrderID == order.ID {
			p.CompleteOrder()
		}
		return nil
	})
}

func (u *Updater) addRestaurantOrder(tx *gorm.DB, restaurantID uint, amount float64) error {
	return u.cas("restaurant stats", restaurantID, func() (bool, error) {
		var r models.Restaurant
		if err := tx.Unscoped().First(&r, restaurantID).Error; err != nil {
			return false, apperr.FromDB(err, "restaurant")
		}
		stats := AddOrder(r.Stats, amount)
		res := tx.Unscoped().Model(&models.Restaurant{}).
			Where("id = ? AND version = ?", r.ID, r.Version).
			Updates(map[string]any{
				"stats_total_orders":    stats.TotalOrders,
				"stats_total_revenue":   stats.TotalRevenue,
				"stats_avg_order_value": stats.AvgOrderValue,
				"version":               gorm.Expr("version + 1"),
			})
		return res.RowsAffected == 1, res.Error
	})
}

// AddOrder returns stats with one more order of the given amount.
func AddOrder(stats models.RestaurantStats, amount float64) models.RestaurantStats {
	revenue := decimal.NewFromFloat(stats.TotalRevenue).Add(decimal.NewFromFloat(amount)).Round(2)
	stats.TotalOrders++
	stats.TotalRevenue = revenue.InexactFloat64()
	stats.AvgOrderValue = revenue.Div(decimal.NewFromInt(stats.TotalOrders)).InexactFloat64()
	return stats
}

// upsertMonthlyStat adds the order to the bucket for the month it was placed in.
func upsertMonthlyStat(tx *gorm.DB, order *models.Order) error {
	stat := models.RestaurantMonthlyStat{
		RestaurantID: order.RestaurantID,
		Month:        models.MonthBucket(order.CreatedAt),
		Orders:       1,
		Revenue:      order.Total,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "restaurant_id"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]any{
			"orders":  gorm.Expr("restaurant_monthly_stats.orders + ?", 1),
			"revenue": gorm.Expr("restaurant_monthly_stats.revenue + ?", order.Total),
		}),
	}).Create(&stat).Error
}

// ReleasePartner frees the partner from orderID without crediting a delivery.
func (u *Updater) ReleasePartner(tx *gorm.DB, partnerID, orderID uint) error {
	return u.MutatePartner(tx, partnerID, func(p *models.DeliveryPartner) error {
		if p.ActiveOrderID != nil && *p.ActiveOrderID == orderID {
			p.CompleteOrder()
		}
		return nil
	})
}

// AddPartnerRating appends a delivery rating and refreshes the partner's average.
func (u *Updater) AddPartnerRating(tx *gorm.DB, partnerID uint, rating models.PartnerRating) error {
	return u.MutatePartner(tx, partnerID, func(p *models.DeliveryPartner) error {
		p.AddRating(rating)
		return nil
	})
}

// MutatePartner loads the partner, applies mutate, and writes the availability, active order,
// totals and ratings back guarded by the version column. mutate may run more than once.
func (u *Updater) MutatePartner(tx *gorm.DB, partnerID uint, mutate func(*models.DeliveryPartner) error) error {
	return u.cas("delivery partner", partnerID, func() (bool, error) {
		var p models.DeliveryPartner
		if err := tx.First(&p, partnerID).Error; err != nil {
			return false, apperr.FromDB(err, "delivery partner")
		}
		if err := mutate(&p); err != nil {
			return false, err
		}
		p.RecalculateAverageRating()
		res := tx.Model(&models.DeliveryPartner{}).
			Where("id = ? AND version = ?", p.ID, p.Version).
			Updates(map[string]any{
				"is_available":     p.IsAvailable,
				"active_order_id":  p.ActiveOrderID,
				"total_deliveries": p.TotalDeliveries,
				"total_earnings":   p.TotalEarnings,
				"ratings":          p.Ratings,
				"average_rating":   p.AverageRating,
				"version":          gorm.Expr("version + 1"),
			})
		return res.RowsAffected == 1, res.Error
	})
}
