package services

import (
	"context"
	"errors"
	"strings"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
	"food-marketplace-api/policy"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RestaurantInput struct {
	// OwnerID lets an admin list a restaurant on behalf of an owner. Ignored for owners.
	OwnerID             *uint                `json:"owner_id"`
	Name                string               `json:"name"`
	Description         string               `json:"description"`
	Cuisine             []string             `json:"cuisine"`
	Address             models.Address       `json:"address"`
	Phone               string               `json:"phone"`
	PriceRange          models.PriceRange    `json:"price_range"`
	MinimumOrder        float64              `json:"minimum_order"`
	AverageDeliveryTime int                  `json:"average_delivery_time"`
	Features            *models.Features     `json:"features"`
	BusinessHours       models.BusinessHours `json:"business_hours"`
}

// CreateRestaurant lists a restaurant and its empty menu in one transaction. An owner may hold
// only one live restaurant.
func (s *Service) CreateRestaurant(ctx context.Context, actor models.Actor, in RestaurantInput) (*models.Restaurant, error) {
	if actor.Role != models.RoleRestaurantOwner && !actor.IsAdmin() {
		return nil, apperr.Forbidden("only restaurant owners can list restaurants")
	}
	ownerID := actor.UserID
	if actor.IsAdmin() && in.OwnerID != nil {
		ownerID = *in.OwnerID
		var owner models.User
		if err := s.db(ctx).First(&owner, ownerID).Error; err != nil {
			return nil, apperr.FromDB(err, "owner")
		}
		if owner.Role != models.RoleRestaurantOwner {
			return nil, apperr.Validation("user %d is not a restaurant owner", ownerID)
		}
	}

	features := models.DefaultFeatures()
	if in.Features != nil {
		features = *in.Features
	}
	deliveryTime := in.AverageDeliveryTime
	if deliveryTime <= 0 {
		deliveryTime = 30
	}
	r := &models.Restaurant{
		OwnerID:             ownerID,
		Name:                strings.TrimSpace(in.Name),
		Description:         in.Description,
		Cuisine:             datatypes.NewJSONSlice(in.Cuisine),
		Address:             datatypes.NewJSONType(in.Address),
		Phone:               in.Phone,
		PriceRange:          in.PriceRange,
		IsOpen:              true,
		IsActive:            true,
		Features:            datatypes.NewJSONType(features),
		BusinessHours:       datatypes.NewJSONType(in.BusinessHours),
		AverageDeliveryTime: deliveryTime,
		MinimumOrder:        in.MinimumOrder,
	}
	if err := validateRestaurant(r); err != nil {
		return nil, err
	}

	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if !actor.IsAdmin() {
			var owned int64
			if err := tx.Model(&models.Restaurant{}).Where("owner_id = ?", ownerID).Count(&owned).Error; err != nil {
				return err
			}
			if owned > 0 {
				return apperr.Conflict("owner already has a restaurant")
			}
		}
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		menu := &models.Menu{RestaurantID: r.ID, LastUpdated: s.now()}
		if err := tx.Create(menu).Error; err != nil {
			return err
		}
		r.MenuID = &menu.ID
		r.Menu = menu
		return tx.Model(&models.Restaurant{}).Where("id = ?", r.ID).Update("menu_id", menu.ID).Error
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info().Uint("restaurant_id", r.ID).Uint("owner_id", ownerID).Msg("restaurant created")
	return r, nil
}

func validateRestaurant(r *models.Restaurant) error {
	if err := models.Validate(r); err != nil {
		return err
	}
	if err := models.Validate(r.Address.Data()); err != nil {
		return err
	}
	return models.ValidateHours(r.BusinessHours.Data())
}

type RestaurantFilter struct {
	PageQuery
	Cuisine    string   `form:"cuisine"`
	Search     string   `form:"search"`
	Open       *bool    `form:"open"`
	MinRating  *float64 `form:"min_rating"`
	PriceRange string   `form:"price_range"`
	Sort       string   `form:"sort"`
	// IncludeInactive is only honored for admin listings.
	IncludeInactive bool `form:"-"`
}

var restaurantSorts = map[string]string{
	"":              "rating desc, id asc",
	"rating":        "rating desc, id asc",
	"name":          "name asc, id asc",
	"newest":        "created_at desc, id desc",
	"delivery_time": "average_delivery_time asc, id asc",
}

func (s *Service) ListRestaurants(ctx context.Context, f RestaurantFilter) (*Page[models.Restaurant], error) {
	order, ok := restaurantSorts[f.Sort]
	if !ok {
		return nil, apperr.Validation("unknown sort %q", f.Sort)
	}
	q := s.db(ctx).Model(&models.Restaurant{}).Order(order)
	if !f.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if f.Cuisine != "" {
		q = q.Where("LOWER(CAST(cuisine AS TEXT)) LIKE ?", "%\""+strings.ToLower(f.Cuisine)+"\"%")
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if f.Open != nil {
		q = q.Where("is_open = ?", *f.Open)
	}
	if f.MinRating != nil {
		q = q.Where("rating >= ?", *f.MinRating)
	}
	if f.PriceRange != "" {
		q = q.Where("price_range = ?", f.PriceRange)
	}
	return paginate[models.Restaurant](q, f.PageQuery)
}

func (s *Service) GetRestaurant(ctx context.Context, id uint) (*models.Restaurant, error) {
	var r models.Restaurant
	if err := s.db(ctx).First(&r, id).Error; err != nil {
		return nil, apperr.FromDB(err, "restaurant")
	}
	return &r, nil
}

func (s *Service) MyRestaurant(ctx context.Context, actor models.Actor) (*models.Restaurant, error) {
	var r models.Restaurant
	err := s.db(ctx).Preload("Menu").Where("owner_id = ?", actor.UserID).First(&r).Error
	if err != nil {
		return nil, apperr.FromDB(err, "restaurant for this account")
	}
	return &r, nil
}

// ownedRestaurant loads a live restaurant and checks actor may mutate it as resource.
func (s *Service) ownedRestaurant(ctx context.Context, actor models.Actor, id uint, resource policy.Resource) (*models.Restaurant, error) {
	r, err := s.GetRestaurant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, r.OwnerID, resource); err != nil {
		return nil, err
	}
	return r, nil
}

type RestaurantUpdate struct {
	Name                *string            `json:"name"`
	Description         *string            `json:"description"`
	Cuisine             *[]string          `json:"cuisine"`
	Address             *models.Address    `json:"address"`
	Phone               *string            `json:"phone"`
	PriceRange          *models.PriceRange `json:"price_range"`
	MinimumOrder        *float64           `json:"minimum_order"`
	AverageDeliveryTime *int               `json:"average_delivery_time"`
	IsActive            *bool              `json:"is_active"`
}

func (s *Service) UpdateRestaurant(ctx context.Context, actor models.Actor, id uint, in RestaurantUpdate) (*models.Restaurant, error) {
	r, err := s.ownedRestaurant(ctx, actor, id, policy.Restaurant)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		r.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		r.Description = *in.Description
	}
	if in.Cuisine != nil {
		r.Cuisine = datatypes.NewJSONSlice(*in.Cuisine)
	}
	if in.Address != nil {
		r.Address = datatypes.NewJSONType(*in.Address)
	}
	if in.Phone != nil {
		r.Phone = *in.Phone
	}
	if in.PriceRange != nil {
		r.PriceRange = *in.PriceRange
	}
	if in.MinimumOrder != nil {
		r.MinimumOrder = *in.MinimumOrder
	}
	if in.AverageDeliveryTime != nil {
		if *in.AverageDeliveryTime <= 0 {
			return nil, apperr.Validation("average_delivery_time must be positive")
		}
		r.AverageDeliveryTime = *in.AverageDeliveryTime
	}
	if in.IsActive != nil {
		r.IsActive = *in.IsActive
	}
	if err := validateRestaurant(r); err != nil {
		return nil, err
	}
	err = s.db(ctx).Model(r).
		Select("name", "description", "cuisine", "address", "phone", "price_range",
			"minimum_order", "average_delivery_time", "is_active").
		Updates(r).Error
	if err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteRestaurant soft-deletes the restaurant and its menu together.
func (s *Service) DeleteRestaurant(ctx context.Context, actor models.Actor, id uint) error {
	r, err := s.ownedRestaurant(ctx, actor, id, policy.Restaurant)
	if err != nil {
		return err
	}
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("restaurant_id = ?", r.ID).Delete(&models.Menu{}).Error; err != nil {
			return err
		}
		return tx.Delete(r).Error
	})
	if err != nil {
		return err
	}
	s.invalidateMenu(ctx, r.ID)
	s.Log.Info().Uint("restaurant_id", r.ID).Uint("actor_id", actor.UserID).Msg("restaurant deleted")
	return nil
}

// ToggleRestaurant flips is_open or one of the feature flags.
func (s *Service) ToggleRestaurant(ctx context.Context, actor models.Actor, id uint, field string) (*models.Restaurant, error) {
	r, err := s.ownedRestaurant(ctx, actor, id, policy.Restaurant)
	if err != nil {
		return nil, err
	}
	if field == "" || field == "is_open" {
		r.IsOpen = !r.IsOpen
		err = s.db(ctx).Model(r).Update("is_open", r.IsOpen).Error
	} else {
		features := r.Features.Data()
		if !features.Toggle(field) {
			return nil, apperr.Validation("unknown field %q", field)
		}
		r.Features = datatypes.NewJSONType(features)
		err = s.db(ctx).Model(r).Update("features", r.Features).Error
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) UpdateHours(ctx context.Context, actor models.Actor, id uint, hours models.BusinessHours) (*models.Restaurant, error) {
	if err := models.ValidateHours(hours); err != nil {
		return nil, err
	}
	r, err := s.ownedRestaurant(ctx, actor, id, policy.Restaurant)
	if err != nil {
		return nil, err
	}
	r.BusinessHours = datatypes.NewJSONType(hours)
	if err := s.db(ctx).Model(r).Update("business_hours", r.BusinessHours).Error; err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) UpdateBankDetails(ctx context.Context, actor models.Actor, id uint, details models.BankDetails) error {
	if err := models.Validate(details); err != nil {
		return err
	}
	r, err := s.ownedRestaurant(ctx, actor, id, policy.Restaurant)
	if err != nil {
		return err
	}
	return s.db(ctx).Model(r).Update("bank_details", datatypes.NewJSONType(details)).Error
}

func (s *Service) UpdateDocuments(ctx context.Context, actor models.Actor, id uint, docs models.RestaurantDocuments) error {
	if err := models.Validate(docs); err != nil {
		return err
	}
	r, err := s.ownedRestaurant(ctx, actor, id, policy.Restaurant)
	if err != nil {
		return err
	}
	return s.db(ctx).Model(r).Update("documents", datatypes.NewJSONType(docs)).Error
}

type RestaurantStatsView struct {
	RestaurantID uint                           `json:"restaurant_id"`
	Stats        models.RestaurantStats         `json:"stats"`
	Rating       float64                        `json:"rating"`
	TotalRatings int64                          `json:"total_ratings"`
	Monthly      []models.RestaurantMonthlyStat `json:"monthly_stats"`
	OrderSummary map[models.OrderStatus]int64   `json:"order_summary"`
}

// RestaurantStats returns the running aggregates, the last twelve monthly buckets and a count
// of orders per status.
func (s *Service) RestaurantStats(ctx context.Context, actor models.Actor, id uint) (*RestaurantStatsView, error) {
	r, err := s.ownedRestaurant(ctx, actor, id, policy.Restaurant)
	if err != nil {
		return nil, err
	}
	view := &RestaurantStatsView{
		RestaurantID: r.ID,
		Stats:        r.Stats,
		Rating:       r.Rating,
		TotalRatings: r.TotalRatings,
	}
	err = s.db(ctx).Where("restaurant_id = ?", r.ID).Order("month desc").Limit(12).Find(&view.Monthly).Error
	if err != nil {
		return nil, err
	}
	view.OrderSummary, err = s.orderSummary(ctx, []uint{r.ID})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) orderSummary(ctx context.Context, restaurantIDs []uint) (map[models.OrderStatus]int64, error) {
	var rows []struct {
		OrderStatus models.OrderStatus
		Count       int64
	}
	err := s.db(ctx).Model(&models.Order{}).
		Select("order_status, COUNT(*) AS count").
		Where("restaurant_id IN ?", restaurantIDs).
		Group("order_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	summary := make(map[models.OrderStatus]int64, len(rows))
	for _, row := range rows {
		summary[row.OrderStatus] = row.Count
	}
	return summary, nil
}

// restaurantOwner returns the owner id of a restaurant even if it has since been deleted.
func (s *Service) restaurantOwner(tx *gorm.DB, restaurantID uint) (uint, error) {
	var r models.Restaurant
	err := tx.Unscoped().Select("id", "owner_id").First(&r, restaurantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperr.NotFound("restaurant not found")
	}
	return r.OwnerID, err
}
