package services

import (
	"context"
	"time"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
	"food-marketplace-api/policy"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MenuFilter struct {
	Category string `form:"category"`
	IsVeg    *bool  `form:"is_veg"`
}

// PublicMenu serves a live restaurant's menu through the menu cache, then applies filters.
func (s *Service) PublicMenu(ctx context.Context, restaurantID uint, f MenuFilter) (*models.Menu, error) {
	if _, err := s.GetRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}

	menu, hit, err := s.Menus.Get(ctx, restaurantID)
	if err != nil {
		s.Log.Warn().Err(err).Uint("restaurant_id", restaurantID).Msg("menu cache read failed")
	}
	if !hit {
		menu, err = s.loadMenu(ctx, restaurantID)
		if err != nil {
			return nil, err
		}
		if err := s.Menus.Set(ctx, restaurantID, menu); err != nil {
			s.Log.Warn().Err(err).Uint("restaurant_id", restaurantID).Msg("menu cache write failed")
		}
	}

	if f.Category == "" && f.IsVeg == nil {
		return menu, nil
	}
	filtered := *menu
	filtered.Items = make([]models.MenuItem, 0, len(menu.Items))
	for _, item := range menu.Items {
		if f.Category != "" && item.Category != f.Category {
			continue
		}
		if f.IsVeg != nil && item.IsVeg != *f.IsVeg {
			continue
		}
		filtered.Items = append(filtered.Items, item)
	}
	return &filtered, nil
}

func (s *Service) loadMenu(ctx context.Context, restaurantID uint) (*models.Menu, error) {
	var menu models.Menu
	err := s.db(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("category asc, id asc") }).
		Preload("SpecialOffers", "is_active = ?", true).
		Where("restaurant_id = ?", restaurantID).
		First(&menu).Error
	if err != nil {
		return nil, apperr.FromDB(err, "menu")
	}
	return &menu, nil
}

type MenuItemInput struct {
	Name            string                      `json:"name"`
	Description     string                      `json:"description"`
	Price           float64                     `json:"price"`
	Category        string                      `json:"category"`
	IsVeg           bool                        `json:"is_veg"`
	SpicyLevel      string                      `json:"spicy_level"`
	IsAvailable     *bool                       `json:"is_available"`
	PreparationTime int                         `json:"preparation_time"`
	Customization   []models.CustomizationGroup `json:"customization"`
	NutritionInfo   models.NutritionInfo        `json:"nutrition_info"`
	Allergens       []string                    `json:"allergens"`
	Tags            []string                    `json:"tags"`
}

func (s *Service) AddMenuItem(ctx context.Context, actor models.Actor, restaurantID uint, in MenuItemInput) (*models.MenuItem, error) {
	r, err := s.ownedRestaurant(ctx, actor, restaurantID, policy.Menu)
	if err != nil {
		return nil, err
	}
	if r.MenuID == nil {
		return nil, apperr.NotFound("menu not found")
	}
	item := &models.MenuItem{
		MenuID:          *r.MenuID,
		RestaurantID:    r.ID,
		Name:            in.Name,
		Description:     in.Description,
		Price:           in.Price,
		Category:        in.Category,
		IsVeg:           in.IsVeg,
		SpicyLevel:      in.SpicyLevel,
		IsAvailable:     in.IsAvailable == nil || *in.IsAvailable,
		PreparationTime: in.PreparationTime,
		Customization:   datatypes.NewJSONSlice(in.Customization),
		NutritionInfo:   datatypes.NewJSONType(in.NutritionInfo),
		Allergens:       datatypes.NewJSONSlice(in.Allergens),
		Tags:            datatypes.NewJSONSlice(in.Tags),
	}
	if item.SpicyLevel == "" {
		item.SpicyLevel = "Medium"
	}
	if item.PreparationTime == 0 {
		item.PreparationTime = 15
	}
	if err := models.Validate(item); err != nil {
		return nil, err
	}
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		return touchMenu(tx, *r.MenuID, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.invalidateMenu(ctx, r.ID)
	return item, nil
}

func touchMenu(tx *gorm.DB, menuID uint, now time.Time) error {
	return tx.Model(&models.Menu{}).Where("id = ?", menuID).Update("last_updated", now).Error
}

type MenuItemUpdate struct {
	Name            *string                      `json:"name"`
	Description     *string                      `json:"description"`
	Price           *float64                     `json:"price"`
	Category        *string                      `json:"category"`
	IsVeg           *bool                        `json:"is_veg"`
	SpicyLevel      *string                      `json:"spicy_level"`
	IsAvailable     *bool                        `json:"is_available"`
	PreparationTime *int                         `json:"preparation_time"`
	Customization   *[]models.CustomizationGroup `json:"customization"`
	NutritionInfo   *models.NutritionInfo        `json:"nutrition_info"`
	Allergens       *[]string                    `json:"allergens"`
	Tags            *[]string                    `json:"tags"`
}

func (u MenuItemUpdate) apply(item *models.MenuItem) {
	if u.Name != nil {
		item.Name = *u.Name
	}
	if u.Description != nil {
		item.Description = *u.Description
	}
	if u.Price != nil {
		item.Price = *u.Price
	}
	if u.Category != nil {
		item.Category = *u.Category
	}
	if u.IsVeg != nil {
		item.IsVeg = *u.IsVeg
	}
	if u.SpicyLevel != nil {
		item.SpicyLevel = *u.SpicyLevel
	}
	if u.IsAvailable != nil {
		item.IsAvailable = *u.IsAvailable
	}
	if u.PreparationTime != nil {
		item.PreparationTime = *u.PreparationTime
	}
	if u.Customization != nil {
		item.Customization = datatypes.NewJSONSlice(*u.Customization)
	}
	if u.NutritionInfo != nil {
		item.NutritionInfo = datatypes.NewJSONType(*u.NutritionInfo)
	}
	if u.Allergens != nil {
		item.Allergens = datatypes.NewJSONSlice(*u.Allergens)
	}
	if u.Tags != nil {
		item.Tags = datatypes.NewJSONSlice(*u.Tags)
	}
}

func (s *Service) menuItem(ctx context.Context, actor models.Actor, restaurantID, itemID uint) (*models.Restaurant, *models.MenuItem, error) {
	r, err := s.ownedRestaurant(ctx, actor, restaurantID, policy.Menu)
	if err != nil {
		return nil, nil, err
	}
	var item models.MenuItem
	if err := s.db(ctx).Where("id = ? AND restaurant_id = ?", itemID, r.ID).First(&item).Error; err != nil {
		return nil, nil, apperr.FromDB(err, "menu item")
	}
	return r, &item, nil
}

func (s *Service) UpdateMenuItem(ctx context.Context, actor models.Actor, restaurantID, itemID uint, in MenuItemUpdate) (*models.MenuItem, error) {
	r, item, err := s.menuItem(ctx, actor, restaurantID, itemID)
	if err != nil {
		return nil, err
	}
	in.apply(item)
	if err := models.Validate(item); err != nil {
		return nil, err
	}
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(item).Error; err != nil {
			return err
		}
		return touchMenu(tx, item.MenuID, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.invalidateMenu(ctx, r.ID)
	return item, nil
}

func (s *Service) DeleteMenuItem(ctx context.Context, actor models.Actor, restaurantID, itemID uint) error {
	r, item, err := s.menuItem(ctx, actor, restaurantID, itemID)
	if err != nil {
		return err
	}
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(item).Error; err != nil {
			return err
		}
		return touchMenu(tx, item.MenuID, s.now())
	})
	if err != nil {
		return err
	}
	s.invalidateMenu(ctx, r.ID)
	return nil
}

func (s *Service) ToggleMenuItem(ctx context.Context, actor models.Actor, restaurantID, itemID uint) (*models.MenuItem, error) {
	r, item, err := s.menuItem(ctx, actor, restaurantID, itemID)
	if err != nil {
		return nil, err
	}
	item.IsAvailable = !item.IsAvailable
	if err := s.db(ctx).Model(item).Update("is_available", item.IsAvailable).Error; err != nil {
		return nil, err
	}
	s.invalidateMenu(ctx, r.ID)
	return item, nil
}

type SpecialOfferInput struct {
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Discount        float64    `json:"discount"`
	ValidFrom       *time.Time `json:"valid_from"`
	ValidUntil      *time.Time `json:"valid_until"`
	ApplicableItems []uint     `json:"applicable_items"`
}

func (s *Service) AddSpecialOffer(ctx context.Context, actor models.Actor, restaurantID uint, in SpecialOfferInput) (*models.SpecialOffer, error) {
	r, err := s.ownedRestaurant(ctx, actor, restaurantID, policy.Menu)
	if err != nil {
		return nil, err
	}
	if r.MenuID == nil {
		return nil, apperr.NotFound("menu not found")
	}
	offer := &models.SpecialOffer{
		MenuID:          *r.MenuID,
		Name:            in.Name,
		Description:     in.Description,
		Discount:        in.Discount,
		ValidFrom:       in.ValidFrom,
		ValidUntil:      in.ValidUntil,
		ApplicableItems: datatypes.NewJSONSlice(in.ApplicableItems),
		IsActive:        true,
	}
	if err := models.Validate(offer); err != nil {
		return nil, err
	}
	if offer.ValidFrom != nil && offer.ValidUntil != nil && !offer.ValidUntil.After(*offer.ValidFrom) {
		return nil, apperr.Validation("valid_until must be after valid_from")
	}
	if len(in.ApplicableItems) > 0 {
		var found int64
		err := s.db(ctx).Model(&models.MenuItem{}).
			Where("id IN ? AND restaurant_id = ?", in.ApplicableItems, r.ID).
			Count(&found).Error
		if err != nil {
			return nil, err
		}
		if found != int64(len(uniqueIDs(in.ApplicableItems))) {
			return nil, apperr.Validation("applicable_items must reference this restaurant's menu items")
		}
	}
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(offer).Error; err != nil {
			return err
		}
		return touchMenu(tx, offer.MenuID, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.invalidateMenu(ctx, r.ID)
	return offer, nil
}

func (s *Service) DeleteSpecialOffer(ctx context.Context, actor models.Actor, restaurantID, offerID uint) error {
	r, err := s.ownedRestaurant(ctx, actor, restaurantID, policy.Menu)
	if err != nil {
		return err
	}
	if r.MenuID == nil {
		return apperr.NotFound("special offer not found")
	}
	res := s.db(ctx).Where("id = ? AND menu_id = ?", offerID, *r.MenuID).Delete(&models.SpecialOffer{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("special offer not found")
	}
	s.invalidateMenu(ctx, r.ID)
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
