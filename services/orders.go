package services

import (
	"context"
	"errors"
	"time"

	"food-marketplace-api/apperr"
	"food-marketplace-api/events"
	"food-marketplace-api/models"
	"food-marketplace-api/statemachine"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CustomizationChoice struct {
	Name   string `json:"name" validate:"required"`
	Option string `json:"option" validate:"required"`
}

type OrderItemInput struct {
	MenuItemID    uint                  `json:"menu_item_id" validate:"required"`
	Quantity      int                   `json:"quantity" validate:"min=1,max=50"`
	Customization []CustomizationChoice `json:"customization" validate:"dive"`
}

type PlaceOrderInput struct {
	RestaurantID        uint                   `json:"restaurant_id" validate:"required"`
	Items               []OrderItemInput       `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress     models.DeliveryAddress `json:"delivery_address"`
	Contact             models.Contact         `json:"contact"`
	PaymentMethod       models.PaymentMethod   `json:"payment_method" validate:"required,oneof=CASH CARD UPI WALLET"`
	SpecialInstructions string                 `json:"special_instructions" validate:"max=500"`
}

// PlaceOrder snapshots the requested menu items, prices the order and stores it as PLACED.
func (s *Service) PlaceOrder(ctx context.Context, actor models.Actor, in PlaceOrderInput) (*models.Order, error) {
	if actor.Role != models.RoleCustomer {
		return nil, apperr.Forbidden("only customers can place orders")
	}
	if err := models.Validate(in); err != nil {
		return nil, err
	}

	var restaurant models.Restaurant
	err := s.db(ctx).
		Preload("Menu.Items").
		Preload("Menu.SpecialOffers").
		First(&restaurant, in.RestaurantID).Error
	if err != nil {
		return nil, apperr.FromDB(err, "restaurant")
	}
	if !restaurant.AcceptsOrders() {
		return nil, apperr.Validation("restaurant is currently not accepting orders")
	}
	if !restaurant.Features.Data().Delivery {
		return nil, apperr.Validation("restaurant does not offer delivery")
	}
	if restaurant.Menu == nil {
		return nil, apperr.NotFound("menu not found")
	}

	now := s.now()
	items, quantity, err := snapshotItems(restaurant.Menu.Items, in.Items)
	if err != nil {
		return nil, err
	}
	order := &models.Order{
		CustomerID:          actor.UserID,
		RestaurantID:        restaurant.ID,
		Items:               items,
		DeliveryAddress:     datatypes.NewJSONType(in.DeliveryAddress),
		Contact:             datatypes.NewJSONType(in.Contact),
		PaymentMethod:       in.PaymentMethod,
		PaymentStatus:       models.PaymentPending,
		OrderStatus:         models.StatusPlaced,
		TaxRate:             s.Opts.TaxRate,
		DeliveryFee:         s.Opts.DeliveryFee,
		Discount:            models.OfferDiscount(items, restaurant.Menu.SpecialOffers, now),
		SpecialInstructions: in.SpecialInstructions,
		// base 30 min + 5 per item
		EstimatedTime: 30 + 5*quantity,
		StatusHistory: []models.OrderStatusHistory{{
			Status:    models.StatusPlaced,
			ChangedBy: actor.UserID,
			Note:      "Order placed",
			Timestamp: now,
		}},
	}
	order.EstimatedDeliveryTime = now.Add(time.Duration(order.EstimatedTime) * time.Minute)
	order.RecalculateTotals()
	if order.Subtotal < restaurant.MinimumOrder {
		return nil, apperr.Validation("minimum order for this restaurant is %.2f", restaurant.MinimumOrder)
	}

	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for _, item := range order.Items {
			err := tx.Model(&models.MenuItem{}).Where("id = ?", item.MenuItemID).
				Update("popularity", gorm.Expr("popularity + ?", item.Quantity)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// popularity is part of the cached menu
	s.invalidateMenu(ctx, order.RestaurantID)
	s.Log.Info().Uint("order_id", order.ID).Uint("restaurant_id", order.RestaurantID).Float64("total", order.Total).Msg("order placed")
	s.publish(ctx, events.NewOrderEvent(events.OrderPlaced, order, actor))
	return order, nil
}

// snapshotItems copies name, price and chosen option prices from the live menu. It also returns
// the total quantity ordered.
func snapshotItems(menu []models.MenuItem, in []OrderItemInput) ([]models.OrderItem, int, error) {
	byID := make(map[uint]*models.MenuItem, len(menu))
	for i := range menu {
		byID[menu[i].ID] = &menu[i]
	}
	items := make([]models.OrderItem, 0, len(in))
	quantity := 0
	for _, req := range in {
		mi, ok := byID[req.MenuItemID]
		if !ok {
			return nil, 0, apperr.Validation("menu item %d is not on this restaurant's menu", req.MenuItemID)
		}
		if !mi.IsAvailable {
			return nil, 0, apperr.Validation("menu item %q is not available", mi.Name)
		}
		choices := make([]models.OrderCustomization, 0, len(req.Customization))
		for _, c := range req.Customization {
			opt, ok := mi.FindOption(c.Name, c.Option)
			if !ok {
				return nil, 0, apperr.Validation("%q has no option %q in %q", mi.Name, c.Option, c.Name)
			}
			choices = append(choices, models.OrderCustomization{Name: c.Name, Option: opt.Name, Price: opt.Price})
		}
		items = append(items, models.OrderItem{
			MenuItemID:    mi.ID,
			Name:          mi.Name,
			Price:         mi.Price,
			Quantity:      req.Quantity,
			Customization: datatypes.NewJSONSlice(choices),
		})
		quantity += req.Quantity
	}
	return items, quantity, nil
}

// loadOrder fetches an order with what the lifecycle and visibility checks need.
func (s *Service) loadOrder(tx *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	err := tx.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp asc, id asc") }).
		Preload("Restaurant", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("DeliveryPartner").
		First(&order, id).Error
	if err != nil {
		return nil, apperr.FromDB(err, "order")
	}
	if order.Restaurant == nil {
		return nil, apperr.NotFound("restaurant for order %d not found", id)
	}
	return &order, nil
}

func subjectOf(o *models.Order) statemachine.Subject {
	s := statemachine.Subject{
		Status:            o.OrderStatus,
		CustomerID:        o.CustomerID,
		RestaurantOwnerID: o.Restaurant.OwnerID,
	}
	if o.DeliveryPartner != nil {
		uid := o.DeliveryPartner.UserID
		s.PartnerUserID = &uid
	}
	return s
}

// canView reports whether actor is a party to the order.
func canView(o *models.Order, actor models.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	sub := subjectOf(o)
	switch actor.Role {
	case models.RoleCustomer:
		return sub.CustomerID == actor.UserID
	case models.RoleRestaurantOwner:
		return sub.RestaurantOwnerID == actor.UserID
	case models.RoleDeliveryPartner:
		return sub.PartnerUserID != nil && *sub.PartnerUserID == actor.UserID
	}
	return false
}

func (s *Service) GetOrder(ctx context.Context, actor models.Actor, id uint) (*models.Order, error) {
	order, err := s.loadOrder(s.db(ctx), id)
	if err != nil {
		return nil, err
	}
	if !canView(order, actor) {
		return nil, apperr.Forbidden("not allowed to view this order")
	}
	return order, nil
}

// AllowedTargets lists what actor could move the order to next, for error responses.
func (s *Service) AllowedTargets(order *models.Order, actor models.Actor) []models.OrderStatus {
	return statemachine.AllowedTargets(subjectOf(order), actor, s.Opts.StrictTransitions)
}

// Transition moves an order to target on behalf of actor. The status swap, the history row and
// any aggregate updates commit together or not at all. When the policy rejects the move and the
// actor may view the order, the loaded order is returned alongside the error.
func (s *Service) Transition(ctx context.Context, actor models.Actor, orderID uint, target models.OrderStatus, note string) (*models.Order, error) {
	order, err := s.loadOrder(s.db(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if err := statemachine.Decide(subjectOf(order), actor, target, s.Opts.StrictTransitions); err != nil {
		if !canView(order, actor) {
			return nil, err
		}
		return order, err
	}

	from := order.OrderStatus
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return s.applyTransition(tx, order, actor, target, note)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info().
		Uint("order_id", order.ID).
		Str("from", string(from)).
		Str("to", string(target)).
		Uint("actor_id", actor.UserID).
		Str("actor_role", string(actor.Role)).
		Msg("order status changed")

	updated, err := s.loadOrder(s.db(ctx), order.ID)
	if err != nil {
		return nil, err
	}
	e := events.NewOrderEvent(events.OrderStatusChanged, updated, actor)
	e.FromStatus = from
	e.Note = note
	s.publish(ctx, e)
	return updated, nil
}

// applyTransition writes an already-authorized transition inside tx. The swap only matches while
// the stored status and delivery partner are still the ones order was loaded with.
func (s *Service) applyTransition(tx *gorm.DB, order *models.Order, actor models.Actor, target models.OrderStatus, note string) error {
	from := order.OrderStatus
	now := s.now()
	changes := map[string]any{"order_status": target}
	if target == models.StatusDelivered {
		changes["actual_delivery_time"] = now
	}
	q := tx.Model(&models.Order{}).Where("id = ? AND order_status = ?", order.ID, from)
	if order.DeliveryPartnerID == nil {
		q = q.Where("delivery_partner_id IS NULL")
	} else {
		q = q.Where("delivery_partner_id = ?", *order.DeliveryPartnerID)
	}
	res := q.Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("order %d changed concurrently, reload and retry", order.ID)
	}

	history := models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: from,
		Status:     target,
		ChangedBy:  actor.UserID,
		Note:       note,
		Timestamp:  now,
	}
	if err := tx.Create(&history).Error; err != nil {
		return err
	}

	order.OrderStatus = target
	switch target {
	case models.StatusDelivered:
		order.ActualDeliveryTime = &now
		return s.Aggregates.RecordOrderCompletion(tx, order)
	case models.StatusCancelled:
		if order.DeliveryPartnerID != nil {
			return s.Aggregates.ReleasePartner(tx, *order.DeliveryPartnerID, order.ID)
		}
	}
	return nil
}

// AssignPartner attaches a delivery partner to an unassigned, non-terminal order. Partners claim
// orders for themselves; admins must name the partner.
func (s *Service) AssignPartner(ctx context.Context, actor models.Actor, orderID uint, partnerID *uint) (*models.Order, error) {
	var partner models.DeliveryPartner
	switch actor.Role {
	case models.RoleDeliveryPartner:
		if err := s.db(ctx).Where("user_id = ?", actor.UserID).First(&partner).Error; err != nil {
			return nil, apperr.FromDB(err, "delivery partner profile")
		}
		if partnerID != nil && *partnerID != partner.ID {
			return nil, apperr.Forbidden("delivery partners can only claim orders for themselves")
		}
	case models.RoleAdmin:
		if partnerID == nil {
			return nil, apperr.Validation("delivery_partner_id is required")
		}
		if err := s.db(ctx).First(&partner, *partnerID).Error; err != nil {
			return nil, apperr.FromDB(err, "delivery partner")
		}
	default:
		return nil, apperr.Forbidden("only delivery partners and admins can assign orders")
	}
	if !partner.IsVerified {
		return nil, apperr.Forbidden("delivery partner %d is not verified", partner.ID)
	}

	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			return apperr.FromDB(err, "order")
		}
		if order.OrderStatus.Terminal() {
			return apperr.ErrAlreadyTerminal
		}
		if order.DeliveryPartnerID != nil {
			return apperr.Conflict("order %d already has a delivery partner", order.ID)
		}
		err := s.Aggregates.MutatePartner(tx, partner.ID, func(p *models.DeliveryPartner) error {
			if p.ActiveOrderID == nil && !p.IsAvailable {
				return apperr.Conflict("delivery partner is off duty")
			}
			return p.AssignOrder(order.ID)
		})
		if err != nil {
			return err
		}
		res := tx.Model(&models.Order{}).
			Where("id = ? AND delivery_partner_id IS NULL", order.ID).
			Where("order_status NOT IN ?", []models.OrderStatus{models.StatusDelivered, models.StatusCancelled}).
			Update("delivery_partner_id", partner.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("order %d was assigned concurrently", order.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.loadOrder(s.db(ctx), orderID)
	if err != nil {
		return nil, err
	}
	s.Log.Info().Uint("order_id", order.ID).Uint("delivery_partner_id", partner.ID).Msg("order assigned")
	s.publish(ctx, events.NewOrderEvent(events.OrderAssigned, order, actor))
	return order, nil
}

type RateOrderInput struct {
	Food     *int   `json:"food" validate:"omitempty,min=1,max=5"`
	Delivery *int   `json:"delivery" validate:"omitempty,min=1,max=5"`
	Review   string `json:"review" validate:"max=500"`
}

// RateOrder records the customer's rating of a delivered order. The delivery score also goes
// into the partner's ratings.
func (s *Service) RateOrder(ctx context.Context, actor models.Actor, orderID uint, in RateOrderInput) (*models.Order, error) {
	if err := models.Validate(in); err != nil {
		return nil, err
	}
	if in.Food == nil && in.Delivery == nil {
		return nil, apperr.Validation("at least one of food or delivery rating is required")
	}
	order, err := s.loadOrder(s.db(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleCustomer || order.CustomerID != actor.UserID {
		return nil, apperr.Forbidden("only the customer who placed the order can rate it")
	}
	if order.OrderStatus != models.StatusDelivered {
		return nil, apperr.Validation("only delivered orders can be rated")
	}
	if order.Rating.RatedAt != nil {
		return nil, apperr.Conflict("order %d has already been rated", order.ID)
	}

	now := s.now()
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND rating_rated_at IS NULL", order.ID).
			Updates(map[string]any{
				"rating_food":     in.Food,
				"rating_delivery": in.Delivery,
				"rating_review":   in.Review,
				"rating_rated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("order %d has already been rated", order.ID)
		}
		if in.Delivery == nil || order.DeliveryPartnerID == nil {
			return nil
		}
		return s.Aggregates.AddPartnerRating(tx, *order.DeliveryPartnerID, models.PartnerRating{
			OrderID:   order.ID,
			Rating:    *in.Delivery,
			Review:    in.Review,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.loadOrder(s.db(ctx), order.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewOrderEvent(events.OrderRated, updated, actor))
	return updated, nil
}

type OrderFilter struct {
	PageQuery
	Status       string `form:"status"`
	RestaurantID uint   `form:"restaurant_id"`
	// Available lists unassigned orders a delivery partner could claim.
	Available bool `form:"available"`
}

func (f OrderFilter) apply(q *gorm.DB) (*gorm.DB, error) {
	if f.Status != "" {
		if !models.OrderStatus(f.Status).Valid() {
			return nil, apperr.Validation("unknown order status %q", f.Status)
		}
		q = q.Where("order_status = ?", f.Status)
	}
	return q.Order("created_at desc, id desc"), nil
}

func (s *Service) ListCustomerOrders(ctx context.Context, actor models.Actor, f OrderFilter) (*Page[models.Order], error) {
	q, err := f.apply(s.db(ctx).Model(&models.Order{}).Where("customer_id = ?", actor.UserID))
	if err != nil {
		return nil, err
	}
	return paginate[models.Order](q, f.PageQuery, "Items", "Restaurant")
}

type RestaurantOrders struct {
	*Page[models.Order]
	Summary map[models.OrderStatus]int64 `json:"order_summary"`
}

// ListRestaurantOrders lists orders for the actor's restaurants, or for any restaurant when admin.
func (s *Service) ListRestaurantOrders(ctx context.Context, actor models.Actor, f OrderFilter) (*RestaurantOrders, error) {
	var ids []uint
	q := s.db(ctx).Model(&models.Restaurant{}).Unscoped()
	if !actor.IsAdmin() {
		q = q.Where("owner_id = ?", actor.UserID)
	}
	if f.RestaurantID != 0 {
		q = q.Where("id = ?", f.RestaurantID)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apperr.NotFound("no restaurant found for your account")
	}

	orders, err := f.apply(s.db(ctx).Model(&models.Order{}).Where("restaurant_id IN ?", ids))
	if err != nil {
		return nil, err
	}
	page, err := paginate[models.Order](orders, f.PageQuery, "Items", "Customer", "DeliveryPartner")
	if err != nil {
		return nil, err
	}
	summary, err := s.orderSummary(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &RestaurantOrders{Page: page, Summary: summary}, nil
}

// ListPartnerOrders lists the partner's deliveries, or with Available set the unassigned
// orders that are being prepared or waiting for pickup.
func (s *Service) ListPartnerOrders(ctx context.Context, actor models.Actor, f OrderFilter) (*Page[models.Order], error) {
	q := s.db(ctx).Model(&models.Order{})
	if f.Available {
		q = q.Where("delivery_partner_id IS NULL AND order_status IN ?", []models.OrderStatus{
			models.StatusConfirmed, models.StatusPreparing, models.StatusReadyForPickup,
		})
	} else {
		var partner models.DeliveryPartner
		err := s.db(ctx).Where("user_id = ?", actor.UserID).First(&partner).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("delivery partner profile not found")
		}
		if err != nil {
			return nil, err
		}
		q = q.Where("delivery_partner_id = ?", partner.ID)
	}
	q, err := f.apply(q)
	if err != nil {
		return nil, err
	}
	return paginate[models.Order](q, f.PageQuery, "Items", "Restaurant")
}

func (s *Service) ListAllOrders(ctx context.Context, f OrderFilter) (*Page[models.Order], error) {
	q := s.db(ctx).Model(&models.Order{})
	if f.RestaurantID != 0 {
		q = q.Where("restaurant_id = ?", f.RestaurantID)
	}
	q, err := f.apply(q)
	if err != nil {
		return nil, err
	}
	return paginate[models.Order](q, f.PageQuery, "Items", "Customer", "Restaurant", "DeliveryPartner")
}
