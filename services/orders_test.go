package services

import (
	"time"

	"food-marketplace-api/apperr"
	"food-marketplace-api/events"
	"food-marketplace-api/models"
	"food-marketplace-api/testutil"

	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (s *ServiceSuite) placeInput(items ...OrderItemInput) PlaceOrderInput {
	return PlaceOrderInput{
		RestaurantID:    s.restaurant.ID,
		Items:           items,
		DeliveryAddress: models.DeliveryAddress{Street: "2 FC Road", City: "Pune", State: "MH", ZipCode: "411004"},
		Contact:         models.Contact{Name: "Asha", Phone: "9876543210"},
		PaymentMethod:   models.PaymentUPI,
	}
}

func (s *ServiceSuite) TestPlaceOrderPricesOrder() {
	thali := testutil.CreateMenuItem(s.T(), s.db, s.restaurant, "Thali", 250)

	order, err := s.svc.PlaceOrder(s.ctx, s.customer, s.placeInput(OrderItemInput{MenuItemID: thali.ID, Quantity: 2}))
	s.Require().NoError(err)

	s.InDelta(500, order.Subtotal, 0.001)
	s.InDelta(25, order.TaxAmount, 0.001)
	s.InDelta(40, order.DeliveryFee, 0.001)
	s.InDelta(0, order.Discount, 0.001)
	s.InDelta(565, order.Total, 0.001)
	s.Equal(models.StatusPlaced, order.OrderStatus)
	s.Equal(40, order.EstimatedTime)

	stored, err := s.svc.GetOrder(s.ctx, s.customer, order.ID)
	s.Require().NoError(err)
	s.InDelta(565, stored.Total, 0.001)
	s.Require().Len(stored.Items, 1)
	s.Equal("Thali", stored.Items[0].Name)
	s.Require().Len(stored.StatusHistory, 1)
	s.Equal(models.StatusPlaced, stored.StatusHistory[0].Status)

	var item models.MenuItem
	s.Require().NoError(s.db.First(&item, thali.ID).Error)
	s.Equal(int64(2), item.Popularity)

	s.pub.AssertCalled(s.T(), "Publish", mock.Anything, eventOf(events.OrderPlaced))
}

func (s *ServiceSuite) TestPlaceOrderSnapshotsCustomizationAndOffers() {
	pizza := testutil.CreateMenuItem(s.T(), s.db, s.restaurant, "Pizza", 300)
	pizza.Customization = datatypes.NewJSONSlice([]models.CustomizationGroup{
		{Name: "Size", Options: []models.CustomizationOption{{Name: "Large", Price: 100}}},
	})
	s.Require().NoError(s.db.Save(pizza).Error)
	_, err := s.svc.AddSpecialOffer(s.ctx, s.owner, s.restaurant.ID, SpecialOfferInput{
		Name: "Pizza week", Discount: 10, ApplicableItems: []uint{pizza.ID},
	})
	s.Require().NoError(err)

	order, err := s.svc.PlaceOrder(s.ctx, s.customer, s.placeInput(OrderItemInput{
		MenuItemID:    pizza.ID,
		Quantity:      1,
		Customization: []CustomizationChoice{{Name: "Size", Option: "Large"}},
	}))
	s.Require().NoError(err)

	s.InDelta(400, order.Subtotal, 0.001)
	s.InDelta(20, order.TaxAmount, 0.001)
	s.InDelta(40, order.Discount, 0.001)
	s.InDelta(420, order.Total, 0.001)
	s.InDelta(order.Subtotal+order.TaxAmount+order.DeliveryFee-order.Discount, order.Total, 0.001)

	// later menu edits leave the snapshot alone
	s.Require().NoError(s.db.Model(pizza).Update("price", 999).Error)
	stored, err := s.svc.GetOrder(s.ctx, s.customer, order.ID)
	s.Require().NoError(err)
	s.InDelta(300, stored.Items[0].Price, 0.001)
	s.Require().Len(stored.Items[0].Customization, 1)
	s.InDelta(100, stored.Items[0].Customization[0].Price, 0.001)
}

func (s *ServiceSuite) TestPlaceOrderRejections() {
	item := testutil.CreateMenuItem(s.T(), s.db, s.restaurant, "Dosa", 120)

	_, err := s.svc.PlaceOrder(s.ctx, s.owner, s.placeInput(OrderItemInput{MenuItemID: item.ID, Quantity: 1}))
	s.ErrorIs(err, apperr.ErrForbidden)

	_, err = s.svc.PlaceOrder(s.ctx, s.customer, s.placeInput())
	s.ErrorIs(err, apperr.ErrValidation)

	_, err = s.svc.PlaceOrder(s.ctx, s.customer, s.placeInput(OrderItemInput{MenuItemID: 9999, Quantity: 1}))
	s.ErrorIs(err, apperr.ErrValidation)

	_, err = s.svc.PlaceOrder(s.ctx, s.customer, s.placeInput(OrderItemInput{
		MenuItemID: item.ID, Quantity: 1, Customization: []CustomizationChoice{{Name: "Size", Option: "Huge"}},
	}))
	s.ErrorIs(err, apperr.ErrValidation)

	s.Require().NoError(s.db.Model(&models.Restaurant{}).Where("id = ?", s.restaurant.ID).Update("minimum_order", 500).Error)
	_, err = s.svc.PlaceOrder(s.ctx, s.customer, s.placeInput(OrderItemInput{MenuItemID: item.ID, Quantity: 1}))
	s.ErrorIs(err, apperr.ErrValidation)

	s.Require().NoError(s.db.Model(&models.Restaurant{}).Where("id = ?", s.restaurant.ID).Update("is_open", false).Error)
	_, err = s.svc.PlaceOrder(s.ctx, s.customer, s.placeInput(OrderItemInput{MenuItemID: item.ID, Quantity: 5}))
	s.ErrorIs(err, apperr.ErrValidation)

	var count int64
	s.Require().NoError(s.db.Model(&models.Order{}).Count(&count).Error)
	s.Zero(count)
}

func (s *ServiceSuite) TestOwnerMovesPlacedOrderToPreparing() {
	order := s.newOrder()

	updated, err := s.svc.Transition(s.ctx, s.owner, order.ID, models.StatusPreparing, "started")
	s.Require().NoError(err)
	s.Equal(models.StatusPreparing, updated.OrderStatus)
	s.Require().Len(updated.StatusHistory, 2)
	last := updated.StatusHistory[1]
	s.Equal(models.StatusPreparing, last.Status)
	s.Equal(models.StatusPlaced, last.FromStatus)
	s.Equal("started", last.Note)
	s.Equal(s.owner.UserID, last.ChangedBy)

	s.pub.AssertCalled(s.T(), "Publish", mock.Anything, mock.MatchedBy(func(e events.OrderEvent) bool {
		return e.Type == events.OrderStatusChanged && e.FromStatus == models.StatusPlaced && e.Status == models.StatusPreparing
	}))
}

func (s *ServiceSuite) TestOtherOwnerIsForbiddenAndOrderUnchanged() {
	order := s.newOrder()
	other := testutil.CreateUser(s.T(), s.db, models.RoleRestaurantOwner)

	_, err := s.svc.Transition(s.ctx, models.Actor{UserID: other.ID, Role: models.RoleRestaurantOwner}, order.ID, models.StatusPreparing, "")
	s.Require().ErrorIs(err, apperr.ErrForbidden)

	stored, err := s.svc.GetOrder(s.ctx, s.admin, order.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPlaced, stored.OrderStatus)
	s.Len(stored.StatusHistory, 1)
}

func (s *ServiceSuite) TestRejectedTransitionHidesOrderFromStrangers() {
	order := s.newOrder()
	stranger := testutil.CreateUser(s.T(), s.db, models.RoleCustomer)

	loaded, err := s.svc.Transition(s.ctx, models.Actor{UserID: stranger.ID, Role: models.RoleCustomer}, order.ID, models.StatusCancelled, "")
	s.ErrorIs(err, apperr.ErrForbidden)
	s.Nil(loaded)

	loaded, err = s.svc.Transition(s.ctx, models.Actor{UserID: stranger.ID, Role: models.RoleCustomer}, order.ID, models.OrderStatus("BOGUS"), "")
	s.ErrorIs(err, apperr.ErrForbidden)
	s.Nil(loaded)

	// the customer on the order still gets it back to see what went wrong
	loaded, err = s.svc.Transition(s.ctx, s.customer, order.ID, models.StatusConfirmed, "")
	s.ErrorIs(err, apperr.ErrForbidden)
	s.Require().NotNil(loaded)
	s.Equal(models.StatusPlaced, loaded.OrderStatus)
}

func (s *ServiceSuite) TestStatusSwapRejectsStalePartnerSnapshot() {
	order := s.newOrder()
	stale, err := s.svc.GetOrder(s.ctx, s.admin, order.ID)
	s.Require().NoError(err)
	s.Require().Nil(stale.DeliveryPartnerID)

	// a partner claims the order after the admin's copy was loaded
	_, err = s.svc.AssignPartner(s.ctx, s.partner, order.ID, nil)
	s.Require().NoError(err)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.svc.applyTransition(tx, stale, s.admin, models.StatusDelivered, "")
	})
	s.ErrorIs(err, apperr.ErrConflict)

	stored, err := s.svc.GetOrder(s.ctx, s.admin, order.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPlaced, stored.OrderStatus)
	s.Len(stored.StatusHistory, 1)

	// retrying with a fresh load credits the partner and frees them
	_, err = s.svc.Transition(s.ctx, s.admin, order.ID, models.StatusDelivered, "")
	s.Require().NoError(err)
	p := s.reloadPartner()
	s.Equal(int64(1), p.TotalDeliveries)
	s.Nil(p.ActiveOrderID)
	s.True(p.IsAvailable)
}

func (s *ServiceSuite) TestCustomerCannotCancelOutForDelivery() {
	order := s.newOrder()
	_, err := s.svc.Transition(s.ctx, s.admin, order.ID, models.StatusOutForDelivery, "")
	s.Require().NoError(err)

	_, err = s.svc.Transition(s.ctx, s.customer, order.ID, models.StatusCancelled, "changed my mind")
	s.ErrorIs(err, apperr.ErrForbidden)
}

func (s *ServiceSuite) TestHistoryGrowsByOnePerTransition() {
	order := s.newOrder()
	steps := []struct {
		actor  models.Actor
		target models.OrderStatus
	}{
		{s.owner, models.StatusConfirmed},
		{s.owner, models.StatusPreparing},
		{s.owner, models.StatusReadyForPickup},
	}
	for i, step := range steps {
		updated, err := s.svc.Transition(s.ctx, step.actor, order.ID, step.target, "")
		s.Require().NoError(err)
		s.Len(updated.StatusHistory, i+2)
		s.Equal(updated.OrderStatus, updated.StatusHistory[len(updated.StatusHistory)-1].Status)
	}
}

func (s *ServiceSuite) TestDeliveryUpdatesAggregatesAndTerminalRejects() {
	order := s.newOrder()
	delivered := s.deliver(order)

	s.Equal(models.StatusDelivered, delivered.OrderStatus)
	s.NotNil(delivered.ActualDeliveryTime)
	s.Len(delivered.StatusHistory, 5)

	r := s.reloadRestaurant()
	s.Equal(int64(1), r.Stats.TotalOrders)
	s.InDelta(565, r.Stats.TotalRevenue, 0.001)
	s.InDelta(565, r.Stats.AvgOrderValue, 0.001)

	var bucket models.RestaurantMonthlyStat
	s.Require().NoError(s.db.Where("restaurant_id = ?", s.restaurant.ID).First(&bucket).Error)
	s.Equal(int64(1), bucket.Orders)
	s.True(models.MonthBucket(order.CreatedAt).Equal(bucket.Month))

	p := s.reloadPartner()
	s.Equal(int64(1), p.TotalDeliveries)
	s.InDelta(565, p.TotalEarnings, 0.001)
	s.Nil(p.ActiveOrderID)
	s.True(p.IsAvailable)

	for _, actor := range []models.Actor{s.admin, s.customer, s.partner} {
		_, err := s.svc.Transition(s.ctx, actor, order.ID, models.StatusCancelled, "")
		s.ErrorIs(err, apperr.ErrAlreadyTerminal)
		s.ErrorIs(err, apperr.ErrIllegalTransition)
	}
	stored, err := s.svc.GetOrder(s.ctx, s.admin, order.ID)
	s.Require().NoError(err)
	s.Len(stored.StatusHistory, 5)
}

func (s *ServiceSuite) TestStrictTransitionsBlockJumps() {
	s.svc.Opts.StrictTransitions = true
	order := s.newOrder()

	_, err := s.svc.Transition(s.ctx, s.owner, order.ID, models.StatusReadyForPickup, "")
	s.ErrorIs(err, apperr.ErrIllegalTransition)

	_, err = s.svc.Transition(s.ctx, s.owner, order.ID, models.StatusConfirmed, "")
	s.NoError(err)
}

func (s *ServiceSuite) TestCancelReleasesPartnerWithoutStats() {
	order := s.newOrder()
	_, err := s.svc.AssignPartner(s.ctx, s.admin, order.ID, &s.dp.ID)
	s.Require().NoError(err)
	s.NotNil(s.reloadPartner().ActiveOrderID)

	_, err = s.svc.Transition(s.ctx, s.customer, order.ID, models.StatusCancelled, "")
	s.Require().NoError(err)

	p := s.reloadPartner()
	s.Nil(p.ActiveOrderID)
	s.True(p.IsAvailable)
	s.Zero(p.TotalDeliveries)
	s.Zero(s.reloadRestaurant().Stats.TotalOrders)
}

func (s *ServiceSuite) TestAssignPartnerConflicts() {
	first := s.newOrder()
	second := s.newOrder()

	assigned, err := s.svc.AssignPartner(s.ctx, s.partner, first.ID, nil)
	s.Require().NoError(err)
	s.Require().NotNil(assigned.DeliveryPartnerID)
	s.Equal(s.dp.ID, *assigned.DeliveryPartnerID)
	s.pub.AssertCalled(s.T(), "Publish", mock.Anything, eventOf(events.OrderAssigned))

	// partner already busy
	_, err = s.svc.AssignPartner(s.ctx, s.partner, second.ID, nil)
	s.ErrorIs(err, apperr.ErrConflict)

	// order already taken
	otherUser := testutil.CreateUser(s.T(), s.db, models.RoleDeliveryPartner)
	other := testutil.CreatePartner(s.T(), s.db, otherUser.ID, true)
	_, err = s.svc.AssignPartner(s.ctx, s.admin, first.ID, &other.ID)
	s.ErrorIs(err, apperr.ErrConflict)

	// unverified partner
	newUser := testutil.CreateUser(s.T(), s.db, models.RoleDeliveryPartner)
	testutil.CreatePartner(s.T(), s.db, newUser.ID, false)
	_, err = s.svc.AssignPartner(s.ctx, models.Actor{UserID: newUser.ID, Role: models.RoleDeliveryPartner}, second.ID, nil)
	s.ErrorIs(err, apperr.ErrForbidden)

	// customers cannot assign
	_, err = s.svc.AssignPartner(s.ctx, s.customer, second.ID, &other.ID)
	s.ErrorIs(err, apperr.ErrForbidden)

	// admin must name a partner
	_, err = s.svc.AssignPartner(s.ctx, s.admin, second.ID, nil)
	s.ErrorIs(err, apperr.ErrValidation)

	p := s.reloadPartner()
	s.Require().NotNil(p.ActiveOrderID)
	s.Equal(first.ID, *p.ActiveOrderID)
}

func (s *ServiceSuite) TestAssignTerminalOrder() {
	order := s.newOrder()
	_, err := s.svc.Transition(s.ctx, s.customer, order.ID, models.StatusCancelled, "")
	s.Require().NoError(err)

	_, err = s.svc.AssignPartner(s.ctx, s.partner, order.ID, nil)
	s.ErrorIs(err, apperr.ErrAlreadyTerminal)
}

func (s *ServiceSuite) TestPartnerVisibility() {
	order := s.newOrder()
	_, err := s.svc.GetOrder(s.ctx, s.partner, order.ID)
	s.ErrorIs(err, apperr.ErrForbidden)

	_, err = s.svc.AssignPartner(s.ctx, s.partner, order.ID, nil)
	s.Require().NoError(err)
	_, err = s.svc.GetOrder(s.ctx, s.partner, order.ID)
	s.NoError(err)

	stranger := testutil.CreateUser(s.T(), s.db, models.RoleCustomer)
	_, err = s.svc.GetOrder(s.ctx, models.Actor{UserID: stranger.ID, Role: models.RoleCustomer}, order.ID)
	s.ErrorIs(err, apperr.ErrForbidden)
}

func (s *ServiceSuite) TestRateOrder() {
	order := s.newOrder()
	food, delivery := 4, 5

	_, err := s.svc.RateOrder(s.ctx, s.customer, order.ID, RateOrderInput{Food: &food})
	s.Require().ErrorIs(err, apperr.ErrValidation)

	s.deliver(order)

	rated, err := s.svc.RateOrder(s.ctx, s.customer, order.ID, RateOrderInput{Food: &food, Delivery: &delivery, Review: "hot and fast"})
	s.Require().NoError(err)
	s.Require().NotNil(rated.Rating.RatedAt)
	s.Equal(4, *rated.Rating.Food)
	s.Equal(5, *rated.Rating.Delivery)

	p := s.reloadPartner()
	s.Require().Len(p.Ratings, 1)
	s.Equal(order.ID, p.Ratings[0].OrderID)
	s.InDelta(5.0, p.AverageRating, 1e-9)

	_, err = s.svc.RateOrder(s.ctx, s.customer, order.ID, RateOrderInput{Food: &food})
	s.ErrorIs(err, apperr.ErrConflict)

	bad := 9
	_, err = s.svc.RateOrder(s.ctx, s.customer, order.ID, RateOrderInput{Food: &bad})
	s.ErrorIs(err, apperr.ErrValidation)

	s.pub.AssertCalled(s.T(), "Publish", mock.Anything, eventOf(events.OrderRated))
}

func (s *ServiceSuite) TestListOrders() {
	for i := 0; i < 3; i++ {
		s.newOrder()
	}
	confirmed := s.newOrder()
	_, err := s.svc.Transition(s.ctx, s.owner, confirmed.ID, models.StatusConfirmed, "")
	s.Require().NoError(err)

	mine, err := s.svc.ListCustomerOrders(s.ctx, s.customer, OrderFilter{PageQuery: PageQuery{Page: 1, Limit: 2}})
	s.Require().NoError(err)
	s.Equal(int64(4), mine.Total)
	s.Len(mine.Items, 2)
	s.Equal(int64(2), mine.TotalPages)

	restaurantOrders, err := s.svc.ListRestaurantOrders(s.ctx, s.owner, OrderFilter{Status: string(models.StatusPlaced)})
	s.Require().NoError(err)
	s.Equal(int64(3), restaurantOrders.Total)
	s.Equal(int64(3), restaurantOrders.Summary[models.StatusPlaced])
	s.Equal(int64(1), restaurantOrders.Summary[models.StatusConfirmed])

	available, err := s.svc.ListPartnerOrders(s.ctx, s.partner, OrderFilter{Available: true})
	s.Require().NoError(err)
	s.Equal(int64(1), available.Total)
	s.Equal(confirmed.ID, available.Items[0].ID)

	_, err = s.svc.ListCustomerOrders(s.ctx, s.customer, OrderFilter{Status: "PICKED_UP"})
	s.ErrorIs(err, apperr.ErrValidation)

	all, err := s.svc.ListAllOrders(s.ctx, OrderFilter{})
	s.Require().NoError(err)
	s.Equal(int64(4), all.Total)
}

func (s *ServiceSuite) TestMonthlyStatsUseOrderCreationMonth() {
	order := s.newOrder()
	lastMonth := models.MonthBucket(time.Now()).AddDate(0, 0, -1)
	s.Require().NoError(s.db.Model(order).UpdateColumn("created_at", lastMonth).Error)

	s.deliver(order)

	var bucket models.RestaurantMonthlyStat
	s.Require().NoError(s.db.Where("restaurant_id = ?", s.restaurant.ID).First(&bucket).Error)
	s.True(models.MonthBucket(lastMonth).Equal(bucket.Month))
}
