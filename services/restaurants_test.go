package services

import (
	"context"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
	"food-marketplace-api/testutil"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

func restaurantInput(name string) RestaurantInput {
	return RestaurantInput{
		Name:        name,
		Description: "Coastal seafood",
		Cuisine:     []string{"Seafood", "Goan"},
		Address:     models.Address{Street: "5 Beach Rd", City: "Panaji", State: "GA", ZipCode: "403001"},
		Phone:       "08322222222",
		PriceRange:  models.PriceUpscale,
		BusinessHours: models.BusinessHours{
			"monday": {Open: "10:00", Close: "22:00", IsOpen: true},
		},
	}
}

func (s *ServiceSuite) newOwner() models.Actor {
	u := testutil.CreateUser(s.T(), s.db, models.RoleRestaurantOwner)
	return models.Actor{UserID: u.ID, Role: models.RoleRestaurantOwner}
}

func (s *ServiceSuite) TestCreateRestaurantLinksMenu() {
	owner := s.newOwner()

	r, err := s.svc.CreateRestaurant(s.ctx, owner, restaurantInput("Fisherman's Wharf"))
	s.Require().NoError(err)
	s.Require().NotNil(r.MenuID)
	s.True(r.IsOpen)
	s.True(r.IsActive)
	s.Equal(30, r.AverageDeliveryTime)
	s.True(r.Features.Data().Delivery)

	var menu models.Menu
	s.Require().NoError(s.db.First(&menu, *r.MenuID).Error)
	s.Equal(r.ID, menu.RestaurantID)

	_, err = s.svc.CreateRestaurant(s.ctx, owner, restaurantInput("Second Branch"))
	s.ErrorIs(err, apperr.ErrConflict)

	_, err = s.svc.CreateRestaurant(s.ctx, s.customer, restaurantInput("Nope"))
	s.ErrorIs(err, apperr.ErrForbidden)
}

func (s *ServiceSuite) TestCreateRestaurantValidation() {
	owner := s.newOwner()

	in := restaurantInput("No Cuisine")
	in.Cuisine = nil
	_, err := s.svc.CreateRestaurant(s.ctx, owner, in)
	s.ErrorIs(err, apperr.ErrValidation)

	in = restaurantInput("Bad Hours")
	in.BusinessHours = models.BusinessHours{"funday": {Open: "10:00", Close: "22:00"}}
	_, err = s.svc.CreateRestaurant(s.ctx, owner, in)
	s.ErrorIs(err, apperr.ErrValidation)

	in = restaurantInput("Bad Price")
	in.PriceRange = "cheap"
	_, err = s.svc.CreateRestaurant(s.ctx, owner, in)
	s.ErrorIs(err, apperr.ErrValidation)
}

func (s *ServiceSuite) TestAdminCreatesRestaurantForOwner() {
	owner := s.newOwner()
	in := restaurantInput("Admin Listed")
	in.OwnerID = &owner.UserID

	r, err := s.svc.CreateRestaurant(s.ctx, s.admin, in)
	s.Require().NoError(err)
	s.Equal(owner.UserID, r.OwnerID)

	in.OwnerID = &s.customer.UserID
	_, err = s.svc.CreateRestaurant(s.ctx, s.admin, in)
	s.ErrorIs(err, apperr.ErrValidation)
}

func (s *ServiceSuite) TestUpdateRestaurantKeepsAggregates() {
	s.Require().NoError(s.db.Model(&models.Restaurant{}).Where("id = ?", s.restaurant.ID).
		Updates(map[string]any{"rating": 4.5, "total_ratings": 2, "stats_total_orders": 7}).Error)

	name := "Spice Route Express"
	updated, err := s.svc.UpdateRestaurant(s.ctx, s.owner, s.restaurant.ID, RestaurantUpdate{Name: &name})
	s.Require().NoError(err)
	s.Equal(name, updated.Name)

	r := s.reloadRestaurant()
	s.Equal(name, r.Name)
	s.InDelta(4.5, r.Rating, 1e-9)
	s.Equal(int64(2), r.TotalRatings)
	s.Equal(int64(7), r.Stats.TotalOrders)

	_, err = s.svc.UpdateRestaurant(s.ctx, s.newOwner(), s.restaurant.ID, RestaurantUpdate{Name: &name})
	s.ErrorIs(err, apperr.ErrForbidden)

	_, err = s.svc.UpdateRestaurant(s.ctx, s.admin, s.restaurant.ID, RestaurantUpdate{Name: &name})
	s.NoError(err)
}

func (s *ServiceSuite) TestDeleteRestaurantSoftDeletesMenu() {
	s.Require().NoError(s.svc.DeleteRestaurant(s.ctx, s.owner, s.restaurant.ID))

	_, err := s.svc.GetRestaurant(s.ctx, s.restaurant.ID)
	s.ErrorIs(err, apperr.ErrNotFound)

	var live, all int64
	s.Require().NoError(s.db.Model(&models.Menu{}).Where("restaurant_id = ?", s.restaurant.ID).Count(&live).Error)
	s.Require().NoError(s.db.Unscoped().Model(&models.Menu{}).Where("restaurant_id = ?", s.restaurant.ID).Count(&all).Error)
	s.Zero(live)
	s.Equal(int64(1), all)

	_, err = s.svc.PublicMenu(s.ctx, s.restaurant.ID, MenuFilter{})
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *ServiceSuite) TestDeletedRestaurantOrdersStillResolve() {
	order := s.newOrder()
	s.Require().NoError(s.svc.DeleteRestaurant(s.ctx, s.admin, s.restaurant.ID))

	stored, err := s.svc.GetOrder(s.ctx, s.owner, order.ID)
	s.Require().NoError(err)
	s.Equal(s.restaurant.ID, stored.Restaurant.ID)
}

func (s *ServiceSuite) TestToggleRestaurant() {
	r, err := s.svc.ToggleRestaurant(s.ctx, s.owner, s.restaurant.ID, "")
	s.Require().NoError(err)
	s.False(r.IsOpen)
	s.False(s.reloadRestaurant().IsOpen)

	r, err = s.svc.ToggleRestaurant(s.ctx, s.owner, s.restaurant.ID, "parking")
	s.Require().NoError(err)
	s.True(r.Features.Data().Parking)
	s.True(s.reloadRestaurant().Features.Data().Parking)

	_, err = s.svc.ToggleRestaurant(s.ctx, s.owner, s.restaurant.ID, "rooftop")
	s.ErrorIs(err, apperr.ErrValidation)
}

func (s *ServiceSuite) TestRestaurantBankDetailsAndHours() {
	err := s.svc.UpdateBankDetails(s.ctx, s.owner, s.restaurant.ID, models.BankDetails{
		AccountHolder: "Spice Route LLP", AccountNumber: "12345678", BankName: "SBI", IFSCCode: "SBIN0001234",
	})
	s.Require().NoError(err)
	s.Equal("12345678", s.reloadRestaurant().BankDetails.Data().AccountNumber)

	err = s.svc.UpdateBankDetails(s.ctx, s.owner, s.restaurant.ID, models.BankDetails{
		AccountHolder: "x", AccountNumber: "12ab", BankName: "SBI", IFSCCode: "SBIN0001234",
	})
	s.ErrorIs(err, apperr.ErrValidation)

	_, err = s.svc.UpdateHours(s.ctx, s.owner, s.restaurant.ID, models.BusinessHours{"sunday": {Open: "25:00"}})
	s.ErrorIs(err, apperr.ErrValidation)

	r, err := s.svc.UpdateHours(s.ctx, s.owner, s.restaurant.ID, models.BusinessHours{"sunday": {Open: "09:00", Close: "23:00", IsOpen: true}})
	s.Require().NoError(err)
	s.Equal("09:00", r.BusinessHours.Data()["sunday"].Open)
}

func (s *ServiceSuite) TestListRestaurants() {
	for _, name := range []string{"Goa Shack", "Konkan Kitchen"} {
		_, err := s.svc.CreateRestaurant(s.ctx, s.newOwner(), restaurantInput(name))
		s.Require().NoError(err)
	}
	closed := s.newOwner()
	r, err := s.svc.CreateRestaurant(s.ctx, closed, restaurantInput("Closed Cafe"))
	s.Require().NoError(err)
	_, err = s.svc.ToggleRestaurant(s.ctx, closed, r.ID, "is_open")
	s.Require().NoError(err)

	page, err := s.svc.ListRestaurants(s.ctx, RestaurantFilter{Cuisine: "goan"})
	s.Require().NoError(err)
	s.Equal(int64(3), page.Total)

	open := true
	page, err = s.svc.ListRestaurants(s.ctx, RestaurantFilter{Cuisine: "Goan", Open: &open, Sort: "name"})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 2)
	s.Equal("Goa Shack", page.Items[0].Name)

	page, err = s.svc.ListRestaurants(s.ctx, RestaurantFilter{Search: "spice"})
	s.Require().NoError(err)
	s.Equal(int64(1), page.Total)

	_, err = s.svc.ListRestaurants(s.ctx, RestaurantFilter{Sort: "distance"})
	s.ErrorIs(err, apperr.ErrValidation)
}

func (s *ServiceSuite) TestRestaurantStats() {
	order := s.newOrder()
	s.deliver(order)

	view, err := s.svc.RestaurantStats(s.ctx, s.owner, s.restaurant.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), view.Stats.TotalOrders)
	s.Require().Len(view.Monthly, 1)
	s.InDelta(565, view.Monthly[0].Revenue, 0.001)
	s.Equal(int64(1), view.OrderSummary[models.StatusDelivered])

	_, err = s.svc.RestaurantStats(s.ctx, s.customer, s.restaurant.ID)
	s.ErrorIs(err, apperr.ErrForbidden)
}

func (s *ServiceSuite) TestMenuItemLifecycle() {
	item, err := s.svc.AddMenuItem(s.ctx, s.owner, s.restaurant.ID, MenuItemInput{
		Name: "Paneer Tikka", Description: "Charred paneer", Price: 220, Category: "Starters", IsVeg: true,
	})
	s.Require().NoError(err)
	s.True(item.IsAvailable)
	s.Equal("Medium", item.SpicyLevel)
	s.Equal(15, item.PreparationTime)

	_, err = s.svc.AddMenuItem(s.ctx, s.owner, s.restaurant.ID, MenuItemInput{
		Name: "Mystery", Description: "?", Price: 10, Category: "Brunch",
	})
	s.ErrorIs(err, apperr.ErrValidation)

	_, err = s.svc.AddMenuItem(s.ctx, s.newOwner(), s.restaurant.ID, MenuItemInput{
		Name: "Intruder", Description: "x", Price: 10, Category: "Starters",
	})
	s.ErrorIs(err, apperr.ErrForbidden)

	price := 240.0
	updated, err := s.svc.UpdateMenuItem(s.ctx, s.owner, s.restaurant.ID, item.ID, MenuItemUpdate{Price: &price})
	s.Require().NoError(err)
	s.InDelta(240, updated.Price, 1e-9)

	toggled, err := s.svc.ToggleMenuItem(s.ctx, s.owner, s.restaurant.ID, item.ID)
	s.Require().NoError(err)
	s.False(toggled.IsAvailable)

	s.Require().NoError(s.svc.DeleteMenuItem(s.ctx, s.owner, s.restaurant.ID, item.ID))
	s.ErrorIs(s.svc.DeleteMenuItem(s.ctx, s.owner, s.restaurant.ID, item.ID), apperr.ErrNotFound)
}

func (s *ServiceSuite) TestPublicMenuFilters() {
	veg := testutil.CreateMenuItem(s.T(), s.db, s.restaurant, "Dal Makhani", 180)
	s.Require().NoError(s.db.Model(veg).Update("is_veg", true).Error)
	testutil.CreateMenuItem(s.T(), s.db, s.restaurant, "Butter Chicken", 320)

	menu, err := s.svc.PublicMenu(s.ctx, s.restaurant.ID, MenuFilter{})
	s.Require().NoError(err)
	s.Len(menu.Items, 2)

	isVeg := true
	menu, err = s.svc.PublicMenu(s.ctx, s.restaurant.ID, MenuFilter{IsVeg: &isVeg})
	s.Require().NoError(err)
	s.Require().Len(menu.Items, 1)
	s.Equal("Dal Makhani", menu.Items[0].Name)

	menu, err = s.svc.PublicMenu(s.ctx, s.restaurant.ID, MenuFilter{Category: "Desserts"})
	s.Require().NoError(err)
	s.Empty(menu.Items)
}

func (s *ServiceSuite) TestSpecialOfferValidation() {
	other := s.newOwner()
	r, err := s.svc.CreateRestaurant(s.ctx, other, restaurantInput("Elsewhere"))
	s.Require().NoError(err)
	foreign := testutil.CreateMenuItem(s.T(), s.db, r, "Prawn Curry", 400)

	_, err = s.svc.AddSpecialOffer(s.ctx, s.owner, s.restaurant.ID, SpecialOfferInput{
		Name: "Steal", Discount: 10, ApplicableItems: []uint{foreign.ID},
	})
	s.ErrorIs(err, apperr.ErrValidation)

	_, err = s.svc.AddSpecialOffer(s.ctx, s.owner, s.restaurant.ID, SpecialOfferInput{Name: "Too much", Discount: 150})
	s.ErrorIs(err, apperr.ErrValidation)

	offer, err := s.svc.AddSpecialOffer(s.ctx, s.owner, s.restaurant.ID, SpecialOfferInput{Name: "Happy hour", Discount: 20})
	s.Require().NoError(err)
	s.Require().NoError(s.svc.DeleteSpecialOffer(s.ctx, s.owner, s.restaurant.ID, offer.ID))
	s.ErrorIs(s.svc.DeleteSpecialOffer(s.ctx, s.owner, s.restaurant.ID, offer.ID), apperr.ErrNotFound)
}

type mockMenuCache struct {
	mock.Mock
}

func (m *mockMenuCache) Get(ctx context.Context, restaurantID uint) (*models.Menu, bool, error) {
	args := m.Called(ctx, restaurantID)
	menu, _ := args.Get(0).(*models.Menu)
	return menu, args.Bool(1), args.Error(2)
}

func (m *mockMenuCache) Set(ctx context.Context, restaurantID uint, menu *models.Menu) error {
	return m.Called(ctx, restaurantID, menu).Error(0)
}

func (m *mockMenuCache) Invalidate(ctx context.Context, restaurantID uint) error {
	return m.Called(ctx, restaurantID).Error(0)
}

func (s *ServiceSuite) TestPublicMenuReadsThroughCache() {
	menus := &mockMenuCache{}
	svc := New(s.db, s.pub, menus, zerolog.Nop(), s.svc.Opts)
	testutil.CreateMenuItem(s.T(), s.db, s.restaurant, "Biryani", 280)

	menus.On("Get", mock.Anything, s.restaurant.ID).Return(nil, false, nil).Once()
	menus.On("Set", mock.Anything, s.restaurant.ID, mock.AnythingOfType("*models.Menu")).Return(nil).Once()
	menu, err := svc.PublicMenu(s.ctx, s.restaurant.ID, MenuFilter{})
	s.Require().NoError(err)
	s.Len(menu.Items, 1)

	cached := &models.Menu{ID: menu.ID, RestaurantID: s.restaurant.ID}
	menus.On("Get", mock.Anything, s.restaurant.ID).Return(cached, true, nil).Once()
	menu, err = svc.PublicMenu(s.ctx, s.restaurant.ID, MenuFilter{})
	s.Require().NoError(err)
	s.Same(cached, menu)

	menus.On("Invalidate", mock.Anything, s.restaurant.ID).Return(nil).Once()
	_, err = svc.AddMenuItem(s.ctx, s.owner, s.restaurant.ID, MenuItemInput{
		Name: "Raita", Description: "Curd", Price: 40, Category: "Salads",
	})
	s.Require().NoError(err)

	menus.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestPlaceOrderInvalidatesCachedMenu() {
	menus := &mockMenuCache{}
	svc := New(s.db, s.pub, menus, zerolog.Nop(), s.svc.Opts)
	thali := testutil.CreateMenuItem(s.T(), s.db, s.restaurant, "Thali", 250)

	menus.On("Invalidate", mock.Anything, s.restaurant.ID).Return(nil).Once()
	_, err := svc.PlaceOrder(s.ctx, s.customer, s.placeInput(OrderItemInput{MenuItemID: thali.ID, Quantity: 3}))
	s.Require().NoError(err)
	menus.AssertExpectations(s.T())

	menus.On("Get", mock.Anything, s.restaurant.ID).Return(nil, false, nil).Once()
	menus.On("Set", mock.Anything, s.restaurant.ID, mock.AnythingOfType("*models.Menu")).Return(nil).Once()
	menu, err := svc.PublicMenu(s.ctx, s.restaurant.ID, MenuFilter{})
	s.Require().NoError(err)
	s.Require().Len(menu.Items, 1)
	s.Equal(int64(3), menu.Items[0].Popularity)
	menus.AssertExpectations(s.T())
}
