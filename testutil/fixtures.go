package testutil

import (
	"testing"
	"time"

	"food-marketplace-api/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func CreateUser(t testing.TB, db *gorm.DB, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{
		Name:         string(role) + " user",
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         role,
		Phone:        "9999999999",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateRestaurant inserts an open restaurant with an empty menu linked both ways.
func CreateRestaurant(t testing.TB, db *gorm.DB, ownerID uint) *models.Restaurant {
	t.Helper()
	r := &models.Restaurant{
		OwnerID:     ownerID,
		Name:        "Spice Route",
		Description: "North Indian kitchen",
		Cuisine:     datatypes.NewJSONSlice([]string{"Indian"}),
		Address:     datatypes.NewJSONType(models.Address{Street: "1 MG Road", City: "Pune", State: "MH", ZipCode: "411001"}),
		Phone:       "02012345678",
		PriceRange:  models.PriceModerate,
		IsOpen:      true,
		IsActive:    true,
		Features:    datatypes.NewJSONType(models.DefaultFeatures()),
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		menu := &models.Menu{RestaurantID: r.ID, LastUpdated: time.Now()}
		if err := tx.Create(menu).Error; err != nil {
			return err
		}
		r.MenuID = &menu.ID
		return tx.Model(r).Update("menu_id", menu.ID).Error
	})
	require.NoError(t, err)
	return r
}

func CreateMenuItem(t testing.TB, db *gorm.DB, r *models.Restaurant, name string, price float64) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{
		MenuID:          *r.MenuID,
		RestaurantID:    r.ID,
		Name:            name,
		Description:     name,
		Price:           price,
		Category:        "Main Course",
		IsAvailable:     true,
		PreparationTime: 15,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func CreatePartner(t testing.TB, db *gorm.DB, userID uint, verified bool) *models.DeliveryPartner {
	t.Helper()
	p := &models.DeliveryPartner{
		UserID:          userID,
		VehicleType:     models.VehicleBike,
		VehicleNumber:   uuid.NewString(),
		LicenseNumber:   uuid.NewString(),
		CurrentLocation: datatypes.NewJSONType(models.NewGeoPoint(73.85, 18.52)),
		IsAvailable:     true,
		IsVerified:      verified,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateOrder inserts a PLACED order at 5% tax and a 40 delivery fee with its opening history row.
func CreateOrder(t testing.TB, db *gorm.DB, customerID, restaurantID uint, items ...models.OrderItem) *models.Order {
	t.Helper()
	if len(items) == 0 {
		items = []models.OrderItem{{MenuItemID: 1, Name: "Thali", Price: 250, Quantity: 2}}
	}
	o := &models.Order{
		CustomerID:      customerID,
		RestaurantID:    restaurantID,
		Items:           items,
		DeliveryAddress: datatypes.NewJSONType(models.DeliveryAddress{Street: "2 FC Road", City: "Pune", State: "MH", ZipCode: "411004"}),
		Contact:         datatypes.NewJSONType(models.Contact{Name: "Asha", Phone: "9876543210"}),
		PaymentMethod:   models.PaymentCash,
		PaymentStatus:   models.PaymentPending,
		OrderStatus:     models.StatusPlaced,
		TaxRate:         0.05,
		DeliveryFee:     40,
		StatusHistory: []models.OrderStatusHistory{
			{Status: models.StatusPlaced, ChangedBy: customerID, Note: "Order placed", Timestamp: time.Now()},
		},
	}
	require.NoError(t, db.Create(o).Error)
	return o
}
