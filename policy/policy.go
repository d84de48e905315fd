// Package policy decides whether an actor may mutate a resource it does not reach through the
// order lifecycle.
package policy

import (
	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
)

type Resource string

const (
	Restaurant      Resource = "restaurant"
	Menu            Resource = "menu"
	DeliveryPartner Resource = "delivery-partner"
	ReviewReply     Resource = "review-reply"
	Review          Resource = "review"
)

// requiredRole is the role a non-admin owner must hold to mutate each resource kind.
var requiredRole = map[Resource]models.UserRole{
	Restaurant:      models.RoleRestaurantOwner,
	Menu:            models.RoleRestaurantOwner,
	ReviewReply:     models.RoleRestaurantOwner,
	DeliveryPartner: models.RoleDeliveryPartner,
	Review:          models.RoleCustomer,
}

// CanPerform reports whether actor may mutate a resource owned by ownerID.
// Admin always passes; anyone else must be the owner and hold the role expected for the resource.
func CanPerform(actor models.Actor, ownerID uint, resource Resource) bool {
	if actor.IsAdmin() {
		return true
	}
	role, ok := requiredRole[resource]
	if !ok {
		return false
	}
	return actor.Role == role && actor.UserID == ownerID
}

// Authorize is CanPerform as an error: apperr.ErrForbidden on denial.
func Authorize(actor models.Actor, ownerID uint, resource Resource) error {
	if CanPerform(actor, ownerID, resource) {
		return nil
	}
	return apperr.Forbidden("not allowed to modify this %s", resource)
}
