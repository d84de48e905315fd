package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

// menuItemParams reads the restaurant and menu item ids from the path.
func menuItemParams(c *gin.Context) (uint, uint, bool) {
	restaurantID, ok := idParam(c, "id")
	if !ok {
		return 0, 0, false
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return 0, 0, false
	}
	return restaurantID, itemID, true
}

// AddMenuItem adds a new item to the restaurant's menu
func (h *Handler) AddMenuItem(c *gin.Context) {
	restaurantID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.MenuItemInput
	if !bind(c, &req) {
		return
	}
	item, err := h.Svc.AddMenuItem(c.Request.Context(), middleware.Actor(c), restaurantID, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, item)
}

// UpdateMenuItem updates only the fields present in the body
func (h *Handler) UpdateMenuItem(c *gin.Context) {
	restaurantID, itemID, ok := menuItemParams(c)
	if !ok {
		return
	}
	var req services.MenuItemUpdate
	if !bind(c, &req) {
		return
	}
	item, err := h.Svc.UpdateMenuItem(c.Request.Context(), middleware.Actor(c), restaurantID, itemID, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

func (h *Handler) DeleteMenuItem(c *gin.Context) {
	restaurantID, itemID, ok := menuItemParams(c)
	if !ok {
		return
	}
	if err := h.Svc.DeleteMenuItem(c.Request.Context(), middleware.Actor(c), restaurantID, itemID); err != nil {
		fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Menu item deleted")
}

func (h *Handler) ToggleMenuItem(c *gin.Context) {
	restaurantID, itemID, ok := menuItemParams(c)
	if !ok {
		return
	}
	item, err := h.Svc.ToggleMenuItem(c.Request.Context(), middleware.Actor(c), restaurantID, itemID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

func (h *Handler) AddSpecialOffer(c *gin.Context) {
	restaurantID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.SpecialOfferInput
	if !bind(c, &req) {
		return
	}
	offer, err := h.Svc.AddSpecialOffer(c.Request.Context(), middleware.Actor(c), restaurantID, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, offer)
}

func (h *Handler) DeleteSpecialOffer(c *gin.Context) {
	restaurantID, ok := idParam(c, "id")
	if !ok {
		return
	}
	offerID, ok := idParam(c, "offerId")
	if !ok {
		return
	}
	if err := h.Svc.DeleteSpecialOffer(c.Request.Context(), middleware.Actor(c), restaurantID, offerID); err != nil {
		fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Special offer deleted")
}
