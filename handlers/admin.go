package handlers

import (
	"net/http"

	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

// AdminGetAllOrders returns all orders with full detail, admin only
func (h *Handler) AdminGetAllOrders(c *gin.Context) {
	var f services.OrderFilter
	if !bindQuery(c, &f) {
		return
	}
	page, err := h.Svc.ListAllOrders(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, page)
}

// AdminGetAllUsers returns all registered users
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	var f services.UserFilter
	if !bindQuery(c, &f) {
		return
	}
	page, err := h.Svc.ListUsers(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, page)
}

// AdminGetAllRestaurants returns every restaurant including deactivated ones
func (h *Handler) AdminGetAllRestaurants(c *gin.Context) {
	var f services.RestaurantFilter
	if !bindQuery(c, &f) {
		return
	}
	f.IncludeInactive = true
	page, err := h.Svc.ListRestaurants(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, page)
}

func (h *Handler) AdminGetPartners(c *gin.Context) {
	var f services.PartnerFilter
	if !bindQuery(c, &f) {
		return
	}
	page, err := h.Svc.ListPartners(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, page)
}

type VerifyRequest struct {
	IsVerified *bool `json:"is_verified" binding:"required"`
}

func (h *Handler) AdminVerifyPartner(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req VerifyRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.Svc.VerifyPartner(c.Request.Context(), id, *req.IsVerified)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}

type VisibilityRequest struct {
	IsVisible *bool `json:"is_visible" binding:"required"`
}

// AdminSetReviewVisibility hides or restores a review; the restaurant rating is recomputed
func (h *Handler) AdminSetReviewVisibility(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req VisibilityRequest
	if !bind(c, &req) {
		return
	}
	review, err := h.Svc.SetReviewVisibility(c.Request.Context(), id, *req.IsVisible)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, review)
}
