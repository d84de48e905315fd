package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

// RegisterPartner creates the caller's delivery profile
func (h *Handler) RegisterPartner(c *gin.Context) {
	var req services.PartnerInput
	if !bind(c, &req) {
		return
	}
	p, err := h.Svc.RegisterPartner(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, p)
}

func (h *Handler) GetMyPartner(c *gin.Context) {
	p, err := h.Svc.MyPartner(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}

func (h *Handler) GetPartner(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := h.Svc.GetPartner(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}

func (h *Handler) UpdatePartner(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.PartnerUpdate
	if !bind(c, &req) {
		return
	}
	p, err := h.Svc.UpdatePartner(c.Request.Context(), middleware.Actor(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}

func (h *Handler) UpdatePartnerLocation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.Location
	if !bind(c, &req) {
		return
	}
	p, err := h.Svc.UpdateLocation(c.Request.Context(), middleware.Actor(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}

func (h *Handler) TogglePartnerAvailability(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := h.Svc.TogglePartnerAvailability(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}

func (h *Handler) PartnerStats(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.Svc.PartnerStats(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

// GetDeliveryOrders returns the partner's deliveries, or with ?available=true the orders
// waiting for a partner
func (h *Handler) GetDeliveryOrders(c *gin.Context) {
	var f services.OrderFilter
	if !bindQuery(c, &f) {
		return
	}
	page, err := h.Svc.ListPartnerOrders(c.Request.Context(), middleware.Actor(c), f)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, page)
}

type AssignOrderRequest struct {
	DeliveryPartnerID *uint `json:"delivery_partner_id"`
}

// AssignOrder lets a partner claim an order, or an admin hand it to a named partner
func (h *Handler) AssignOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req AssignOrderRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	order, err := h.Svc.AssignPartner(c.Request.Context(), middleware.Actor(c), id, req.DeliveryPartnerID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}
