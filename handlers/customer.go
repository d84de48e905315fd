package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

// PlaceOrder creates a new order for the authenticated customer
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req services.PlaceOrderInput
	if !bind(c, &req) {
		return
	}
	order, err := h.Svc.PlaceOrder(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, order)
}

// GetMyOrders returns all orders of the authenticated customer
func (h *Handler) GetMyOrders(c *gin.Context) {
	var f services.OrderFilter
	if !bindQuery(c, &f) {
		return
	}
	page, err := h.Svc.ListCustomerOrders(c.Request.Context(), middleware.Actor(c), f)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, page)
}

// GetOrderDetail returns an order with items and full status history to any party of the order
func (h *Handler) GetOrderDetail(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := h.Svc.GetOrder(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

// RateOrder records the customer's food and delivery rating of a delivered order
func (h *Handler) RateOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.RateOrderInput
	if !bind(c, &req) {
		return
	}
	order, err := h.Svc.RateOrder(c.Request.Context(), middleware.Actor(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}
