package handlers

import (
	"net/http"

	"food-marketplace-api/apperr"
	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

// GetRestaurantOrders returns the orders of the caller's restaurant with a per-status summary
func (h *Handler) GetRestaurantOrders(c *gin.Context) {
	var f services.OrderFilter
	if !bindQuery(c, &f) {
		return
	}
	orders, err := h.Svc.ListRestaurantOrders(c.Request.Context(), middleware.Actor(c), f)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, orders)
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note" binding:"max=500"`
}

// UpdateOrderStatus runs a lifecycle transition on behalf of any role
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !bind(c, &req) {
		return
	}

	actor := middleware.Actor(c)
	order, err := h.Svc.Transition(c.Request.Context(), actor, id, req.Status, req.Note)
	if err != nil {
		if order != nil && (isKind(err, apperr.ErrIllegalTransition) || isKind(err, apperr.ErrForbidden)) {
			_ = c.Error(err)
			c.JSON(apperr.HTTPStatus(err), gin.H{
				"success":           false,
				"message":           err.Error(),
				"current_status":    order.OrderStatus,
				"requested":         req.Status,
				"valid_next_states": h.Svc.AllowedTargets(order, actor),
			})
			return
		}
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}
