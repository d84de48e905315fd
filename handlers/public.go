package handlers

import (
	"net/http"

	"food-marketplace-api/models"
	"food-marketplace-api/services"
	"food-marketplace-api/statemachine"

	"github.com/gin-gonic/gin"
)

// ListRestaurants returns active restaurants, filtered and paginated (public)
func (h *Handler) ListRestaurants(c *gin.Context) {
	var f services.RestaurantFilter
	if !bindQuery(c, &f) {
		return
	}
	page, err := h.Svc.ListRestaurants(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, page)
}

// GetRestaurant returns a single restaurant
func (h *Handler) GetRestaurant(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	r, err := h.Svc.GetRestaurant(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, r)
}

// GetMenu returns the menu for a specific restaurant (public)
func (h *Handler) GetMenu(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var f services.MenuFilter
	if !bindQuery(c, &f) {
		return
	}
	menu, err := h.Svc.PublicMenu(c.Request.Context(), id, f)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, menu)
}

func (h *Handler) ListRestaurantReviews(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var pq services.PageQuery
	if !bindQuery(c, &pq) {
		return
	}
	page, err := h.Svc.ListRestaurantReviews(c.Request.Context(), id, pq)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, page)
}

// GetStateMachineInfo returns the full state machine for informational purposes
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	lifecycle := make(map[models.OrderStatus][]models.OrderStatus)
	for _, s := range models.OrderStatuses {
		lifecycle[s] = statemachine.ValidTransitionsFrom(s)
	}
	respond(c, http.StatusOK, gin.H{
		"states":             models.OrderStatuses,
		"terminal_states":    []models.OrderStatus{models.StatusDelivered, models.StatusCancelled},
		"lifecycle":          lifecycle,
		"role_transitions":   statemachine.GetAllTransitions(),
		"admin":              "admin may move any non-terminal order to any status",
		"strict_transitions": h.Svc.Opts.StrictTransitions,
	})
}

func (h *Handler) Health(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if db, err := h.Svc.DB.DB(); err != nil || db.PingContext(c.Request.Context()) != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"service": "Food Delivery Marketplace API",
		"version": "2.0.0",
	})
}
