package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

// CreateRestaurant lists a restaurant together with its empty menu
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req services.RestaurantInput
	if !bind(c, &req) {
		return
	}
	r, err := h.Svc.CreateRestaurant(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, r)
}

// GetMyRestaurant returns the restaurant owned by the caller
func (h *Handler) GetMyRestaurant(c *gin.Context) {
	r, err := h.Svc.MyRestaurant(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, r)
}

func (h *Handler) UpdateRestaurant(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.RestaurantUpdate
	if !bind(c, &req) {
		return
	}
	r, err := h.Svc.UpdateRestaurant(c.Request.Context(), middleware.Actor(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, r)
}

func (h *Handler) DeleteRestaurant(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Svc.DeleteRestaurant(c.Request.Context(), middleware.Actor(c), id); err != nil {
		fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Restaurant deleted")
}

// ToggleRestaurant flips is_open by default, or the feature named in ?field=
func (h *Handler) ToggleRestaurant(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	r, err := h.Svc.ToggleRestaurant(c.Request.Context(), middleware.Actor(c), id, c.Query("field"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, r)
}

func (h *Handler) UpdateHours(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req models.BusinessHours
	if !bind(c, &req) {
		return
	}
	r, err := h.Svc.UpdateHours(c.Request.Context(), middleware.Actor(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, r)
}

func (h *Handler) UpdateBankDetails(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req models.BankDetails
	if !bind(c, &req) {
		return
	}
	if err := h.Svc.UpdateBankDetails(c.Request.Context(), middleware.Actor(c), id, req); err != nil {
		fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Bank details updated")
}

func (h *Handler) UpdateDocuments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req models.RestaurantDocuments
	if !bind(c, &req) {
		return
	}
	if err := h.Svc.UpdateDocuments(c.Request.Context(), middleware.Actor(c), id, req); err != nil {
		fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Documents updated")
}

func (h *Handler) RestaurantStats(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.Svc.RestaurantStats(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}
