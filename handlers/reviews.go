package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

type ReplyRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) CreateReview(c *gin.Context) {
	var req services.ReviewInput
	if !bind(c, &req) {
		return
	}
	review, err := h.Svc.CreateReview(c.Request.Context(), middleware.Actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, review)
}

func (h *Handler) UpdateReview(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.ReviewUpdate
	if !bind(c, &req) {
		return
	}
	review, err := h.Svc.UpdateReview(c.Request.Context(), middleware.Actor(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, review)
}

// ReplyToReview stores the restaurant owner's reply
func (h *Handler) ReplyToReview(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ReplyRequest
	if !bind(c, &req) {
		return
	}
	review, err := h.Svc.ReplyToReview(c.Request.Context(), middleware.Actor(c), id, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, review)
}
