package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a new user account and returns a token for it
func (h *Handler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !bind(c, &req) {
		return
	}
	user, err := h.Svc.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	token, err := h.Auth.GenerateToken(user)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, authResponse{Token: token, User: user})
}

// Login authenticates a user and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	token, err := h.Auth.GenerateToken(user)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, authResponse{Token: token, User: user})
}

// GetProfile returns the authenticated user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.Svc.Profile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req services.ProfileUpdate
	if !bind(c, &req) {
		return
	}
	user, err := h.Svc.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req services.PasswordChange
	if !bind(c, &req) {
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), middleware.GetUserID(c), req); err != nil {
		fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Password updated")
}
