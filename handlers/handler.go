// Package handlers translates HTTP requests into service calls and service results into the
// {success, data|message} JSON envelope.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"food-marketplace-api/apperr"
	"food-marketplace-api/middleware"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Svc  *services.Service
	Auth *middleware.Auth
}

func New(svc *services.Service, auth *middleware.Auth) *Handler {
	return &Handler{Svc: svc, Auth: auth}
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": true, "message": message})
}

// fail writes err with the status its kind maps to. Internal errors are logged and hidden.
func fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	_ = c.Error(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	c.JSON(status, gin.H{"success": false, "message": message})
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperr.Validation("invalid request body: %v", err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		fail(c, apperr.Validation("invalid query: %v", err))
		return false
	}
	return true
}

// idParam reads a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, apperr.Validation("%s must be a positive integer", name))
		return 0, false
	}
	return uint(id), true
}

func isKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
