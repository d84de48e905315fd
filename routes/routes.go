package routes

import (
	"food-marketplace-api/handlers"
	"food-marketplace-api/middleware"
	"food-marketplace-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler) {
	r.GET("/health", h.Health)

	customer := middleware.RoleRequired(models.RoleCustomer)
	owner := middleware.RoleRequired(models.RoleRestaurantOwner, models.RoleAdmin)
	partner := middleware.RoleRequired(models.RoleDeliveryPartner)
	partnerOrAdmin := middleware.RoleRequired(models.RoleDeliveryPartner, models.RoleAdmin)

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		// Restaurants, menus and reviews (no auth needed)
		public.GET("/restaurants", h.ListRestaurants)
		public.GET("/restaurants/:id", h.GetRestaurant)
		public.GET("/restaurants/:id/menu", h.GetMenu)
		public.GET("/restaurants/:id/reviews", h.ListRestaurantReviews)

		// State machine info (great for docs/Postman)
		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(h.Auth.AuthRequired())
	{
		auth.GET("/profile", h.GetProfile)
		auth.PUT("/profile", h.UpdateProfile)
		auth.PUT("/profile/password", h.ChangePassword)
	}

	// ── Restaurant owner routes ────────────────────────────────────
	restaurants := auth.Group("/restaurants", owner)
	{
		restaurants.POST("", h.CreateRestaurant)
		restaurants.GET("/owner/me", h.GetMyRestaurant)
		restaurants.PUT("/:id", h.UpdateRestaurant)
		restaurants.DELETE("/:id", h.DeleteRestaurant)
		restaurants.PATCH("/:id/toggle-status", h.ToggleRestaurant)
		restaurants.PUT("/:id/hours", h.UpdateHours)
		restaurants.PUT("/:id/bank-details", h.UpdateBankDetails)
		restaurants.PUT("/:id/documents", h.UpdateDocuments)
		restaurants.GET("/:id/stats", h.RestaurantStats)

		// Menu management
		restaurants.POST("/:id/menu/items", h.AddMenuItem)
		restaurants.PUT("/:id/menu/items/:itemId", h.UpdateMenuItem)
		restaurants.DELETE("/:id/menu/items/:itemId", h.DeleteMenuItem)
		restaurants.PATCH("/:id/menu/items/:itemId/toggle-availability", h.ToggleMenuItem)
		restaurants.POST("/:id/menu/offers", h.AddSpecialOffer)
		restaurants.DELETE("/:id/menu/offers/:offerId", h.DeleteSpecialOffer)
	}

	// ── Order routes ───────────────────────────────────────────────
	orders := auth.Group("/orders")
	{
		orders.POST("", customer, h.PlaceOrder)
		orders.GET("/me", customer, h.GetMyOrders)
		orders.GET("/restaurant", owner, h.GetRestaurantOrders)
		orders.GET("/delivery", partner, h.GetDeliveryOrders)
		orders.GET("/:id", h.GetOrderDetail)
		orders.PATCH("/:id/status", h.UpdateOrderStatus)
		orders.POST("/:id/assign", partnerOrAdmin, h.AssignOrder)
		orders.POST("/:id/rating", customer, h.RateOrder)
	}

	// ── Delivery partner routes ────────────────────────────────────
	partners := auth.Group("/delivery-partners")
	{
		partners.POST("", partner, h.RegisterPartner)
		partners.GET("/me", partner, h.GetMyPartner)
		partners.GET("/:id", partnerOrAdmin, h.GetPartner)
		partners.PUT("/:id", partnerOrAdmin, h.UpdatePartner)
		partners.PATCH("/:id/location", partnerOrAdmin, h.UpdatePartnerLocation)
		partners.PATCH("/:id/toggle-availability", partnerOrAdmin, h.TogglePartnerAvailability)
		partners.GET("/:id/stats", partnerOrAdmin, h.PartnerStats)
	}

	// ── Review routes ──────────────────────────────────────────────
	reviews := auth.Group("/reviews")
	{
		reviews.POST("", customer, h.CreateReview)
		reviews.PUT("/:id", customer, h.UpdateReview)
		reviews.POST("/:id/reply", owner, h.ReplyToReview)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := auth.Group("/admin", middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/orders", h.AdminGetAllOrders)
		admin.GET("/users", h.AdminGetAllUsers)
		admin.GET("/restaurants", h.AdminGetAllRestaurants)
		admin.GET("/delivery-partners", h.AdminGetPartners)
		admin.PATCH("/delivery-partners/:id/verify", h.AdminVerifyPartner)
		admin.PATCH("/reviews/:id/visibility", h.AdminSetReviewVisibility)
	}
}
