package routes

import (
	"net/http"

	"github.com/budgetke/budgetke-api/internal/handlers"
	"github.com/budgetke/budgetke-api/internal/middleware"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware lets the storefront frontend talk to the API from its own
// origin. The webhook and download routes are same-origin or server-to-
// server, so a permissive allowlist on the public API group is enough.
func CORSMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	handlers.RegisterValidators()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.Metrics())
	router.Use(CORSMiddleware(h.Cfg.AppBaseURL))

	router.GET("/metrics", middleware.PrometheusHandler())

	v1 := router.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Catalog (public, read-only) ---
		v1.GET("/products", h.GetProducts)
		v1.GET("/products/:slug", h.GetProduct)
		v1.GET("/bundles/:slug", h.GetBundle)
		v1.GET("/categories", h.GetCategories)

		// --- Checkout ---
		v1.POST("/orders", h.CreateOrder)
		v1.GET("/orders/:id/status", h.GetOrderStatus)
		v1.POST("/payments/stk-push", h.InitiatePayment)

		// --- IntaSend callbacks ---
		v1.POST("/payments/webhook", h.PaymentWebhook)
		v1.GET("/payments/webhook", h.WebhookProbe)

		// --- Delivery ---
		v1.GET("/downloads/:token/:productId", h.DownloadFile)

		// --- Admin back-office ---
		v1.POST("/admin/login", h.AdminLogin)
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuth(h.Cfg.Admin.JWTSecret))
		{
			admin.GET("/orders", h.AdminListOrders)
			admin.GET("/orders/:id", h.AdminGetOrder)
		}
	}

	return router
}
