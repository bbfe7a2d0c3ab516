// internal/router/router.go
package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/internal/accounts"
	"github.com/shoplane/storefront-backend/internal/cache"
	"github.com/shoplane/storefront-backend/internal/config"
	"github.com/shoplane/storefront-backend/internal/handlers"
	"github.com/shoplane/storefront-backend/internal/middleware"
	"github.com/shoplane/storefront-backend/internal/services"
	"github.com/shoplane/storefront-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = cache.NewClient(
			fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
	}
	catalogCache := cache.New(redisClient, "catalog")

	provider := accounts.NewGoogleProvider(
		cfg.OAuth.GoogleClientID,
		cfg.OAuth.GoogleClientSecret,
		cfg.OAuth.RedirectURL,
	)

	// Initialize services
	storageService, _ := services.NewStorageService(cfg)
	productService := services.NewProductService(db, catalogCache)
	orderService := services.NewOrderService(db, cfg)
	paymentService := services.NewPaymentService(db, cfg)
	userService := services.NewUserService(db, cfg)
	adminService := services.NewAdminService(db)
	authService := services.NewAuthService(db, cfg, provider)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, provider, cfg, redisClient)
	productHandler := handlers.NewProductHandler(productService)
	orderHandler := handlers.NewOrderHandler(orderService, paymentService)
	userHandler := handlers.NewUserHandler(userService)
	adminHandler := handlers.NewAdminHandler(adminService, productService, orderService, userService, storageService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())

	// Health check with a live database ping
	r.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication and account switching
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/google", authHandler.GoogleLogin)
			auth.GET("/google/url", authHandler.GoogleAuthURL)
			auth.GET("/google/callback", authHandler.GoogleCallback)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)

			auth.GET("/accounts", authHandler.GetAccounts)
			auth.POST("/accounts/switch", authHandler.SwitchAccount)
			auth.DELETE("/accounts/:email", authHandler.RemoveAccount)
		}

		// Public catalog
		v1.GET("/products", productHandler.GetProducts)
		v1.GET("/products/featured", productHandler.GetFeaturedProducts)
		v1.GET("/products/:id", productHandler.GetProduct)
		v1.GET("/categories", productHandler.GetCategories)

		// Checkout and orders
		orders := v1.Group("/orders")
		{
			orders.POST("", middleware.CheckoutRateLimit(), middleware.OptionalAuth(), orderHandler.CreateOrder)
			orders.POST("/create-cod-order", middleware.CheckoutRateLimit(), middleware.OptionalAuth(), orderHandler.CreateCODOrder)
			orders.GET("", middleware.AuthRequired(), orderHandler.GetMyOrders)
			orders.GET("/track", orderHandler.TrackOrder)
			orders.GET("/my", middleware.AuthRequired(), orderHandler.GetMyOrders)
			orders.GET("/:id", middleware.AuthRequired(), orderHandler.GetOrder)
			orders.PUT("/:id", middleware.AuthRequired(), middleware.AdminRequired(db, cfg.Admin.Email), adminHandler.UpdateOrderStatus)
			orders.POST("/:id/payment-intent", middleware.OptionalAuth(), orderHandler.CreatePaymentIntent)
			orders.POST("/confirm-payment", middleware.OptionalAuth(), orderHandler.ConfirmPayment)
		}

		// Online payment intents
		v1.POST("/payments/intent", middleware.OptionalAuth(), orderHandler.CreatePaymentIntentForCheckout)

		// User profile
		users := v1.Group("/users")
		users.Use(middleware.AuthRequired())
		{
			users.GET("/profile", userHandler.GetProfile)
			users.PUT("/profile", userHandler.UpdateProfile)
		}

		// Admin surface
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired())
		admin.Use(middleware.AdminRequired(db, cfg.Admin.Email))
		{
			admin.GET("/dashboard", adminHandler.GetDashboard)
			admin.GET("/analytics", adminHandler.GetAnalytics)

			admin.GET("/products", adminHandler.GetProducts)
			admin.POST("/products", adminHandler.CreateProduct)
			admin.PUT("/products/:id", adminHandler.UpdateProduct)
			admin.DELETE("/products/:id", adminHandler.DeleteProduct)
			admin.POST("/products/upload-images", middleware.UploadRateLimit(), adminHandler.UploadProductImage)
			admin.DELETE("/products/images", adminHandler.DeleteProductImage)
			admin.POST("/categories", adminHandler.CreateCategory)

			admin.GET("/orders", adminHandler.GetOrders)
			admin.PUT("/orders/:id", adminHandler.UpdateOrderStatus)

			admin.GET("/users", adminHandler.GetUsers)
			admin.POST("/users", adminHandler.CreateUser)
			admin.PUT("/users/:id", adminHandler.UpdateUser)
			admin.PUT("/users/:id/role", adminHandler.SetUserRole)
			admin.DELETE("/users/:id", adminHandler.DeleteUser)
		}
	}

	return r
}
