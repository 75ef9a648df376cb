// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/groundfund/groundfund-backend/internal/config"
	"github.com/groundfund/groundfund-backend/internal/handlers"
	"github.com/groundfund/groundfund-backend/internal/middleware"
	"github.com/groundfund/groundfund-backend/internal/services"
	"github.com/groundfund/groundfund-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(db, cfg)
	storageService, _ := services.NewStorageService(cfg)
	authorizationService := services.NewAuthorizationService(db)

	authService := services.NewAuthService(db, cfg)
	projectService := services.NewProjectService(db, cfg, authorizationService, storageService, notificationService)
	accessRequestService := services.NewAccessRequestService(db, authorizationService, notificationService)
	dealService := services.NewDealService(db, authorizationService, storageService, notificationService)
	subscriptionService := services.NewSubscriptionService(db, cfg, authorizationService, notificationService)
	adminService := services.NewAdminService(db, authorizationService, notificationService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(projectService)
	accessRequestHandler := handlers.NewAccessRequestHandler(accessRequestService)
	dealHandler := handlers.NewDealHandler(dealService)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	adminHandler := handlers.NewAdminHandler(adminService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
		}

		// Project routes
		projects := v1.Group("/projects")
		projects.Use(middleware.AuthRequired())
		{
			projects.GET("", projectHandler.SearchProjects)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/required-documents", projectHandler.ListRequiredDocumentTypes)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PUT("/:id", projectHandler.UpdateProject)
			projects.POST("/:id/documents", middleware.DocumentUploadRateLimit(), projectHandler.UploadDocument)
			projects.POST("/:id/documents/analysis", projectHandler.ApplyDocumentAnalysis)
			projects.POST("/:id/publish", projectHandler.PublishProject)
			projects.POST("/:id/return-to-draft", middleware.AdminRequired(), projectHandler.ReturnToDraft)
			projects.POST("/:id/access-requests", accessRequestHandler.Create)
			projects.GET("/:id/access-requests", accessRequestHandler.ListForProject)
		}

		// Access request routes
		accessRequests := v1.Group("/access-requests")
		accessRequests.Use(middleware.AuthRequired())
		{
			accessRequests.GET("", accessRequestHandler.ListOwn)
			accessRequests.GET("/:id", accessRequestHandler.Get)
			accessRequests.PUT("/:id/approve", accessRequestHandler.Approve)
			accessRequests.PUT("/:id/decline", accessRequestHandler.Decline)
			accessRequests.PUT("/:id/withdraw", accessRequestHandler.Withdraw)
		}

		// Deal routes
		deals := v1.Group("/deals")
		deals.Use(middleware.AuthRequired())
		{
			deals.POST("", dealHandler.CreateDeal)
			deals.GET("", dealHandler.ListDeals)
			deals.GET("/:id", dealHandler.GetDeal)
			deals.PUT("/:id/close", dealHandler.CloseDeal)
			deals.POST("/:id/document-requests", dealHandler.RequestDocument)
			deals.POST("/:id/document-requests/:rid/fulfill", middleware.DocumentUploadRateLimit(), dealHandler.FulfillDocumentRequest)
			deals.GET("/:id/documents", dealHandler.ListDocuments)
			deals.POST("/:id/quotes", dealHandler.SubmitQuote)
			deals.GET("/:id/quotes", dealHandler.ListQuotes)
			deals.POST("/:id/comments", dealHandler.PostComment)
			deals.GET("/:id/comments", dealHandler.ListComments)
		}

		// Subscription routes
		subscriptions := v1.Group("/subscriptions")
		subscriptions.Use(middleware.AuthRequired())
		{
			subscriptions.POST("/checkout", subscriptionHandler.StartCheckout)
			subscriptions.POST("/activate", subscriptionHandler.Activate)
			subscriptions.POST("/cancel", subscriptionHandler.Cancel)
			subscriptions.GET("/status", subscriptionHandler.Status)
		}

		// Notification routes
		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired())
		{
			notifications.GET("", notificationHandler.List)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/dashboard", adminHandler.GetDashboardStats)
			admin.GET("/users", adminHandler.ListUsers)
			admin.PUT("/users/:id/approve", adminHandler.ApproveFunder)
			admin.GET("/projects/pending-review", adminHandler.ListProjectsPendingReview)
			admin.GET("/audit-logs", adminHandler.ListAuditLogs)
		}
	}

	// Static file serving (for development)
	if cfg.Environment == "development" {
		r.Static("/uploads", "./uploads")
	}

	return r
}
