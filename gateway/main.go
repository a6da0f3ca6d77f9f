package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/nandak93/go-people-ops-system/shared/config"
	"github.com/nandak93/go-people-ops-system/shared/middleware"
	"github.com/nandak93/go-people-ops-system/shared/models"
	"github.com/nandak93/go-people-ops-system/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	// Initialize Redis for session validation
	if err := utils.InitRedis(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer utils.CloseRedis()

	// Initialize authentication middleware
	authMiddleware, err := middleware.NewAuthMiddleware()
	if err != nil {
		log.Fatal("Failed to initialize auth middleware:", err)
	}

	// Initialize service clients
	serviceClients := &ServiceClients{
		AuthService:         NewServiceClient("auth_service", config.GetEnv("AUTH_SERVICE_URL", "http://localhost:8001")),
		OrganizationService: NewServiceClient("organization_service", config.GetEnv("ORGANIZATION_SERVICE_URL", "http://localhost:8002")),
		AnnouncementService: NewServiceClient("announcement_service", config.GetEnv("ANNOUNCEMENT_SERVICE_URL", "http://localhost:8003")),
	}

	// Initialize Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Tenant-prefixed URLs are rewritten and re-dispatched, so routes
	// below are registered once for all tenants.
	router.Use(TenantRewrite(router))

	// Health check endpoint with upstream status
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "API Gateway is healthy", serviceClients.GetServiceStatus())
	})

	// Public tenant branding for login pages
	router.GET("/brand/:slug", serviceClients.OrganizationService.ProxyRequest)

	// Authentication routes
	auth := router.Group("/auth")
	{
		auth.POST("/login", serviceClients.AuthService.ProxyRequest)
		auth.POST("/invite/accept", serviceClients.AuthService.ProxyRequest)
		auth.GET("/login-page/:slug", serviceClients.AuthService.ProxyRequest)

		auth.POST("/logout", authMiddleware.RequireAuth(), serviceClients.AuthService.ProxyRequest)
		auth.GET("/session", authMiddleware.RequireAuth(), serviceClients.AuthService.ProxyRequest)
		auth.POST("/password", authMiddleware.RequireAuth(), serviceClients.AuthService.ProxyRequest)
	}

	// Organization management routes
	organizations := router.Group("/organizations")
	organizations.Use(RequireTenantLogin(), authMiddleware.RequireAuth())
	{
		// System-owner console
		organizations.POST("/", authMiddleware.RequireRole(models.RoleSuperAdmin), serviceClients.OrganizationService.ProxyRequest)
		organizations.GET("/", authMiddleware.RequireRole(models.RoleSuperAdmin), serviceClients.OrganizationService.ProxyRequest)
		organizations.GET("/:id/members", authMiddleware.RequireRole(models.RoleSuperAdmin), serviceClients.OrganizationService.ProxyRequest)
		organizations.DELETE("/:id", authMiddleware.RequireRole(models.RoleSuperAdmin), serviceClients.OrganizationService.ProxyRequest)

		// Tenant self-service
		organizations.GET("/:id", authMiddleware.RequireOrgAccess(), serviceClients.OrganizationService.ProxyRequest)
		organizations.PUT("/:id", authMiddleware.RequireRole(models.RoleOrgAdmin), authMiddleware.RequireOrgAccess(), serviceClients.OrganizationService.ProxyRequest)
	}

	// Announcement routes (HR admin or higher)
	announcements := router.Group("/announcements")
	announcements.Use(RequireTenantLogin(), authMiddleware.RequireAuth(), authMiddleware.RequireHRAdmin())
	{
		announcements.GET("/", serviceClients.AnnouncementService.ProxyRequest)
		announcements.GET("/recipients", serviceClients.AnnouncementService.ProxyRequest)
		announcements.POST("/", serviceClients.AnnouncementService.ProxyRequest)
	}

	// Start server
	port := os.Getenv("API_GATEWAY_PORT")
	if port == "" {
		port = "8080"
	}

	logrus.Infof("API Gateway starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start API Gateway:", err)
	}
}
