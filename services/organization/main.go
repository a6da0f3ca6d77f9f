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

	// Initialize Redis for sessions and the brand cache
	if err := utils.InitRedis(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer utils.CloseRedis()

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := config.MigrateDatabase(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize authentication middleware
	authMiddleware, err := middleware.NewAuthMiddleware()
	if err != nil {
		log.Fatal("Failed to initialize auth middleware:", err)
	}

	// SES is optional in local development; without it invitation
	// links are still returned in the provisioning response.
	var mailer *utils.Mailer
	if os.Getenv("SES_SENDER_ADDRESS") != "" {
		mailer, err = utils.NewMailer(config.GetEnv("AWS_REGION", "us-east-1"))
		if err != nil {
			log.Fatal("Failed to initialize mailer:", err)
		}
	} else {
		logrus.Warn("SES_SENDER_ADDRESS not set, invitation emails disabled")
	}

	// Initialize Gin router
	router := gin.Default()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Organization service is healthy", nil)
	})

	// Public tenant branding for login pages
	router.GET("/brand/:slug", handleGetBrand(db))

	// Organization routes
	organizations := router.Group("/organizations")
	organizations.Use(authMiddleware.RequireAuth())
	{
		// System-owner console
		organizations.POST("/", authMiddleware.RequireRole(models.RoleSuperAdmin), handleCreateOrganization(db, mailer))
		organizations.GET("/", authMiddleware.RequireRole(models.RoleSuperAdmin), handleGetOrganizations(db))
		organizations.GET("/:id/members", authMiddleware.RequireRole(models.RoleSuperAdmin), handleGetOrganizationMembers(db))
		organizations.DELETE("/:id", authMiddleware.RequireRole(models.RoleSuperAdmin), handleDeleteOrganization(db))

		// Tenant self-service
		organizations.GET("/:id", authMiddleware.RequireOrgAccess(), handleGetOrganization(db))
		organizations.PUT("/:id", authMiddleware.RequireRole(models.RoleOrgAdmin), authMiddleware.RequireOrgAccess(), handleUpdateOrganization(db))
	}

	// Start server
	port := os.Getenv("ORGANIZATION_SERVICE_PORT")
	if port == "" {
		port = "8002"
	}

	logrus.Infof("Organization service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start organization service:", err)
	}
}
