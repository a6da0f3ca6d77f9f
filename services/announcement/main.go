package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/nandak93/go-people-ops-system/shared/config"
	"github.com/nandak93/go-people-ops-system/shared/middleware"
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

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize authentication middleware
	authMiddleware, err := middleware.NewAuthMiddleware()
	if err != nil {
		log.Fatal("Failed to initialize auth middleware:", err)
	}

	// Kafka is optional; without a broker the feed still works, only
	// realtime fan-out is disabled.
	var producer *EventProducer
	if broker := os.Getenv("KAFKA_BROKER"); broker != "" {
		producer = NewEventProducer(broker)
		defer producer.Close()
	} else {
		logrus.Warn("KAFKA_BROKER not set, realtime announcement events disabled")
	}

	// Initialize Gin router
	router := gin.Default()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Announcement service is healthy", nil)
	})

	// Announcement routes (HR admin or higher)
	announcements := router.Group("/announcements")
	announcements.Use(authMiddleware.RequireAuth(), authMiddleware.RequireHRAdmin())
	{
		announcements.GET("/", handleListAnnouncements(db))
		announcements.GET("/recipients", handleListRecipients(db))
		announcements.POST("/", handleSendAnnouncement(db, producer))
	}

	// Start server
	port := os.Getenv("ANNOUNCEMENT_SERVICE_PORT")
	if port == "" {
		port = "8003"
	}

	logrus.Infof("Announcement service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start announcement service:", err)
	}
}
