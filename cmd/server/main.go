package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/varsitymarket/backend/internal/api"
	"github.com/varsitymarket/backend/internal/auth"
	"github.com/varsitymarket/backend/internal/config"
	"github.com/varsitymarket/backend/internal/database"
)

func main() {
	// Set up logging to file
	logFile, err := os.OpenFile("server.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer logFile.Close()

	// Configure log to write to both file and console
	multiWriter := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multiWriter)

	// Add timestamps to log entries
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Set Gin mode based on environment
	env := os.Getenv("ENV")
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize JWT key from environment variable
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	auth.InitJWTKey([]byte(jwtSecret))

	// Determine database type from environment (default to PostgreSQL)
	dbTypeStr := os.Getenv("DB_TYPE")
	if dbTypeStr == "" {
		dbTypeStr = "postgres"
	}

	dbType := database.DatabaseType(dbTypeStr)

	// Get connection string
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// Fallback to individual connection parameters if DATABASE_URL not set
		dbHost := os.Getenv("DB_HOST")
		dbPort := os.Getenv("DB_PORT")
		dbName := os.Getenv("DB_NAME")
		dbUser := os.Getenv("DB_USER")
		dbPass := os.Getenv("DB_PASSWORD")

		if dbHost == "" || dbName == "" || dbUser == "" {
			log.Fatal("Database connection details missing. Set DATABASE_URL or individual DB_* variables")
		}

		switch dbType {
		case database.PostgreSQL:
			dbURL = fmt.Sprintf(
				"postgres://%s:%s@%s:%s/%s?sslmode=disable",
				dbUser, dbPass, dbHost, dbPort, dbName,
			)
		case database.MySQL:
			dbURL = fmt.Sprintf(
				"mysql://%s:%s@tcp(%s:%s)/%s",
				dbUser, dbPass, dbHost, dbPort, dbName,
			)
		}
	}

	// Create database connection using factory
	db, err := database.NewDatabase(dbType, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Printf("Connected to %s database successfully", dbType)

	// Chat limits are explicit configuration, loaded once and handed to the
	// handlers rather than read ambiently per request
	chatCfg := config.LoadChatConfig()

	// Initialize router with default middleware (logger and recovery)
	router := gin.Default()

	// Configure CORS using environment variable
	allowedOriginsStr := os.Getenv("ALLOWED_ORIGINS")
	allowedOrigins := strings.Split(allowedOriginsStr, ",")

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Create API handlers
	authHandler := api.NewAuthHandler(db)
	conversationHandler := api.NewConversationHandler(db, chatCfg)
	messageHandler := api.NewMessageHandler(db)

	// Set up API routes
	// Public routes (no authentication required)
	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)

	// Protected routes (authentication required)
	authorized := router.Group("/api")
	authorized.Use(api.AuthMiddleware())
	{
		authorized.GET("/auth/me", authHandler.GetMe)
		authorized.GET("/users", authHandler.GetAllUsers)

		// Conversation routes
		authorized.GET("/conversations", conversationHandler.ListConversations)
		authorized.POST("/conversations", conversationHandler.CreateConversation)
		authorized.GET("/conversations/unread-count", conversationHandler.TotalUnreadCount)
		authorized.GET("/conversations/:conversationID", conversationHandler.GetConversation)
		authorized.GET("/conversations/:conversationID/messages", conversationHandler.ListMessages)
		authorized.POST("/conversations/:conversationID/messages", conversationHandler.SendMessage)
		authorized.POST("/conversations/:conversationID/price-offer", conversationHandler.SendPriceOffer)
		authorized.POST("/conversations/:conversationID/meetup-request", conversationHandler.SendMeetupRequest)
		authorized.POST("/conversations/:conversationID/read", conversationHandler.MarkAllRead)
		authorized.GET("/conversations/:conversationID/unread-count", conversationHandler.UnreadCount)
		authorized.PUT("/conversations/:conversationID/active", conversationHandler.SetActive)
		authorized.PUT("/conversations/:conversationID/mute", conversationHandler.Mute)
		authorized.PUT("/conversations/:conversationID/archive", conversationHandler.Archive)
		authorized.PUT("/conversations/:conversationID/block", conversationHandler.Block)

		// Message routes
		authorized.PUT("/messages/:messageID", messageHandler.EditMessage)
		authorized.DELETE("/messages/:messageID", messageHandler.DeleteMessage)
		authorized.PUT("/messages/:messageID/read", messageHandler.MarkMessageAsRead)
		authorized.POST("/messages/:messageID/attachments", messageHandler.CreateAttachment)
		authorized.GET("/messages/:messageID/attachments", messageHandler.ListAttachments)
	}

	// Add health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Get server port from environment variable or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Configure HTTP server
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give the server 5 seconds to finish processing remaining requests
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}
