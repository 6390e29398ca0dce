package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quillhive/backend/internal/handlers"
	"github.com/quillhive/backend/internal/middleware"
	"github.com/quillhive/backend/internal/models"
	"github.com/quillhive/backend/internal/notify"
	"github.com/quillhive/backend/internal/repositories"
	"github.com/quillhive/backend/internal/security"
	"github.com/quillhive/backend/internal/ws"
	"github.com/quillhive/backend/pkg/config"
	"github.com/quillhive/backend/pkg/mailer"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes wires repositories, the notification core and all routes.
// It returns the dispatcher and websocket hub so main can start their
// background loops.
func SetupRoutes(e *echo.Echo, pgdb *gorm.DB, mgClient *mongo.Client, cfg *config.Config, firebaseAuthClient *auth.Client, logger *zap.Logger) (*notify.Dispatcher, *ws.Hub) {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.FriendRequest{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	mongoDB := mgClient.Database(cfg.MongoDatabase)

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	friendshipRepo := repositories.NewPostgresFriendshipRepository(pgdb)
	notificationRepo := repositories.NewMongoNotificationRepository(mongoDB)
	settingsRepo := repositories.NewMongoSettingsRepository(mongoDB)

	// --- Notification core ---
	tokens := security.NewTokenIssuer(cfg.JWTSecret)
	registry := notify.NewRegistry()
	policy := notify.NewPolicy(settingsRepo, logger)
	liveChannel := notify.NewLiveChannel(registry, logger)
	sendGrid := mailer.NewSendGridMailer(cfg.SendGridAPIKey, cfg.EmailFromName, cfg.EmailFromAddress)
	emailChannel := notify.NewEmailChannel(userRepo, sendGrid, tokens, logger)
	dispatcher := notify.NewDispatcher(notificationRepo, policy, liveChannel, emailChannel, logger)
	log.Println("Notification core configured.")

	// --- Realtime gateway ---
	hub := ws.NewHub(registry, logger)
	verifiers := []ws.TokenVerifier{ws.JWTVerifier{Secret: cfg.JWTSecret}}
	if firebaseAuthClient != nil {
		verifiers = append(verifiers, ws.FirebaseVerifier{Auth: firebaseAuthClient, Users: userRepo})
	}
	gateway := ws.NewGateway(hub, logger, verifiers...)
	gateway.RegisterRoutes(e)
	log.Println("Websocket gateway configured.")

	// --- Protected routes ---
	api := e.Group("/api/v1")
	if firebaseAuthClient != nil {
		api.Use(middleware.FirebaseAuthMiddleware(firebaseAuthClient, userRepo))
		log.Println("Firebase authentication middleware applied to /api/v1 group.")
	} else {
		api.Use(middleware.JWTAuthMiddleware())
		log.Println("JWT authentication middleware applied to /api/v1 group.")
	}

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, logger)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	// Settings routes
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, userRepo, tokens, logger)
	settingsHandler.RegisterSettingsRoutes(api)
	settingsHandler.RegisterPublicRoutes(e)
	log.Println("Settings routes configured.")

	// User routes
	userHandler := handlers.NewUserHandler(userRepo, notificationRepo, settingsRepo, logger)
	userHandler.RegisterUserRoutes(api)
	log.Println("User routes configured.")

	// Friendship routes
	friendshipHandler := handlers.NewFriendshipHandler(friendshipRepo, userRepo, dispatcher, tokens, logger)
	friendshipHandler.RegisterFriendshipRoutes(api)
	friendshipHandler.RegisterPublicRoutes(e)
	log.Println("Friendship routes configured.")

	log.Println("All routes configured.")
	return dispatcher, hub
}
