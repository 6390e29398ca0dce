package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/quillhive/backend/internal/router"
	"github.com/quillhive/backend/pkg/config"
	"github.com/quillhive/backend/pkg/firebase"
	"github.com/quillhive/backend/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connections
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	// Structured logger for the notification core
	logger, err := zap.NewProduction()
	if cfg.Env == "development" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Firebase (optional; JWT auth is used when absent)
	firebaseAuth, err := firebase.InitAuthClient(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Printf("Firebase disabled: %v", err)
		firebaseAuth = nil
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	dispatcher, hub := router.SetupRoutes(e, db.Postgres, db.Mongo, cfg, firebaseAuth, logger)

	// Background loops: websocket lifecycle and notification fan-out
	go hub.Run(ctx)
	dispatcher.Start(ctx)

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
