package main

import (
	"database/sql"
	"flag"
	"log"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	httpapi "library-lending-backend/internal/api/http"
	"library-lending-backend/internal/catalog"
	"library-lending-backend/internal/config"
	"library-lending-backend/internal/gateway"
	"library-lending-backend/internal/logger"
	"library-lending-backend/internal/repository/postgres"
	"library-lending-backend/internal/security"
	"library-lending-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Library Lending Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Info("Gateway configuration", "provider", cfg.Gateway.Provider)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)

	// Initialize Email Service
	emailSvc := service.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.User,
		cfg.SMTP.Password,
		cfg.SMTP.From,
	)

	// Initialize Payment Gateway
	gw := newGateway(cfg)

	// Initialize Catalog Client
	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL, time.Duration(cfg.Catalog.TimeoutSeconds)*time.Second)

	// Initialize Services
	settlementSvc := service.NewSettlementService(
		store.PaymentRepository,
		store.BorrowRepository,
		store.UserRepository,
		store.InventoryRepository,
		store.NotificationRepository,
		emailSvc,
		gw,
	)
	borrowSvc := service.NewBorrowService(
		store.BorrowRepository,
		store.InventoryRepository,
		store.UserRepository,
		store.NotificationRepository,
		settlementSvc,
		emailSvc,
		cfg.Fine,
		int32(cfg.Loan.DefaultLoanDays),
		int32(cfg.Loan.MaxLoanDays),
	)
	inventorySvc := service.NewInventoryService(store.InventoryRepository, catalogClient)
	noteSvc := service.NewNotificationService(store.NotificationRepository)

	// Set up HTTP server
	router := httpapi.NewRouter(tokenManager, borrowSvc, settlementSvc, inventorySvc, noteSvc)

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Failed to serve HTTP", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
}

func newGateway(cfg *config.Config) gateway.Gateway {
	timeout := time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second
	switch cfg.Gateway.Provider {
	case "mobile-money":
		return gateway.NewMobileMoneyGateway(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, timeout)
	default:
		return gateway.NewCheckoutGateway(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, timeout)
	}
}
