package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/novamall/mall-backend/internal/auth"
	"github.com/novamall/mall-backend/internal/config"
	httpserver "github.com/novamall/mall-backend/internal/http"
	"github.com/novamall/mall-backend/internal/notification"
	"github.com/novamall/mall-backend/internal/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Initialize repositories
	usersRepo := repository.NewUsersRepository(db)
	storefrontsRepo := repository.NewStorefrontsRepository(db)
	productsRepo := repository.NewProductsRepository(db)
	cartItemsRepo := repository.NewCartItemsRepository(db)
	ordersRepo := repository.NewOrdersRepository(db)

	// Initialize email service if configured; codes fall back to the log
	// sender so the verification flows keep working in development.
	var emailService *notification.EmailService
	var codeSender auth.CodeSender
	if cfg.HasSMTP() {
		emailService = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		codeSender = emailService
		logger.Info("email service enabled")
	} else {
		codeSender = notification.NewLogSender(logger)
		logger.Warn("SMTP not configured, verification codes will be logged")
	}

	// Initialize services
	passwordService := auth.NewPasswordService(usersRepo)
	sessionService := auth.NewSessionService(auth.SessionConfig{
		AccessTokenTTL: cfg.AccessTokenTTL,
		JWTSecret:      []byte(cfg.JWTSecret),
		Issuer:         cfg.JWTIssuer,
	})
	twoFactorService := auth.NewTwoFactorService(auth.TwoFactorConfig{
		CodeTTL: cfg.CodeTTL,
	}, usersRepo, codeSender)
	mfaService := auth.NewMFAService(auth.MFAConfig{
		Issuer: cfg.JWTIssuer,
	}, usersRepo)

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:           logger,
		DB:               db,
		PasswordService:  passwordService,
		SessionService:   sessionService,
		TwoFactorService: twoFactorService,
		MFAService:       mfaService,
		EmailService:     emailService,
		UsersRepo:        usersRepo,
		StorefrontsRepo:  storefrontsRepo,
		ProductsRepo:     productsRepo,
		CartItemsRepo:    cartItemsRepo,
		OrdersRepo:       ordersRepo,
		RateLimitConfig:  cfg.RateLimit,
		SecurityHeaders:  cfg.SecurityHeaders,
		Validation:       cfg.Validation,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
