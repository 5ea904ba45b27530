package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/tradevault/tradevault-api/internal/accounts"
	"github.com/tradevault/tradevault-api/internal/audit"
	"github.com/tradevault/tradevault-api/internal/auth"
	"github.com/tradevault/tradevault-api/internal/broker"
	"github.com/tradevault/tradevault-api/internal/config"
	"github.com/tradevault/tradevault-api/internal/database"
	"github.com/tradevault/tradevault-api/internal/monitor"
	"github.com/tradevault/tradevault-api/internal/tradesync"
	"github.com/tradevault/tradevault-api/internal/vault"
	"github.com/tradevault/tradevault-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the credential vault API server with graceful
// shutdown support
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.NewDatabase(cfg.DSN)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret, auth.TestUserID)
	authHandlers := auth.NewGinHandlers(authService)

	auditor := audit.NewRecorder(db)

	vaultPolicy := vault.DefaultPolicy()
	vaultPolicy.RotationMaxAge = cfg.CredentialRotationMaxAge
	vaultService := vault.NewService(db, auditor, cfg.MasterKey, vaultPolicy)
	vaultHandlers := vault.NewGinHandlers(vaultService)

	accountsService := accounts.NewService(db, vaultService)
	accountsHandlers := accounts.NewGinHandlers(accountsService)

	bridge := broker.NewBridgeClient(cfg.BrokerBridgeURL, cfg.BrokerTimeout)

	registry := monitor.NewRegistry(vaultService, bridge, auditor, monitor.Config{
		CheckInterval: cfg.MonitorCheckInterval,
		Timeout:       cfg.MonitorCheckTimeout,
	})
	defer registry.StopAll()
	monitorHandlers := monitor.NewGinHandlers(registry)

	syncService := tradesync.NewService(db, vaultService, accountsService, bridge)
	syncHandlers := tradesync.NewGinHandlers(syncService)

	router.Use(middleware.RateLimit())

	setupRoutes(router, cfg, authHandlers, vaultHandlers, accountsHandlers, monitorHandlers, syncHandlers)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers. Everything
// except token issuance sits behind JWT authentication.
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandlers *auth.GinHandlers,
	vaultHandlers *vault.GinHandlers,
	accountsHandlers *accounts.GinHandlers,
	monitorHandlers *monitor.GinHandlers,
	syncHandlers *tradesync.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth([]byte(cfg.JWTSecret)))
		{
			credentials := protected.Group("/credentials")
			{
				credentials.GET("", vaultHandlers.ListHandler())
				credentials.POST("", vaultHandlers.StoreHandler())
				credentials.GET("/:id", vaultHandlers.GetHandler())
				credentials.PUT("/:id", vaultHandlers.UpdateHandler())
				credentials.DELETE("/:id", vaultHandlers.DeleteHandler())
			}

			monitoring := protected.Group("/monitoring")
			{
				monitoring.GET("", monitorHandlers.StatusHandler())
				monitoring.POST("", monitorHandlers.ControlHandler())
			}

			accountsGroup := protected.Group("/accounts")
			{
				accountsGroup.GET("", accountsHandlers.ListHandler())
				accountsGroup.POST("", accountsHandlers.CreateHandler())
				accountsGroup.POST("/:id/link", accountsHandlers.LinkHandler())
			}

			protected.POST("/sync", syncHandlers.SyncHandler())
			protected.POST("/trades/import", syncHandlers.ImportHandler())
			protected.GET("/trades", syncHandlers.ListTradesHandler())
		}
	}
}
