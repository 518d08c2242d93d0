// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfmontes/angel-fit-app/internal/config"
	"github.com/rfmontes/angel-fit-app/internal/database"
	"github.com/rfmontes/angel-fit-app/internal/i18n"
	"github.com/rfmontes/angel-fit-app/internal/metrics"
	"github.com/rfmontes/angel-fit-app/internal/realtime"
	"github.com/rfmontes/angel-fit-app/internal/router"
	"github.com/rfmontes/angel-fit-app/internal/services"
	"github.com/rfmontes/angel-fit-app/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := cfg.NewLogger()

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logger.WithError(err).Fatal("Failed to initialize i18n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the data store
	var (
		ds    store.DataStore
		users store.UserStore
		gs    *store.GormStore
	)
	switch cfg.Store.Driver {
	case "memory":
		mem := store.NewTxMemoryStore()
		ds, users = mem, mem
		logger.Warn("Using the in-memory store; data is lost on restart")
	default:
		db, err := database.Initialize(cfg.Database)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize database")
		}
		defer database.Close(db)

		channel := ""
		if cfg.Database.ListenEnabled {
			channel = cfg.Database.ListenChannel
		}
		if err := database.RunMigrations(db, channel); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		gs = store.NewGormStore(db)
		ds, users = gs, gs
	}

	m := metrics.New()

	// Initialize services
	inventory := services.NewInventoryService(ds, cfg, logger, m)
	if err := inventory.Load(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to load inventory")
	}

	authService := services.NewAuthService(users, cfg, logger)
	if err := authService.EnsureOperator(ctx, cfg.Operator.Email, cfg.Operator.Password, cfg.Operator.Name); err != nil {
		logger.WithError(err).Fatal("Failed to seed operator account")
	}
	authService.OnSessionChange(func(ev services.SessionEvent, s *services.Session) {
		logger.WithFields(logrus.Fields{
			"event": ev,
			"email": s.User.Email,
		}).Debug("Session changed")
	})

	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize storage")
	}
	reportService := services.NewReportService(inventory, storageService, logger)

	hub := realtime.NewHub(cfg.Frontend.AllowedOrigins, logger)
	defer hub.Close()
	inventory.Subscribe(func(ev services.Event) {
		hub.Publish(ev)
	})

	if gs != nil && cfg.Database.ListenEnabled {
		debounce := time.Duration(cfg.Inventory.ListenDebounceSeconds) * time.Second
		listener := store.NewChangeListener(cfg.Database.ListenerDSN(), cfg.Database.ListenChannel, debounce, logger, inventory.Load)
		go func() {
			if err := listener.Run(ctx); err != nil {
				logger.WithError(err).Error("Change listener stopped")
			}
		}()
	}

	go pruneSessions(ctx, authService, logger)

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(cfg, router.Dependencies{
		Inventory: inventory,
		Auth:      authService,
		Reports:   reportService,
		Storage:   storageService,
		Hub:       hub,
		Metrics:   m,
		Logger:    logger,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"port":  cfg.Server.Port,
			"store": cfg.Store.Driver,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
		os.Exit(1)
	}

	logger.Info("Server exited")
}

func pruneSessions(ctx context.Context, auth *services.AuthService, logger *logrus.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := auth.PruneExpired(); n > 0 {
				logger.WithField("sessions", n).Debug("Expired sessions pruned")
			}
		}
	}
}
