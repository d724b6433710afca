package main

import (
	"log"
	"time"

	"github.com/budgetke/budgetke-api/internal/catalog"
	"github.com/budgetke/budgetke-api/internal/config"
	"github.com/budgetke/budgetke-api/internal/database"
	"github.com/budgetke/budgetke-api/internal/email"
	"github.com/budgetke/budgetke-api/internal/handlers"
	"github.com/budgetke/budgetke-api/internal/payments"
	"github.com/budgetke/budgetke-api/internal/routes"
	"github.com/budgetke/budgetke-api/internal/storage"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Open(cfg.DBDSN)
	if err != nil {
		if !cfg.AllowMockFallback {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		// Demo mode: checkout hands out mock order ids, everything that
		// needs real rows (webhook, downloads, admin) stays unavailable.
		logger.Warn("database unavailable, running with mock fallback", zap.Error(err))
		db = nil
	}
	if db != nil {
		defer db.Close()
	}

	app := &handlers.Handlers{
		DB:       db,
		Cfg:      cfg,
		Catalog:  catalog.New(cfg.CatalogDir),
		Payments: payments.NewClient(cfg.IntaSend.APIKey, cfg.IntaSend.Live),
		Mailer:   email.NewMailer(cfg.Resend.APIKey, cfg.Resend.From, cfg.AppBaseURL, logger),
		Storage:  storage.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Supabase.Bucket, cfg.SignedURLTTL),
		Logger:   logger,
	}

	// Background sweep for checkouts that never paid.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		logger.Info("stale order sweeper started")
		for range ticker.C {
			app.ProcessStaleOrders()
		}
	}()

	router := routes.SetupRouter(app)

	logger.Info("starting BudgetKE API", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
