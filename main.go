package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"college-progress-service/config"
	"college-progress-service/handlers"
	"college-progress-service/middleware"
	"college-progress-service/models"
	"college-progress-service/services"
	"college-progress-service/utils"
	"college-progress-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := utils.NewLogger(cfg.LogMode)
	if err != nil {
		log.Fatal("failed to build logger:", err)
	}
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Fatal("failed to migrate database", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var fetcher services.ObjectFetcher
	if cfg.CatalogFromBucket() {
		store, err := utils.NewObjectStore(ctx, cfg.R2)
		if err != nil {
			logger.Fatal("failed to initialize R2 client", "error", err)
		}
		fetcher = store
	}
	loadCatalog := func(ctx context.Context) (*services.CatalogDocument, error) {
		return services.LoadCatalogDocument(ctx, cfg.CatalogSource, fetcher)
	}

	catalogService := services.NewCatalogService(db, logger)
	achievementService := services.NewAchievementService(db, catalogService, logger)
	progressionService := services.NewProgressionService(db, catalogService, achievementService, logger)
	userService := services.NewUserService(db, logger)
	reconcileService := services.NewReconcileService(db, achievementService, logger)

	if doc, err := loadCatalog(ctx); err != nil {
		logger.Warn("[CATALOG] initial load failed, starting with existing catalog", "source", cfg.CatalogSource, "error", err)
	} else if _, err := catalogService.Seed(ctx, doc); err != nil {
		logger.Warn("[CATALOG] initial seed failed", "source", cfg.CatalogSource, "error", err)
	}

	sched, err := reconcileService.StartReconcileScheduler(ctx, cfg.ReconcileInterval)
	if err != nil {
		logger.Fatal("failed to start reconcile scheduler", "error", err)
	}

	if cfg.ProfileSyncURL != "" {
		syncWorker := workers.NewUserSyncWorker(db, cfg.ProfileSyncURL, cfg.ProfileSyncPath, cfg.ProfileSyncToken, cfg.ProfileSyncInterval, logger)
		syncWorker.Start(ctx)
	} else {
		logger.Info("[SYNC] PROFILE_SYNC_URL not set, user sync worker disabled")
	}

	app := fiber.New()

	app.Use(middleware.LoggingMiddleware(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	// every request must come through the gateway
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, logger))

	handlers.SetupProgressionRoutes(app, handlers.Deps{
		Progression: progressionService,
		Users:       userService,
		Catalog:     catalogService,
		Reconcile:   reconcileService,
		LoadCatalog: loadCatalog,
		Log:         logger,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	logger.Info("✅ Server running", "port", cfg.Port, "origins", cfg.AllowedOrigins)

	<-ctx.Done()
	logger.Info("Shutting down server...")

	if err := sched.Shutdown(); err != nil {
		logger.Warn("reconcile scheduler shutdown", "error", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
}
