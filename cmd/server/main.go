package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/application/partner"
	"github.com/stocksync/backend/internal/application/procurement"
	syncapp "github.com/stocksync/backend/internal/application/sync"
	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
	"github.com/stocksync/backend/internal/domain/sku"
	"github.com/stocksync/backend/internal/domain/vendor"
	"github.com/stocksync/backend/internal/infrastructure/cache"
	"github.com/stocksync/backend/internal/infrastructure/config"
	"github.com/stocksync/backend/internal/infrastructure/lock"
	"github.com/stocksync/backend/internal/infrastructure/logger"
	"github.com/stocksync/backend/internal/infrastructure/persistence"
	"github.com/stocksync/backend/internal/infrastructure/retry"
	"github.com/stocksync/backend/internal/infrastructure/sheets"
	"github.com/stocksync/backend/internal/interfaces/http/handler"
	"github.com/stocksync/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting stocksync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := db.EnableTracing(); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected")

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	vendorRepo := persistence.NewGormVendorRepository(db.DB)
	transactionRepo := persistence.NewGormTransactionRepository(db.DB)

	// Redis backs the shared catalog cache and the cross-instance sheet
	// lock; without it both fall back to in-process equivalents
	var rdb redis.UniversalClient
	var locker lock.SheetLocker = lock.NewKeyedMutex()
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = client.Close()
		}()
		rdb = client
		locker = lock.NewRedisLocker(rdb)
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// External ledger spreadsheet
	retryCfg := retry.DefaultConfig()
	if cfg.Sync.RetryAttempts > 0 {
		retryCfg.MaxAttempts = uint64(cfg.Sync.RetryAttempts)
	}
	if cfg.Sync.RetryInterval > 0 {
		retryCfg.InitialInterval = cfg.Sync.RetryInterval
	}
	sheetClient, err := sheets.NewClient(context.Background(), sheets.Config{
		SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		CredentialsFile: cfg.Sheets.CredentialsFile,
		CompositeTab:    cfg.Sheets.CompositeTab,
		SuggestionTab:   cfg.Sheets.SuggestionTab,
		LocationTabs:    locationTabs(cfg.Sheets),
	}, retryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize spreadsheet client", zap.Error(err))
	}

	// Catalog sources, cached per instance or shared through Redis
	var composites sku.CompositeSource = sheets.NewCompositeSource(sheetClient, log)
	var suggestions vendor.SuggestionSource = sheets.NewSuggestionSource(sheetClient, log)
	if rdb != nil {
		composites = cache.NewRedisCompositeMapCache(composites, rdb, cfg.Catalog.CacheTTL, log)
		suggestions = cache.NewRedisSuggestionCache(suggestions, rdb, cfg.Catalog.CacheTTL, log)
	} else {
		composites = cache.NewCompositeMapCache(composites, cfg.Catalog.CacheTTL)
		suggestions = cache.NewSuggestionCache(suggestions, cfg.Catalog.CacheTTL)
	}

	// Domain and application services
	expander := sku.NewExpander(composites, log,
		sku.WithPackPrefix(cfg.Catalog.PackPrefix),
		sku.WithComboPrefix(cfg.Catalog.ComboPrefix),
	)
	guard := ledger.NewGuard(transactionRepo, log)
	resolver := procurement.NewVendorResolver(vendorRepo, suggestions, composites, expander,
		procurement.ResolverConfig{
			AutoCreateVendors: cfg.Procurement.AutoCreateVendors,
			AutoMapSKUs:       cfg.Procurement.AutoMapSKUs,
		}, log)
	stageService := procurement.NewStageService(orderRepo, vendorRepo, guard, expander, resolver, log)
	orderService := procurement.NewOrderService(orderRepo, transactionRepo, log)
	vendorService := partner.NewVendorService(vendorRepo, orderRepo, transactionRepo, log)
	syncService := syncapp.NewSyncService(transactionRepo, sheetClient, expander, locker, log)
	conflictService := syncapp.NewConflictService(syncService, log)
	jobManager := syncapp.NewJobManager(syncService, syncapp.JobManagerConfig{
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
		JobTimeout:    cfg.Jobs.JobTimeout,
		Retention:     cfg.Jobs.Retention,
	}, log)

	// The unassigned sentinel vendor must exist before any processing
	if _, err := vendorService.EnsureUnassigned(context.Background()); err != nil {
		log.Fatal("Failed to ensure unassigned sentinel vendor", zap.Error(err))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler.SetupValidator()

	engine := router.NewEngine(log)
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSystemHandler(db.DB))
	r.Register(handler.NewOrderHandler(orderService, stageService))
	r.Register(handler.NewVendorHandler(vendorService))
	r.Register(handler.NewSyncHandler(syncService, conflictService, jobManager))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}

// locationTabs builds the location-to-tab mapping from config, leaving the
// defaults in place for any unset tab
func locationTabs(cfg config.SheetsConfig) map[valueobject.Location]string {
	tabs := sheets.DefaultLocationTabs()
	if cfg.LocationATab != "" {
		tabs[valueobject.LocationA] = cfg.LocationATab
	}
	if cfg.LocationBTab != "" {
		tabs[valueobject.LocationB] = cfg.LocationBTab
	}
	if cfg.DirectTab != "" {
		tabs[valueobject.LocationDirect] = cfg.DirectTab
	}
	return tabs
}
