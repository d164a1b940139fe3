package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sanisidro/fiscal-api/docs"
	"github.com/sanisidro/fiscal-api/internal/auth"
	"github.com/sanisidro/fiscal-api/internal/config"
	"github.com/sanisidro/fiscal-api/internal/directory"
	"github.com/sanisidro/fiscal-api/internal/http/handler"
	"github.com/sanisidro/fiscal-api/internal/http/middleware"
	"github.com/sanisidro/fiscal-api/internal/http/router"
	"github.com/sanisidro/fiscal-api/internal/jobs"
	"github.com/sanisidro/fiscal-api/internal/logger"
	"github.com/sanisidro/fiscal-api/internal/service"
	"github.com/sanisidro/fiscal-api/internal/storage"
	"go.uber.org/zap"
)

// @title Fiscal API
// @version 1.0
// @description Blob storage proxy and fiscal CSV import for the San Isidro election monitoring app

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for fiscal import operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Swagger host follows the public URL outside development
	if basicCfg.App.IsDevelopment() || basicCfg.App.PublicURL == "" {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	} else {
		docs.SwaggerInfo.Host = hostOf(basicCfg.App.PublicURL)
	}

	// Load full configuration with secrets
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	// Upload tokens back client uploads and local signed URLs
	var tokens *auth.UploadTokens
	var signer storage.UploadSigner
	if cfg.Upload.TokenSecret != "" {
		tokens, err = auth.NewUploadTokens(cfg.Upload.TokenSecret)
		if err != nil {
			return fmt.Errorf("failed to create upload tokens: %w", err)
		}
		signer = tokens
	} else {
		log.Warn("Upload token secret not set, client uploads are disabled")
	}

	// Blob storage is optional: without it the blob endpoints answer
	// storage_not_configured
	var store storage.BlobStore
	initStore, storeErr := storage.NewStorage(ctx, &cfg.Storage, cfg.App.PublicURL, signer, log)
	if storeErr != nil {
		log.Error("Blob storage not configured", zap.String("mode", cfg.Storage.Mode), zap.Error(storeErr))
	} else {
		store = initStore
		log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))
	}

	dir, err := directory.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open directory: %w", err)
	}
	defer func() {
		if err := dir.Close(); err != nil {
			log.Warn("Error closing directory", zap.Error(err))
		}
	}()

	// Initialize services
	blobService := service.NewBlobService(store, tokens, service.BlobServiceConfig{
		SignedURLTTL:      cfg.Storage.SignedURLTTLDuration(),
		TokenTTL:          cfg.Upload.TokenTTLDuration(),
		AllowedImageTypes: cfg.Upload.AllowedImageTypes,
		MaxImageSize:      cfg.Upload.MaxImageSizeMB * 1024 * 1024,
	}, log)
	if storeErr != nil {
		blobService.SetStoreError(storeErr)
	}
	importService := service.NewImportService(dir.Accounts, dir.Fiscales, &cfg.Import, log)

	// Initialize middleware
	authMiddleware := auth.NewMiddleware(cfg.ApiKey.Value, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	isDev := cfg.App.IsDevelopment()
	maxBody := cfg.Storage.MaxUploadSizeMB * 1024 * 1024
	blobProxyHandler := handler.NewBlobProxyHandler(blobService, maxBody, isDev, log)
	blobHandler := handler.NewBlobHandler(blobService, maxBody, isDev, log)
	uploadHandler := handler.NewUploadHandler(blobService, isDev, log)
	fiscalHandler := handler.NewFiscalHandler(importService, cfg.Import.MaxBodySizeMB*1024*1024, isDev, log)

	rt := router.NewRouter(
		cfg,
		log,
		dir.DB,
		store != nil,
		authMiddleware,
		rateLimiter,
		blobProxyHandler,
		blobHandler,
		uploadHandler,
		fiscalHandler,
	)

	// Scheduled import of CSV files dropped into blob storage
	var scheduler *jobs.Scheduler
	if cfg.Import.Enabled && store != nil {
		scheduler = jobs.NewScheduler(log)
		importJob := jobs.NewImportJob(
			blobService,
			importService,
			cfg.Import.Prefix,
			cfg.Import.ReportPrefix,
			cfg.Import.TimeoutDuration(),
			log,
		)
		if err := jobs.RegisterImportJob(scheduler, importJob, cfg.Import.Cron); err != nil {
			log.Error("Failed to register import job", zap.Error(err))
		} else {
			scheduler.Start()
			log.Info("Scheduler started with import job",
				zap.Strings("jobs", scheduler.GetJobNames()),
				zap.String("cron_expr", cfg.Import.Cron),
				zap.String("prefix", cfg.Import.Prefix),
				zap.Duration("timeout", cfg.Import.TimeoutDuration()),
			)
		}
	} else {
		log.Info("Scheduled import disabled",
			zap.Bool("import_enabled", cfg.Import.Enabled),
			zap.Bool("storage_available", store != nil),
		)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
