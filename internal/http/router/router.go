package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sanisidro/fiscal-api/internal/auth"
	"github.com/sanisidro/fiscal-api/internal/config"
	"github.com/sanisidro/fiscal-api/internal/database"
	"github.com/sanisidro/fiscal-api/internal/http/handler"
	"github.com/sanisidro/fiscal-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/sanisidro/fiscal-api/docs" // Import swagger docs
)

type Router struct {
	cfg               *config.Config
	logger            *zap.Logger
	db                *gorm.DB // nil when the directory lives in Firebase
	storageConfigured bool
	authMiddleware    *auth.Middleware
	rateLimiter       *middleware.RateLimiter
	blobProxyHandler  *handler.BlobProxyHandler
	blobHandler       *handler.BlobHandler
	uploadHandler     *handler.UploadHandler
	fiscalHandler     *handler.FiscalHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	storageConfigured bool,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	blobProxyHandler *handler.BlobProxyHandler,
	blobHandler *handler.BlobHandler,
	uploadHandler *handler.UploadHandler,
	fiscalHandler *handler.FiscalHandler,
) *Router {
	return &Router{
		cfg:               cfg,
		logger:            logger,
		db:                db,
		storageConfigured: storageConfigured,
		authMiddleware:    authMiddleware,
		rateLimiter:       rateLimiter,
		blobProxyHandler:  blobProxyHandler,
		blobHandler:       blobHandler,
		uploadHandler:     uploadHandler,
		fiscalHandler:     fiscalHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(rt.rateLimiter.LimitByIP)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Readiness probe (checks all dependencies)
	r.Get("/health/ready", rt.ready)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// Blob endpoints answer their own preflights, so they sit outside the
	// configurable CORS middleware
	r.Group(func(r chi.Router) {
		r.Use(middleware.BlobProxyCORS)

		r.Route("/api/blob-proxy", func(r chi.Router) {
			r.HandleFunc("/", rt.blobProxyHandler.Proxy)
			r.Get("/head", rt.blobProxyHandler.Head)
			r.Put("/upload", rt.uploadHandler.RedeemUpload)
		})

		r.Get("/api/list-blobs", rt.blobHandler.ListBlobs)
		r.Get("/api/head-blob", rt.blobHandler.HeadBlob)
		r.Post("/api/put-json", rt.blobHandler.PutJSON)
		r.HandleFunc("/api/upload-image", rt.uploadHandler.UploadImage)

		r.With(middleware.BlobContentHeaders(&rt.cfg.Security)).Get("/blobs/*", rt.uploadHandler.ServeBlob)

		// Preflights for the single-method routes; BlobProxyCORS answers them
		for _, pattern := range []string{"/api/list-blobs", "/api/head-blob", "/api/put-json", "/blobs/*"} {
			r.Options(pattern, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		}
	})

	// API v1 routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(rt.authMiddleware.RequireAPIKey)

			r.Route("/fiscales", func(r chi.Router) {
				r.Get("/", rt.fiscalHandler.List)
				r.Post("/import", rt.fiscalHandler.Import)
				r.Get("/{uid}", rt.fiscalHandler.Get)
			})
		})
	})

	return r
}

func (rt *Router) ready(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	allHealthy := true

	if rt.db != nil {
		if err := database.HealthCheck(r.Context(), rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}
	}

	if rt.storageConfigured {
		checks["storage"] = map[string]interface{}{
			"status": "healthy",
		}
	} else {
		checks["storage"] = map[string]interface{}{
			"status": "unhealthy",
			"error":  "Blob Storage not configured",
		}
		allHealthy = false
	}

	status := "healthy"
	code := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
