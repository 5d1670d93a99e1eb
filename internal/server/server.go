package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"catalog-api/internal/config"
	custommiddleware "catalog-api/internal/middleware"
	"catalog-api/internal/repository"
	"catalog-api/internal/service"
	"catalog-api/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HealthChecker reports the status of a backing store
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

// Dependencies are the collaborators the HTTP surface is built on
type Dependencies struct {
	Repos repository.Repositories
	Tx    repository.TxManager
	DB    HealthChecker
	Redis *redis.Client
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
	closer func() error
}

// NewRouter wires services and handlers behind the shared middleware stack
func NewRouter(cfg *config.Config, logger *zap.Logger, deps Dependencies) http.Handler {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.IsDevelopment()))

	router.Get("/health", healthHandler(deps))

	categoryService := service.NewCategoryService(deps.Repos, deps.Tx)
	brandService := service.NewBrandService(deps.Repos, deps.Tx)
	productService := service.NewProductService(deps.Repos, deps.Tx)
	reviewService := service.NewReviewService(deps.Repos)

	router.Route("/api/v1", func(r chi.Router) {
		if deps.Redis != nil {
			r.Use(custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.Requests,
				Window:            cfg.RateLimit.Window,
				KeyPrefix:         "catalog_rate_limit",
			}, logger))
		}
		r.Use(custommiddleware.ProtectWrites(cfg.JWT.Secret, cfg.JWT.WriteRoles, logger))
		r.Use(custommiddleware.ValidationMiddleware(logger))

		transport.NewCategoryHandler(categoryService, logger).RegisterRoutes(r)
		transport.NewBrandHandler(brandService, logger).RegisterRoutes(r)
		transport.NewProductHandler(productService, logger).RegisterRoutes(r)
		transport.NewReviewHandler(reviewService, logger).RegisterRoutes(r)
	})

	return router
}

func healthHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]any{"status": "ok"}

		if deps.DB != nil {
			db := deps.DB.Health(r.Context())
			body["database"] = db
			if db["status"] != "up" {
				status = http.StatusServiceUnavailable
			}
		}

		if deps.Redis != nil {
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				body["redis"] = map[string]string{"status": "down", "error": err.Error()}
			} else {
				body["redis"] = map[string]string{"status": "up"}
			}
		}

		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		custommiddleware.RespondWithJSON(w, status, body)
	}
}

// NewServer creates the HTTP server. closer releases the resources behind
// deps when the server is closed.
func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies, closer func() error) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      NewRouter(cfg, logger, deps),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		deps:   deps,
		closer: closer,
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.closer != nil {
		if err := s.closer(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
			return err
		}
	}

	return nil
}
