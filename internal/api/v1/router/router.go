package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Msg("Router initialized")

	// 1. Open DB connection pool
	dsn := cfg.DBConnectionString
	// In a development environment, ensure SSL is disabled for local
	// testing. In production the connection string carries its own SSL
	// settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open DB connection pool")
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 3. Initialize Pub/Sub publisher for billing alerts (optional)
	var publisher pubsub.Publisher
	if cfg.GCPProjectID != "" {
		p, err := pubsub.NewPublisher(ctx, cfg)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create Pub/Sub publisher")
			return nil, nil, err
		}
		publisher = p
	} else {
		logger.Warn().Msg("GCP_PROJECT_ID not set, billing alerts disabled")
	}

	// 4. Initialize repositories & services & handlers
	subRepo := repository.NewSubscriptionRepo(pool)
	paymentRepo := repository.NewPaymentRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)

	subSvc := service.NewSubscriptionService(subRepo, paymentRepo, usageRepo, logger)
	usageSvc := service.NewUsageService(subRepo, usageRepo, logger)
	tossClient := service.NewTossClient(cfg.TossAPIBaseURL, cfg.TossSecretKey, logger)
	paymentSvc := service.NewPaymentService(cfg, tossClient, subSvc, paymentRepo, usageRepo, publisher, logger)
	processingClient := service.NewProcessingClient(cfg.ProcessingServiceBaseURL, time.Duration(cfg.ProcessingRequestTimeoutSec)*time.Second, logger)
	videoSvc := service.NewVideoService(usageSvc, processingClient, logger)

	paymentHandler := handler.NewPaymentHandler(paymentSvc, validate, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(subSvc, logger)
	usageHandler := handler.NewUsageHandler(usageSvc, logger)
	videoHandler := handler.NewVideoHandler(videoSvc, validate, logger)

	// 5. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	// 6. Create ServeMux router
	apiV1Mux := http.NewServeMux()
	paymentHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	usageHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	videoHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	mux := http.NewServeMux()
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// 7. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), pool, nil
}
