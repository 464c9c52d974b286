// cmd/crm-gateway/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crm-gateway/internal/auth"
	"crm-gateway/internal/common/config"
	"crm-gateway/internal/common/database"
	apperrors "crm-gateway/internal/common/errors"
	"crm-gateway/internal/common/hubspot"
	"crm-gateway/internal/common/logger"
	"crm-gateway/internal/common/observability"
	"crm-gateway/internal/handlers"
	"crm-gateway/internal/middleware"
	"crm-gateway/internal/repository"
	"crm-gateway/internal/routes"
	"crm-gateway/internal/services"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting CRM gateway...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	var obs *observability.Observability
	if cfg.Observability.MetricsEnabled {
		obs, err = observability.New(cfg.Observability.ServiceName, nil)
		if err != nil {
			zapLog.Fatal("observability init failed", zap.Error(err))
		}
		defer obs.Shutdown(ctx)
	}

	readiness := map[string]handlers.Check{}

	// --- User repository ---
	var users repository.UserRepository
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		if err := pg.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("schema setup failed", zap.Error(err))
		}
		zapLog.Info("PostgreSQL connected successfully")

		users = repository.NewPostgresUserRepository(pg.DB)
		readiness["database"] = pg.Ping
	default:
		zapLog.Warn("Using in-memory user repository; accounts are lost on restart")
		users = repository.NewMemoryUserRepository()
	}

	// --- CRM token store ---
	var tokenStore hubspot.TokenStore = hubspot.NewMemoryTokenStore()
	if cfg.HubSpot.TokenStore == config.TokenStoreRedis {
		rdb := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		zapLog.Info("Redis connected successfully")

		tokenStore = hubspot.NewRedisTokenStore(rdb.Client)
		readiness["redis"] = rdb.Ping
	}

	// --- CRM client ---
	crmClient, err := hubspot.New(ctx, cfg.HubSpot,
		hubspot.WithTokenStore(tokenStore),
		hubspot.WithLogger(log),
		hubspot.WithObservability(obs),
	)
	if err != nil {
		zapLog.Fatal("CRM client initialization failed", zap.Error(err))
	}
	readiness["crm"] = crmClient.TestConnection
	zapLog.Info("CRM client initialized")

	// --- Services & handlers ---
	errs := apperrors.NewErrorHandler(log)

	authService := auth.NewService(
		users,
		auth.NewHasher(cfg.Auth.BcryptCost),
		auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenLifetime()),
		log,
	)

	crm := services.New(services.ServiceDependencies{
		CRM:              crmClient,
		Logger:           log,
		Observability:    obs,
		RateLimitRetries: cfg.HubSpot.RateLimitRetries,
	})

	router := routes.NewRouter(routes.Dependencies{
		Auth:         handlers.NewAuthHandler(authService, errs),
		CRM:          handlers.NewCRMHandler(crm.Contacts, crm.Deals, crm.Tickets, crm, errs),
		Health:       handlers.NewHealthHandler(readiness, log),
		Authenticate: middleware.Authenticate(authService, errs),
		Logger:       log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutting down CRM gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}

	zapLog.Info("CRM gateway stopped")
}
