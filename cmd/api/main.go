package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/medcore/records-api/internal/config"
	authHandler "github.com/medcore/records-api/internal/handler/auth"
	healthHandler "github.com/medcore/records-api/internal/handler/health"
	patientHandler "github.com/medcore/records-api/internal/handler/patient"
	physicianHandler "github.com/medcore/records-api/internal/handler/physician"
	"github.com/medcore/records-api/internal/middleware"
	"github.com/medcore/records-api/internal/repository/postgres"
	"github.com/medcore/records-api/internal/router"
	authService "github.com/medcore/records-api/internal/service/auth"
	"github.com/medcore/records-api/internal/service/notification"
	patientService "github.com/medcore/records-api/internal/service/patient"
	"github.com/medcore/records-api/internal/service/policy"
	"github.com/medcore/records-api/pkg/auth"
	"github.com/medcore/records-api/pkg/logger"
	"github.com/medcore/records-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	baseRepo := postgres.NewBaseRepository(db)
	physicianRepo := postgres.NewPhysicianRepository(baseRepo)
	patientRepo := postgres.NewPatientRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessExpiry:  cfg.JWT.AccessExpiry(),
		RefreshExpiry: cfg.JWT.RefreshExpiry(),
	})
	hasher := security.NewBcryptHasher(0)

	authSvc := authService.NewService(physicianRepo, jwtSvc, hasher, appLogger)
	notifier := notification.NewService(outboxRepo, appLogger)
	patientSvc := patientService.NewService(patientRepo, policy.New(), notifier, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	r := router.NewRouter(authMiddleware, router.Config{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		RequestTimeout:   cfg.Server.RequestTimeout,
		CORSConfig:       middleware.DefaultCORSConfig(),
		MetricsPrefix:    "records_api",
	})

	r.Setup(
		[]router.Handler{
			healthHandler.NewHandler(db),
			authHandler.NewHandler(authSvc),
		},
		[]router.Handler{
			physicianHandler.NewHandler(),
			patientHandler.NewHandler(patientSvc),
		},
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
