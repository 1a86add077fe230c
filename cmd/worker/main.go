package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/medcore/records-api/internal/config"
	"github.com/medcore/records-api/internal/email"
	"github.com/medcore/records-api/internal/model"
	"github.com/medcore/records-api/internal/repository/postgres"
	"github.com/medcore/records-api/pkg/logger"
	"github.com/medcore/records-api/pkg/messaging"
	"github.com/medcore/records-api/pkg/messaging/redis"
	"github.com/medcore/records-api/pkg/metrics"
	"github.com/medcore/records-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &appLogger.ZL)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	baseRepo := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	workerMetrics := metrics.New("records_worker")
	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
		},
		appLogger,
		workerMetrics,
	)

	emailSvc := email.NewSMTPService(cfg.SMTP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startHealthServer(appLogger)

	go consumePatientInfoEvents(ctx, broker, emailSvc, workerMetrics, appLogger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down worker")
		cancel()
	}()

	processor.Start(ctx)
}

// consumePatientInfoEvents drains the info-request channel and sends one
// email per event. A failed send is logged and dropped, not retried; the
// physician can request the send again.
func consumePatientInfoEvents(ctx context.Context, broker messaging.Broker,
	emailSvc email.Service, m *metrics.Metrics, appLogger *logger.Logger) {
	msgs, err := broker.Subscribe(ctx, model.EventPatientInfoRequested)
	if err != nil {
		appLogger.Fatal(err, "failed to subscribe to patient info events")
	}

	for msg := range msgs {
		var event model.PatientInfoEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			appLogger.Error(err, "failed to decode patient info event")
			continue
		}

		if err := emailSvc.SendPatientInfo(&event); err != nil {
			m.NotificationsFailed.Inc()
			appLogger.Error(err, "failed to send patient info email",
				"patient_id", event.Patient.ID)
			continue
		}
		m.NotificationsSent.Inc()
	}
}

func startHealthServer(appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			appLogger.ZL.Error().Err(err).Msg("health server failed")
			os.Exit(1)
		}
	}()
}
