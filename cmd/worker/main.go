package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/clinexa/booking-api/internal/config"
	"github.com/clinexa/booking-api/internal/email"
	"github.com/clinexa/booking-api/internal/repository/postgres"
	eventService "github.com/clinexa/booking-api/internal/service/event"
	notificationService "github.com/clinexa/booking-api/internal/service/notification"
	"github.com/clinexa/booking-api/internal/worker"
	"github.com/clinexa/booking-api/pkg/logger"
	"github.com/clinexa/booking-api/pkg/messaging/redis"
	"github.com/clinexa/booking-api/pkg/metrics"
	pkgworker "github.com/clinexa/booking-api/pkg/worker"
)

const outboxCleanupInterval = time.Hour

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := newLogger(cfg.Logging)

	db, err := postgres.NewDB(postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Name:         cfg.Database.Name,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxLifetime:  cfg.Database.MaxLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
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
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("clinexa", "worker")

	appointmentRepo := postgres.NewAppointmentRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	userRepo := postgres.NewUserRepository(db)
	clinicRepo := postgres.NewClinicRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	eventSvc := eventService.NewService(outboxRepo)
	notifSvc := notificationService.NewService(notificationRepo, appLogger)
	emailSvc := email.NewSMTPService(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, appLogger)

	outboxProcessor := pkgworker.NewOutboxProcessor(outboxRepo, broker,
		pkgworker.OutboxProcessorConfig{
			BatchSize:    cfg.Outbox.BatchSize,
			PollInterval: cfg.Outbox.PollInterval,
			MaxRetries:   cfg.Outbox.MaxRetries,
		}, appLogger, m)

	reminderWorker := worker.NewReminderWorker(
		appointmentRepo, patientRepo, userRepo, clinicRepo,
		emailSvc, notifSvc, eventSvc,
		time.Duration(cfg.Scheduling.ReminderLeadMinutes)*time.Minute,
		cfg.Scheduling.ReminderInterval,
		appLogger, m)

	mailer := worker.NewMailer(broker, patientRepo, userRepo, clinicRepo, emailSvc, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go outboxProcessor.Start(ctx)
	go reminderWorker.Start(ctx)
	if err := mailer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start mailer")
	}
	go cleanupLoop(ctx, eventSvc, appLogger)
	go serveHealth(cfg.Server.WorkerPort, db, appLogger)

	appLogger.Info("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Worker shutting down")
	cancel()
}

func newLogger(cfg config.LoggingConfig) *logger.Logger {
	level := logger.InfoLevel
	switch cfg.Level {
	case "debug":
		level = logger.DebugLevel
	case "warn":
		level = logger.WarnLevel
	case "error":
		level = logger.ErrorLevel
	}
	return logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Pretty,
	})
}

// serveHealth exposes liveness, readiness and metrics for the worker
// process.
func serveHealth(port int, db *sqlx.DB, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		appLogger.Error(err, "Worker health server stopped")
	}
}

func cleanupLoop(ctx context.Context, eventSvc *eventService.Service, appLogger *logger.Logger) {
	ticker := time.NewTicker(outboxCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := eventSvc.CleanupProcessedEvents(ctx)
			if err != nil {
				appLogger.Error(err, "Outbox cleanup failed")
				continue
			}
			if deleted > 0 {
				appLogger.Info("Outbox cleanup done", "deleted", deleted)
			}
		}
	}
}
