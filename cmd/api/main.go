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

	"github.com/clinexa/booking-api/internal/config"
	appointmentHandler "github.com/clinexa/booking-api/internal/handler/appointment"
	authHandler "github.com/clinexa/booking-api/internal/handler/auth"
	clinicHandler "github.com/clinexa/booking-api/internal/handler/clinic"
	patientHandler "github.com/clinexa/booking-api/internal/handler/patient"
	"github.com/clinexa/booking-api/internal/middleware"
	"github.com/clinexa/booking-api/internal/repository/postgres"
	"github.com/clinexa/booking-api/internal/router"
	appointmentService "github.com/clinexa/booking-api/internal/service/appointment"
	authService "github.com/clinexa/booking-api/internal/service/auth"
	clinicService "github.com/clinexa/booking-api/internal/service/clinic"
	eventService "github.com/clinexa/booking-api/internal/service/event"
	notificationService "github.com/clinexa/booking-api/internal/service/notification"
	patientService "github.com/clinexa/booking-api/internal/service/patient"
	"github.com/clinexa/booking-api/pkg/auth"
	"github.com/clinexa/booking-api/pkg/logger"
	"github.com/clinexa/booking-api/pkg/metrics"
	"github.com/clinexa/booking-api/pkg/security"
	"github.com/clinexa/booking-api/pkg/validator"
)

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

	if err := validator.RegisterCustom(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	m := metrics.NewMetrics("clinexa", "booking")

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	clinicRepo := postgres.NewClinicRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	tokens := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer,
		time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	hasher := security.NewBcryptHasher(0)
	eventSvc := eventService.NewService(outboxRepo)
	notifSvc := notificationService.NewService(notificationRepo, appLogger)
	authSvc := authService.NewService(userRepo, patientRepo, hasher, tokens, eventSvc)
	clinicSvc := clinicService.NewService(clinicRepo, doctorRepo)
	patientSvc := patientService.NewService(patientRepo, userRepo)
	appointmentSvc := appointmentService.NewService(
		appointmentRepo, patientRepo, doctorRepo, clinicSvc, notifSvc, eventSvc, m)

	// HTTP surface
	authMiddleware := middleware.NewAuthMiddleware(tokens)
	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		clinicHandler.NewHandler(clinicSvc, doctorRepo),
		appointmentHandler.NewHandler(appointmentSvc),
		patientHandler.NewHandler(patientSvc, notifSvc),
		db,
		m,
		router.Config{
			RateLimit:  rate.Limit(cfg.Server.RateLimit),
			RateBurst:  cfg.Server.RateBurst,
			CORSConfig: middleware.DefaultCORSConfig(),
			Timeout: middleware.TimeoutConfig{
				Duration: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			},
		},
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Setup(),
	}

	go func() {
		appLogger.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info("Server exited")
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
