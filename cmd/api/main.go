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

	"github.com/sarops/incident-api/config"
	"github.com/sarops/incident-api/internal/email"
	authHandler "github.com/sarops/incident-api/internal/handler/auth"
	credentialHandler "github.com/sarops/incident-api/internal/handler/credential"
	healthHandler "github.com/sarops/incident-api/internal/handler/health"
	incidentHandler "github.com/sarops/incident-api/internal/handler/incident"
	registrationHandler "github.com/sarops/incident-api/internal/handler/registration"
	"github.com/sarops/incident-api/internal/middleware"
	"github.com/sarops/incident-api/internal/repository/postgres"
	"github.com/sarops/incident-api/internal/router"
	auditService "github.com/sarops/incident-api/internal/service/audit"
	authService "github.com/sarops/incident-api/internal/service/auth"
	credentialService "github.com/sarops/incident-api/internal/service/credential"
	enrollmentService "github.com/sarops/incident-api/internal/service/enrollment"
	incidentService "github.com/sarops/incident-api/internal/service/incident"
	registrationService "github.com/sarops/incident-api/internal/service/registration"
	rosterService "github.com/sarops/incident-api/internal/service/roster"
	pkgauth "github.com/sarops/incident-api/pkg/auth"
	"github.com/sarops/incident-api/pkg/logger"
	"github.com/sarops/incident-api/pkg/messaging/redis"
	"github.com/sarops/incident-api/pkg/metrics"
	"github.com/sarops/incident-api/pkg/security"
	"github.com/sarops/incident-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	incidentRepo := postgres.NewIncidentRepository(base)
	credentialRepo := postgres.NewCredentialRepository(base)
	personnelRepo := postgres.NewPersonnelRepository(base)
	operatorRepo := postgres.NewOperatorRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)
	auditRepo := postgres.NewAuditRepository(base)

	m := metrics.NewMetrics("incident_api", "core")

	auditor := auditService.NewService(auditRepo, appLogger)
	presenter := credentialService.NewPresenter(cfg.Registration.BaseURL)
	credentialSvc := credentialService.NewService(
		credentialRepo,
		outboxRepo,
		auditor,
		presenter,
		m,
		time.Duration(cfg.Registration.DefaultValidHours)*time.Hour,
	)

	emailSvc := email.NewSMTPService(email.Config{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		From:        cfg.SMTP.From,
		Coordinator: cfg.SMTP.Coordinator,
	}, appLogger)

	sessions := enrollmentService.NewManager(cfg.Registration.SessionTTL, 10*time.Minute, m)
	submitter := enrollmentService.NewStoreSubmitter(credentialSvc)
	enrollmentSvc := enrollmentService.NewService(sessions, submitter, emailSvc, m, appLogger)

	gateway := registrationService.NewService(credentialSvc, incidentRepo, sessions)
	incidentSvc := incidentService.NewService(incidentRepo)
	rosterSvc := rosterService.NewService(personnelRepo, auditor)

	tokens := pkgauth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	hasher := security.NewBcryptHasher(0)
	authSvc := authService.NewService(operatorRepo, tokens, hasher)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		credentialHandler.NewHandler(credentialSvc, presenter, emailSvc),
		incidentHandler.NewHandler(incidentSvc, rosterSvc, auditor),
		registrationHandler.NewHandler(gateway, enrollmentSvc),
		healthHandler.NewHandler(db),
		router.RouterConfig{
			RateLimit:       rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:       cfg.RateLimit.Burst,
			PublicRateLimit: rate.Limit(cfg.RateLimit.PublicRequestsPerSecond),
			PublicRateBurst: cfg.RateLimit.PublicBurst,
			CORSConfig:      middleware.DefaultCORSConfig(),
			MetricsPrefix:   "incident_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	broker, err := redis.NewRedisBroker(redis.Config{URL: cfg.Redis.URL}, appLogger.Zerolog())
	if err != nil {
		// The API stays up without the broker; events accumulate in the
		// outbox until a worker drains them.
		appLogger.Error(err, "failed to connect to Redis, outbox processing disabled")
	} else {
		defer broker.Close()
		processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
		}, appLogger, m)
		go processor.Start(workerCtx)
	}

	cleanup := worker.NewOutboxCleanupWorker(outboxRepo, cfg.Outbox.RetentionDays, time.Hour, appLogger)
	go cleanup.Start(workerCtx)

	go func() {
		appLogger.Info(fmt.Sprintf("listening on :%d", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server...")
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}
