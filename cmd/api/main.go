package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/event-api/internal/config"
	"github.com/jwalitptl/event-api/internal/email"
	"github.com/jwalitptl/event-api/internal/handler"
	authHandler "github.com/jwalitptl/event-api/internal/handler/auth"
	eventHandler "github.com/jwalitptl/event-api/internal/handler/event"
	invitationHandler "github.com/jwalitptl/event-api/internal/handler/invitation"
	joinHandler "github.com/jwalitptl/event-api/internal/handler/join"
	settingsHandler "github.com/jwalitptl/event-api/internal/handler/settings"
	"github.com/jwalitptl/event-api/internal/middleware"
	"github.com/jwalitptl/event-api/internal/model"
	"github.com/jwalitptl/event-api/internal/repository/postgres"
	"github.com/jwalitptl/event-api/internal/router"
	authService "github.com/jwalitptl/event-api/internal/service/auth"
	"github.com/jwalitptl/event-api/internal/service/dispatch"
	eventService "github.com/jwalitptl/event-api/internal/service/event"
	"github.com/jwalitptl/event-api/internal/service/invite"
	"github.com/jwalitptl/event-api/pkg/logger"
	"github.com/jwalitptl/event-api/pkg/messaging/redis"
	"github.com/jwalitptl/event-api/pkg/metrics"
	"github.com/jwalitptl/event-api/pkg/security"
	"github.com/jwalitptl/event-api/pkg/validator"
	"github.com/jwalitptl/event-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	if err := validator.RegisterCustom(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Deployment config seeds the dispatch settings until an operator
	// saves an override.
	settingsDefaults := model.DispatchSettings{
		SMTPEnabled:   cfg.SMTP.Enabled,
		SMTPHost:      cfg.SMTP.Host,
		SMTPPort:      cfg.SMTP.Port,
		SMTPUser:      cfg.SMTP.User,
		SMTPPassword:  cfg.SMTP.Password,
		SenderEmail:   cfg.SMTP.From,
		HourlyCeiling: cfg.Dispatch.HourlyCeiling,
		DailyCeiling:  cfg.Dispatch.DailyCeiling,
	}

	base := postgres.NewBaseRepository(db)
	eventRepo := postgres.NewEventRepository(base)
	invitationRepo := postgres.NewInvitationRepository(base)
	dispatchRepo := postgres.NewDispatchRepository(base)
	settingsRepo := postgres.NewSettingsRepository(base, settingsDefaults)
	operatorRepo := postgres.NewOperatorRepository(base)

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

	appMetrics := metrics.NewMetrics("eventapi", prometheus.DefaultRegisterer)

	eventSvc := eventService.NewService(eventRepo, cfg.Dispatch.JoinCacheTTL, cfg.Dispatch.JoinCacheSweep)
	inviteSvc := invite.NewService(invitationRepo)
	authSvc := authService.NewService(operatorRepo, security.NewBcryptHasher(0), cfg.JWT)
	quota := dispatch.NewQuotaLedger(dispatchRepo, settingsRepo)
	sender := email.NewGomailSender(cfg.SMTP.Timeout)

	dispatchSvc := dispatch.NewService(
		eventSvc,
		inviteSvc,
		dispatchRepo,
		settingsRepo,
		quota,
		sender,
		broker,
		appLogger,
		appMetrics,
		dispatch.Config{
			JoinBaseURL: cfg.Dispatch.JoinBaseURL,
			LogPageSize: cfg.Dispatch.LogPageSize,
		},
	)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	h := handler.NewHandler(db)
	authH := authHandler.NewHandler(authSvc)
	eventH := eventHandler.NewHandler(eventSvc)
	invitationH := invitationHandler.NewHandler(dispatchSvc, inviteSvc)
	joinH := joinHandler.NewHandler(dispatchSvc)
	settingsH := settingsHandler.NewHandler(settingsRepo)

	r := router.NewRouter(
		authMiddleware,
		authH,
		eventH,
		invitationH,
		joinH,
		settingsH,
		h,
		router.Config{
			RateLimitOn:   cfg.RateLimit.Enabled,
			RateLimitRPS:  cfg.RateLimit.RequestsPerSecond,
			RateBurst:     cfg.RateLimit.Burst,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "eventapi_http",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	retention := worker.NewRetentionWorker(
		dispatchRepo,
		cfg.Dispatch.RetentionDays,
		cfg.Dispatch.CleanupEvery,
		appLogger,
		appMetrics,
	)
	go retention.Start(ctx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
