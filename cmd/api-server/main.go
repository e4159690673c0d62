package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sonrisadental/booking-api/internal/api"
	"github.com/sonrisadental/booking-api/internal/appointment"
	"github.com/sonrisadental/booking-api/internal/calendar"
	"github.com/sonrisadental/booking-api/internal/config"
	"github.com/sonrisadental/booking-api/internal/db"
	"github.com/sonrisadental/booking-api/internal/logger"
	"github.com/sonrisadental/booking-api/internal/metrics"
	redisclient "github.com/sonrisadental/booking-api/internal/redis"
	"github.com/sonrisadental/booking-api/internal/sms"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic("logger init error: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}()
	log.Info("connected to Redis")

	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		log.Fatal("invalid clinic timezone", zap.Error(err))
	}

	// Collaborators degrade to noops when unconfigured so local
	// development needs no external accounts.
	var calClient calendar.Client = calendar.Noop{}
	if cfg.GoogleCredentialsFile != "" {
		gc, err := calendar.NewGoogleClient(rootCtx, cfg.GoogleCredentialsFile, cfg.GoogleCalendarID)
		if err != nil {
			log.Fatal("google calendar init error", zap.Error(err))
		}
		calClient = gc
		log.Info("google calendar integration enabled", zap.String("calendar_id", cfg.GoogleCalendarID))
	} else {
		log.Warn("GOOGLE_CREDENTIALS_FILE not set, calendar integration is a noop")
	}

	var smsSender sms.Sender = sms.Noop{}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		smsSender = sms.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom, log)
		log.Info("twilio sms integration enabled")
	} else {
		log.Warn("twilio credentials not set, sms integration is a noop")
	}

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	repo := appointment.NewPgRepository(pgPool)
	cache := redisclient.NewSlotCache(rdb, cfg.OccupiedCacheTTL, log)

	svc := appointment.NewService(appointment.ServiceConfig{
		Repo:               repo,
		Calendar:           calClient,
		SMS:                smsSender,
		Cache:              cache,
		Metrics:            bookingMetrics,
		Logger:             log,
		Location:           loc,
		ClinicPhone:        cfg.ClinicPhone,
		IntegrationTimeout: cfg.IntegrationTimeout,
	})

	router := api.NewRouter(api.RouterConfig{
		Service:    svc,
		PgPool:     pgPool,
		Redis:      rdb,
		Logger:     log,
		Prometheus: registry,
		Env:        cfg.Env,
		Version:    version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
}
