package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RaikyD/backoffice-dashboard/internal/application"
	"github.com/RaikyD/backoffice-dashboard/internal/config"
	"github.com/RaikyD/backoffice-dashboard/internal/kafka"
	"github.com/RaikyD/backoffice-dashboard/internal/listview"
	"github.com/RaikyD/backoffice-dashboard/internal/logger"
	"github.com/RaikyD/backoffice-dashboard/internal/migrate"
	"github.com/RaikyD/backoffice-dashboard/internal/presentation"
	"github.com/RaikyD/backoffice-dashboard/internal/remote"
	"github.com/RaikyD/backoffice-dashboard/internal/repository"
)

func main() {
	// Defaults until the config says otherwise.
	logger.Init("info", "console")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warn("config load failed", "err", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Init(cfg.LOG_LEVEL, cfg.LOG_FORMAT)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := remote.NewClient(cfg.API_BASE_URL, remote.WithTimeout(cfg.HTTP_CLIENT_TIMEOUT))
	if err != nil {
		logger.Warn("remote client init failed", "err", err)
		os.Exit(1)
	}

	opts := application.Options{
		PageSize:        cfg.PAGE_SIZE,
		LoadErrorPolicy: listview.ClearOnError,
		StaleLoadGuard:  cfg.STALE_LOAD_GUARD,
		SnapshotKeep:    cfg.SNAPSHOT_KEEP,
		InstanceID:      cfg.INSTANCE_ID,
	}
	if cfg.LOAD_ERROR_POLICY == "keep" {
		opts.LoadErrorPolicy = listview.KeepOnError
	}

	// Snapshot store is optional; without it the cache starts empty.
	if cfg.DB_STRING != "" {
		if err := migrate.Up(ctx, cfg.DB_STRING); err != nil {
			logger.Warn("migrations failed", "err", err)
			os.Exit(1)
		}
		pool, err := pgxpool.New(ctx, cfg.DB_STRING)
		if err != nil {
			logger.Warn("pgxpool new failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Warn("db ping failed", "err", err)
			os.Exit(1)
		}
		logger.Info("db connected")
		opts.Snapshots = repository.NewSnapshotRepository(pool)
	}

	var prod *kafka.Producer
	if cfg.KAFKA_BROKERS != "" {
		prod = kafka.NewProducer(cfg.KAFKA_BROKERS, cfg.KAFKA_TOPIC)
		defer prod.Close()
		opts.Events = prod
	}

	svc, err := application.NewDashboard(client, opts)
	if err != nil {
		logger.Warn("dashboard init failed", "err", err)
		os.Exit(1)
	}

	if err := svc.RestoreCache(ctx); err != nil {
		logger.Warn("restore cache failed", "err", err)
	}

	if cfg.API_EMAIL != "" {
		if err := client.Login(ctx, cfg.API_EMAIL, cfg.API_PASSWORD); err != nil {
			logger.Warn("remote login failed; waiting for browser login", "err", err)
		} else if err := svc.LoadAll(ctx); err != nil {
			logger.Warn("initial load incomplete", "err", err)
		}
	}

	if prod != nil {
		_, _ = kafka.StartConsumer(ctx, svc, kafka.ConsumerConfig{
			Brokers: cfg.KAFKA_BROKERS,
			Topic:   cfg.KAFKA_TOPIC,
			GroupID: cfg.KAFKA_GROUP_ID,
		})
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	h := presentation.NewDashboardHandler(svc, client)
	h.Register(r)

	presentation.MountStatic(r)

	srv := &http.Server{Addr: ":" + cfg.HTTP_PORT, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting http", "addr", srv.Addr, "api", cfg.API_BASE_URL, "instance", cfg.INSTANCE_ID)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("http server crashed", "err", err)
		os.Exit(1)
	}
}
