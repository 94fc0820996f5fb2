package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/app"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/bootstrap"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/buildinfo"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/config"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "Fichier de configuration YAML (défaut: $AVS_CONFIG)")
	addr := flag.String("addr", "", "Adresse d'écoute (défaut: server.addr, ex: 127.0.0.1:8080)")
	dbPath := flag.String("db", "", "Chemin SQLite (défaut: database.path)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger, closeLog := logging.New(logging.Options{
		App:        "avs-server",
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer func() { _ = closeLog() }()
	log.Logger = logger

	logger.Info().
		Interface("build", buildinfo.Current()).
		Str("db", cfg.Database.Path).
		Str("catalog_backend", cfg.Catalog.Backend).
		Str("catalog", cfg.Catalog.Path).
		Str("probe_target", cfg.Probe.Target).
		Msg("starting")

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Open(shutdownCtx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open runtime")
	}
	defer func() { _ = rt.Close() }()

	rt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Enregistre les épisodes découverts avant toute passe.
	recorder := app.NewNotificationRecorder(logger.With().Str("component", "notifications").Logger(), rt.Bus, rt.NotifRepo)
	recorderDone := recorder.Start(shutdownCtx)

	if n, err := rt.Jobs.RecoverInterrupted(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("failed to recover interrupted runs")
	} else if n > 0 {
		logger.Warn().Int("runs", n).Msg("interrupted runs marked failed")
	}

	pool := app.NewWorkerPool(shutdownCtx, logger.With().Str("component", "worker").Logger(), rt.JobsRepo, rt.Bus, app.NewExecutorRegistry(rt.Sync), app.DefaultWorkerOptions()).
		WithMetrics(rt.Metrics)
	defer pool.Close()
	rt.Settings.OnChange(func(updated domain.Settings) {
		pool.SetCount(updated.MaxWorkers)
	})
	current, err := rt.Settings.Apply(shutdownCtx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to apply settings")
	}
	logger.Info().
		Int("workers", pool.Count()).
		Int("max_concurrent_shows", current.MaxConcurrentShows).
		Float64("probes_per_second", current.ProbesPerSecond).
		Int("sync_interval_minutes", current.SyncIntervalMinutes).
		Msg("settings applied")

	scheduler := app.NewSyncScheduler(logger.With().Str("component", "scheduler").Logger(), rt.Jobs, rt.JobsRepo, rt.Settings).
		WithMetrics(rt.Metrics)
	go scheduler.Run(shutdownCtx)

	srv := httpapi.NewServer(logger, httpapi.Deps{
		Jobs:          rt.Jobs,
		Catalog:       rt.Catalog,
		Notifications: rt.Notifications,
		Settings:      rt.Settings,
		Bus:           rt.Bus,
		Health:        rt.Health,
		Metrics:       promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{}),
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	pool.Close()
	<-recorderDone
	logger.Info().Msg("bye")
}
