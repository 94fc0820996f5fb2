// Package bootstrap assemble le moteur de synchro à partir de la configuration.
// La CLI et le serveur partagent ce câblage.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/adapters/jsoncatalog"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/app"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/config"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/metrics"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/probe"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/streampath"
)

type Runtime struct {
	Config config.Config
	Logger zerolog.Logger

	DB       *sqlite.DB
	Store    ports.CatalogStore
	Bus      *memorybus.Bus
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Health   *probe.Health
	Prober   *probe.HTTPProber
	Limiter  *app.DynamicLimiter

	Sync          *app.SyncService
	Catalog       *app.CatalogService
	Settings      *app.SettingsService
	Notifications *app.NotificationService
	Jobs          *app.JobService
	JobsRepo      *sqlite.JobsRepository
	NotifRepo     *sqlite.NotificationsRepository
}

// Open ouvre la base, choisit le stockage du catalogue et applique les
// réglages persistés (concurrence, débit des sondes).
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Runtime, error) {
	db, err := sqlite.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", cfg.Database.Path, err)
	}

	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Bus:      memorybus.NewWithOptions(memorybus.Options{Logger: logger.With().Str("component", "bus").Logger()}),
		Registry: prometheus.NewRegistry(),
		Health:   probe.NewHealth(cfg.Probe.HealthThreshold),
	}
	rt.Metrics = metrics.New(rt.Registry)
	rt.Store = catalogStore(cfg, logger, db)

	def := domain.DefaultSettings()
	codec := streampath.NewCodec(cfg.CDN.BaseURL, cfg.CDN.WrapperURL)
	rt.Prober = probe.NewHTTPProber(logger.With().Str("component", "probe").Logger(), codec, probe.Options{
		Timeout:         cfg.Probe.Timeout(),
		ProbesPerSecond: def.ProbesPerSecond,
		Target:          probe.Target(cfg.Probe.Target),
		UserAgent:       cfg.Probe.UserAgent,
	}, rt.Health, rt.Metrics)
	rt.Limiter = app.NewDynamicLimiter(def.MaxConcurrentShows)

	engine := app.NewProgressionEngine(logger.With().Str("component", "engine").Logger(), rt.Prober, codec)
	rt.Sync = app.NewSyncService(logger.With().Str("component", "sync").Logger(), rt.Store, engine, rt.Limiter, rt.Bus, rt.Metrics)
	rt.Catalog = app.NewCatalogService(rt.Store)

	rt.JobsRepo = sqlite.NewJobsRepository(db.SQL)
	rt.NotifRepo = sqlite.NewNotificationsRepository(db.SQL)
	rt.Jobs = app.NewJobService(rt.JobsRepo, rt.Bus)
	rt.Notifications = app.NewNotificationService(rt.NotifRepo)

	rt.Settings = app.NewSettingsService(sqlite.NewSettingsRepository(db.SQL))
	rt.Settings.OnChange(func(s domain.Settings) {
		rt.Limiter.SetLimit(s.MaxConcurrentShows)
		rt.Prober.SetRate(s.ProbesPerSecond)
	})
	if _, err := rt.Settings.Apply(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return rt, nil
}

func catalogStore(cfg config.Config, logger zerolog.Logger, db *sqlite.DB) ports.CatalogStore {
	if cfg.Catalog.Backend == config.BackendSQLite {
		return sqlite.NewCatalogRepository(db.SQL)
	}
	return jsoncatalog.New(logger.With().Str("component", "catalog").Logger(), cfg.Catalog.Path, jsoncatalog.Options{MirrorDir: cfg.Catalog.MirrorDir})
}

func (rt *Runtime) Close() error {
	rt.Bus.Close()
	return rt.DB.Close()
}
