package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/metrics"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
)

// SyncScheduler met en file une passe live toutes les syncIntervalMinutes.
// Il ne crée jamais de doublon: une passe déjà en attente ou en cours suffit.
// À chaque tick il purge aussi les passes terminées plus vieilles que Retention.
type SyncScheduler struct {
	logger   zerolog.Logger
	jobs     *JobService
	repo     ports.JobRepository
	settings ports.SettingsRepository
	metrics  *metrics.Metrics
	now      func() time.Time

	TickInterval time.Duration
	// Retention <= 0 désactive la purge.
	Retention time.Duration

	lastEnqueued time.Time
}

func NewSyncScheduler(logger zerolog.Logger, jobs *JobService, repo ports.JobRepository, settings ports.SettingsRepository) *SyncScheduler {
	return &SyncScheduler{
		logger:       logger,
		jobs:         jobs,
		repo:         repo,
		settings:     settings,
		now:          time.Now,
		TickInterval: 30 * time.Second,
		Retention:    30 * 24 * time.Hour,
	}
}

func (sch *SyncScheduler) Run(ctx context.Context) {
	interval := sch.TickInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sch.logger.Info().Msg("sync scheduler stopped")
			return
		case <-ticker.C:
			sch.prune(ctx)
			sch.tick(ctx)
		}
	}
}

// WithMetrics compte les passes purgées.
func (sch *SyncScheduler) WithMetrics(m *metrics.Metrics) *SyncScheduler {
	sch.metrics = m
	return sch
}

// tick renvoie true si une passe a été mise en file.
func (sch *SyncScheduler) tick(ctx context.Context) bool {
	if sch.jobs == nil || sch.repo == nil || sch.settings == nil {
		return false
	}
	s, err := sch.settings.Get(ctx)
	if err != nil {
		sch.logger.Error().Err(err).Msg("scheduler settings read failed")
		return false
	}
	if s.SyncIntervalMinutes <= 0 {
		return false
	}

	now := sch.now()
	every := time.Duration(s.SyncIntervalMinutes) * time.Minute
	if !sch.lastEnqueued.IsZero() && now.Sub(sch.lastEnqueued) < every {
		return false
	}

	pending, err := sch.repo.HasPending(ctx, domain.JobTypeSync)
	if err != nil {
		sch.logger.Error().Err(err).Msg("scheduler pending query failed")
		return false
	}
	if pending {
		return false
	}

	job, err := sch.jobs.Enqueue(ctx, PassOptions{OngoingOnly: s.OngoingOnly})
	if err != nil {
		sch.logger.Warn().Err(err).Msg("scheduled sync enqueue failed")
		return false
	}
	sch.lastEnqueued = now
	sch.logger.Info().Str("job_id", job.ID).Int("interval_minutes", s.SyncIntervalMinutes).Msg("scheduled sync enqueued")
	return true
}

// prune renvoie le nombre de passes effacées.
func (sch *SyncScheduler) prune(ctx context.Context) int {
	if sch.repo == nil || sch.Retention <= 0 {
		return 0
	}
	n, err := sch.repo.PruneFinished(ctx, sch.now().Add(-sch.Retention))
	if err != nil {
		sch.logger.Warn().Err(err).Msg("sync run pruning failed")
		return 0
	}
	sch.metrics.RunsPrunedAdd(n)
	if n > 0 {
		sch.logger.Debug().Int("pruned", n).Dur("retention", sch.Retention).Msg("old sync runs pruned")
	}
	return n
}
