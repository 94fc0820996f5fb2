package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
)

type WorkerOptions struct {
	PollInterval        time.Duration
	CancelCheckInterval time.Duration
}

func DefaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		PollInterval:        750 * time.Millisecond,
		CancelCheckInterval: 500 * time.Millisecond,
	}
}

type Worker struct {
	logger zerolog.Logger
	repo   ports.JobRepository
	bus    ports.EventBus
	opts   WorkerOptions
	execs  ExecutorRegistry
}

func NewWorker(logger zerolog.Logger, repo ports.JobRepository, bus ports.EventBus, execs ExecutorRegistry, opts WorkerOptions) *Worker {
	def := DefaultWorkerOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.CancelCheckInterval <= 0 {
		opts.CancelCheckInterval = def.CancelCheckInterval
	}
	return &Worker{logger: logger, repo: repo, bus: bus, opts: opts, execs: execs}
}

// RunUntil réserve des passes tant que stop est actif et les exécute sous
// exec. Un stop seul laisse la passe en cours se terminer.
func (w *Worker) RunUntil(stop, exec context.Context) {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop.Done():
			return
		case <-ticker.C:
			if stop.Err() != nil || exec.Err() != nil {
				return
			}
			job, err := w.repo.ClaimNextQueued(stop)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				w.logger.Error().Err(err).Msg("claim next job failed")
				continue
			}

			w.execute(exec, job)
		}
	}
}

func (w *Worker) execute(ctx context.Context, job domain.Job) {
	logger := w.logger.With().Str("job_id", job.ID).Str("type", job.Type).Logger()
	logger.Info().Msg("job claimed")
	PublishJobEvent(w.bus, ports.TopicJobStarted, job)

	// L'état de la passe doit être écrit même si ctx tombe pendant l'exécution.
	store := context.WithoutCancel(ctx)

	isCanceled := func() (bool, error) {
		current, err := w.repo.Get(store, job.ID)
		if err != nil {
			return false, err
		}
		return current.State == domain.JobCanceled, nil
	}

	updateProgress := func(progress float64) error {
		updated, err := w.repo.UpdateProgress(store, job.ID, progress)
		if err != nil {
			return err
		}
		PublishJobEvent(w.bus, ports.TopicJobProgress, updated)
		return nil
	}

	updateResult := func(b []byte) error {
		_, err := w.repo.UpdateResult(store, job.ID, b)
		return err
	}

	exec := w.execs.Get(job.Type)
	err := exec.Execute(ctx, job, ExecEnv{
		UpdateProgress:      updateProgress,
		UpdateResult:        updateResult,
		IsCanceled:          isCanceled,
		CancelCheckInterval: w.opts.CancelCheckInterval,
	})
	if err != nil {
		w.fail(store, logger, job, err)
		return
	}

	canceled, err := isCanceled()
	if err != nil {
		logger.Error().Err(err).Msg("failed to reload job")
		return
	}
	if canceled {
		logger.Info().Msg("job canceled")
		return
	}

	finished, err := w.repo.UpdateState(store, job.ID, domain.JobRunning, domain.JobCompleted)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to mark job completed")
		return
	}
	PublishJobEvent(w.bus, ports.TopicJobCompleted, finished)
	evt := logger.Info()
	if sum, ok := ToJobDTO(finished).Summary(); ok {
		evt = evt.Int("visited", sum.Visited).Int("added", sum.Added).Bool("saved", sum.Saved)
	}
	evt.Msg("job completed")
}

func (w *Worker) fail(ctx context.Context, logger zerolog.Logger, job domain.Job, execErr error) {
	code := CodeOf(execErr)
	logger.Error().Err(execErr).Str("error_code", code).Msg("executor failed")

	if _, err := w.repo.UpdateError(ctx, job.ID, code, execErr.Error()); err != nil {
		logger.Warn().Err(err).Msg("failed to record job error")
	}
	failed, err := w.repo.UpdateState(ctx, job.ID, domain.JobRunning, domain.JobFailed)
	if err != nil {
		// Déjà annulé (ou disparu): rien à publier.
		return
	}
	PublishJobEvent(w.bus, ports.TopicJobFailed, failed)
}
