package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
)

type JobExecutor interface {
	Execute(ctx context.Context, job domain.Job, env ExecEnv) error
}

type ExecEnv struct {
	UpdateProgress func(progress float64) error
	UpdateResult   func(resultJSON []byte) error
	IsCanceled     func() (bool, error)
	// CancelCheckInterval: fréquence de relecture de l'état du job pendant l'exécution.
	CancelCheckInterval time.Duration
}

// PassRunner est ce dont un executor a besoin pour lancer une passe.
type PassRunner interface {
	RunPass(ctx context.Context, opts PassOptions) (PassResult, error)
}

type ExecutorRegistry struct {
	byType   map[string]JobExecutor
	fallback JobExecutor
}

func (r ExecutorRegistry) Get(jobType string) JobExecutor {
	if r.byType != nil {
		if ex, ok := r.byType[jobType]; ok {
			return ex
		}
	}
	if r.fallback != nil {
		return r.fallback
	}
	return UnknownJobExecutor{}
}

func NewExecutorRegistry(runner PassRunner) ExecutorRegistry {
	return ExecutorRegistry{
		byType: map[string]JobExecutor{
			domain.JobTypeSync:    SyncExecutor{Runner: runner},
			domain.JobTypeSyncDry: SyncExecutor{Runner: runner, DryRun: true},
		},
		fallback: UnknownJobExecutor{},
	}
}

type UnknownJobExecutor struct{}

func (UnknownJobExecutor) Execute(ctx context.Context, job domain.Job, env ExecEnv) error {
	return invalidParams("unknown job type %q", job.Type)
}

// SyncExecutor exécute une passe. DryRun est imposé par le type de job,
// pas par les paramètres.
type SyncExecutor struct {
	Runner PassRunner
	DryRun bool
}

func (ex SyncExecutor) Execute(ctx context.Context, job domain.Job, env ExecEnv) error {
	opts := PassOptions{OngoingOnly: domain.DefaultSettings().OngoingOnly}
	if len(job.ParamsJSON) > 0 {
		if err := json.Unmarshal(job.ParamsJSON, &opts); err != nil {
			return &CodedError{Code: CodeInvalidParams, Message: "invalid params", Err: err}
		}
	}
	opts.DryRun = ex.DryRun

	canceled, err := env.IsCanceled()
	if err != nil {
		return err
	}
	if canceled {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopWatch := watchCancel(runCtx, cancel, env)
	defer stopWatch()

	res, err := ex.Runner.RunPass(runCtx, opts)
	if err != nil {
		var ce *CodedError
		if errors.As(err, &ce) {
			return err
		}
		if errors.Is(err, ErrNotFound) {
			return &CodedError{Code: CodeInvalidParams, Message: "unknown show", Err: err}
		}
		return &CodedError{Code: CodeInternal, Err: err}
	}

	b, err := json.Marshal(summarize(res))
	if err != nil {
		return err
	}
	if env.UpdateResult != nil {
		if err := env.UpdateResult(b); err != nil {
			return err
		}
	}
	if res.Canceled {
		if ctx.Err() != nil {
			return &CodedError{Code: CodeCanceled, Message: "pass interrupted", Err: ctx.Err()}
		}
		// Annulée via l'API: le worker relira l'état "canceled".
		return nil
	}
	return env.UpdateProgress(1)
}

// watchCancel relit périodiquement l'état du job et annule la passe si
// quelqu'un l'a marqué "canceled".
func watchCancel(ctx context.Context, cancel context.CancelFunc, env ExecEnv) func() {
	interval := env.CancelCheckInterval
	if interval <= 0 {
		interval = DefaultWorkerOptions().CancelCheckInterval
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c, err := env.IsCanceled(); err == nil && c {
					cancel()
					return
				}
			}
		}
	}()
	return func() { close(done) }
}
