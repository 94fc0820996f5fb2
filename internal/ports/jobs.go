package ports

import (
	"context"
	"time"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
)

// JobRepository stocke les passes asynchrones ("sync runs").
type JobRepository interface {
	Create(ctx context.Context, job domain.Job) (domain.Job, error)
	Get(ctx context.Context, id string) (domain.Job, error)
	// List renvoie les passes les plus récentes d'abord; limit <= 0 = toutes.
	List(ctx context.Context, limit int) ([]domain.Job, error)
	// ClaimNextQueued réserve la plus ancienne passe "queued" (elle passe "running").
	// ErrNotFound si la file est vide.
	ClaimNextQueued(ctx context.Context) (domain.Job, error)
	// HasPending: une passe du type donné est en attente ou en cours.
	HasPending(ctx context.Context, jobType string) (bool, error)
	// PruneFinished efface les passes terminées dont la dernière mise à jour
	// précède before, et renvoie leur nombre.
	PruneFinished(ctx context.Context, before time.Time) (int, error)
	// FailRunning passe en "failed" toutes les passes restées "running"
	// (processus arrêté en pleine passe), avec le code donné.
	FailRunning(ctx context.Context, code, message string) (int, error)

	UpdateProgress(ctx context.Context, id string, progress float64) (domain.Job, error)
	UpdateResult(ctx context.Context, id string, resultJSON []byte) (domain.Job, error)
	UpdateError(ctx context.Context, id string, code string, message string) (domain.Job, error)
	// UpdateState est un compare-and-swap: ErrConflict si l'état n'est plus expected,
	// domain.ErrInvalidTransition si expected -> next est interdit.
	UpdateState(ctx context.Context, id string, expected domain.JobState, next domain.JobState) (domain.Job, error)
}
