package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
)

const jobColumns = `id, type, state, progress, created_at, updated_at, params_json, result_json, error_code, error_message`

// JobsRepository persiste les passes asynchrones (jobs sync / sync-dry).
type JobsRepository struct {
	db *sql.DB
}

func NewJobsRepository(db *sql.DB) *JobsRepository {
	return &JobsRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (domain.Job, error) {
	var j domain.Job
	var state, createdAt, updatedAt string
	if err := row.Scan(&j.ID, &j.Type, &state, &j.Progress, &createdAt, &updatedAt, &j.ParamsJSON, &j.ResultJSON, &j.ErrorCode, &j.ErrorMessage); err != nil {
		return domain.Job{}, err
	}
	j.State = domain.JobState(state)
	j.CreatedAt = parseTime(createdAt)
	j.UpdatedAt = parseTime(updatedAt)
	return j, nil
}

func (r *JobsRepository) Create(ctx context.Context, job domain.Job) (domain.Job, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO jobs(`+jobColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		job.ID, job.Type, string(job.State), job.Progress,
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt),
		job.ParamsJSON, job.ResultJSON, job.ErrorCode, job.ErrorMessage)
	if err != nil {
		return domain.Job{}, fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Job{}, fmt.Errorf("job %s: %w", job.ID, ports.ErrConflict)
	}
	return r.Get(ctx, job.ID)
}

func (r *JobsRepository) Get(ctx context.Context, id string) (domain.Job, error) {
	j, err := scanJob(r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, ports.ErrNotFound
	}
	return j, err
}

// List renvoie les passes les plus récentes d'abord.
func (r *JobsRepository) List(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ClaimNextQueued réserve la passe la plus ancienne en une seule requête:
// deux workers ne peuvent pas obtenir la même.
func (r *JobsRepository) ClaimNextQueued(ctx context.Context) (domain.Job, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		UPDATE jobs
		SET state = ?, updated_at = ?
		WHERE id = (SELECT id FROM jobs WHERE state = ? ORDER BY created_at ASC, id ASC LIMIT 1)
		  AND state = ?
		RETURNING id
	`, string(domain.JobRunning), formatTime(time.Now()), string(domain.JobQueued), string(domain.JobQueued)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, ports.ErrNotFound
	}
	if err != nil {
		return domain.Job{}, err
	}
	return r.Get(ctx, id)
}

func (r *JobsRepository) HasPending(ctx context.Context, jobType string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM jobs WHERE type = ? AND state IN (?, ?)
	`, jobType, string(domain.JobQueued), string(domain.JobRunning)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PruneFinished supprime les passes terminées avant before.
func (r *JobsRepository) PruneFinished(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM jobs WHERE state IN (?, ?, ?) AND updated_at < ?
	`, string(domain.JobCompleted), string(domain.JobFailed), string(domain.JobCanceled), formatTime(before))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *JobsRepository) FailRunning(ctx context.Context, code, message string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, error_code = ?, error_message = ?, updated_at = ?
		WHERE state = ?
	`, string(domain.JobFailed), code, message, formatTime(time.Now()), string(domain.JobRunning))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// update applique set (ex: "progress = ?") à une passe et la relit.
func (r *JobsRepository) update(ctx context.Context, id, set string, args ...any) (domain.Job, error) {
	args = append(args, formatTime(time.Now()), id)
	res, err := r.db.ExecContext(ctx, `UPDATE jobs SET `+set+`, updated_at = ? WHERE id = ?`, args...)
	if err != nil {
		return domain.Job{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Job{}, ports.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *JobsRepository) UpdateProgress(ctx context.Context, id string, progress float64) (domain.Job, error) {
	return r.update(ctx, id, `progress = ?`, progress)
}

func (r *JobsRepository) UpdateResult(ctx context.Context, id string, resultJSON []byte) (domain.Job, error) {
	return r.update(ctx, id, `result_json = ?`, resultJSON)
}

func (r *JobsRepository) UpdateError(ctx context.Context, id string, code string, message string) (domain.Job, error) {
	return r.update(ctx, id, `error_code = ?, error_message = ?`, code, message)
}

// UpdateState ne change l'état que s'il vaut encore expected (compare-and-swap).
func (r *JobsRepository) UpdateState(ctx context.Context, id string, expected domain.JobState, next domain.JobState) (domain.Job, error) {
	if !domain.CanTransition(expected, next) {
		return domain.Job{}, domain.ErrInvalidTransition
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET state = ?, updated_at = ? WHERE id = ? AND state = ?
	`, string(next), formatTime(time.Now()), id, string(expected))
	if err != nil {
		return domain.Job{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return domain.Job{}, err
		}
		return domain.Job{}, ports.ErrConflict
	}
	return r.Get(ctx, id)
}
