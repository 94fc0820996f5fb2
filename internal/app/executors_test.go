package app

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
)

type memJobRepo struct {
	mu   sync.Mutex
	byID map[string]domain.Job
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{byID: map[string]domain.Job{}}
}

func (r *memJobRepo) Create(ctx context.Context, job domain.Job) (domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[job.ID]; ok {
		return domain.Job{}, ports.ErrConflict
	}
	r.byID[job.ID] = job
	return job, nil
}

func (r *memJobRepo) Get(ctx context.Context, id string) (domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return domain.Job{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.byID[id]
	if !ok {
		return domain.Job{}, ports.ErrNotFound
	}
	return j, nil
}

func (r *memJobRepo) List(ctx context.Context, limit int) ([]domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Job, 0, len(r.byID))
	for _, j := range r.byID {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memJobRepo) ClaimNextQueued(ctx context.Context) (domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var next *domain.Job
	for id := range r.byID {
		j := r.byID[id]
		if j.State != domain.JobQueued {
			continue
		}
		if next == nil || j.CreatedAt.Before(next.CreatedAt) {
			next = &j
		}
	}
	if next == nil {
		return domain.Job{}, ports.ErrNotFound
	}
	next.State = domain.JobRunning
	r.byID[next.ID] = *next
	return *next, nil
}

func (r *memJobRepo) HasPending(ctx context.Context, jobType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.byID {
		if j.Type == jobType && !j.State.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memJobRepo) PruneFinished(ctx context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, j := range r.byID {
		if j.State.IsTerminal() && j.UpdatedAt.Before(before) {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *memJobRepo) FailRunning(ctx context.Context, code, message string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, j := range r.byID {
		if j.State == domain.JobRunning {
			j.State, j.ErrorCode, j.ErrorMessage = domain.JobFailed, code, message
			r.byID[id] = j
			n++
		}
	}
	return n, nil
}

// update échoue sur un contexte annulé, comme la base.
func (r *memJobRepo) update(ctx context.Context, id string, fn func(*domain.Job) error) (domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return domain.Job{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.byID[id]
	if !ok {
		return domain.Job{}, ports.ErrNotFound
	}
	if err := fn(&j); err != nil {
		return domain.Job{}, err
	}
	j.UpdatedAt = time.Now().UTC()
	r.byID[id] = j
	return j, nil
}

func (r *memJobRepo) UpdateProgress(ctx context.Context, id string, progress float64) (domain.Job, error) {
	return r.update(ctx, id, func(j *domain.Job) error { j.Progress = progress; return nil })
}

func (r *memJobRepo) UpdateResult(ctx context.Context, id string, resultJSON []byte) (domain.Job, error) {
	return r.update(ctx, id, func(j *domain.Job) error { j.ResultJSON = resultJSON; return nil })
}

func (r *memJobRepo) UpdateError(ctx context.Context, id string, code string, message string) (domain.Job, error) {
	return r.update(ctx, id, func(j *domain.Job) error { j.ErrorCode, j.ErrorMessage = code, message; return nil })
}

func (r *memJobRepo) UpdateState(ctx context.Context, id string, expected domain.JobState, next domain.JobState) (domain.Job, error) {
	if !domain.CanTransition(expected, next) {
		return domain.Job{}, domain.ErrInvalidTransition
	}
	return r.update(ctx, id, func(j *domain.Job) error {
		if j.State != expected {
			return ports.ErrConflict
		}
		j.State = next
		return nil
	})
}

type stubRunner struct {
	got   PassOptions
	res   PassResult
	err   error
	block chan struct{}
}

func (s *stubRunner) RunPass(ctx context.Context, opts PassOptions) (PassResult, error) {
	s.got = opts
	if s.block != nil {
		select {
		case <-ctx.Done():
			return PassResult{Canceled: true}, nil
		case <-s.block:
		}
	}
	return s.res, s.err
}

func noopEnv() ExecEnv {
	return ExecEnv{
		UpdateProgress: func(float64) error { return nil },
		UpdateResult:   func([]byte) error { return nil },
		IsCanceled:     func() (bool, error) { return false, nil },
	}
}

func TestSyncExecutor_InvalidParams(t *testing.T) {
	ex := SyncExecutor{Runner: &stubRunner{}}
	err := ex.Execute(context.Background(), domain.Job{ID: "j1", Type: domain.JobTypeSync, ParamsJSON: []byte(`{"showIds":`)}, noopEnv())

	var coded *CodedError
	if !errors.As(err, &coded) || coded.Code != CodeInvalidParams {
		t.Fatalf("expected invalid_params coded error, got %T (%v)", err, err)
	}
}

func TestSyncExecutor_DryRunForcedByJobType(t *testing.T) {
	runner := &stubRunner{res: PassResult{ID: "p1", Added: 2, ChangedShows: []string{"a"}}}
	ex := SyncExecutor{Runner: runner, DryRun: true}

	var result []byte
	var progress float64
	env := noopEnv()
	env.UpdateResult = func(b []byte) error { result = b; return nil }
	env.UpdateProgress = func(p float64) error { progress = p; return nil }

	err := ex.Execute(context.Background(), domain.Job{
		ID:         "j2",
		Type:       domain.JobTypeSyncDry,
		ParamsJSON: []byte(`{"dryRun":false,"showIds":["a"]}`),
	}, env)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !runner.got.DryRun {
		t.Fatalf("expected dry run to be forced")
	}
	if len(runner.got.ShowIDs) != 1 || runner.got.ShowIDs[0] != "a" {
		t.Fatalf("unexpected show ids: %v", runner.got.ShowIDs)
	}
	var summary PassSummary
	if err := json.Unmarshal(result, &summary); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if summary.ID != "p1" || summary.Added != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if progress != 1 {
		t.Fatalf("expected progress=1, got %v", progress)
	}
}

func TestSyncExecutor_UnknownShowIsInvalidParams(t *testing.T) {
	ex := SyncExecutor{Runner: &stubRunner{err: ErrNotFound}}
	err := ex.Execute(context.Background(), domain.Job{ID: "j3", Type: domain.JobTypeSync}, noopEnv())

	var coded *CodedError
	if !errors.As(err, &coded) || coded.Code != CodeInvalidParams {
		t.Fatalf("expected invalid_params, got %v", err)
	}
}

func TestWorker_CompletesSyncJob(t *testing.T) {
	repo := newMemJobRepo()
	bus := &recordingBus{}
	runner := &stubRunner{res: PassResult{ID: "p"}}
	jobs := NewJobService(repo, bus)

	created, err := jobs.Enqueue(context.Background(), PassOptions{OngoingOnly: true})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if created.Type != domain.JobTypeSync {
		t.Fatalf("expected sync job, got %q", created.Type)
	}

	w := NewWorker(zerolog.Nop(), repo, bus, NewExecutorRegistry(runner), WorkerOptions{})
	job, err := repo.ClaimNextQueued(context.Background())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	w.execute(context.Background(), job)

	got, _ := repo.Get(context.Background(), created.ID)
	if got.State != domain.JobCompleted {
		t.Fatalf("expected completed, got %q", got.State)
	}
	if got.Progress != 1 || len(got.ResultJSON) == 0 {
		t.Fatalf("expected progress=1 and a result, got %v / %s", got.Progress, got.ResultJSON)
	}
	if !runner.got.OngoingOnly {
		t.Fatalf("expected ongoingOnly to be forwarded")
	}
}

func TestWorker_FailureRecordsCode(t *testing.T) {
	repo := newMemJobRepo()
	runner := &stubRunner{err: &CodedError{Code: CodeCatalogSave, Message: "save catalog", Err: errors.New("disk full")}}
	jobs := NewJobService(repo, nil)
	created, _ := jobs.Enqueue(context.Background(), PassOptions{})

	w := NewWorker(zerolog.Nop(), repo, nil, NewExecutorRegistry(runner), WorkerOptions{})
	job, _ := repo.ClaimNextQueued(context.Background())
	w.execute(context.Background(), job)

	got, _ := repo.Get(context.Background(), created.ID)
	if got.State != domain.JobFailed {
		t.Fatalf("expected failed, got %q", got.State)
	}
	if got.ErrorCode != CodeCatalogSave {
		t.Fatalf("expected catalog_save, got %q", got.ErrorCode)
	}
}

func TestWorker_CancelStopsRunningPass(t *testing.T) {
	repo := newMemJobRepo()
	runner := &stubRunner{block: make(chan struct{})}
	jobs := NewJobService(repo, nil)
	created, _ := jobs.Enqueue(context.Background(), PassOptions{})

	w := NewWorker(zerolog.Nop(), repo, nil, NewExecutorRegistry(runner), WorkerOptions{CancelCheckInterval: 10 * time.Millisecond})
	job, _ := repo.ClaimNextQueued(context.Background())

	done := make(chan struct{})
	go func() {
		w.execute(context.Background(), job)
		close(done)
	}()

	if _, err := jobs.Cancel(context.Background(), created.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop after cancel")
	}

	got, _ := repo.Get(context.Background(), created.ID)
	if got.State != domain.JobCanceled {
		t.Fatalf("expected canceled, got %q", got.State)
	}
}

func TestUnknownJobType(t *testing.T) {
	reg := NewExecutorRegistry(&stubRunner{})
	err := reg.Get("download").Execute(context.Background(), domain.Job{Type: "download"}, noopEnv())
	var coded *CodedError
	if !errors.As(err, &coded) || coded.Code != CodeInvalidParams {
		t.Fatalf("expected invalid_params, got %v", err)
	}
}

func TestJobService_ListFiltersAndCancel(t *testing.T) {
	repo := newMemJobRepo()
	jobs := NewJobService(repo, nil)
	ctx := context.Background()

	live, _ := jobs.Enqueue(ctx, PassOptions{})
	time.Sleep(time.Millisecond)
	dry, _ := jobs.Enqueue(ctx, PassOptions{DryRun: true})

	got, err := jobs.List(ctx, RunFilter{Type: domain.JobTypeSyncDry})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != dry.ID {
		t.Fatalf("expected only the dry run, got %+v", got)
	}

	canceled, err := jobs.Cancel(ctx, live.ID)
	if err != nil || canceled.State != domain.JobCanceled {
		t.Fatalf("Cancel: %v (%q)", err, canceled.State)
	}
	// Une passe terminée est renvoyée telle quelle.
	again, err := jobs.Cancel(ctx, live.ID)
	if err != nil || again.State != domain.JobCanceled {
		t.Fatalf("second Cancel: %v (%q)", err, again.State)
	}
	if _, err := jobs.Cancel(ctx, "missing"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	got, _ = jobs.List(ctx, RunFilter{State: domain.JobQueued, Limit: 5})
	if len(got) != 1 || got[0].ID != dry.ID {
		t.Fatalf("expected the queued dry run, got %+v", got)
	}
	if _, ok := got[0].Summary(); ok {
		t.Fatalf("queued run has no summary")
	}
}

func TestJobDTO_Summary(t *testing.T) {
	dto := ToJobDTO(domain.Job{ResultJSON: []byte(`{"id":"p","added":3,"saved":true}`)})
	sum, ok := dto.Summary()
	if !ok || sum.Added != 3 || !sum.Saved {
		t.Fatalf("unexpected summary: %+v (%v)", sum, ok)
	}
}
