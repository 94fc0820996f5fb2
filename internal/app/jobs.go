package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
)

// JobService gère les passes asynchrones ("sync runs"): création, lecture, annulation.
// L'exécution est faite par les workers.
type JobService struct {
	repo ports.JobRepository
	bus  ports.EventBus
}

func NewJobService(repo ports.JobRepository, bus ports.EventBus) *JobService {
	return &JobService{repo: repo, bus: bus}
}

type JobDTO struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	State     domain.JobState `json:"state"`
	Progress  float64         `json:"progress"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	ErrorCode string          `json:"errorCode,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func ToJobDTO(j domain.Job) JobDTO {
	return JobDTO{
		ID:        j.ID,
		Type:      j.Type,
		State:     j.State,
		Progress:  j.Progress,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
		Params:    json.RawMessage(j.ParamsJSON),
		Result:    json.RawMessage(j.ResultJSON),
		ErrorCode: j.ErrorCode,
		Error:     j.ErrorMessage,
	}
}

func PublishJobEvent(bus ports.EventBus, topic string, job domain.Job) {
	if bus == nil {
		return
	}
	b, err := json.Marshal(ToJobDTO(job))
	if err != nil {
		return
	}
	bus.Publish(topic, b)
}

// Enqueue crée une passe en attente. Le type de job dépend de opts.DryRun.
func (s *JobService) Enqueue(ctx context.Context, opts PassOptions) (JobDTO, error) {
	params, err := json.Marshal(opts)
	if err != nil {
		return JobDTO{}, fmt.Errorf("encode pass options: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, domain.Job{
		ID:         xid.New().String(),
		Type:       domain.SyncJobType(opts.DryRun),
		State:      domain.JobQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
		ParamsJSON: params,
	})
	if err != nil {
		return JobDTO{}, err
	}
	PublishJobEvent(s.bus, ports.TopicJobCreated, created)
	return ToJobDTO(created), nil
}

func (s *JobService) Get(ctx context.Context, id string) (JobDTO, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return JobDTO{}, err
	}
	return ToJobDTO(job), nil
}

// RunFilter restreint la liste des passes. Les champs vides ne filtrent pas.
type RunFilter struct {
	Type  string
	State domain.JobState
	Limit int
}

func (f RunFilter) match(j domain.Job) bool {
	return (f.Type == "" || j.Type == f.Type) && (f.State == "" || j.State == f.State)
}

// List renvoie les passes les plus récentes d'abord.
func (s *JobService) List(ctx context.Context, f RunFilter) ([]JobDTO, error) {
	limit := f.Limit
	if f.Type != "" || f.State != "" {
		// Le filtre s'applique après lecture: on ne tronque qu'à la fin.
		limit = 0
	}
	jobs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]JobDTO, 0, len(jobs))
	for _, j := range jobs {
		if !f.match(j) {
			continue
		}
		out = append(out, ToJobDTO(j))
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// RecoverInterrupted clôt les passes restées "running" après un arrêt brutal.
// À appeler au démarrage, avant de lancer les workers.
func (s *JobService) RecoverInterrupted(ctx context.Context) (int, error) {
	n, err := s.repo.FailRunning(ctx, CodeCanceled, "interrupted by shutdown")
	if err != nil {
		return 0, fmt.Errorf("recover interrupted runs: %w", err)
	}
	return n, nil
}

// Cancel marque la passe annulée si elle est encore en attente ou en cours.
// Une passe déjà terminée est renvoyée telle quelle.
func (s *JobService) Cancel(ctx context.Context, id string) (JobDTO, error) {
	for _, expected := range []domain.JobState{domain.JobQueued, domain.JobRunning} {
		updated, err := s.repo.UpdateState(ctx, id, expected, domain.JobCanceled)
		switch {
		case err == nil:
			PublishJobEvent(s.bus, ports.TopicJobCanceled, updated)
			return ToJobDTO(updated), nil
		case errors.Is(err, ports.ErrNotFound):
			return JobDTO{}, err
		}
	}
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return JobDTO{}, err
	}
	return ToJobDTO(job), nil
}

// Summary décode le résultat d'une passe terminée. false tant qu'il n'y en a pas.
func (d JobDTO) Summary() (PassSummary, bool) {
	if len(d.Result) == 0 {
		return PassSummary{}, false
	}
	var sum PassSummary
	if err := json.Unmarshal(d.Result, &sum); err != nil {
		return PassSummary{}, false
	}
	return sum, true
}
