package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/metrics"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
)

type PassOptions struct {
	DryRun bool `json:"dryRun"`
	// ShowIDs restreint la passe à ces séries (slug). Vide = tout le catalogue.
	ShowIDs []string `json:"showIds,omitempty"`
	// OngoingOnly ignore les séries sans saison "ongoing" (sauf si ShowIDs est fourni).
	OngoingOnly bool `json:"ongoingOnly"`
}

type PassResult struct {
	ID           string       `json:"id"`
	DryRun       bool         `json:"dryRun"`
	StartedAt    time.Time    `json:"startedAt"`
	FinishedAt   time.Time    `json:"finishedAt"`
	Shows        []ShowResult `json:"shows"`
	ChangedShows []string     `json:"changedShows"`
	Added        int          `json:"added"`
	Saved        bool         `json:"saved"`
	Canceled     bool         `json:"canceled,omitempty"`
}

func (r PassResult) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// EpisodeAddedEvent est publié sur le bus pour chaque épisode ajouté (passe live).
type EpisodeAddedEvent struct {
	ShowID    string           `json:"showId"`
	ShowTitle string           `json:"showTitle"`
	Season    int              `json:"season"`
	Audio     domain.AudioKind `json:"audio"`
	Episode   int              `json:"episode"`
	PassID    string           `json:"passId"`
}

// SyncService orchestre une passe complète: chargement, une tâche par série
// (bornée par le limiter), puis sauvegarde unique si quelque chose a changé.
type SyncService struct {
	logger  zerolog.Logger
	store   ports.CatalogStore
	engine  *ProgressionEngine
	limiter *DynamicLimiter
	bus     ports.EventBus
	metrics *metrics.Metrics

	// Une seule passe à la fois touche le catalogue.
	mu sync.Mutex
}

func NewSyncService(logger zerolog.Logger, store ports.CatalogStore, engine *ProgressionEngine, limiter *DynamicLimiter, bus ports.EventBus, m *metrics.Metrics) *SyncService {
	if limiter == nil {
		limiter = NewDynamicLimiter(domain.DefaultSettings().MaxConcurrentShows)
	}
	return &SyncService{logger: logger, store: store, engine: engine, limiter: limiter, bus: bus, metrics: m}
}

func (s *SyncService) RunPass(ctx context.Context, opts PassOptions) (PassResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := PassResult{ID: xid.New().String(), DryRun: opts.DryRun, StartedAt: time.Now().UTC(), ChangedShows: []string{}}
	logger := s.logger.With().Str("pass_id", res.ID).Bool("dry_run", opts.DryRun).Logger()

	shows, err := s.store.Load(ctx)
	if err != nil {
		s.finish(&res, "failed")
		return res, &CodedError{Code: CodeCatalogLoad, Message: "load catalog", Err: err}
	}

	// Passe à blanc: on travaille sur une copie jetable.
	work := shows
	if opts.DryRun {
		work = domain.CloneShows(shows)
	}

	targets, err := selectShows(work, opts)
	if err != nil {
		s.finish(&res, "failed")
		return res, err
	}
	logger.Info().Int("shows", len(targets)).Int("catalog", len(work)).Msg("sync pass started")

	// Chaque tâche possède en exclusivité work[idx]; seule la slice de tête est partagée.
	results := make([]ShowResult, len(targets))
	var g errgroup.Group
	for i, idx := range targets {
		i, idx := i, idx
		g.Go(func() error {
			show := &work[idx]
			err := s.limiter.Do(ctx, func() { results[i] = s.engine.SyncShow(ctx, show) })
			if err != nil {
				results[i] = ShowResult{ShowID: show.ID, Title: show.Title, Seasons: []SeasonResult{}, Canceled: true}
			}
			return nil
		})
	}
	_ = g.Wait()

	changed := false
	for _, r := range results {
		res.Added += r.Added
		if r.Changed {
			changed = true
			res.ChangedShows = append(res.ChangedShows, r.Title)
		}
		if r.Canceled {
			res.Canceled = true
		}
	}
	res.Shows = results

	if !opts.DryRun && changed {
		// Les étapes terminées sont conservées même si la passe a été annulée.
		saveErr := s.store.Save(context.WithoutCancel(ctx), work)
		s.metrics.CatalogSaved(saveErr)
		if saveErr != nil {
			s.finish(&res, "failed")
			logger.Error().Err(saveErr).Msg("catalog save failed")
			return res, &CodedError{Code: CodeCatalogSave, Message: "save catalog", Err: saveErr}
		}
		res.Saved = true
		s.publishChanges(res)
	}

	outcome := "unchanged"
	switch {
	case res.Canceled:
		outcome = "canceled"
	case changed:
		outcome = "changed"
	}
	s.finish(&res, outcome)
	logger.Info().
		Int("added", res.Added).
		Int("changed_shows", len(res.ChangedShows)).
		Bool("saved", res.Saved).
		Dur("duration", res.Duration()).
		Msg("sync pass finished")
	s.publishRaw(ports.TopicSyncCompleted, summarize(res))
	return res, nil
}

func (s *SyncService) finish(res *PassResult, outcome string) {
	res.FinishedAt = time.Now().UTC()
	mode := "live"
	if res.DryRun {
		mode = "dry"
	}
	s.metrics.ObservePass(mode, outcome, res.Duration())
}

// selectShows renvoie les indices des séries à visiter, dans l'ordre du catalogue.
func selectShows(shows []domain.Show, opts PassOptions) ([]int, error) {
	if len(opts.ShowIDs) > 0 {
		byID := make(map[string]int, len(shows))
		for i, sh := range shows {
			byID[strings.ToLower(sh.ID)] = i
		}
		seen := map[int]bool{}
		out := make([]int, 0, len(opts.ShowIDs))
		for _, id := range opts.ShowIDs {
			idx, ok := byID[strings.ToLower(strings.TrimSpace(id))]
			if !ok {
				return nil, fmt.Errorf("show %q: %w", id, ErrNotFound)
			}
			if !seen[idx] {
				seen[idx] = true
				out = append(out, idx)
			}
		}
		return out, nil
	}

	out := make([]int, 0, len(shows))
	for i, sh := range shows {
		if opts.OngoingOnly && !sh.HasOngoing() {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

func (s *SyncService) publishChanges(res PassResult) {
	for _, sh := range res.Shows {
		for _, season := range sh.Seasons {
			for _, d := range season.Tracks {
				if d.Outcome != OutcomeAdded {
					continue
				}
				s.metrics.EpisodeAdded(string(d.Audio))
				s.publishRaw(ports.TopicEpisodeAdded, EpisodeAddedEvent{
					ShowID:    sh.ShowID,
					ShowTitle: sh.Title,
					Season:    season.Season,
					Audio:     d.Audio,
					Episode:   d.Candidate,
					PassID:    res.ID,
				})
			}
			if season.Finished {
				s.metrics.SeasonFinished()
				s.publishRaw(ports.TopicSeasonFinished, map[string]any{"showId": sh.ShowID, "season": season.Season})
			}
		}
	}
}

func (s *SyncService) publishRaw(topic string, v any) {
	if s.bus == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.bus.Publish(topic, b)
}

// PassSummary est la forme compacte d'un PassResult (résultat de job, événement SSE).
type PassSummary struct {
	ID           string    `json:"id"`
	DryRun       bool      `json:"dryRun"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
	Visited      int       `json:"visited"`
	Added        int       `json:"added"`
	ChangedShows []string  `json:"changedShows"`
	Saved        bool      `json:"saved"`
	Canceled     bool      `json:"canceled,omitempty"`
}

func summarize(res PassResult) PassSummary {
	return PassSummary{
		ID:           res.ID,
		DryRun:       res.DryRun,
		StartedAt:    res.StartedAt,
		FinishedAt:   res.FinishedAt,
		Visited:      len(res.Shows),
		Added:        res.Added,
		ChangedShows: res.ChangedShows,
		Saved:        res.Saved,
		Canceled:     res.Canceled,
	}
}

// IsCatalogError indique une erreur fatale de chargement ou de sauvegarde.
func IsCatalogError(err error) bool {
	var ce *CodedError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == CodeCatalogLoad || ce.Code == CodeCatalogSave
}
