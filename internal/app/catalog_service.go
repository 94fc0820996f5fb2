package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
)

// CatalogService expose le catalogue en lecture seule (CLI, API).
type CatalogService struct {
	store ports.CatalogStore
}

func NewCatalogService(store ports.CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

type ShowSummaryDTO struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Seasons    int    `json:"seasons"`
	Ongoing    bool   `json:"ongoing"`
	CoverImage string `json:"coverImage,omitempty"`
}

// SeasonOverview est l'état courant d'une saison. Sub et Dub valent nil
// quand la piste n'est pas disponible.
type SeasonOverview struct {
	Season int                 `json:"season"`
	Label  string              `json:"label"`
	Kind   domain.SeasonKind   `json:"type"`
	Sub    *int                `json:"sub"`
	Dub    *int                `json:"dub"`
	Max    int                 `json:"max"`
	Status domain.SeasonStatus `json:"status"`
}

type ShowOverview struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Seasons []SeasonOverview `json:"seasons"`
}

func (s *CatalogService) List(ctx context.Context, ongoingOnly bool) ([]ShowSummaryDTO, error) {
	shows, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ShowSummaryDTO, 0, len(shows))
	for _, sh := range shows {
		if ongoingOnly && !sh.HasOngoing() {
			continue
		}
		out = append(out, ShowSummaryDTO{
			ID:         sh.ID,
			Title:      sh.Title,
			Seasons:    len(sh.Seasons),
			Ongoing:    sh.HasOngoing(),
			CoverImage: sh.CoverImage,
		})
	}
	return out, nil
}

// Find cherche d'abord un slug exact, puis un fragment du titre (insensible à la casse).
func (s *CatalogService) Find(ctx context.Context, query string) (domain.Show, error) {
	shows, err := s.store.Load(ctx)
	if err != nil {
		return domain.Show{}, err
	}
	if sh, ok := FindShow(shows, query); ok {
		return sh, nil
	}
	return domain.Show{}, fmt.Errorf("show %q: %w", query, ErrNotFound)
}

func FindShow(shows []domain.Show, query string) (domain.Show, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return domain.Show{}, false
	}
	for _, sh := range shows {
		if strings.ToLower(sh.ID) == q {
			return sh, true
		}
	}
	for _, sh := range shows {
		if strings.Contains(strings.ToLower(sh.Title), q) {
			return sh, true
		}
	}
	return domain.Show{}, false
}

func (s *CatalogService) Overview(ctx context.Context, query string) (ShowOverview, error) {
	sh, err := s.Find(ctx, query)
	if err != nil {
		return ShowOverview{}, err
	}
	return BuildOverview(sh), nil
}

func BuildOverview(sh domain.Show) ShowOverview {
	out := ShowOverview{ID: sh.ID, Title: sh.Title, Seasons: make([]SeasonOverview, 0, len(sh.Seasons))}
	for i := range sh.Seasons {
		season := &sh.Seasons[i]
		label := season.Label
		if label == "" {
			label = fmt.Sprintf("S%d", season.Number)
		}
		kind := season.Kind
		if kind == "" {
			kind = domain.KindSeries
		}
		ov := SeasonOverview{
			Season: season.Number,
			Label:  label,
			Kind:   kind,
			Max:    season.Episodes,
			Status: season.Status,
		}
		if t := season.Track(domain.AudioSub); t != nil && t.Available {
			n := t.EpisodesAvailable
			ov.Sub = &n
		}
		if t := season.Track(domain.AudioDub); t != nil && t.Available {
			n := t.EpisodesAvailable
			ov.Dub = &n
		}
		out.Seasons = append(out.Seasons, ov)
	}
	return out
}
