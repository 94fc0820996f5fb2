package app

import (
	"context"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
)

// SettingsService valide et persiste les réglages, puis les pousse vers les
// composants qui les appliquent à chaud (limiter, sondes, pool de workers).
type SettingsService struct {
	repo     ports.SettingsRepository
	onChange []func(domain.Settings)
}

func NewSettingsService(repo ports.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// OnChange enregistre un callback appelé après chaque Put réussi.
func (s *SettingsService) OnChange(fn func(domain.Settings)) {
	if fn != nil {
		s.onChange = append(s.onChange, fn)
	}
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	return s.repo.Get(ctx)
}

func (s *SettingsService) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	if err := ValidateSettings(settings); err != nil {
		return domain.Settings{}, err
	}
	def := domain.DefaultSettings()
	if settings.MaxWorkers <= 0 {
		settings.MaxWorkers = def.MaxWorkers
	}
	if settings.MaxConcurrentShows <= 0 {
		settings.MaxConcurrentShows = def.MaxConcurrentShows
	}
	saved, err := s.repo.Put(ctx, settings)
	if err != nil {
		return domain.Settings{}, err
	}
	for _, fn := range s.onChange {
		fn(saved)
	}
	return saved, nil
}

// Apply pousse les réglages courants aux callbacks sans rien écrire (démarrage).
func (s *SettingsService) Apply(ctx context.Context) (domain.Settings, error) {
	cur, err := s.repo.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	for _, fn := range s.onChange {
		fn(cur)
	}
	return cur, nil
}

func ValidateSettings(s domain.Settings) error {
	switch {
	case s.MaxConcurrentShows > 64:
		return invalidParams("maxConcurrentShows must be <= 64, got %d", s.MaxConcurrentShows)
	case s.ProbesPerSecond < 0:
		return invalidParams("probesPerSecond must be >= 0")
	case s.SyncIntervalMinutes < 0:
		return invalidParams("syncIntervalMinutes must be >= 0")
	case s.MaxWorkers > 8:
		return invalidParams("maxWorkers must be <= 8, got %d", s.MaxWorkers)
	}
	return nil
}
