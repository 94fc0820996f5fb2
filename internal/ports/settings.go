package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
)

// SettingsRepository garde les réglages de synchro modifiables à chaud.
// Get renvoie domain.DefaultSettings() tant que rien n'a été écrit.
type SettingsRepository interface {
	Get(ctx context.Context) (domain.Settings, error)
	Put(ctx context.Context, settings domain.Settings) (domain.Settings, error)
}
