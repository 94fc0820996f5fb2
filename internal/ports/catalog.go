package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
)

// CatalogStore charge et sauvegarde la liste complète des séries.
// Save doit être atomique: aucun lecteur ne voit un catalogue à moitié écrit.
type CatalogStore interface {
	Load(ctx context.Context) ([]domain.Show, error)
	Save(ctx context.Context, shows []domain.Show) error
}

// Prober répond "l'épisode n existe-t-il sur le CDN pour ce stream path ?".
// Toute erreur (réseau, timeout, 4xx/5xx) vaut false.
type Prober interface {
	Exists(ctx context.Context, streamPath string, episode int) bool
}

type NotificationRepository interface {
	Create(ctx context.Context, n domain.Notification) (domain.Notification, error)
	List(ctx context.Context, showID string, limit int) ([]domain.Notification, error)
}
