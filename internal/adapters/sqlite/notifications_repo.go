package sqlite

import (
	"context"
	"database/sql"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
)

type NotificationsRepository struct {
	db *sql.DB
}

func NewNotificationsRepository(db *sql.DB) *NotificationsRepository {
	return &NotificationsRepository{db: db}
}

func (r *NotificationsRepository) Create(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications(id, show_id, show_title, season, audio, episode, discovered_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.ShowID, n.ShowTitle, n.Season, string(n.Audio), n.Episode, formatTime(n.DiscoveredAt))
	if err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

// List renvoie les notifications les plus récentes d'abord. showID vide = toutes les séries.
func (r *NotificationsRepository) List(ctx context.Context, showID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT id, show_id, show_title, season, audio, episode, discovered_at
		FROM notifications`
	args := []any{}
	if showID != "" {
		query += ` WHERE show_id = ?`
		args = append(args, showID)
	}
	query += ` ORDER BY discovered_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		var audio, discovered string
		if err := rows.Scan(&n.ID, &n.ShowID, &n.ShowTitle, &n.Season, &audio, &n.Episode, &discovered); err != nil {
			return nil, err
		}
		n.Audio = domain.AudioKind(audio)
		n.DiscoveredAt = parseTime(discovered)
		out = append(out, n)
	}
	return out, rows.Err()
}
