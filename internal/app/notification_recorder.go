package app

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
)

// NotificationRecorder écoute le bus et persiste chaque "episode.added".
type NotificationRecorder struct {
	logger zerolog.Logger
	bus    ports.EventBus
	repo   ports.NotificationRepository
	now    func() time.Time
}

func NewNotificationRecorder(logger zerolog.Logger, bus ports.EventBus, repo ports.NotificationRepository) *NotificationRecorder {
	return &NotificationRecorder{logger: logger, bus: bus, repo: repo, now: time.Now}
}

type NotificationDTO struct {
	ID           string           `json:"id"`
	ShowID       string           `json:"showId"`
	ShowTitle    string           `json:"showTitle"`
	Season       int              `json:"season"`
	Audio        domain.AudioKind `json:"audio"`
	Episode      int              `json:"episode"`
	DiscoveredAt time.Time        `json:"discoveredAt"`
}

func ToNotificationDTO(n domain.Notification) NotificationDTO {
	return NotificationDTO{
		ID:           n.ID,
		ShowID:       n.ShowID,
		ShowTitle:    n.ShowTitle,
		Season:       n.Season,
		Audio:        n.Audio,
		Episode:      n.Episode,
		DiscoveredAt: n.DiscoveredAt,
	}
}

func (r *NotificationRecorder) Run(ctx context.Context) {
	<-r.Start(ctx)
}

// Start s'abonne avant de rendre la main: aucun événement publié ensuite
// n'est manqué. Le canal renvoyé est fermé à l'arrêt.
func (r *NotificationRecorder) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if r == nil || r.bus == nil || r.repo == nil {
		close(done)
		return done
	}
	ch, cancel := r.bus.Subscribe()
	go func() {
		defer close(done)
		defer cancel()
		r.loop(ctx, ch)
	}()
	return done
}

func (r *NotificationRecorder) loop(ctx context.Context, ch <-chan ports.Event) {
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("notification recorder stopped")
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			r.handleEvent(ctx, evt)
		}
	}
}

func (r *NotificationRecorder) handleEvent(ctx context.Context, evt ports.Event) {
	if evt.Topic != ports.TopicEpisodeAdded {
		return
	}

	var added EpisodeAddedEvent
	if err := json.Unmarshal(evt.Payload, &added); err != nil {
		return
	}
	added.ShowID = strings.TrimSpace(added.ShowID)
	if added.ShowID == "" || added.Episode <= 0 {
		return
	}

	created, err := r.repo.Create(ctx, domain.Notification{
		ID:           xid.New().String(),
		ShowID:       added.ShowID,
		ShowTitle:    added.ShowTitle,
		Season:       added.Season,
		Audio:        added.Audio,
		Episode:      added.Episode,
		DiscoveredAt: r.now().UTC(),
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("show", added.ShowID).Int("episode", added.Episode).Msg("failed to record notification")
		return
	}

	if b, err := json.Marshal(ToNotificationDTO(created)); err == nil {
		r.bus.Publish(ports.TopicNotificationCreated, b)
	}
}

// NotificationService lit l'historique des épisodes découverts.
type NotificationService struct {
	repo ports.NotificationRepository
}

func NewNotificationService(repo ports.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) List(ctx context.Context, showID string, limit int) ([]NotificationDTO, error) {
	items, err := s.repo.List(ctx, strings.TrimSpace(showID), limit)
	if err != nil {
		return nil, err
	}
	out := make([]NotificationDTO, 0, len(items))
	for _, n := range items {
		out = append(out, ToNotificationDTO(n))
	}
	return out, nil
}
