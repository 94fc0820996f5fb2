package ports

// Sujets publiés sur le bus.
const (
	TopicEpisodeAdded        = "episode.added"
	TopicSeasonFinished      = "season.finished"
	TopicSyncCompleted       = "sync.completed"
	TopicNotificationCreated = "notification.created"

	TopicJobCreated   = "job.created"
	TopicJobStarted   = "job.started"
	TopicJobProgress  = "job.progress"
	TopicJobCompleted = "job.completed"
	TopicJobFailed    = "job.failed"
	TopicJobCanceled  = "job.canceled"
)

// EventBus diffuse les événements aux abonnés (SSE, enregistreur de notifications).
// Publish ne bloque jamais.
type EventBus interface {
	Publish(topic string, payload []byte)
	Subscribe() (ch <-chan Event, cancel func())
}

type Event struct {
	Topic   string
	Payload []byte
}
