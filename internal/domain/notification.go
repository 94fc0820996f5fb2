package domain

import "time"

// Notification trace un épisode découvert par une passe live.
type Notification struct {
	ID           string
	ShowID       string
	ShowTitle    string
	Season       int
	Audio        AudioKind
	Episode      int
	DiscoveredAt time.Time
}
