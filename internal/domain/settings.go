package domain

// Settings regroupe les réglages modifiables à chaud (persistés en base).
type Settings struct {
	// Nombre de séries synchronisées en parallèle pendant une passe.
	MaxConcurrentShows int `json:"maxConcurrentShows"`

	// Politesse CDN: nombre max de sondes par seconde (toutes séries confondues).
	ProbesPerSecond float64 `json:"probesPerSecond"`

	// Passe automatique (0 = désactivée).
	SyncIntervalMinutes int `json:"syncIntervalMinutes"`

	// Ne visiter que les séries ayant au moins une saison "ongoing".
	OngoingOnly bool `json:"ongoingOnly"`

	MaxWorkers int `json:"maxWorkers"`
}

func DefaultSettings() Settings {
	return Settings{
		MaxConcurrentShows:  4,
		ProbesPerSecond:     4,
		SyncIntervalMinutes: 60,
		OngoingOnly:         true,
		MaxWorkers:          1,
	}
}
