package probe

import (
	"sync"
	"time"
)

// Health distingue un CDN en panne d'un simple 404, sans changer les
// décisions du moteur. Degraded passe à true après Threshold sondes en échec
// consécutives (réseau ou 5xx); une réponse < 500 remet à zéro.
type Health struct {
	mu sync.Mutex

	threshold   int
	consecutive int
	lastErr     string
	lastOK      time.Time
	lastFail    time.Time
	now         func() time.Time
}

type HealthSnapshot struct {
	Degraded               bool      `json:"degraded"`
	ConsecutiveUnreachable int       `json:"consecutiveUnreachable"`
	LastError              string    `json:"lastError,omitempty"`
	LastReachableAt        time.Time `json:"lastReachableAt,omitempty"`
	LastUnreachableAt      time.Time `json:"lastUnreachableAt,omitempty"`
}

func NewHealth(threshold int) *Health {
	if threshold <= 0 {
		threshold = 5
	}
	return &Health{threshold: threshold, now: time.Now}
}

// Record enregistre un résultat et renvoie l'état dégradé courant.
func (h *Health) Record(o Outcome, err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now().UTC()
	if o.Failing() {
		h.consecutive++
		h.lastFail = now
		if err != nil {
			h.lastErr = err.Error()
		}
	} else {
		h.consecutive = 0
		h.lastOK = now
	}
	return h.consecutive >= h.threshold
}

func (h *Health) Snapshot() HealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HealthSnapshot{
		Degraded:               h.consecutive >= h.threshold,
		ConsecutiveUnreachable: h.consecutive,
		LastError:              h.lastErr,
		LastReachableAt:        h.lastOK,
		LastUnreachableAt:      h.lastFail,
	}
}
