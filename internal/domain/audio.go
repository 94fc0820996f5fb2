package domain

import "fmt"

type AudioKind string

const (
	AudioSub AudioKind = "sub"
	AudioDub AudioKind = "dub"
)

// AudioKinds fixe l'ordre de traitement: sub puis dub.
var AudioKinds = []AudioKind{AudioSub, AudioDub}

func ParseAudioKind(s string) (AudioKind, error) {
	switch AudioKind(s) {
	case AudioSub, AudioDub:
		return AudioKind(s), nil
	default:
		return "", fmt.Errorf("unknown audio kind %q", s)
	}
}

// Tag est l'étiquette courte utilisée dans les rapports.
func (k AudioKind) Tag() string {
	if k == AudioDub {
		return "DUB"
	}
	return "SUB"
}

// Embeds associe à chaque type audio un blob d'embed (iframe).
// Seuls sub et dub existent; l'absence d'un type est l'état normal.
type Embeds struct {
	Sub string `json:"sub,omitempty"`
	Dub string `json:"dub,omitempty"`
}

func (e Embeds) Get(kind AudioKind) string {
	switch kind {
	case AudioSub:
		return e.Sub
	case AudioDub:
		return e.Dub
	}
	return ""
}

func (e *Embeds) Set(kind AudioKind, blob string) {
	switch kind {
	case AudioSub:
		e.Sub = blob
	case AudioDub:
		e.Dub = blob
	}
}

func (e Embeds) Any() bool { return e.Sub != "" || e.Dub != "" }
