package domain

import "sort"

type SeasonStatus string

const (
	SeasonOngoing  SeasonStatus = "ongoing"
	SeasonPaused   SeasonStatus = "paused"
	SeasonFinished SeasonStatus = "finished"
	// SeasonUpcoming existe dans certains catalogues: traité comme "pas fini".
	SeasonUpcoming SeasonStatus = "upcoming"
)

type SeasonKind string

const (
	KindSeries SeasonKind = "series"
	KindMovie  SeasonKind = "movie"
)

// Show est un document du catalogue, identifié par son slug.
// Les champs non utilisés par la synchro sont conservés tels quels, y compris
// les clés inconnues (Extra).
type Show struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	TitleRomaji          string   `json:"titleRomaji"`
	TitleJapanese        string   `json:"titleJapanese"`
	Genre                []string `json:"genre"`
	Studio               string   `json:"studio"`
	Recommended          bool     `json:"recommended"`
	RecommendationReason *string  `json:"recommendationReason"`
	Tags                 []string `json:"tags"`
	MalID                int      `json:"malId"`
	CoverImage           string   `json:"coverImage"`
	BannerImage          string   `json:"bannerImage"`
	Seasons              []Season `json:"seasons"`
	AdultContent         *bool    `json:"adultContent,omitempty"`

	Extra Extra `json:"-"`
}

type Season struct {
	Number         int            `json:"season"`
	Label          string         `json:"seasonLabel"`
	Year           int            `json:"year"`
	Episodes       int            `json:"episodes"`
	CurrentEpisode int            `json:"currentEpisode"`
	Status         SeasonStatus   `json:"status"`
	Kind           SeasonKind     `json:"type,omitempty"`
	Score          float64        `json:"score"`
	Synopsis       string         `json:"synopsis"`
	Trailer        string         `json:"trailer"`
	Audios         []AudioTrack   `json:"audios"`
	EpisodeList    []EpisodeEntry `json:"episodeList,omitempty"`

	Extra Extra `json:"-"`
}

type AudioTrack struct {
	Kind              AudioKind `json:"type"`
	Label             string    `json:"label"`
	Available         bool      `json:"available"`
	EpisodesAvailable int       `json:"episodesAvailable"`

	Extra Extra `json:"-"`
}

type EpisodeEntry struct {
	ID          string `json:"id"`
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Season      string `json:"season,omitempty"`
	Embeds      Embeds `json:"embeds"`
	EmbedURL    string `json:"embedUrl,omitempty"`
	EmbedCredit string `json:"embedCredit,omitempty"`

	Extra Extra `json:"-"`
}

func (s Season) IsMovie() bool { return s.Kind == KindMovie }

func (s Season) IsFinished() bool { return s.Status == SeasonFinished }

// Track renvoie la piste audio du type demandé, ou nil si la saison n'en a pas.
func (s *Season) Track(kind AudioKind) *AudioTrack {
	for i := range s.Audios {
		if s.Audios[i].Kind == kind {
			return &s.Audios[i]
		}
	}
	return nil
}

func (s *Season) Entry(number int) *EpisodeEntry {
	for i := range s.EpisodeList {
		if s.EpisodeList[i].Number == number {
			return &s.EpisodeList[i]
		}
	}
	return nil
}

// LatestEmbed renvoie le numéro et le blob du dernier épisode ayant un embed pour kind.
func (s *Season) LatestEmbed(kind AudioKind) (int, string) {
	number, blob := 0, ""
	for _, ep := range s.EpisodeList {
		b := ep.Embeds.Get(kind)
		if b == "" {
			continue
		}
		if ep.Number > number {
			number, blob = ep.Number, b
		}
	}
	return number, blob
}

// PutEpisode insère entry, ou fusionne ses embeds dans l'épisode de même numéro.
// La liste reste triée par numéro.
func (s *Season) PutEpisode(entry EpisodeEntry) {
	if existing := s.Entry(entry.Number); existing != nil {
		for _, kind := range AudioKinds {
			if b := entry.Embeds.Get(kind); b != "" {
				existing.Embeds.Set(kind, b)
			}
		}
		return
	}
	s.EpisodeList = append(s.EpisodeList, entry)
	sort.SliceStable(s.EpisodeList, func(i, j int) bool {
		return s.EpisodeList[i].Number < s.EpisodeList[j].Number
	})
}

// RecomputeCurrentEpisode aligne CurrentEpisode sur le plus grand épisode
// ayant au moins un embed. Renvoie true si la valeur a changé.
func (s *Season) RecomputeCurrentEpisode() bool {
	max := 0
	for _, ep := range s.EpisodeList {
		if ep.Embeds.Any() && ep.Number > max {
			max = ep.Number
		}
	}
	if max == 0 || max == s.CurrentEpisode {
		return false
	}
	s.CurrentEpisode = max
	return true
}

// Completed indique si toutes les pistes disponibles ont atteint le plafond.
// Une saison sans plafond ou sans aucune piste disponible n'est jamais complète.
func (s *Season) Completed() bool {
	if s.Episodes <= 0 {
		return false
	}
	seen := false
	for _, kind := range AudioKinds {
		t := s.Track(kind)
		if t == nil || !t.Available {
			continue
		}
		seen = true
		if t.EpisodesAvailable < s.Episodes {
			return false
		}
	}
	return seen
}

func (sh Show) HasOngoing() bool {
	for _, s := range sh.Seasons {
		if s.Status == SeasonOngoing {
			return true
		}
	}
	return false
}

// Clone renvoie une copie profonde (utilisée pour les passes à blanc).
func (sh Show) Clone() Show {
	out := sh
	out.Genre = cloneStrings(sh.Genre)
	out.Tags = cloneStrings(sh.Tags)
	out.Extra = sh.Extra.clone()
	if sh.RecommendationReason != nil {
		v := *sh.RecommendationReason
		out.RecommendationReason = &v
	}
	if sh.AdultContent != nil {
		v := *sh.AdultContent
		out.AdultContent = &v
	}
	if sh.Seasons != nil {
		out.Seasons = make([]Season, len(sh.Seasons))
		for i, s := range sh.Seasons {
			cs := s
			cs.Extra = s.Extra.clone()
			if s.Audios != nil {
				cs.Audios = make([]AudioTrack, len(s.Audios))
				for j, a := range s.Audios {
					a.Extra = a.Extra.clone()
					cs.Audios[j] = a
				}
			}
			if s.EpisodeList != nil {
				cs.EpisodeList = make([]EpisodeEntry, len(s.EpisodeList))
				for j, ep := range s.EpisodeList {
					ep.Extra = ep.Extra.clone()
					cs.EpisodeList[j] = ep
				}
			}
			out.Seasons[i] = cs
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

func CloneShows(shows []Show) []Show {
	out := make([]Show, len(shows))
	for i, sh := range shows {
		out[i] = sh.Clone()
	}
	return out
}
