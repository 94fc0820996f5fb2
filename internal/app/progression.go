package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/streampath"
)

// Outcome est la décision prise pour une piste audio pendant une passe.
type Outcome string

const (
	OutcomeAdded            Outcome = "added"
	OutcomeNotAvailable     Outcome = "not-available"
	OutcomeCapReached       Outcome = "cap-reached"
	OutcomeNoStreamPath     Outcome = "no-stream-path"
	OutcomeTrackUnavailable Outcome = "track-unavailable"
	OutcomeCanceled         Outcome = "canceled"
)

// SeasonSkip explique pourquoi une saison n'a pas été traitée.
type SeasonSkip string

const (
	SkipNone       SeasonSkip = ""
	SkipFinished   SeasonSkip = "finished"
	SkipNoEpisodes SeasonSkip = "no-episodes"
)

type TrackDecision struct {
	Audio      domain.AudioKind `json:"audio"`
	StreamPath string           `json:"streamPath,omitempty"`
	Baseline   int              `json:"baseline"`
	Candidate  int              `json:"candidate"`
	Cap        int              `json:"cap"`
	Outcome    Outcome          `json:"outcome"`
}

type SeasonResult struct {
	Season         int                 `json:"season"`
	Label          string              `json:"label,omitempty"`
	Kind           domain.SeasonKind   `json:"kind,omitempty"`
	Status         domain.SeasonStatus `json:"status"`
	Skip           SeasonSkip          `json:"skip,omitempty"`
	Tracks         []TrackDecision     `json:"tracks,omitempty"`
	Finished       bool                `json:"finished,omitempty"`
	CurrentEpisode int                 `json:"currentEpisode"`
}

type ShowResult struct {
	ShowID   string         `json:"showId"`
	Title    string         `json:"title"`
	Seasons  []SeasonResult `json:"seasons"`
	Changed  bool           `json:"changed"`
	Added    int            `json:"added"`
	Canceled bool           `json:"canceled,omitempty"`
}

// ProgressionEngine fait avancer, pour une série, chaque piste audio d'au plus
// un épisode par passe. Il travaille sur un *domain.Show emprunté et ne
// persiste rien: l'appelant décide de sauvegarder.
type ProgressionEngine struct {
	logger zerolog.Logger
	prober ports.Prober
	codec  *streampath.Codec
}

func NewProgressionEngine(logger zerolog.Logger, prober ports.Prober, codec *streampath.Codec) *ProgressionEngine {
	return &ProgressionEngine{logger: logger, prober: prober, codec: codec}
}

// SyncShow traite les saisons l'une après l'autre, sub puis dub.
// L'annulation n'intervient qu'entre deux étapes.
func (e *ProgressionEngine) SyncShow(ctx context.Context, show *domain.Show) ShowResult {
	res := ShowResult{ShowID: show.ID, Title: show.Title, Seasons: make([]SeasonResult, 0, len(show.Seasons))}
	logger := e.logger.With().Str("show", show.ID).Logger()

	for i := range show.Seasons {
		season := &show.Seasons[i]
		sr := SeasonResult{
			Season:         season.Number,
			Label:          season.Label,
			Kind:           season.Kind,
			Status:         season.Status,
			CurrentEpisode: season.CurrentEpisode,
		}

		if season.IsFinished() && !season.IsMovie() {
			sr.Skip = SkipFinished
			res.Seasons = append(res.Seasons, sr)
			continue
		}
		if len(season.EpisodeList) == 0 {
			sr.Skip = SkipNoEpisodes
			res.Seasons = append(res.Seasons, sr)
			continue
		}

		mutated := false
		for _, kind := range domain.AudioKinds {
			var d TrackDecision
			if ctx.Err() != nil {
				d = TrackDecision{Audio: kind, Cap: season.Episodes, Outcome: OutcomeCanceled}
			} else {
				d = e.step(ctx, show, season, kind)
			}
			sr.Tracks = append(sr.Tracks, d)

			ev := logger.Info()
			if d.Outcome == OutcomeNoStreamPath {
				ev = logger.Warn()
			}
			ev.Int("season", season.Number).
				Str("audio", string(kind)).
				Int("baseline", d.Baseline).
				Int("candidate", d.Candidate).
				Str("outcome", string(d.Outcome)).
				Msg("track step")

			switch d.Outcome {
			case OutcomeAdded:
				mutated = true
				res.Added++
			case OutcomeCanceled:
				res.Canceled = true
			}
		}

		if mutated {
			season.RecomputeCurrentEpisode()
			res.Changed = true
		}
		if !season.IsFinished() && season.Completed() {
			season.Status = domain.SeasonFinished
			sr.Finished = true
			res.Changed = true
			logger.Info().Int("season", season.Number).Int("cap", season.Episodes).Msg("season finished")
		}
		sr.Status = season.Status
		sr.CurrentEpisode = season.CurrentEpisode
		res.Seasons = append(res.Seasons, sr)
	}
	return res
}

// step traite une piste: découverte, baseline, candidat, sonde, application.
// L'entrée d'épisode et le compteur de la piste changent ensemble ou pas du tout.
// Le drapeau available ne sert qu'à la clôture: une piste marquée absente mais
// qui a déjà des embeds est sondée comme les autres.
func (e *ProgressionEngine) step(ctx context.Context, show *domain.Show, season *domain.Season, kind domain.AudioKind) TrackDecision {
	d := TrackDecision{Audio: kind, Cap: season.Episodes}

	track := season.Track(kind)
	if track == nil {
		d.Outcome = OutcomeTrackUnavailable
		return d
	}

	latest, blob := season.LatestEmbed(kind)
	d.Baseline = max(latest, track.EpisodesAvailable)
	d.Candidate = d.Baseline + 1

	if season.Episodes > 0 && d.Candidate > season.Episodes {
		d.Outcome = OutcomeCapReached
		return d
	}

	// Pas de repli sur un épisode plus ancien si le dernier blob est illisible.
	path, ok := streampath.Extract(blob)
	if !ok {
		d.Outcome = OutcomeNoStreamPath
		if !track.Available && blob == "" {
			d.Outcome = OutcomeTrackUnavailable
		}
		return d
	}
	d.StreamPath = path.String()

	found := e.prober.Exists(ctx, path.String(), d.Candidate)
	if ctx.Err() != nil {
		d.Outcome = OutcomeCanceled
		return d
	}
	if !found {
		d.Outcome = OutcomeNotAvailable
		return d
	}

	entry := domain.EpisodeEntry{
		ID:          fmt.Sprintf("%s-s%d-ep%d", show.ID, season.Number, d.Candidate),
		Number:      d.Candidate,
		Title:       fmt.Sprintf("%s - T%d Ep %d", displayTitle(show), season.Number, d.Candidate),
		Season:      strconv.Itoa(season.Number),
		EmbedCredit: e.codec.Credit(),
	}
	entry.Embeds.Set(kind, e.codec.Embed(path, d.Candidate))
	season.PutEpisode(entry)
	track.EpisodesAvailable = d.Candidate

	d.Outcome = OutcomeAdded
	return d
}

func displayTitle(show *domain.Show) string {
	if show.TitleRomaji != "" {
		return show.TitleRomaji
	}
	return show.Title
}
