package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/metrics"
)

type syncFixture struct {
	store   *memCatalog
	prober  *fakeProber
	bus     *recordingBus
	metrics *metrics.Metrics
	svc     *SyncService
}

func newSyncFixture(shows []domain.Show, found ...string) *syncFixture {
	f := &syncFixture{
		store:   newMemCatalog(shows),
		prober:  newFakeProber(found...),
		bus:     &recordingBus{},
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	engine := NewProgressionEngine(zerolog.Nop(), f.prober, testCodec())
	f.svc = NewSyncService(zerolog.Nop(), f.store, engine, NewDynamicLimiter(2), f.bus, f.metrics)
	return f
}

func testCatalog() []domain.Show {
	paused := ongoingShow("paused", "p/paused", 0, 1, 0)
	paused.Seasons[0].Status = domain.SeasonPaused
	return []domain.Show{
		ongoingShow("alpha", "a/alpha", 0, 3, 0),
		ongoingShow("beta", "b/beta", 12, 5, 5),
		paused,
	}
}

func TestRunPass_LiveSavesOnceWhenChanged(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f := newSyncFixture(testCatalog(), probeKey("a/alpha", 4), probeKey("b/beta", 6))
	res, err := f.svc.RunPass(context.Background(), PassOptions{OngoingOnly: true})
	require.NoError(err)

	require.True(res.Saved)
	require.Equal(1, f.store.Saves())
	require.Equal(3, res.Added)
	require.Equal([]string{"alpha", "beta"}, res.ChangedShows)
	require.Len(res.Shows, 2, "paused show is not visited")

	shows, err := f.store.Load(context.Background())
	require.NoError(err)
	require.Equal(4, shows[0].Seasons[0].Track(domain.AudioSub).EpisodesAvailable)
	require.Equal(6, shows[1].Seasons[0].Track(domain.AudioDub).EpisodesAvailable)

	require.Contains(f.bus.Topics(), "episode.added")
	require.Contains(f.bus.Topics(), "sync.completed")
	require.Equal(2.0, testutil.ToFloat64(f.metrics.EpisodesAdded.WithLabelValues("sub")))
	require.Equal(1.0, testutil.ToFloat64(f.metrics.EpisodesAdded.WithLabelValues("dub")))
}

func TestRunPass_DryRunNeverSaves(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f := newSyncFixture(testCatalog(), probeKey("a/alpha", 4))
	before := f.store.Raw()

	res, err := f.svc.RunPass(context.Background(), PassOptions{DryRun: true, OngoingOnly: true})
	require.NoError(err)

	require.False(res.Saved)
	require.Equal(1, res.Added)
	require.Equal(0, f.store.Saves())
	require.Equal(before, f.store.Raw())
	require.NotContains(f.bus.Topics(), "episode.added")
}

func TestRunPass_AllSkipDoesNotSave(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f := newSyncFixture(testCatalog())
	res, err := f.svc.RunPass(context.Background(), PassOptions{})
	require.NoError(err)

	require.False(res.Saved)
	require.Empty(res.ChangedShows)
	require.Equal(0, f.store.Saves())
	require.Len(res.Shows, 3)
}

func TestRunPass_ShowFilter(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f := newSyncFixture(testCatalog(), probeKey("a/alpha", 4), probeKey("p/paused", 2))
	res, err := f.svc.RunPass(context.Background(), PassOptions{ShowIDs: []string{"Paused"}, OngoingOnly: true})
	require.NoError(err)

	require.Len(res.Shows, 1)
	require.Equal("paused", res.Shows[0].ShowID)
	require.Equal(1, res.Added)

	_, err = f.svc.RunPass(context.Background(), PassOptions{ShowIDs: []string{"nope"}})
	require.ErrorIs(err, ErrNotFound)
}

func TestRunPass_LoadFailureIsCoded(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(testCatalog())
	f.store.loadErr = errors.New("disk gone")

	_, err := f.svc.RunPass(context.Background(), PassOptions{})
	require.Error(t, err)
	require.True(t, IsCatalogError(err))
	var ce *CodedError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "catalog_load", ce.Code)
}

func TestRunPass_SaveFailureIsFatal(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f := newSyncFixture(testCatalog(), probeKey("a/alpha", 4))
	f.store.saveErr = errors.New("read-only")

	res, err := f.svc.RunPass(context.Background(), PassOptions{})
	require.Error(err)
	var ce *CodedError
	require.ErrorAs(err, &ce)
	require.Equal("catalog_save", ce.Code)
	require.False(res.Saved)
	require.NotContains(f.bus.Topics(), "episode.added")
	require.Equal(1.0, testutil.ToFloat64(f.metrics.CatalogSaves.WithLabelValues("error")))
}

func TestRunPass_CanceledPassKeepsCompletedSteps(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	// Une seule série à la fois: l'annulation survient pendant la première.
	shows := []domain.Show{
		ongoingShow("first", "f/first", 0, 1, 0),
		ongoingShow("second", "s/second", 0, 1, 0),
	}
	f := newSyncFixture(shows, probeKey("f/first", 2), probeKey("s/second", 2))
	f.svc.limiter.SetLimit(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	f.prober.onCall = func() {
		calls++
		if calls == 2 {
			cancel()
		}
	}
	// sub de "first" passe, puis la sonde suivante annule.
	shows[0].Seasons[0].Audios[1] = domain.AudioTrack{Kind: domain.AudioDub, Available: true, EpisodesAvailable: 1}
	shows[0].Seasons[0].EpisodeList[0].Embeds.Dub = blob("f/first", 1)
	f.store = newMemCatalog(shows)
	f.svc.store = f.store

	res, err := f.svc.RunPass(ctx, PassOptions{})
	require.NoError(err)
	require.True(res.Canceled)
	require.True(res.Saved)

	saved, err := f.store.Load(context.Background())
	require.NoError(err)
	total := 0
	for _, sh := range saved {
		total += sh.Seasons[0].Track(domain.AudioSub).EpisodesAvailable
	}
	// Exactement une étape appliquée avant l'annulation.
	require.Equal(3, total)

	var summary PassSummary
	for _, e := range f.bus.events {
		if e.Topic == "sync.completed" {
			require.NoError(json.Unmarshal(e.Payload, &summary))
		}
	}
	require.True(summary.Canceled)
}

// catalogDoc écrit un document complet, champs à zéro compris, comme le site.
func catalogDoc(id, path, status string, subN int) string {
	emb, _ := json.Marshal(blob(path, subN))
	return fmt.Sprintf(`{
		"id": %q, "title": %q, "titleRomaji": "", "titleJapanese": "",
		"genre": [], "studio": "", "recommended": false, "recommendationReason": null,
		"tags": [], "malId": 0, "coverImage": "", "bannerImage": "", "pinned": true,
		"seasons": [{
			"season": 1, "seasonLabel": "", "year": 0, "episodes": 24, "currentEpisode": %d,
			"status": %q, "type": "series", "score": 0, "synopsis": "", "trailer": "",
			"audios": [
				{"type": "sub", "label": "VOSTFR", "available": true, "episodesAvailable": %d},
				{"type": "dub", "label": "VF", "available": false, "episodesAvailable": 0}
			],
			"episodeList": [{"id": "%s-s1-ep%d", "number": %d, "title": "Ep", "embeds": {"sub": %s}}]
		}]
	}`, id, id, subN, status, subN, id, subN, subN, emb)
}

func TestRunPass_LiveSaveKeepsUntouchedCatalogFields(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f := newSyncFixture(nil, probeKey("c/changed", 3))
	f.store.raw = []byte("[" + catalogDoc("changed", "c/changed", "ongoing", 2) + "," +
		catalogDoc("done", "d/done", "finished", 24) + "]")

	res, err := f.svc.RunPass(context.Background(), PassOptions{})
	require.NoError(err)
	require.True(res.Saved)
	require.Equal([]string{"changed"}, res.ChangedShows)

	var saved []map[string]any
	require.NoError(json.Unmarshal(f.store.Raw(), &saved))
	require.Len(saved, 2)
	for _, doc := range saved {
		for _, key := range []string{"genre", "tags", "recommended", "recommendationReason", "studio", "malId", "pinned"} {
			require.Contains(doc, key, "%s: %s", doc["id"], key)
		}
		require.Nil(doc["recommendationReason"])
		require.Equal([]any{}, doc["genre"])
		season := doc["seasons"].([]any)[0].(map[string]any)
		for _, key := range []string{"seasonLabel", "year", "score", "synopsis", "trailer"} {
			require.Contains(season, key, "%s: %s", doc["id"], key)
		}
	}
	season := saved[0]["seasons"].([]any)[0].(map[string]any)
	require.Equal(3.0, season["currentEpisode"])
}
