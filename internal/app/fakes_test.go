package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/domain"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/streampath"
)

const (
	testCDN     = "https://cdn.example.net/stream"
	testWrapper = "https://wrap.example.net/videohls.php"
)

func testCodec() *streampath.Codec {
	fixed := time.UnixMilli(1700000000000)
	return streampath.NewCodec(testCDN, testWrapper).WithClock(func() time.Time { return fixed })
}

// blob construit un embed tel qu'il figure dans un catalogue réel.
func blob(path string, ep int) string {
	return streampath.Iframe(fmt.Sprintf("%s?d=%s/%s/%02d.mp4/index.m3u8&nocache1", testWrapper, testCDN, path, ep))
}

// fakeProber répond depuis un ensemble "path|ep" et compte les appels.
type fakeProber struct {
	mu     sync.Mutex
	found  map[string]bool
	calls  []string
	onCall func()
}

func newFakeProber(available ...string) *fakeProber {
	p := &fakeProber{found: map[string]bool{}}
	for _, k := range available {
		p.found[k] = true
	}
	return p
}

func probeKey(path string, ep int) string { return fmt.Sprintf("%s|%d", path, ep) }

func (p *fakeProber) Exists(ctx context.Context, path string, episode int) bool {
	p.mu.Lock()
	k := probeKey(path, episode)
	p.calls = append(p.calls, k)
	ok := p.found[k]
	hook := p.onCall
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	return ok
}

func (p *fakeProber) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// memCatalog est un CatalogStore en mémoire qui sérialise comme le fichier réel.
type memCatalog struct {
	mu      sync.Mutex
	raw     []byte
	saves   int
	loadErr error
	saveErr error
}

func newMemCatalog(shows []domain.Show) *memCatalog {
	b, _ := json.Marshal(shows)
	return &memCatalog{raw: b}
}

func (c *memCatalog) Load(ctx context.Context) ([]domain.Show, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	var out []domain.Show
	if err := json.Unmarshal(c.raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *memCatalog) Save(ctx context.Context, shows []domain.Show) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveErr != nil {
		return c.saveErr
	}
	b, err := json.Marshal(shows)
	if err != nil {
		return err
	}
	c.raw = b
	c.saves++
	return nil
}

func (c *memCatalog) Raw() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.raw...)
}

func (c *memCatalog) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

// recordingBus garde tous les événements publiés.
type recordingBus struct {
	mu     sync.Mutex
	events []ports.Event
}

func (b *recordingBus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ports.Event{Topic: topic, Payload: payload})
}

func (b *recordingBus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event)
	return ch, func() {}
}

func (b *recordingBus) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Topic)
	}
	return out
}

// ongoingShow: une saison en cours avec les épisodes 1..subN en sub et 1..dubN en dub.
func ongoingShow(id, path string, episodes, subN, dubN int) domain.Show {
	season := domain.Season{
		Number:   1,
		Episodes: episodes,
		Status:   domain.SeasonOngoing,
		Kind:     domain.KindSeries,
		Audios: []domain.AudioTrack{
			{Kind: domain.AudioSub, Label: "VOSTFR", Available: subN > 0, EpisodesAvailable: subN},
			{Kind: domain.AudioDub, Label: "VF", Available: dubN > 0, EpisodesAvailable: dubN},
		},
	}
	for n := 1; n <= max(subN, dubN); n++ {
		e := domain.EpisodeEntry{
			ID:     fmt.Sprintf("%s-s1-ep%d", id, n),
			Number: n,
			Title:  fmt.Sprintf("%s - T1 Ep %d", id, n),
			Season: "1",
		}
		if n <= subN {
			e.Embeds.Sub = blob(path, n)
		}
		if n <= dubN {
			e.Embeds.Dub = blob(path, n)
		}
		season.EpisodeList = append(season.EpisodeList, e)
	}
	season.CurrentEpisode = max(subN, dubN)
	return domain.Show{ID: id, Title: id, Seasons: []domain.Season{season}}
}
