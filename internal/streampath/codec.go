package streampath

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Codec construit les URLs d'épisodes à partir d'un Path.
type Codec struct {
	cdnBase string
	wrapper string
	now     func() time.Time

	mu        sync.Mutex
	lastToken int64
}

func NewCodec(cdnBase, wrapper string) *Codec {
	return &Codec{
		cdnBase: strings.TrimRight(strings.TrimSpace(cdnBase), "/"),
		wrapper: strings.TrimSpace(wrapper),
		now:     time.Now,
	}
}

// WithClock remplace l'horloge (tests).
func (c *Codec) WithClock(now func() time.Time) *Codec {
	if now != nil {
		c.now = now
	}
	return c
}

// FormatEpisode rend le numéro sur au moins deux chiffres, sans troncature.
func FormatEpisode(n int) string {
	return fmt.Sprintf("%02d", n)
}

// CDNURL renvoie la playlist HLS brute de l'épisode.
func (c *Codec) CDNURL(p Path, episode int) string {
	return c.cdnBase + "/" + string(p) + "/" + FormatEpisode(episode) + suffix + "/index.m3u8"
}

// NextToken renvoie un jeton anti-cache dérivé de l'horloge, strictement croissant.
func (c *Codec) NextToken() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UnixMilli()
	if t <= c.lastToken {
		t = c.lastToken + 1
	}
	c.lastToken = t
	return t
}

// EpisodeURL enveloppe l'URL CDN dans le wrapper avec un jeton anti-cache.
func (c *Codec) EpisodeURL(p Path, episode int) string {
	return fmt.Sprintf("%s?d=%s&nocache%d", c.wrapper, c.CDNURL(p, episode), c.NextToken())
}

// Embed renvoie le blob stocké dans le catalogue pour cet épisode.
func (c *Codec) Embed(p Path, episode int) string {
	return Iframe(c.EpisodeURL(p, episode))
}

// Credit est l'hôte du wrapper, affiché comme source de l'embed.
func (c *Codec) Credit() string {
	s := c.wrapper
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?"); i >= 0 {
		s = s[:i]
	}
	return s
}

func Iframe(src string) string {
	return `<iframe width="100%" height="100%" src="` + src + `" frameborder="0" allowfullscreen></iframe>`
}
