package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/metrics"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/streampath"
)

type Outcome string

const (
	// OutcomeFound: réponse < 400.
	OutcomeFound Outcome = "found"
	// OutcomeAbsent: le CDN a répondu 4xx.
	OutcomeAbsent Outcome = "absent"
	// OutcomeServerError: le CDN a répondu 5xx. Pour le moteur c'est "pas
	// encore publié", pour Health c'est une panne.
	OutcomeServerError Outcome = "server-error"
	// OutcomeUnreachable: erreur réseau, DNS ou timeout.
	OutcomeUnreachable Outcome = "unreachable"
)

// Failing: le CDN ne répond pas normalement (réseau ou 5xx).
func (o Outcome) Failing() bool {
	return o == OutcomeUnreachable || o == OutcomeServerError
}

// Target choisit l'URL sondée.
type Target string

const (
	TargetCDN     Target = "cdn"
	TargetWrapper Target = "wrapper"
)

type Result struct {
	Outcome    Outcome
	StatusCode int
	URL        string
	Duration   time.Duration
	Err        error
}

func (r Result) Available() bool { return r.Outcome == OutcomeFound }

type Options struct {
	Timeout         time.Duration
	ProbesPerSecond float64
	Target          Target
	UserAgent       string
}

func DefaultOptions() Options {
	return Options{
		Timeout:         8 * time.Second,
		ProbesPerSecond: 4,
		Target:          TargetCDN,
		UserAgent:       "avs-sync",
	}
}

// HTTPProber vérifie l'existence d'un épisode par une requête HEAD.
// Aucune erreur n'est remontée à l'appelant: tout échec vaut "pas encore publié".
type HTTPProber struct {
	logger  zerolog.Logger
	codec   *streampath.Codec
	client  *http.Client
	limiter *rate.Limiter
	opts    Options
	health  *Health
	metrics *metrics.Metrics
}

func NewHTTPProber(logger zerolog.Logger, codec *streampath.Codec, opts Options, health *Health, m *metrics.Metrics) *HTTPProber {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Target == "" {
		opts.Target = def.Target
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	return &HTTPProber{
		logger:  logger,
		codec:   codec,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limitFor(opts.ProbesPerSecond), 1),
		opts:    opts,
		health:  health,
		metrics: m,
	}
}

// WithClient remplace le client HTTP (tests).
func (p *HTTPProber) WithClient(c *http.Client) *HTTPProber {
	if c != nil {
		p.client = c
	}
	return p
}

// SetRate ajuste la politesse CDN à chaud (<= 0: illimité).
func (p *HTTPProber) SetRate(perSecond float64) {
	p.limiter.SetLimit(limitFor(perSecond))
}

func limitFor(perSecond float64) rate.Limit {
	if perSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}

func (p *HTTPProber) Exists(ctx context.Context, path string, episode int) bool {
	return p.Check(ctx, streampath.Path(path), episode).Available()
}

func (p *HTTPProber) urlFor(path streampath.Path, episode int) string {
	if p.opts.Target == TargetWrapper {
		return p.codec.EpisodeURL(path, episode)
	}
	return p.codec.CDNURL(path, episode)
}

// Check classe le résultat de la sonde (utile pour la santé et les métriques).
func (p *HTTPProber) Check(ctx context.Context, path streampath.Path, episode int) Result {
	u := p.urlFor(path, episode)
	res := Result{URL: u}

	if err := p.limiter.Wait(ctx); err != nil {
		res.Outcome = OutcomeUnreachable
		res.Err = err
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	start := time.Now()
	res = p.head(ctx, u)
	res.Duration = time.Since(start)

	// Une annulation côté appelant ne dit rien sur la santé du CDN.
	if !errors.Is(res.Err, context.Canceled) {
		p.metrics.ObserveProbe(string(res.Outcome), res.Duration)
		if p.health != nil {
			p.metrics.SetDegraded(p.health.Record(res.Outcome, res.Err))
		}
	}

	ev := p.logger.Debug()
	if res.Outcome.Failing() {
		ev = p.logger.Warn().Err(res.Err)
	}
	ev.Str("url", u).Int("status", res.StatusCode).Str("outcome", string(res.Outcome)).Dur("duration", res.Duration).Msg("probe")
	return res
}

func (p *HTTPProber) head(ctx context.Context, u string) Result {
	res := Result{URL: u}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		res.Outcome = OutcomeUnreachable
		res.Err = err
		return res
	}
	req.Header.Set("User-Agent", p.opts.UserAgent)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		res.Outcome = OutcomeUnreachable
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	if resp.StatusCode < 400 {
		res.Outcome = OutcomeFound
		return res
	}
	res.Outcome = OutcomeAbsent
	if resp.StatusCode >= 500 {
		res.Outcome = OutcomeServerError
	}
	res.Err = fmt.Errorf("cdn status: %s", resp.Status)
	return res
}
