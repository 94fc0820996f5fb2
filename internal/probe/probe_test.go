package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/metrics"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/streampath"
)

func newTestProber(t *testing.T, base string, opts Options) (*HTTPProber, *Health, *metrics.Metrics) {
	t.Helper()
	codec := streampath.NewCodec(base+"/stream", base+"/videohls.php")
	h := NewHealth(2)
	m := metrics.New(prometheus.NewRegistry())
	return NewHTTPProber(zerolog.Nop(), codec, opts, h, m), h, m
}

func TestHTTPProber_StatusMapping(t *testing.T) {
	require := require.New(t)

	var methods atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods.Store(r.Method)
		switch r.URL.Path {
		case "/stream/a/x/04.mp4/index.m3u8":
			w.WriteHeader(http.StatusOK)
		case "/stream/a/x/05.mp4/index.m3u8":
			http.Redirect(w, r, "/stream/a/x/04.mp4/index.m3u8", http.StatusFound)
		case "/stream/a/x/06.mp4/index.m3u8":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	p, _, _ := newTestProber(t, ts.URL, Options{})
	ctx := context.Background()

	require.True(p.Exists(ctx, "a/x", 4))
	require.Equal(http.MethodHead, methods.Load())
	require.True(p.Exists(ctx, "a/x", 5), "redirects are followed")
	require.False(p.Exists(ctx, "a/x", 6))
	require.False(p.Exists(ctx, "a/x", 7))

	require.Equal(OutcomeServerError, p.Check(ctx, "a/x", 6).Outcome)
	res := p.Check(ctx, "a/x", 7)
	require.Equal(OutcomeAbsent, res.Outcome)
	require.Equal(http.StatusNotFound, res.StatusCode)
}

func TestHTTPProber_TimeoutIsNotAvailable(t *testing.T) {
	require := require.New(t)

	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	p, _, _ := newTestProber(t, ts.URL, Options{Timeout: 50 * time.Millisecond})
	res := p.Check(context.Background(), "a/x", 1)
	require.Equal(OutcomeUnreachable, res.Outcome)
	require.False(res.Available())
}

func TestHTTPProber_UnreachableMarksDegraded(t *testing.T) {
	require := require.New(t)

	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	p, h, m := newTestProber(t, base, Options{Timeout: time.Second})
	ctx := context.Background()

	require.False(p.Exists(ctx, "a/x", 1))
	require.False(h.Snapshot().Degraded)
	require.False(p.Exists(ctx, "a/x", 1))

	snap := h.Snapshot()
	require.True(snap.Degraded)
	require.Equal(2, snap.ConsecutiveUnreachable)
	require.NotEmpty(snap.LastError)
	require.Equal(1.0, testutil.ToFloat64(m.CDNDegraded))
	require.Equal(2.0, testutil.ToFloat64(m.Probes.WithLabelValues(string(OutcomeUnreachable))))
}

func TestHTTPProber_WrapperTarget(t *testing.T) {
	require := require.New(t)

	var gotQuery atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.RawQuery)
		if r.URL.Path == "/videohls.php" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	p, _, _ := newTestProber(t, ts.URL, Options{Target: TargetWrapper})
	require.True(p.Exists(context.Background(), "a/x", 2))
	require.Contains(gotQuery.Load(), "/stream/a/x/02.mp4/index.m3u8")
	require.Contains(gotQuery.Load(), "nocache")
}

func TestHealth_AbsentResetsCounter(t *testing.T) {
	require := require.New(t)

	h := NewHealth(2)
	require.False(h.Record(OutcomeUnreachable, nil))
	require.False(h.Record(OutcomeAbsent, nil))
	require.False(h.Record(OutcomeUnreachable, nil))
	require.True(h.Record(OutcomeUnreachable, nil))
	require.False(h.Record(OutcomeFound, nil))
	require.Equal(0, h.Snapshot().ConsecutiveUnreachable)
}

func TestHTTPProber_ServerErrorsMarkDegraded(t *testing.T) {
	require := require.New(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	p, h, m := newTestProber(t, ts.URL, Options{})
	ctx := context.Background()

	res := p.Check(ctx, "a/x", 1)
	require.Equal(OutcomeServerError, res.Outcome)
	require.Equal(http.StatusServiceUnavailable, res.StatusCode)
	require.False(res.Available())
	require.False(h.Snapshot().Degraded)

	require.False(p.Exists(ctx, "a/x", 1), "engine still sees not-yet-published")
	snap := h.Snapshot()
	require.True(snap.Degraded)
	require.Equal(2, snap.ConsecutiveUnreachable)
	require.Contains(snap.LastError, "503")
	require.Equal(1.0, testutil.ToFloat64(m.CDNDegraded))
	require.Equal(2.0, testutil.ToFloat64(m.Probes.WithLabelValues(string(OutcomeServerError))))
}

func TestHealth_ServerErrorCountsAsFailure(t *testing.T) {
	require := require.New(t)

	h := NewHealth(3)
	require.False(h.Record(OutcomeServerError, nil))
	require.False(h.Record(OutcomeUnreachable, nil))
	require.True(h.Record(OutcomeServerError, nil))
	require.False(h.Record(OutcomeAbsent, nil))
}
