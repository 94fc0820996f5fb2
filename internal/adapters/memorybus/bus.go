// Package memorybus diffuse les événements du moteur (épisodes ajoutés,
// passes, jobs) aux abonnés du même processus: flux SSE, journal des
// notifications.
package memorybus

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
)

const defaultBuffer = 256

type Options struct {
	// Buffer par abonné. Un abonné plein perd les événements suivants.
	Buffer int
	Logger zerolog.Logger
}

type Bus struct {
	mu     sync.Mutex
	subs   map[chan ports.Event]struct{}
	closed bool

	buffer  int
	logger  zerolog.Logger
	dropped atomic.Uint64
}

func New() *Bus {
	return NewWithOptions(Options{Logger: zerolog.Nop()})
}

func NewWithOptions(opts Options) *Bus {
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	return &Bus{
		subs:   make(map[chan ports.Event]struct{}),
		buffer: opts.Buffer,
		logger: opts.Logger,
	}
}

// Publish n'est jamais bloquant.
func (b *Bus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	evt := ports.Event{Topic: topic, Payload: payload}
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			n := b.dropped.Add(1)
			b.logger.Warn().Str("topic", topic).Uint64("dropped_total", n).Msg("event dropped: slow subscriber")
		}
	}
}

func (b *Bus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event, b.buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
		b.mu.Unlock()
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}

	return ch, cancel
}

// Close ferme tous les abonnements; les Publish suivants sont ignorés.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped compte les événements perdus depuis le démarrage.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }
