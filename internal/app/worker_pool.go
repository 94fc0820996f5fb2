package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/metrics"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
)

// WorkerPool fait tourner les workers qui exécutent les passes en file.
// Leur nombre suit le réglage maxWorkers (SetCount, appelable à chaud).
// Un worker retiré finit la passe en cours avant de s'arrêter; Close, lui,
// interrompt les passes en cours (elles finissent "failed", code canceled).
type WorkerPool struct {
	parent  context.Context
	logger  zerolog.Logger
	repo    ports.JobRepository
	bus     ports.EventBus
	execs   ExecutorRegistry
	opts    WorkerOptions
	metrics *metrics.Metrics

	mu      sync.Mutex
	slots   []poolSlot
	nextID  int
	running sync.WaitGroup
}

type poolSlot struct {
	id   int
	stop context.CancelFunc
	kill context.CancelFunc
}

func NewWorkerPool(parent context.Context, logger zerolog.Logger, repo ports.JobRepository, bus ports.EventBus, execs ExecutorRegistry, opts WorkerOptions) *WorkerPool {
	if parent == nil {
		parent = context.Background()
	}
	return &WorkerPool{parent: parent, logger: logger, repo: repo, bus: bus, execs: execs, opts: opts}
}

// WithMetrics publie la taille du pool dans la jauge avs_worker_count.
func (p *WorkerPool) WithMetrics(m *metrics.Metrics) *WorkerPool {
	p.metrics = m
	return p
}

func (p *WorkerPool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// SetCount ajuste le nombre de workers; n <= 0 vaut 1.
func (p *WorkerPool) SetCount(n int) {
	if n <= 0 {
		n = 1
	}
	p.mu.Lock()
	before := len(p.slots)
	for len(p.slots) < n {
		p.spawnLocked()
	}
	var retired []poolSlot
	if len(p.slots) > n {
		retired = append(retired, p.slots[n:]...)
		p.slots = p.slots[:n]
	}
	p.mu.Unlock()

	for _, s := range retired {
		s.stop()
	}
	if before != n {
		p.logger.Info().Int("from", before).Int("to", n).Msg("worker pool resized")
	}
	p.metrics.SetWorkers(n)
}

func (p *WorkerPool) spawnLocked() {
	p.nextID++
	stopCtx, stop := context.WithCancel(p.parent)
	execCtx, kill := context.WithCancel(p.parent)
	slot := poolSlot{id: p.nextID, stop: stop, kill: kill}
	p.slots = append(p.slots, slot)

	w := NewWorker(p.logger.With().Int("worker", slot.id).Logger(), p.repo, p.bus, p.execs, p.opts)
	p.running.Add(1)
	go func() {
		defer p.running.Done()
		defer kill()
		w.RunUntil(stopCtx, execCtx)
	}()
}

// Close arrête tous les workers et attend leur sortie. Idempotent.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	slots := p.slots
	p.slots = nil
	p.mu.Unlock()

	for _, s := range slots {
		s.stop()
		s.kill()
	}
	p.running.Wait()
	p.metrics.SetWorkers(0)
}
