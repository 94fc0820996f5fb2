package app

import (
	"context"
	"sync"
)

// DynamicLimiter borne le nombre de séries synchronisées en même temps.
// Le plafond suit le réglage maxConcurrentShows et peut changer entre deux passes
// ou pendant une passe (SetLimit réveille les tâches en attente).
type DynamicLimiter struct {
	mu       sync.Mutex
	limit    int
	inFlight int
	wake     chan struct{}
}

func NewDynamicLimiter(limit int) *DynamicLimiter {
	return &DynamicLimiter{limit: clampLimit(limit), wake: make(chan struct{})}
}

func clampLimit(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func (l *DynamicLimiter) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

func (l *DynamicLimiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

func (l *DynamicLimiter) SetLimit(limit int) {
	limit = clampLimit(limit)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limit == limit {
		return
	}
	l.limit = limit
	l.broadcastLocked()
}

// Acquire bloque jusqu'à obtenir une place ou l'annulation de ctx.
func (l *DynamicLimiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.inFlight < l.limit {
			l.inFlight++
			l.mu.Unlock()
			return nil
		}
		wake := l.wake
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

func (l *DynamicLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight > 0 {
		l.inFlight--
	}
	l.broadcastLocked()
}

// Do exécute fn dans une place du limiter. Renvoie ctx.Err() sans appeler fn
// si la place n'a pas pu être obtenue.
func (l *DynamicLimiter) Do(ctx context.Context, fn func()) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	fn()
	return nil
}

func (l *DynamicLimiter) broadcastLocked() {
	close(l.wake)
	l.wake = make(chan struct{})
}
