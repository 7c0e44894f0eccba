package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter allows n requests per window for each client key.
type clientLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	window  time.Duration
	clients map[string]*clientEntry
	now     func() time.Time
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(n int, window time.Duration) *clientLimiter {
	return &clientLimiter{
		every:   rate.Every(window / time.Duration(n)),
		burst:   n,
		window:  window,
		clients: make(map[string]*clientEntry),
		now:     time.Now,
	}
}

func (l *clientLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.clients[key]
	if !ok {
		if len(l.clients) >= 4096 {
			l.sweep(now)
		}
		e = &clientEntry{limiter: rate.NewLimiter(l.every, l.burst)}
		l.clients[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// sweep drops clients idle for a full window; their buckets are full again anyway.
func (l *clientLimiter) sweep(now time.Time) {
	for k, e := range l.clients {
		if now.Sub(e.lastSeen) > l.window {
			delete(l.clients, k)
		}
	}
}
