// Package ratelimit bounds how fast a single user may mutate their ledger.
// The window is fixed per minute and tracked in memory, which is enough for
// a single API process in front of a single store.
package ratelimit

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

type Limiter struct {
	mu      sync.Mutex
	clients map[string]*window
	stop    chan struct{}
	once    sync.Once

	perMinute int
}

type window struct {
	start    time.Time
	requests int
}

// NewLimiter creates a limiter allowing perMinute requests per key. Stale
// keys are evicted in the background until Stop is called.
func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 120
	}
	l := &Limiter{
		clients:   make(map[string]*window),
		stop:      make(chan struct{}),
		perMinute: perMinute,
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether another request under key fits the current window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) > time.Minute {
		l.clients[key] = &window{start: now, requests: 1}
		return true
	}
	w.requests++
	return w.requests <= l.perMinute
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictStale()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) evictStale() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-10 * time.Minute)
	for key, w := range l.clients {
		if w.start.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

// Stop shuts down the background eviction goroutine.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Middleware limits mutating requests per user. Reads pass through
// unthrottled; the key is the user partition header, falling back to the
// peer address for unauthenticated requests.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		key := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if key == "" {
			key = r.RemoteAddr
		}
		if !l.Allow(key) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
