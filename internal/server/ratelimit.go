package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter enforces the per-IP email quota. Each IP gets its own token
// bucket refilling at limit-per-window; stale buckets are cleaned up
// opportunistically so the map doesn't grow without bound.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	limit    rate.Limit
	burst    int
	window   time.Duration
}

func newIPLimiter(perWindow int, window time.Duration) *ipLimiter {
	if perWindow <= 0 {
		perWindow = 1
	}
	return &ipLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		limit:    rate.Every(window / time.Duration(perWindow)),
		burst:    perWindow,
		window:   window,
	}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	l.lastSeen[ip] = time.Now()
	if len(l.lastSeen) > 1000 {
		l.cleanupLocked()
	}
	return lim
}

func (l *ipLimiter) cleanupLocked() {
	cutoff := time.Now().Add(-2 * l.window)
	for ip, seen := range l.lastSeen {
		if seen.Before(cutoff) {
			delete(l.lastSeen, ip)
			delete(l.limiters, ip)
		}
	}
}

func (l *ipLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(ip).Allow()
}

// Remaining reports how many more requests the IP may make right now.
func (l *ipLimiter) Remaining(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	tokens := int(l.get(ip).Tokens())
	if tokens < 0 {
		return 0
	}
	return tokens
}
