package httpapi

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	lim        *rate.Limiter
	lastAccess time.Time
}

// limiterSet hands out one token bucket per client key.
type limiterSet struct {
	mu    sync.RWMutex
	m     map[string]*limiterEntry
	limit rate.Limit
	burst int
	now   func() time.Time
}

func newLimiterSet(rps float64, burst int) *limiterSet {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiterSet{m: make(map[string]*limiterEntry), limit: limit, burst: burst, now: time.Now}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if ok {
		s.mu.Lock()
		e.lastAccess = s.now()
		s.mu.Unlock()
		return e.lim
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.m[key]; ok {
		e.lastAccess = s.now()
		return e.lim
	}
	e = &limiterEntry{lim: rate.NewLimiter(s.limit, s.burst), lastAccess: s.now()}
	s.m[key] = e
	return e.lim
}

func (s *limiterSet) allow(key string) bool { return s.get(key).Allow() }

// evictIdle drops buckets untouched for longer than idle and returns how many
// were removed.
func (s *limiterSet) evictIdle(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.m {
		if e.lastAccess.Before(cutoff) {
			delete(s.m, k)
			n++
		}
	}
	return n
}

func (s *limiterSet) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// clientIP returns the peer address, or the first X-Forwarded-For hop when
// the peer is a trusted proxy.
func clientIP(ctx *fasthttp.RequestCtx, trusted map[string]struct{}) string {
	ip := ctx.RemoteIP().String()
	if _, ok := trusted[ip]; !ok {
		return ip
	}
	xff := string(ctx.Request.Header.Peek("X-Forwarded-For"))
	if xff == "" {
		return ip
	}
	first := strings.TrimSpace(strings.Split(xff, ",")[0])
	if net.ParseIP(first) == nil {
		return ip
	}
	return first
}
