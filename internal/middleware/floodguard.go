package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// FloodGuard is a per-IP token bucket in front of unauthenticated endpoints
// (the admin login). It is separate from the tiered limiter: no key exists
// yet at this point, and the budget is deliberately tiny.
type FloodGuard struct {
	mu      sync.Mutex
	entries map[string]*guardEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
}

type guardEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewFloodGuard(rps float64, burst int) *FloodGuard {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 5
	}
	return &FloodGuard{
		entries: make(map[string]*guardEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
	}
}

func (g *FloodGuard) limiter(ip string) *rate.Limiter {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if ent, ok := g.entries[ip]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(g.rps, g.burst)
	g.entries[ip] = &guardEntry{lim: lim, lastSeen: now}
	return lim
}

func (g *FloodGuard) cleanup() {
	cutoff := time.Now().Add(-g.idleTTL)

	g.mu.Lock()
	defer g.mu.Unlock()

	for ip, ent := range g.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(g.entries, ip)
		}
	}
}

// StartJanitor evicts idle IPs periodically until ctx is cancelled.
func (g *FloodGuard) StartJanitor(ctx context.Context) {
	t := time.NewTicker(2 * time.Minute)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				g.cleanup()
			}
		}
	}()
}

func (g *FloodGuard) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.limiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many attempts",
			})
			return
		}
		c.Next()
	}
}
