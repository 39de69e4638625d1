// Package ratelimit limits requests per client and endpoint with token
// buckets from golang.org/x/time/rate.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter is how long a bucket may go unused before cleanup drops it.
const idleAfter = time.Hour

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter manages one token bucket per client, endpoint and method.
type Limiter struct {
	config *Config

	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewLimiter creates a rate limiter. cleanupInterval > 0 starts a goroutine
// that drops idle buckets until Stop is called.
func NewLimiter(config *Config, cleanupInterval time.Duration) *Limiter {
	if config == nil {
		config = &Config{Enabled: true, RPS: 20, Burst: 40}
	}
	if config.Whitelist == nil {
		config.Whitelist = map[string]bool{}
	}
	l := &Limiter{
		config:  config,
		buckets: map[string]*bucket{},
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if config.Enabled && cleanupInterval > 0 {
		go l.cleanup(cleanupInterval)
	}
	return l
}

// Allow reports whether a request from clientID to endpoint may proceed.
func (l *Limiter) Allow(clientID string, endpoint string, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}

	ec := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	if ec == nil {
		ec = &EndpointConfig{RPS: l.config.RPS, Burst: l.config.Burst}
	}
	limit := ec.Limit()
	if limit == rate.Inf {
		return true, Info{Allowed: true}
	}
	burst := ec.Burst
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(ec.RPS)))
	}

	now := l.now()
	lim := l.getBucket(clientID+":"+endpoint+":"+method, limit, burst, now)

	info := Info{Limit: burst}
	res := lim.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		info.RetryAfter = delay
		return false, info
	}
	info.Allowed = true
	info.Remaining = int(math.Max(0, lim.TokensAt(now)))
	return true, info
}

func (l *Limiter) getBucket(key string, limit rate.Limit, burst int, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(limit, burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

func (l *Limiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanupBuckets()
		case <-l.stop:
			return
		}
	}
}

// cleanupBuckets removes buckets that haven't been used in over an hour.
func (l *Limiter) cleanupBuckets() {
	cutoff := l.now().Add(-idleAfter)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop stops the cleanup goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
