package safety

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	rateLimiterCleanupInterval = 5 * time.Minute
	rateLimiterStaleThreshold  = 10 * time.Minute
)

// sessionBudget holds a session's independent read and write token buckets
// plus a shared burst allowance layered on top of both.
type sessionBudget struct {
	read     *rate.Limiter
	write    *rate.Limiter
	burst    *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-MCP-session budget with separate read and
// write token buckets plus a shared burst bucket that both draw from,
// following the same per-key token-bucket-map shape as an HTTP per-IP
// limiter. It counts with token buckets, not a sliding window.
type RateLimiter struct {
	mu          sync.Mutex
	sessions    map[string]*sessionBudget
	readRPM     float64
	writeRPM    float64
	burstSize   int
	lastCleanup time.Time
}

// RateLimitConfig mirrors the compiled RateLimitConfig from internal/config.
type RateLimitConfig struct {
	ReadRPM  int
	WriteRPM int
	Burst    int
}

// NewRateLimiter constructs a limiter from the compiled configuration.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		sessions:    make(map[string]*sessionBudget),
		readRPM:     float64(cfg.ReadRPM) / 60.0,
		writeRPM:    float64(cfg.WriteRPM) / 60.0,
		burstSize:   cfg.Burst,
		lastCleanup: time.Now(),
	}
}

func (r *RateLimiter) getOrCreate(sessionID string) *sessionBudget {
	now := time.Now()
	if now.Sub(r.lastCleanup) > rateLimiterCleanupInterval {
		for k, v := range r.sessions {
			if now.Sub(v.lastSeen) > rateLimiterStaleThreshold {
				delete(r.sessions, k)
			}
		}
		r.lastCleanup = now
	}

	b, ok := r.sessions[sessionID]
	if !ok {
		b = &sessionBudget{
			read:  rate.NewLimiter(rate.Limit(r.readRPM), r.burstSize),
			write: rate.NewLimiter(rate.Limit(r.writeRPM), r.burstSize),
			burst: rate.NewLimiter(rate.Limit(r.readRPM+r.writeRPM), r.burstSize),
		}
		r.sessions[sessionID] = b
	}
	b.lastSeen = now
	return b
}

// AllowRead consumes one token from the read and burst buckets. Both must
// have capacity for the call to proceed.
func (r *RateLimiter) AllowRead(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.getOrCreate(sessionID)
	return b.read.Allow() && b.burst.Allow()
}

// AllowWrite consumes one token from the write and burst buckets.
func (r *RateLimiter) AllowWrite(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.getOrCreate(sessionID)
	return b.write.Allow() && b.burst.Allow()
}

// RetryAfter estimates seconds until the next token becomes available for
// the given operation class, for the rate_limit ErrorResponse's
// retry_after field.
func (r *RateLimiter) RetryAfter(sessionID string, write bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.getOrCreate(sessionID)
	limiter := b.read
	if write {
		limiter = b.write
	}
	reservation := limiter.Reserve()
	defer reservation.Cancel()
	delay := reservation.Delay()
	secs := int(delay.Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
