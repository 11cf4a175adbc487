package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{ReadRPM: 6000, WriteRPM: 6000, Burst: 5})
	for i := 0; i < 5; i++ {
		assert.True(t, rl.AllowRead("session-1"))
	}
}

func TestRateLimiter_RejectsBeyondBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{ReadRPM: 60, WriteRPM: 60, Burst: 2})
	assert.True(t, rl.AllowRead("session-1"))
	assert.True(t, rl.AllowRead("session-1"))
	assert.False(t, rl.AllowRead("session-1"))
}

func TestRateLimiter_SharedBurstBucketLimitsWritesAfterReads(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{ReadRPM: 60, WriteRPM: 60, Burst: 1})
	assert.True(t, rl.AllowRead("session-1"))
	assert.False(t, rl.AllowRead("session-1"))
	// The write bucket is untouched, but the read already spent the
	// shared burst allowance, so the write is refused too.
	assert.False(t, rl.AllowWrite("session-1"), "shared burst bucket is already spent")
}

func TestRateLimiter_SessionsAreIsolated(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{ReadRPM: 60, WriteRPM: 60, Burst: 1})
	assert.True(t, rl.AllowRead("session-1"))
	assert.True(t, rl.AllowRead("session-2"))
}

func TestRateLimiter_RetryAfterIsPositive(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{ReadRPM: 60, WriteRPM: 60, Burst: 1})
	rl.AllowRead("session-1")
	secs := rl.RetryAfter("session-1", false)
	assert.GreaterOrEqual(t, secs, 1)
}
