package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerKey(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 2, time.Minute)

	assert.True(t, l.Allow("a", now))
	assert.True(t, l.Allow("a", now))
	assert.False(t, l.Allow("a", now))
	assert.True(t, l.Allow("B", now), "keys are independent")
	assert.True(t, l.Allow("a", now.Add(time.Second)), "bucket refills")
}

func TestRateLimiterEvictsIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 1, time.Minute)

	l.Allow("a", now)
	l.Allow("b", now)
	assert.Equal(t, 2, l.size())

	l.Allow("c", now.Add(2*time.Minute))
	assert.Equal(t, 1, l.size())
}

func TestRateLimiterDisabled(t *testing.T) {
	var l *RateLimiter = NewRateLimiter(0, 0, 0)
	assert.Nil(t, l)
	assert.True(t, l.Allow("a", time.Now()))
}
