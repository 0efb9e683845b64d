package bulk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoffRetryer(t *testing.T) {
	r := &ExponentialBackoffRetryer{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2,
		MaxRetries:   5,
	}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
	}
	for attempt, w := range want {
		d, ok := r.NextDelay(attempt, nil)
		assert.True(t, ok)
		assert.Equal(t, w, d, "attempt %d", attempt)
	}

	_, ok := r.NextDelay(5, nil)
	assert.False(t, ok)
}

func TestExponentialBackoffRetryerJitter(t *testing.T) {
	r := NewExponentialBackoffRetryer()
	for attempt := 0; attempt < r.MaxRetries; attempt++ {
		d, ok := r.NextDelay(attempt, nil)
		assert.True(t, ok)
		assert.GreaterOrEqual(t, d, r.InitialDelay)
		assert.LessOrEqual(t, d, r.MaxDelay)
	}
	_, ok := r.NextDelay(r.MaxRetries, nil)
	assert.False(t, ok)
}

func TestFixedDelayRetryer(t *testing.T) {
	r := NewFixedDelayRetryer(time.Second, 2)

	d, ok := r.NextDelay(0, nil)
	assert.True(t, ok)
	assert.Equal(t, time.Second, d)

	_, ok = r.NextDelay(2, nil)
	assert.False(t, ok)

	unbounded := NewFixedDelayRetryer(time.Second, 0)
	_, ok = unbounded.NextDelay(1000, nil)
	assert.True(t, ok)
}
