package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comment-scout/internal/config"
)

func TestPacerDelayWithinRange(t *testing.T) {
	p := NewPacer(0).WithSeed(42)
	r := config.Range{Min: 1500 * time.Millisecond, Max: 4 * time.Second}

	seen := map[time.Duration]bool{}
	for i := 0; i < 200; i++ {
		d := p.Delay(r)
		require.GreaterOrEqual(t, d, r.Min)
		require.LessOrEqual(t, d, r.Max)
		seen[d] = true
	}
	assert.Greater(t, len(seen), 1, "pauses are randomized")
}

func TestPacerFixedRange(t *testing.T) {
	p := NewPacer(0)
	assert.Equal(t, 3*time.Second, p.Delay(config.Range{Min: 3 * time.Second, Max: 3 * time.Second}))
}

func TestPacerPauseUsesSleeper(t *testing.T) {
	pacer, rec := newInstantPacer()
	require.NoError(t, pacer.Pause(context.Background(), config.Range{Min: time.Second, Max: time.Second}))
	assert.Equal(t, []time.Duration{time.Second}, rec.pauses)
}

func TestPacerNavigateHonoursCancellation(t *testing.T) {
	p := NewPacer(1)
	require.NoError(t, p.Navigate(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Navigate(ctx))
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
