package throttle

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffSchedule(t *testing.T) {
	t.Parallel()

	b := NewBackoff(time.Minute, 10*time.Minute, 2, 0, rand.New(rand.NewSource(1)))

	require.Equal(t, time.Minute, b.Delay(0))
	require.Equal(t, 2*time.Minute, b.Delay(1))
	require.Equal(t, 4*time.Minute, b.Delay(2))
	require.Equal(t, 8*time.Minute, b.Delay(3))
	require.Equal(t, 10*time.Minute, b.Delay(4), "geometric growth is capped at the max")
	require.Equal(t, 10*time.Minute, b.Delay(20))
}

func TestBackoffNegativeAttemptTreatedAsZero(t *testing.T) {
	t.Parallel()

	b := NewBackoff(30*time.Second, 10*time.Minute, 2, 0, rand.New(rand.NewSource(1)))
	require.Equal(t, 30*time.Second, b.Delay(-3))
}

func TestBackoffJitterBounds(t *testing.T) {
	t.Parallel()

	b := NewBackoff(time.Minute, 10*time.Minute, 2, 0.1, rand.New(rand.NewSource(42)))

	base := float64(2 * time.Minute)
	for i := 0; i < 200; i++ {
		got := b.Delay(1)
		require.GreaterOrEqual(t, got, time.Duration(base*0.9))
		require.LessOrEqual(t, got, time.Duration(base*1.1))
	}
}

func TestBackoffDeterministicWithFixedSeed(t *testing.T) {
	t.Parallel()

	a := NewBackoff(time.Minute, 10*time.Minute, 2, 0.1, rand.New(rand.NewSource(7)))
	b := NewBackoff(time.Minute, 10*time.Minute, 2, 0.1, rand.New(rand.NewSource(7)))

	for i := 0; i < 10; i++ {
		require.Equal(t, a.Delay(i), b.Delay(i))
	}
}

func TestBackoffFloorsAtOneSecond(t *testing.T) {
	t.Parallel()

	b := NewBackoff(time.Millisecond, 10*time.Minute, 2, 0, rand.New(rand.NewSource(1)))
	require.Equal(t, time.Second, b.Delay(0))
}

func TestBackoffDefaults(t *testing.T) {
	t.Parallel()

	b := NewBackoff(0, 0, 0, 0, nil)
	require.Equal(t, time.Minute, b.BaseDelay)
	require.Equal(t, 10*time.Minute, b.MaxDelay)
	require.Equal(t, 2.0, b.Factor)
}
