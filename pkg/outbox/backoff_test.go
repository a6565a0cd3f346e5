package outbox

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	t.Parallel()

	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{attempts: 0, want: 0},
		{attempts: 1, want: 2 * time.Second},
		{attempts: 2, want: 4 * time.Second},
		{attempts: 3, want: 8 * time.Second},
		{attempts: 6, want: 60 * time.Second},
		{attempts: 200, want: 60 * time.Second},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, backoff(tc.attempts, 2*time.Second, time.Minute), "attempts=%d", tc.attempts)
	}
}

func TestJitter(t *testing.T) {
	t.Parallel()

	maxJitter := 200 * time.Millisecond
	got := jitter(rand.New(rand.NewSource(1)), maxJitter)
	require.GreaterOrEqual(t, got, time.Duration(0))
	require.LessOrEqual(t, got, maxJitter)
	require.Equal(t, got, jitter(rand.New(rand.NewSource(1)), maxJitter))

	require.Zero(t, jitter(nil, maxJitter))
	require.Zero(t, jitter(rand.New(rand.NewSource(1)), 0))
}
