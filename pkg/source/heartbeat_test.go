package source

import (
	"context"
	"testing"
	"time"

	"tidestream/pkg/watermark"

	"github.com/stretchr/testify/require"
)

func TestHeartbeatTimestampsStrictlyIncrease(t *testing.T) {
	clock := watermark.NewManualClock(time.Unix(1000, 0))
	tracker := watermark.NewTracker(time.Minute, clock)
	hb := NewHeartbeatSource("hb", time.Millisecond, 5_000, tracker)
	ctx := context.Background()
	first, err := hb.Poll(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5_000), first.Timestamp, "first heartbeat carries the start timestamp")
	last := first.Timestamp
	for i := 0; i < 5; i++ {
		rec, err := hb.Poll(ctx)
		require.NoError(t, err)
		require.True(t, rec.Synthetic)
		require.Nil(t, rec.Key)
		require.Nil(t, rec.Value)
		require.Greater(t, rec.Timestamp, last)
		last = rec.Timestamp
	}
}

func TestHeartbeatRegistersWithTracker(t *testing.T) {
	clock := watermark.NewManualClock(time.Unix(1000, 0))
	tracker := watermark.NewTracker(time.Minute, clock)
	_ = NewHeartbeatSource("hb", time.Millisecond, 0, tracker)
	_, ok := tracker.HighWater("hb")
	require.True(t, ok, "heartbeat must register itself as a tracked partition")
}

func TestHeartbeatResumesAfterReconnect(t *testing.T) {
	clock := watermark.NewManualClock(time.Unix(1000, 0))
	tracker := watermark.NewTracker(time.Minute, clock)
	hb := NewHeartbeatSource("hb", time.Millisecond, 0, tracker)
	ctx := context.Background()
	var last int64
	for i := 0; i < 3; i++ {
		rec, err := hb.Poll(ctx)
		require.NoError(t, err)
		last = rec.Timestamp
	}
	// a cancelled poll models a dropped consumer; the next poll must
	// continue the monotonic sequence
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := hb.Poll(cancelled)
	require.Error(t, err)
	rec, err := hb.Poll(ctx)
	require.NoError(t, err)
	require.Greater(t, rec.Timestamp, last)
}
