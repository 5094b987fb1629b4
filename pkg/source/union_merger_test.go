package source

import (
	"context"
	"testing"
	"time"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/watermark"

	"github.com/stretchr/testify/require"
)

func newTestTracker() *watermark.Tracker {
	clock := watermark.NewManualClock(time.Unix(1000, 0))
	return watermark.NewTracker(time.Minute, clock)
}

func runMerger(t *testing.T, m *UnionMerger) []commtypes.Record {
	t.Helper()
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Run(context.Background())
	}()
	var out []commtypes.Record
	for rec := range m.Out() {
		out = append(out, rec)
	}
	require.NoError(t, <-errCh)
	return out
}

func TestUnionPreservesTimestampsAndOrigins(t *testing.T) {
	tracker := newTestTracker()
	p1 := NewScriptedPartition("orders", []commtypes.Record{
		{Key: "a", Value: 1.0, Timestamp: 100},
		{Key: "b", Value: 2.0, Timestamp: 200},
	})
	p2 := NewScriptedPartition("refunds", []commtypes.Record{
		{Key: "c", Value: 3.0, Timestamp: 150},
	})
	m := NewUnionMerger(tracker, 8, Input{Partition: p1}, Input{Partition: p2})
	out := runMerger(t, m)
	require.Len(t, out, 3)
	byOrigin := make(map[string]int)
	for _, rec := range out {
		byOrigin[rec.Origin]++
	}
	require.Equal(t, 2, byOrigin["orders"])
	require.Equal(t, 1, byOrigin["refunds"])
	require.Equal(t, uint64(3), m.MergedCount())
}

func TestUnionRegistersPartitionsWithoutObserving(t *testing.T) {
	tracker := newTestTracker()
	ch := make(chan commtypes.Record)
	m := NewUnionMerger(tracker, 0, Input{Partition: NewChannelPartition("orders", ch)})
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Run(context.Background())
	}()
	ch <- commtypes.Record{Key: "a", Timestamp: 500}
	rec := <-m.Out()
	require.Equal(t, int64(500), rec.Timestamp)
	// observation is the consumer's job; the merger only registers
	hw, ok := tracker.HighWater("orders")
	require.True(t, ok)
	require.Equal(t, watermark.InitialWatermark, hw)
	close(ch)
	for range m.Out() {
	}
	require.NoError(t, <-errCh)
}

func TestUnionDropsInvalidTimestamps(t *testing.T) {
	tracker := newTestTracker()
	p := NewScriptedPartition("orders", []commtypes.Record{
		{Key: "a", Timestamp: 100},
		{Key: "bad", Timestamp: -1},
		{Key: "b", Timestamp: 200},
	})
	m := NewUnionMerger(tracker, 8, Input{Partition: p})
	out := runMerger(t, m)
	require.Len(t, out, 2)
	require.Equal(t, uint64(1), m.DroppedCount())
}

func TestUnionAppliesProjection(t *testing.T) {
	tracker := newTestTracker()
	p := NewScriptedPartition("legacy", []commtypes.Record{
		{Key: "a", Value: "12.5", Timestamp: 100},
	})
	m := NewUnionMerger(tracker, 8, Input{
		Partition: p,
		Project: func(rec commtypes.Record) commtypes.Record {
			// legacy source carries no amount field in the shared schema
			rec.Value = nil
			return rec
		},
	})
	out := runMerger(t, m)
	require.Len(t, out, 1)
	require.Nil(t, out[0].Value)
	require.Equal(t, "a", out[0].Key)
}

func TestUnionTracksMaxEventTime(t *testing.T) {
	tracker := newTestTracker()
	p := NewScriptedPartition("orders", []commtypes.Record{
		{Key: "a", Timestamp: 100},
		{Key: "b", Timestamp: 400},
		{Key: "c", Timestamp: 250},
	})
	m := NewUnionMerger(tracker, 8, Input{Partition: p})
	_ = runMerger(t, m)
	require.Equal(t, int64(400), m.StreamTime(),
		"stream time follows the largest event timestamp, not the last")
}

func TestUnionUnregistersEndedPartitions(t *testing.T) {
	tracker := newTestTracker()
	p := NewScriptedPartition("orders", []commtypes.Record{
		{Key: "a", Timestamp: 100},
	})
	m := NewUnionMerger(tracker, 8, Input{Partition: p})
	_ = runMerger(t, m)
	_, ok := tracker.HighWater("orders")
	require.False(t, ok, "ended partition must stop contributing to the merge")
}
