package processor

import (
	"context"
	"testing"
	"time"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/hashfuncs"
	"tidestream/pkg/store"

	"github.com/stretchr/testify/require"
)

func newTestDedup() (*Deduplicator[string], *TimeWindows) {
	windows := NewTumblingWindows(300 * time.Second)
	d := NewDeduplicator[string](windows, 0, store.StringCompare, hashfuncs.StringHasher{}, 4)
	return d, windows
}

func offer(t *testing.T, d *Deduplicator[string], w *TimeWindows, key string, ts int64, val interface{}) {
	t.Helper()
	win, err := w.AssignWindow(ts)
	require.NoError(t, err)
	require.NoError(t, d.Offer(context.Background(), win, key, commtypes.Record{
		Key: key, Value: val, Timestamp: ts,
	}))
}

func flushAt(t *testing.T, d *Deduplicator[string], wm int64) map[string]commtypes.Record {
	t.Helper()
	out := make(map[string]commtypes.Record)
	err := d.FlushClosable(context.Background(), wm, func(win *commtypes.TimeWindow, key string, rec commtypes.Record) error {
		out[key] = rec
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestDedupKeepsLargestTimestamp(t *testing.T) {
	d, w := newTestDedup()
	// records at t=10s, t=7s, t=10.5s in the same window and key
	offer(t, d, w, "k", 10_000, "first")
	offer(t, d, w, "k", 7_000, "older")
	offer(t, d, w, "k", 10_500, "winner")
	out := flushAt(t, d, 300_000)
	require.Len(t, out, 1)
	require.Equal(t, int64(10_500), out["k"].Timestamp)
	require.Equal(t, "winner", out["k"].Value)
}

func TestDedupTieBreakLastArrivalWins(t *testing.T) {
	d, w := newTestDedup()
	offer(t, d, w, "k", 10_000, "earlier arrival")
	offer(t, d, w, "k", 10_000, "later arrival")
	out := flushAt(t, d, 300_000)
	require.Equal(t, "later arrival", out["k"].Value)
}

func TestDedupKeysAreIndependent(t *testing.T) {
	d, w := newTestDedup()
	offer(t, d, w, "a", 10_000, 1)
	offer(t, d, w, "b", 20_000, 2)
	offer(t, d, w, "a", 5_000, 3)
	out := flushAt(t, d, 300_000)
	require.Len(t, out, 2)
	require.Equal(t, int64(10_000), out["a"].Timestamp)
	require.Equal(t, int64(20_000), out["b"].Timestamp)
}

func TestDedupWindowsAreIndependent(t *testing.T) {
	d, w := newTestDedup()
	offer(t, d, w, "k", 10_000, "w0")
	offer(t, d, w, "k", 310_000, "w1")
	out := flushAt(t, d, 300_000)
	require.Len(t, out, 1)
	require.Equal(t, "w0", out["k"].Value)
	// second window still open
	out = flushAt(t, d, 599_999)
	require.Len(t, out, 0)
	out = flushAt(t, d, 600_000)
	require.Equal(t, "w1", out["k"].Value)
}

func TestDedupFlushIsExactlyOnce(t *testing.T) {
	d, w := newTestDedup()
	offer(t, d, w, "k", 10_000, "v")
	out := flushAt(t, d, 300_000)
	require.Len(t, out, 1)
	out = flushAt(t, d, 300_000)
	require.Len(t, out, 0, "flushed slot must be deleted from active state")
}

func TestDedupFlushAll(t *testing.T) {
	d, w := newTestDedup()
	offer(t, d, w, "k", 10_000, "w0")
	offer(t, d, w, "k", 310_000, "w1")
	count := 0
	err := d.FlushAll(context.Background(), func(win *commtypes.TimeWindow, key string, rec commtypes.Record) error {
		count++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
