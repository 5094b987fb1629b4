package processor

import (
	"context"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/debug"
	"tidestream/pkg/hashfuncs"
	"tidestream/pkg/sink"
	"tidestream/pkg/stats"
	"tidestream/pkg/store"
	"tidestream/pkg/utils/syncutils"

	"github.com/zhangyunhao116/skipset"
)

// WindowAggregator keeps additive {count, sum} state per (window, key)
// and emits one final tuple per pair when the merged watermark passes
// the window end. Emitted window state is destroyed, so re-emission is
// impossible under normal operation (append-only changelog).
//
// Closing is driven purely by watermark advancement: OnWatermark must
// run after every watermark update. It takes the write side of
// flushMux while Add takes the read side, which is the
// snapshot-and-lock required to keep a concurrent Add out of a window
// being closed.
type WindowAggregator[K any] struct {
	store       *store.InMemorySkipMapWindowStore[K, commtypes.CountSum]
	openWindows *skipset.Int64Set
	windows     *TimeWindows
	resultSink  sink.Sink
	hasher      hashfuncs.HashSum64[K]
	shards      []syncutils.Mutex
	flushMux    syncutils.RWMutex
	emitted     stats.AtomicCounter
}

func NewWindowAggregator[K any](windows *TimeWindows, retentionMs int64,
	compareFunc store.CompareFuncG[K], hasher hashfuncs.HashSum64[K], numShards int,
	resultSink sink.Sink,
) *WindowAggregator[K] {
	return &WindowAggregator[K]{
		store:       store.NewInMemorySkipMapWindowStore[K, commtypes.CountSum]("window-agg", retentionMs, compareFunc),
		openWindows: skipset.NewInt64(),
		windows:     windows,
		resultSink:  resultSink,
		hasher:      hasher,
		shards:      make([]syncutils.Mutex, numShards),
		emitted:     stats.NewAtomicCounter("agg_emitted"),
	}
}

func (a *WindowAggregator[K]) shardFor(key K) *syncutils.Mutex {
	return &a.shards[a.hasher.HashSum64(key)%uint64(len(a.shards))]
}

// Add folds value into the (window, key) aggregate, creating it on the
// first contributing record.
func (a *WindowAggregator[K]) Add(ctx context.Context, window *commtypes.TimeWindow, key K, value float64) error {
	a.flushMux.RLock()
	defer a.flushMux.RUnlock()
	shard := a.shardFor(key)
	shard.Lock()
	defer shard.Unlock()
	cur, _, err := a.store.Get(ctx, key, window.Start())
	if err != nil {
		return err
	}
	if err := a.store.Put(ctx, key, cur.Plus(value), window.Start()); err != nil {
		return err
	}
	a.openWindows.Add(window.Start())
	return nil
}

// OnWatermark closes every open window whose end is at or behind wm:
// the final tuple for each key with a nonzero count is emitted exactly
// once, then the window's state is discarded.
func (a *WindowAggregator[K]) OnWatermark(ctx context.Context, wm int64) error {
	a.flushMux.Lock()
	defer a.flushMux.Unlock()
	var starts []int64
	a.openWindows.Range(func(start int64) bool {
		if start+a.windows.SizeMs <= wm {
			starts = append(starts, start)
			return true
		}
		return false
	})
	for _, start := range starts {
		if err := a.closeWindow(ctx, start); err != nil {
			return err
		}
	}
	return nil
}

// CloseAll force-closes every open window. Shutdown path only.
func (a *WindowAggregator[K]) CloseAll(ctx context.Context) error {
	a.flushMux.Lock()
	defer a.flushMux.Unlock()
	var starts []int64
	a.openWindows.Range(func(start int64) bool {
		starts = append(starts, start)
		return true
	})
	for _, start := range starts {
		if err := a.closeWindow(ctx, start); err != nil {
			return err
		}
	}
	return nil
}

func (a *WindowAggregator[K]) closeWindow(ctx context.Context, start int64) error {
	debug.Assert(start%a.windows.SizeMs == 0, "open window starts are epoch aligned")
	end := start + a.windows.SizeMs
	err := a.store.IterWindow(start, func(key K, cs commtypes.CountSum) error {
		if cs.Count == 0 {
			return nil
		}
		a.emitted.Incr()
		return a.resultSink.Emit(ctx, commtypes.WindowAggregate[K]{
			Key:         key,
			WindowStart: start,
			WindowEnd:   end,
			Count:       cs.Count,
			Sum:         cs.Sum,
		})
	})
	if err != nil {
		return err
	}
	if err := a.store.DeleteWindow(start); err != nil {
		return err
	}
	a.openWindows.Remove(start)
	return nil
}

func (a *WindowAggregator[K]) EmittedCount() uint64 {
	return a.emitted.GetCount()
}

// OpenWindowCount reports how many windows still hold state.
func (a *WindowAggregator[K]) OpenWindowCount() int {
	return a.openWindows.Len()
}
