package processor

import (
	"context"
	"sync/atomic"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/debug"
	"tidestream/pkg/hashfuncs"
	"tidestream/pkg/store"
	"tidestream/pkg/utils/syncutils"

	"github.com/zhangyunhao116/skipset"
)

// dedupeSlot holds the current best record for a (window, key) pair
// plus its arrival sequence number for tie-breaking.
type dedupeSlot struct {
	rec     commtypes.Record
	arrival uint64
}

// Deduplicator retains, per (window, key), only the record with the
// largest event time; on equal timestamps the later arrival wins. A
// slot flushes exactly one survivor once the merged watermark passes
// the window end, then disappears from active state.
//
// Offers on different keys run in parallel under sharded locks; a
// flush takes the write side of flushMux, so closing a window cannot
// race offers that would land in it between check and flush.
type Deduplicator[K any] struct {
	store       *store.InMemorySkipMapWindowStore[K, dedupeSlot]
	openWindows *skipset.Int64Set
	windows     *TimeWindows
	hasher      hashfuncs.HashSum64[K]
	shards      []syncutils.Mutex
	flushMux    syncutils.RWMutex
	arrivalSeq  uint64
}

func NewDeduplicator[K any](windows *TimeWindows, retentionMs int64,
	compareFunc store.CompareFuncG[K], hasher hashfuncs.HashSum64[K], numShards int,
) *Deduplicator[K] {
	return &Deduplicator[K]{
		store:       store.NewInMemorySkipMapWindowStore[K, dedupeSlot]("dedupe", retentionMs, compareFunc),
		openWindows: skipset.NewInt64(),
		windows:     windows,
		hasher:      hasher,
		shards:      make([]syncutils.Mutex, numShards),
	}
}

func (d *Deduplicator[K]) shardFor(key K) *syncutils.Mutex {
	return &d.shards[d.hasher.HashSum64(key)%uint64(len(d.shards))]
}

// Offer stores rec in the (window, key) slot if it beats the current
// occupant: larger event time wins, and on an exact timestamp tie the
// most recently arrived record wins.
func (d *Deduplicator[K]) Offer(ctx context.Context, window *commtypes.TimeWindow, key K, rec commtypes.Record) error {
	seq := atomic.AddUint64(&d.arrivalSeq, 1)
	d.flushMux.RLock()
	defer d.flushMux.RUnlock()
	shard := d.shardFor(key)
	shard.Lock()
	defer shard.Unlock()
	cur, exists, err := d.store.Get(ctx, key, window.Start())
	if err != nil {
		return err
	}
	if exists && (rec.Timestamp < cur.rec.Timestamp ||
		(rec.Timestamp == cur.rec.Timestamp && seq < cur.arrival)) {
		return nil
	}
	if err := d.store.Put(ctx, key, dedupeSlot{rec: rec, arrival: seq}, window.Start()); err != nil {
		return err
	}
	d.openWindows.Add(window.Start())
	return nil
}

// FlushClosable emits the surviving record of every slot whose window
// end is at or behind the watermark, deleting the slots afterwards.
// Survivors of one window are emitted in key order.
func (d *Deduplicator[K]) FlushClosable(ctx context.Context, wm int64,
	emit func(window *commtypes.TimeWindow, key K, rec commtypes.Record) error,
) error {
	d.flushMux.Lock()
	defer d.flushMux.Unlock()
	var starts []int64
	d.openWindows.Range(func(start int64) bool {
		if start+d.windows.SizeMs <= wm {
			starts = append(starts, start)
			return true
		}
		return false
	})
	for _, start := range starts {
		if err := d.flushWindow(ctx, start, emit); err != nil {
			return err
		}
	}
	return nil
}

// FlushAll drains every open slot regardless of the watermark. Used by
// best-effort flush on shutdown.
func (d *Deduplicator[K]) FlushAll(ctx context.Context,
	emit func(window *commtypes.TimeWindow, key K, rec commtypes.Record) error,
) error {
	d.flushMux.Lock()
	defer d.flushMux.Unlock()
	var starts []int64
	d.openWindows.Range(func(start int64) bool {
		starts = append(starts, start)
		return true
	})
	for _, start := range starts {
		if err := d.flushWindow(ctx, start, emit); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deduplicator[K]) flushWindow(ctx context.Context, start int64,
	emit func(window *commtypes.TimeWindow, key K, rec commtypes.Record) error,
) error {
	debug.Assert(start%d.windows.SizeMs == 0, "open window starts are epoch aligned")
	window, err := commtypes.TimeWindowForSize(start, d.windows.SizeMs)
	if err != nil {
		return err
	}
	err = d.store.IterWindow(start, func(key K, slot dedupeSlot) error {
		return emit(window, key, slot.rec)
	})
	if err != nil {
		return err
	}
	if err := d.store.DeleteWindow(start); err != nil {
		return err
	}
	d.openWindows.Remove(start)
	return nil
}
