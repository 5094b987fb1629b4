package processor

import (
	"context"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/hashfuncs"
	"tidestream/pkg/sink"
	"tidestream/pkg/store"
	"tidestream/pkg/utils/syncutils"
)

// reconcilerState is the persisted running total for one (key, window)
// pair. Baseline is true once the aggregator's final emission for the
// pair has been folded in.
type reconcilerState struct {
	Count    uint64  `json:"cnt"`
	Sum      float64 `json:"sum"`
	Baseline bool    `json:"baseline"`
}

// LateRecordReconciler folds dead-lettered records back into
// previously emitted window aggregates. Late records are re-keyed with
// the same epoch-aligned tumbling assignment used before lateness;
// that re-keying is only well-defined because tumbling windows are
// disjoint with deterministic boundaries, so this stage must not be
// reused for overlapping or session windows.
//
// Output follows changelog semantics, not append-only: every update
// re-emits the full updated total tagged Insert or Update, superseding
// the prior emission for that (key, window). State lives in a TTL
// store since a late record can target any past window; the TTL bounds
// how far back reconciliation reaches.
type LateRecordReconciler[K any] struct {
	store       store.KeyValueStoreWithTTL
	keySerde    commtypes.SerdeG[commtypes.KeyAndWindowStartTsG[K]]
	stateSerde  commtypes.SerdeG[reconcilerState]
	windows     *TimeWindows
	updatesSink sink.Sink
	hasher      hashfuncs.HashSum64[K]
	shards      []syncutils.Mutex
}

func NewLateRecordReconciler[K any](windows *TimeWindows, st store.KeyValueStoreWithTTL,
	keySerde commtypes.SerdeG[K], hasher hashfuncs.HashSum64[K], numShards int,
	updatesSink sink.Sink,
) *LateRecordReconciler[K] {
	return &LateRecordReconciler[K]{
		store:       st,
		keySerde:    commtypes.KeyAndWindowStartTsJSONSerdeG[K]{KeyJSONSerde: keySerde},
		stateSerde:  commtypes.JSONSerdeG[reconcilerState]{},
		windows:     windows,
		updatesSink: updatesSink,
		hasher:      hasher,
		shards:      make([]syncutils.Mutex, numShards),
	}
}

func (r *LateRecordReconciler[K]) shardFor(key K) *syncutils.Mutex {
	return &r.shards[r.hasher.HashSum64(key)%uint64(len(r.shards))]
}

func (r *LateRecordReconciler[K]) load(ctx context.Context, key K, windowStart int64) ([]byte, reconcilerState, bool, error) {
	kBytes, err := r.keySerde.Encode(commtypes.KeyAndWindowStartTsG[K]{Key: key, WindowStartTs: windowStart})
	if err != nil {
		return nil, reconcilerState{}, false, err
	}
	vBytes, exists, err := r.store.Get(ctx, kBytes)
	if err != nil {
		return nil, reconcilerState{}, false, err
	}
	if !exists {
		return kBytes, reconcilerState{}, false, nil
	}
	st, err := r.stateSerde.Decode(vBytes)
	if err != nil {
		return nil, reconcilerState{}, false, err
	}
	return kBytes, st, true, nil
}

// ObserveFinal folds the aggregator's final emission for the pair into
// the running total. With no prior late contributions there is nothing
// to emit; the final emission itself is the baseline downstream already
// saw. Late updates can land before the window closes, though, and
// those left the changelog pointing at a late-only total, so folding
// the baseline in must re-emit the merged total superseding it.
func (r *LateRecordReconciler[K]) ObserveFinal(ctx context.Context, agg commtypes.WindowAggregate[K]) error {
	shard := r.shardFor(agg.Key)
	shard.Lock()
	defer shard.Unlock()
	kBytes, st, exists, err := r.load(ctx, agg.Key, agg.WindowStart)
	if err != nil {
		return err
	}
	var oldVal *commtypes.WindowAggregate[K]
	if exists && st.Count > 0 {
		old := commtypes.WindowAggregate[K]{
			Key:         agg.Key,
			WindowStart: agg.WindowStart,
			WindowEnd:   agg.WindowEnd,
			Count:       st.Count,
			Sum:         st.Sum,
		}
		oldVal = &old
	}
	st.Count += agg.Count
	st.Sum += agg.Sum
	st.Baseline = true
	vBytes, err := r.stateSerde.Encode(st)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, kBytes, vBytes); err != nil {
		return err
	}
	if oldVal == nil {
		return nil
	}
	newVal := commtypes.WindowAggregate[K]{
		Key:         agg.Key,
		WindowStart: agg.WindowStart,
		WindowEnd:   agg.WindowEnd,
		Count:       st.Count,
		Sum:         st.Sum,
	}
	return r.updatesSink.Emit(ctx, commtypes.Change[commtypes.WindowAggregate[K]]{
		NewVal: &newVal,
		OldVal: oldVal,
		Tag:    commtypes.Update,
	})
}

// ApplyLate folds one dead-lettered record into its nominal window and
// re-emits the full updated total. Ordering between simultaneous late
// records for the same pair is last-applied-wins under the shard lock;
// either order converges to the same total.
func (r *LateRecordReconciler[K]) ApplyLate(ctx context.Context, lr commtypes.LateRecord, key K, value float64) error {
	window, err := r.windows.AssignWindow(lr.Rec.Timestamp)
	if err != nil {
		return err
	}
	shard := r.shardFor(key)
	shard.Lock()
	defer shard.Unlock()
	kBytes, st, exists, err := r.load(ctx, key, window.Start())
	if err != nil {
		return err
	}
	var oldVal *commtypes.WindowAggregate[K]
	tag := commtypes.Insert
	if exists {
		tag = commtypes.Update
		old := commtypes.WindowAggregate[K]{
			Key:         key,
			WindowStart: window.Start(),
			WindowEnd:   window.End(),
			Count:       st.Count,
			Sum:         st.Sum,
		}
		oldVal = &old
	}
	st.Count += 1
	st.Sum += value
	vBytes, err := r.stateSerde.Encode(st)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, kBytes, vBytes); err != nil {
		return err
	}
	newVal := commtypes.WindowAggregate[K]{
		Key:         key,
		WindowStart: window.Start(),
		WindowEnd:   window.End(),
		Count:       st.Count,
		Sum:         st.Sum,
	}
	return r.updatesSink.Emit(ctx, commtypes.Change[commtypes.WindowAggregate[K]]{
		NewVal: &newVal,
		OldVal: oldVal,
		Tag:    tag,
	})
}
