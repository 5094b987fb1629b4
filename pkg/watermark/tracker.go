package watermark

import (
	"math"
	"sync/atomic"
	"time"

	"tidestream/pkg/debug"
	"tidestream/pkg/utils/syncutils"

	"github.com/rs/zerolog/log"
)

// InitialWatermark is the merged watermark before any partition has
// produced a record.
const InitialWatermark = int64(math.MinInt64)

type partitionEntry struct {
	// highWater is the partition's last-observed event time in ms.
	// Forward-only; InitialWatermark until the first observe.
	highWater int64
	// lastActive is the wall-clock unix nanos of the last observe (or
	// of registration). Read against the idle timeout.
	lastActive int64
}

// Tracker maintains per-partition high-water marks and the merged,
// monotonic job watermark.
//
// Observe is called concurrently by every partition worker. Single
// partition updates are atomic; the minimum scan in CurrentWatermark
// may trail a concurrent observe by one update, but the published
// watermark never regresses.
type Tracker struct {
	partitions  map[string]*partitionEntry
	clock       Clock
	idleTimeout time.Duration
	published   int64
	mux         syncutils.RWMutex
}

func NewTracker(idleTimeout time.Duration, clock Clock) *Tracker {
	if idleTimeout <= 0 {
		log.Fatal().Dur("idleTimeout", idleTimeout).Msg("idle timeout must be positive")
	}
	return &Tracker{
		partitions:  make(map[string]*partitionEntry),
		clock:       clock,
		idleTimeout: idleTimeout,
		published:   InitialWatermark,
	}
}

// Register adds a partition to the merge. A registered partition that
// has not produced yet holds the watermark back until the idle timeout
// excludes it.
func (t *Tracker) Register(partition string) {
	t.mux.Lock()
	defer t.mux.Unlock()
	if _, ok := t.partitions[partition]; ok {
		return
	}
	t.partitions[partition] = &partitionEntry{
		highWater:  InitialWatermark,
		lastActive: t.clock.Now().UnixNano(),
	}
}

// Unregister removes a partition from the merge, e.g. when its source
// reaches end of partition.
func (t *Tracker) Unregister(partition string) {
	t.mux.Lock()
	defer t.mux.Unlock()
	delete(t.partitions, partition)
}

// Observe raises the partition's high-water mark to ts if larger.
// A regressing ts is silently not applied; out-of-order records within
// a partition never move its mark backwards.
func (t *Tracker) Observe(partition string, ts int64) {
	t.mux.RLock()
	e, ok := t.partitions[partition]
	t.mux.RUnlock()
	if !ok {
		t.Register(partition)
		t.mux.RLock()
		e = t.partitions[partition]
		t.mux.RUnlock()
	}
	debug.Assert(ts >= 0, "timestamps are validated before they reach the tracker")
	syncutils.MaxInt64(&e.highWater, ts)
	atomic.StoreInt64(&e.lastActive, t.clock.Now().UnixNano())
}

// HighWater returns the partition's own mark, for inspection.
func (t *Tracker) HighWater(partition string) (int64, bool) {
	t.mux.RLock()
	defer t.mux.RUnlock()
	e, ok := t.partitions[partition]
	if !ok {
		return InitialWatermark, false
	}
	return atomic.LoadInt64(&e.highWater), true
}

// CurrentWatermark returns the merged watermark: the minimum high-water
// mark across partitions whose inactivity is below the idle timeout.
// Partitions idle longer than the timeout drop out of the minimum until
// they produce again. If every partition is excluded the watermark is
// held at its last value rather than jumping ahead.
func (t *Tracker) CurrentWatermark() int64 {
	now := t.clock.Now().UnixNano()
	cutoff := now - t.idleTimeout.Nanoseconds()
	min := int64(math.MaxInt64)
	live := false
	t.mux.RLock()
	for _, e := range t.partitions {
		if atomic.LoadInt64(&e.lastActive) < cutoff {
			continue
		}
		live = true
		hw := atomic.LoadInt64(&e.highWater)
		if hw < min {
			min = hw
		}
	}
	t.mux.RUnlock()
	if !live {
		return atomic.LoadInt64(&t.published)
	}
	return syncutils.MaxInt64(&t.published, min)
}
