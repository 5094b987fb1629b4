package source

import (
	"context"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/common_errors"
	"tidestream/pkg/stats"
	"tidestream/pkg/watermark"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Input pairs a partition with an optional projection that maps the
// source's native fields into the shared schema, nulling absent ones.
type Input struct {
	Partition Partition
	Project   func(commtypes.Record) commtypes.Record
}

// UnionMerger interleaves N partitions into one stream. Each partition
// is drained by its own sequential worker, which preserves whatever
// per-partition ordering the source provides; there is no ordering
// guarantee across partitions. The merger registers partitions with the
// tracker but leaves timestamp observation to the consumer, which must
// classify each record against the watermark before applying the
// record's own timestamp to it.
type UnionMerger struct {
	tracker    *watermark.Tracker
	streamTime commtypes.StreamTimeTracker
	out        chan commtypes.Record
	inputs     []Input
	dropped    stats.AtomicCounter
	merged     stats.AtomicCounter
}

func NewUnionMerger(tracker *watermark.Tracker, outBuf int, inputs ...Input) *UnionMerger {
	return &UnionMerger{
		tracker:    tracker,
		streamTime: commtypes.NewStreamTimeTracker(),
		out:        make(chan commtypes.Record, outBuf),
		inputs:     inputs,
		dropped:    stats.NewAtomicCounter("union_dropped"),
		merged:     stats.NewAtomicCounter("union_merged"),
	}
}

// Out is the merged stream. It closes once every partition has ended.
func (m *UnionMerger) Out() <-chan commtypes.Record {
	return m.out
}

func (m *UnionMerger) DroppedCount() uint64 {
	return m.dropped.GetCount()
}

func (m *UnionMerger) MergedCount() uint64 {
	return m.merged.GetCount()
}

// StreamTime is the largest event timestamp seen on the merged stream.
// Unlike the watermark it is a max, not a min; it only measures how far
// ahead the fastest partition has run.
func (m *UnionMerger) StreamTime() int64 {
	return m.streamTime.GetStreamTime()
}

// Run drains all partitions and closes Out when they end. Records with
// an unusable timestamp are dropped and logged, never forwarded.
func (m *UnionMerger) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, in := range m.inputs {
		in := in
		m.tracker.Register(in.Partition.Name())
		g.Go(func() error {
			return m.drain(gctx, in)
		})
	}
	err := g.Wait()
	close(m.out)
	return err
}

func (m *UnionMerger) drain(ctx context.Context, in Input) error {
	name := in.Partition.Name()
	// single goroutine per partition, so a plain counter suffices
	polled := stats.NewCounter(name + "_polled")
	for {
		rec, err := in.Partition.Poll(ctx)
		if common_errors.IsEndOfPartitionError(err) {
			m.tracker.Unregister(name)
			log.Debug().Str("partition", name).Uint64("records", polled.GetCount()).
				Msg("partition ended")
			return nil
		}
		if err != nil {
			return err
		}
		polled.Incr()
		if in.Project != nil {
			rec = in.Project(rec)
		}
		if !rec.HasValidTimestamp() {
			m.dropped.Incr()
			log.Warn().Str("partition", name).Interface("key", rec.Key).
				Uint64("offset", rec.Offset.TakeOr(0)).
				Msg("dropping record with invalid timestamp")
			continue
		}
		if err := m.streamTime.UpdateStreamTime(rec); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m.out <- rec:
			m.merged.Incr()
		}
	}
}
