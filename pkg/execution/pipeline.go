package execution

import (
	"context"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/hashfuncs"
	"tidestream/pkg/processor"
	"tidestream/pkg/sink"
	"tidestream/pkg/source"
	"tidestream/pkg/stats"
	"tidestream/pkg/store"
	"tidestream/pkg/watermark"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Pipeline wires the kernel end to end:
//
//	sources -> union merger -> late router -> (tracker observes)
//	  timely: window assigner -> deduplicator -> window aggregator -> result sink
//	  late:   dead-letter queue -> dead-letter sink (+ reconciler)
//
// Each source partition is drained by its own sequential worker; keyed
// state downstream is sharded so independent keys do not contend.
// Window closing is checked after every merged record, because the
// watermark can only have advanced through an observe.
type Pipeline[K any] struct {
	cfg        Config
	tracker    *watermark.Tracker
	merger     *source.UnionMerger
	router     *processor.LateEventRouter
	windows    *processor.TimeWindows
	dedup      *processor.Deduplicator[K]
	agg        *processor.WindowAggregator[K]
	dlq        *sink.DeadLetterQueue
	resultSink sink.Sink
	lateSink   sink.Sink
	reconciler *processor.LateRecordReconciler[K]
	keyOf      processor.KeyOfFunc[K]
	valueOf    processor.ValueOfFunc
	noKey      stats.AtomicCounter
	heartbeats stats.AtomicCounter
}

// Options carries the pluggable collaborators. ReconcilerStore nil
// disables the reconciliation stage; LateSink nil discards late
// records after counting them.
type Options[K any] struct {
	Clock           watermark.Clock
	Inputs          []source.Input
	KeyOf           processor.KeyOfFunc[K]
	ValueOf         processor.ValueOfFunc
	KeyCompare      store.CompareFuncG[K]
	KeyHasher       hashfuncs.HashSum64[K]
	KeySerde        commtypes.SerdeG[K]
	ResultSink      sink.Sink
	UpdatesSink     sink.Sink
	LateSink        sink.Sink
	ReconcilerStore store.KeyValueStoreWithTTL
	// HeartbeatStartTs seeds the synthetic partition's event time.
	HeartbeatStartTs int64
}

func NewPipeline[K any](cfg Config, opts Options[K]) *Pipeline[K] {
	cfg.fillDefaults()
	clock := opts.Clock
	if clock == nil {
		clock = watermark.SystemClock{}
	}
	tracker := watermark.NewTracker(cfg.IdleTimeout, clock)
	windows := processor.NewTumblingWindows(cfg.WindowSize)
	// keep a few windows of slack before state retention kicks in
	retentionMs := windows.SizeMs * 8

	inputs := opts.Inputs
	if cfg.HeartbeatInterval > 0 {
		hb := source.NewHeartbeatSource("__heartbeat", cfg.HeartbeatInterval, opts.HeartbeatStartTs, tracker)
		inputs = append(inputs, source.Input{Partition: hb})
	}

	resultSink := sink.Sink(sink.NewRetryingSink(opts.ResultSink, cfg.SinkMaxAttempts, cfg.SinkBaseBackoff))

	var reconciler *processor.LateRecordReconciler[K]
	if opts.ReconcilerStore != nil {
		updatesSink := sink.Sink(sink.NewRetryingSink(opts.UpdatesSink, cfg.SinkMaxAttempts, cfg.SinkBaseBackoff))
		reconciler = processor.NewLateRecordReconciler(windows, opts.ReconcilerStore,
			opts.KeySerde, opts.KeyHasher, cfg.NumShards, updatesSink)
		// tee final aggregates into the reconciler baseline
		resultSink = &teeResultSink[K]{inner: resultSink, rec: reconciler}
	}

	return &Pipeline[K]{
		cfg:        cfg,
		tracker:    tracker,
		merger:     source.NewUnionMerger(tracker, cfg.MergeBufSize, inputs...),
		router:     processor.NewLateEventRouter(tracker),
		windows:    windows,
		dedup:      processor.NewDeduplicator[K](windows, retentionMs, opts.KeyCompare, opts.KeyHasher, cfg.NumShards),
		agg:        processor.NewWindowAggregator(windows, retentionMs, opts.KeyCompare, opts.KeyHasher, cfg.NumShards, resultSink),
		dlq:        sink.NewDeadLetterQueue(cfg.DeadLetterCap),
		resultSink: resultSink,
		lateSink:   opts.LateSink,
		reconciler: reconciler,
		keyOf:      opts.KeyOf,
		valueOf:    opts.ValueOf,
		noKey:      stats.NewAtomicCounter("pipeline_no_key"),
		heartbeats: stats.NewAtomicCounter("pipeline_heartbeats"),
	}
}

// teeResultSink forwards final aggregates downstream and then seeds
// the reconciler baseline with them.
type teeResultSink[K any] struct {
	inner sink.Sink
	rec   *processor.LateRecordReconciler[K]
}

func (s *teeResultSink[K]) Name() string { return s.inner.Name() }

func (s *teeResultSink[K]) Emit(ctx context.Context, msg interface{}) error {
	if err := s.inner.Emit(ctx, msg); err != nil {
		return err
	}
	return s.rec.ObserveFinal(ctx, msg.(commtypes.WindowAggregate[K]))
}

func (s *teeResultSink[K]) Flush(ctx context.Context) error {
	return s.inner.Flush(ctx)
}

func (p *Pipeline[K]) Tracker() *watermark.Tracker {
	return p.tracker
}

// Run drives the pipeline until all sources end or ctx is cancelled.
func (p *Pipeline[K]) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.merger.Run(gctx)
	})
	g.Go(func() error {
		return p.consume(gctx)
	})
	g.Go(func() error {
		return p.drainDeadLetters(gctx)
	})
	return g.Wait()
}

func (p *Pipeline[K]) consume(ctx context.Context) error {
	for rec := range p.merger.Out() {
		if rec.Synthetic {
			// heartbeats only move the watermark; they never reach
			// dedup or aggregation
			p.heartbeats.Incr()
			p.tracker.Observe(rec.Origin, rec.Timestamp)
			if err := p.advance(ctx); err != nil {
				return err
			}
			continue
		}
		// classify against the watermark as it stood before this
		// record; a partition's newest record cannot make itself late
		class, lr := p.router.Route(rec)
		p.tracker.Observe(rec.Origin, rec.Timestamp)
		if class == processor.Late {
			if err := p.dlq.Push(ctx, lr); err != nil {
				return err
			}
		} else {
			if err := p.offerTimely(ctx, rec); err != nil {
				return err
			}
		}
		if err := p.advance(ctx); err != nil {
			return err
		}
	}
	return p.shutdown(ctx)
}

func (p *Pipeline[K]) offerTimely(ctx context.Context, rec commtypes.Record) error {
	key, ok := p.keyOf(rec)
	if !ok {
		p.noKey.Incr()
		log.Warn().Interface("key", rec.Key).Interface("value", rec.Value).
			Msg("skipping record due to null key")
		return nil
	}
	window, err := p.windows.AssignWindow(rec.Timestamp)
	if err != nil {
		// timestamps were validated at the merger, so this is drop-and-log
		log.Warn().Err(err).Int64("timestamp", rec.Timestamp).Msg("window assignment failed")
		return nil
	}
	return p.dedup.Offer(ctx, window, key, rec)
}

// advance flushes dedupe slots and closes aggregate windows that the
// merged watermark has passed.
func (p *Pipeline[K]) advance(ctx context.Context) error {
	wm := p.tracker.CurrentWatermark()
	err := p.dedup.FlushClosable(ctx, wm, func(window *commtypes.TimeWindow, key K, rec commtypes.Record) error {
		return p.addToAggregate(ctx, window, key, rec)
	})
	if err != nil {
		return err
	}
	return p.agg.OnWatermark(ctx, wm)
}

func (p *Pipeline[K]) addToAggregate(ctx context.Context, window *commtypes.TimeWindow, key K, rec commtypes.Record) error {
	v, err := p.valueOf(rec)
	if err != nil {
		log.Warn().Err(err).Interface("key", rec.Key).Msg("dropping record with unusable value")
		return nil
	}
	return p.agg.Add(ctx, window, key, v)
}

func (p *Pipeline[K]) drainDeadLetters(ctx context.Context) error {
	for {
		lr, ok, err := p.dlq.Pop(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if p.lateSink != nil {
			if err := p.lateSink.Emit(ctx, lr); err != nil {
				return err
			}
		}
		if p.reconciler == nil {
			continue
		}
		key, hasKey := p.keyOf(lr.Rec)
		if !hasKey {
			continue
		}
		v, err := p.valueOf(lr.Rec)
		if err != nil {
			log.Warn().Err(err).Msg("dropping late record with unusable value")
			continue
		}
		if err := p.reconciler.ApplyLate(ctx, lr, key, v); err != nil {
			return err
		}
	}
}

func (p *Pipeline[K]) shutdown(ctx context.Context) error {
	defer p.dlq.Close()
	if p.cfg.FlushOnShutdown {
		err := p.dedup.FlushAll(ctx, func(window *commtypes.TimeWindow, key K, rec commtypes.Record) error {
			return p.addToAggregate(ctx, window, key, rec)
		})
		if err != nil {
			return err
		}
		if err := p.agg.CloseAll(ctx); err != nil {
			return err
		}
	}
	if err := p.resultSink.Flush(ctx); err != nil {
		return err
	}
	if p.lateSink != nil {
		if err := p.lateSink.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// PipelineStats is a point-in-time snapshot of the record counters.
type PipelineStats struct {
	Merged        uint64
	DroppedTs     uint64
	Timely        uint64
	Late          uint64
	NoKey         uint64
	Heartbeats    uint64
	Emitted       uint64
	DeadLetterLen int
}

func (p *Pipeline[K]) Stats() PipelineStats {
	return PipelineStats{
		Merged:        p.merger.MergedCount(),
		DroppedTs:     p.merger.DroppedCount(),
		Timely:        p.router.TimelyCount(),
		Late:          p.router.LateCount(),
		NoKey:         p.noKey.GetCount(),
		Heartbeats:    p.heartbeats.GetCount(),
		Emitted:       p.agg.EmittedCount(),
		DeadLetterLen: p.dlq.Len(),
	}
}
