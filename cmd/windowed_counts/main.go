package main

import (
	"context"
	"flag"
	"os"
	"time"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/execution"
	"tidestream/pkg/hashfuncs"
	"tidestream/pkg/redis_client"
	"tidestream/pkg/sink"
	"tidestream/pkg/source"
	"tidestream/pkg/store"
	"tidestream/pkg/watermark"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	windowSize   = flag.Duration("window_size", 5*time.Minute, "tumbling window size")
	idleTimeout  = flag.Duration("idle_timeout", 10*time.Second, "partition idle timeout")
	heartbeat    = flag.Duration("heartbeat_interval", 50*time.Millisecond, "heartbeat cadence")
	stateTTL     = flag.Duration("state_ttl", time.Hour, "reconciler state retention")
	stateBackend = flag.String("state_backend", "memory", "reconciler state backend: memory or redis (REDIS_ADDR)")
)

func reconcilerStore(clock watermark.Clock) store.KeyValueStoreWithTTL {
	switch *stateBackend {
	case "memory":
		return store.NewInMemoryBTreeKeyValueStore("reconciler", *stateTTL, clock)
	case "redis":
		return store.NewRedisKeyValueStore("reconciler", redis_client.GetRedisClients(), *stateTTL)
	default:
		log.Fatal().Str("state_backend", *stateBackend).Msg("unknown state backend")
		return nil
	}
}

// purchases interleaved across two customers; timestamps are event
// time in ms from epoch
func demoRecords() []commtypes.Record {
	type ev struct {
		key string
		amt float64
		ts  int64
	}
	evs := []ev{
		{"alice", 12.5, 10_000},
		{"bob", 3.0, 50_000},
		{"alice", 12.5, 50_500},
		{"bob", 7.25, 120_000},
		{"alice", 99.0, 290_000},
		{"bob", 1.0, 305_000},
	}
	recs := make([]commtypes.Record, 0, len(evs))
	for _, e := range evs {
		recs = append(recs, commtypes.Record{
			Key:       e.key,
			Value:     e.amt,
			Timestamp: e.ts,
		})
	}
	return recs
}

func main() {
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := execution.Config{
		WindowSize:        *windowSize,
		IdleTimeout:       *idleTimeout,
		StateTTL:          *stateTTL,
		HeartbeatInterval: *heartbeat,
		FlushOnShutdown:   true,
	}

	results := sink.NewCollectorSink("results")
	updates := sink.NewCollectorSink("updates")
	lates := sink.NewCollectorSink("dead-letter")
	clock := watermark.SystemClock{}

	pipe := execution.NewPipeline(cfg, execution.Options[string]{
		Clock:  clock,
		Inputs: []source.Input{{Partition: source.NewScriptedPartition("purchases", demoRecords())}},
		KeyOf: func(rec commtypes.Record) (string, bool) {
			k, ok := rec.Key.(string)
			return k, ok
		},
		ValueOf: func(rec commtypes.Record) (float64, error) {
			v, ok := rec.Value.(float64)
			if !ok {
				return 0, nil
			}
			return v, nil
		},
		KeyCompare:      store.StringCompare,
		KeyHasher:       hashfuncs.StringHasher{},
		KeySerde:        commtypes.StringSerdeG{},
		ResultSink:      results,
		UpdatesSink:     updates,
		LateSink:        lates,
		ReconcilerStore: reconcilerStore(clock),
		// start heartbeats just past the first window so it closes
		// while the demo runs instead of waiting for shutdown
		HeartbeatStartTs: 309_000,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// the scripted partition drains instantly; let a few heartbeats
	// push the watermark past the open windows before shutdown
	go func() {
		time.Sleep(1 * time.Second)
		cancel()
	}()
	if err := pipe.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("pipeline failed")
	}

	for _, msg := range results.Collected() {
		log.Info().Interface("aggregate", msg).Msg("closed window")
	}
	for _, msg := range lates.Collected() {
		log.Info().Interface("late", msg).Msg("dead-lettered")
	}
	for _, msg := range updates.Collected() {
		ch := commtypes.CastToChangePtr[commtypes.WindowAggregate[string]](msg)
		log.Info().Stringer("tag", ch.Tag).Interface("new", ch.NewVal).
			Interface("old", ch.OldVal).Msg("reconciled")
	}
	st := pipe.Stats()
	log.Info().Uint64("timely", st.Timely).Uint64("late", st.Late).
		Uint64("emitted", st.Emitted).Msg("done")
}
