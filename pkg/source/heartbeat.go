package source

import (
	"context"
	"time"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/utils/syncutils"
	"tidestream/pkg/watermark"

	"github.com/rs/zerolog/log"
)

// HeartbeatSource is a synthetic partition that emits a keyless,
// payload-less record every interval with strictly increasing event
// timestamps. Because it never goes idle it always contributes to the
// merged minimum, which is what keeps the watermark advancing when a
// real partition stalls.
type HeartbeatSource struct {
	mux      syncutils.Mutex
	name     string
	interval time.Duration
	nextTs   int64
}

var _ = Partition(&HeartbeatSource{})

// NewHeartbeatSource registers itself with the tracker so its
// timestamps count toward the merge from the start.
func NewHeartbeatSource(name string, interval time.Duration, startTs int64, tracker *watermark.Tracker) *HeartbeatSource {
	if interval <= 0 {
		log.Fatal().Dur("interval", interval).Msg("heartbeat interval must be positive")
	}
	tracker.Register(name)
	return &HeartbeatSource{
		name:     name,
		interval: interval,
		nextTs:   startTs,
	}
}

func (s *HeartbeatSource) Name() string { return s.name }

// Poll produces the next heartbeat after one interval. The sequence is
// infinite and resumes from the last emitted timestamp after a
// reconnect, so monotonicity holds across restarts.
func (s *HeartbeatSource) Poll(ctx context.Context) (commtypes.Record, error) {
	select {
	case <-ctx.Done():
		return commtypes.EmptyRecord, ctx.Err()
	case <-time.After(s.interval):
	}
	return s.emit(), nil
}

func (s *HeartbeatSource) emit() commtypes.Record {
	s.mux.Lock()
	defer s.mux.Unlock()
	ts := s.nextTs
	s.nextTs += s.interval.Milliseconds()
	return commtypes.Record{
		Origin:    s.name,
		Timestamp: ts,
		Synthetic: true,
	}
}
