package processor

import (
	"fmt"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/stats"
	"tidestream/pkg/watermark"
)

// Classification is the terminal state of a routed record. A record is
// conceptually Pending until the router evaluates it once; the outcome
// never changes afterwards, even if the watermark later overtakes a
// Timely record (window closing handles that separately).
type Classification uint8

const (
	Pending Classification = iota
	Timely
	Late
)

func (c Classification) String() string {
	switch c {
	case Pending:
		return "PENDING"
	case Timely:
		return "TIMELY"
	case Late:
		return "LATE"
	default:
		return fmt.Sprintf("Classification(%d)", uint8(c))
	}
}

// LateEventRouter compares each record's event time against the merged
// watermark at the moment the record is processed and dispatches it to
// exactly one of the two downstream paths.
type LateEventRouter struct {
	tracker *watermark.Tracker
	timely  stats.AtomicCounter
	late    stats.AtomicCounter
}

func NewLateEventRouter(tracker *watermark.Tracker) *LateEventRouter {
	return &LateEventRouter{
		tracker: tracker,
		timely:  stats.NewAtomicCounter("router_timely"),
		late:    stats.NewAtomicCounter("router_late"),
	}
}

// Route performs the single Pending -> {Timely, Late} transition.
// Late records carry the watermark value observed here for audit.
func (r *LateEventRouter) Route(rec commtypes.Record) (Classification, commtypes.LateRecord) {
	wm := r.tracker.CurrentWatermark()
	if rec.Timestamp <= wm {
		r.late.Incr()
		return Late, commtypes.LateRecord{Rec: rec, ObservedWatermark: wm}
	}
	r.timely.Incr()
	return Timely, commtypes.LateRecord{}
}

func (r *LateEventRouter) TimelyCount() uint64 {
	return r.timely.GetCount()
}

func (r *LateEventRouter) LateCount() uint64 {
	return r.late.GetCount()
}
