package commtypes

import (
	"fmt"

	"tidestream/pkg/optional"
)

// Record is the unit the kernel moves around. It is immutable once a
// source produced it; the union merger copies it when projecting into
// the shared schema.
type Record struct {
	// Origin is the id of the source partition that produced the record.
	Origin string
	// Key is the partition key. nil for synthetic records and for
	// records whose source has no key for them.
	Key interface{}
	// Value is the payload. nil for synthetic records.
	Value interface{}
	// Timestamp is the event time in unix ms. Not required to be
	// monotonic within a partition.
	Timestamp int64
	// Offset is the source offset metadata when the source exposes one.
	Offset optional.Option[uint64]
	// Synthetic marks heartbeat records. They drive the watermark but
	// must never reach aggregator output.
	Synthetic bool
}

var _ = fmt.Stringer(Record{})

func (r Record) String() string {
	return fmt.Sprintf("Record: {Origin: %s, Key: %v, Value: %v, Ts: %d, Synthetic: %v}",
		r.Origin, r.Key, r.Value, r.Timestamp, r.Synthetic)
}

var _ = EventTimeExtractor(Record{})

func (r Record) ExtractEventTime() (int64, error) {
	return r.Timestamp, nil
}

// HasValidTimestamp reports whether the event timestamp is usable for
// window assignment. Sources that cannot parse a timestamp set it to
// a negative value.
func (r Record) HasValidTimestamp() bool {
	return r.Timestamp >= 0
}

var EmptyRecord = Record{}
