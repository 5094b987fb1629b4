package commtypes

import "fmt"

// LateRecord wraps a record that arrived at or behind the merged
// watermark, together with the watermark value observed when it was
// classified. Immutable; the dead-letter path persists it as-is.
type LateRecord struct {
	Rec Record
	// ObservedWatermark is the merged watermark at classification time,
	// kept for audit.
	ObservedWatermark int64
}

var _ = fmt.Stringer(LateRecord{})

func (lr LateRecord) String() string {
	return fmt.Sprintf("LateRecord: {Rec: %v, ObservedWatermark: %d}", lr.Rec, lr.ObservedWatermark)
}
