package processor

import (
	"time"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/common_errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

var DurationLeqZero = xerrors.New("duration should be larger than zero")

// The fixed-size time-based window specification used for dedup and
// aggregation.
//
// Windows are tumbling: fixed-sized, gap-less, non-overlapping, and
// aligned to the epoch (the first window starts at timestamp zero), so
// a record belongs to exactly one window. The time interval represented
// by the N-th window is [N * size, N * size + size).
type TimeWindows struct {
	// size of the windows in ms
	SizeMs int64
}

// NewTumblingWindows returns a window definition with the given window
// size. Fatal if the size is zero or negative.
func NewTumblingWindows(size time.Duration) *TimeWindows {
	sizeMs := size.Milliseconds()
	if sizeMs <= 0 {
		log.Fatal().Err(DurationLeqZero).Dur("size", size).Msg("invalid window size")
	}
	return &TimeWindows{
		SizeMs: sizeMs,
	}
}

// AssignWindow is a pure function of the timestamp and the configured
// size. ErrInvalidTimestamp for negative timestamps; callers filter
// those out before windowing, so hitting it here is a bug upstream.
func (w *TimeWindows) AssignWindow(timestamp int64) (*commtypes.TimeWindow, error) {
	if timestamp < 0 {
		return nil, common_errors.ErrInvalidTimestamp
	}
	windowStart := timestamp / w.SizeMs * w.SizeMs
	return commtypes.NewTimeWindow(windowStart, windowStart+w.SizeMs)
}

// WindowStartFor returns just the start boundary for the timestamp.
func (w *TimeWindows) WindowStartFor(timestamp int64) int64 {
	return timestamp / w.SizeMs * w.SizeMs
}

func (w *TimeWindows) MaxSize() int64 {
	return w.SizeMs
}
