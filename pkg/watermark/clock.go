package watermark

import (
	"time"

	"tidestream/pkg/utils/syncutils"
)

// Clock supplies wall-clock time for idle-timeout measurement only.
// Event-time decisions never consult it.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

var _ = Clock(SystemClock{})

func (SystemClock) Now() time.Time {
	return time.Now()
}

// ManualClock is a hand-advanced clock for tests.
type ManualClock struct {
	mux syncutils.Mutex
	now time.Time
}

var _ = Clock(&ManualClock{})

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.now = c.now.Add(d)
}
