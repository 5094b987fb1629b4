package commtypes

import "tidestream/pkg/utils/syncutils"

type EventTimeExtractor interface {
	ExtractEventTime() (int64, error)
}

type StreamTimeTracker interface {
	UpdateStreamTime(m EventTimeExtractor) error
	GetStreamTime() int64
}

type streamTimeTracker struct {
	lock      syncutils.Mutex
	timeStamp int64
}

func NewStreamTimeTracker() StreamTimeTracker {
	return &streamTimeTracker{
		timeStamp: 0,
	}
}

// Update the timestamp when the stream time advances.
func (s *streamTimeTracker) UpdateStreamTime(m EventTimeExtractor) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	ts, err := m.ExtractEventTime()
	if err != nil {
		return err
	}
	if ts > s.timeStamp {
		s.timeStamp = ts
	}
	return nil
}

func (s *streamTimeTracker) GetStreamTime() int64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.timeStamp
}
