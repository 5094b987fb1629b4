package store

import (
	"context"

	"tidestream/pkg/utils/syncutils"

	"github.com/rs/zerolog/log"
	"github.com/zhangyunhao116/skipmap"
)

// InMemorySkipMapWindowStore keeps one concurrent sorted map of keys
// per window start. Window starts older than the retention period
// (relative to the largest window start observed) are dropped, so a
// stalled flush cannot pin memory forever.
type InMemorySkipMapWindowStore[K, V any] struct {
	store              *skipmap.Int64Map[*skipmap.FuncMap[K, V]]
	compareFunc        CompareFuncG[K]
	name               string
	retentionMs        int64
	observedWindowTime int64
}

var _ = WindowKeyedStore[string, int](&InMemorySkipMapWindowStore[string, int]{})

func NewInMemorySkipMapWindowStore[K, V any](name string, retentionMs int64,
	compareFunc CompareFuncG[K],
) *InMemorySkipMapWindowStore[K, V] {
	return &InMemorySkipMapWindowStore[K, V]{
		store:              skipmap.NewInt64[*skipmap.FuncMap[K, V]](),
		compareFunc:        compareFunc,
		name:               name,
		retentionMs:        retentionMs,
		observedWindowTime: 0,
	}
}

func (s *InMemorySkipMapWindowStore[K, V]) Name() string { return s.name }

func (s *InMemorySkipMapWindowStore[K, V]) Put(ctx context.Context, key K, value V, windowStartTs int64) error {
	observed := syncutils.MaxInt64(&s.observedWindowTime, windowStartTs)
	if s.retentionMs > 0 && windowStartTs <= observed-s.retentionMs {
		log.Warn().Str("store", s.name).Int64("windowStartTs", windowStartTs).
			Msg("Skipping record for expired window segment.")
		return nil
	}
	s.removeExpiredSegments()
	actual, _ := s.store.LoadOrStore(windowStartTs, skipmap.NewFunc[K, V](func(a, b K) bool {
		return s.compareFunc(a, b) < 0
	}))
	actual.Store(key, value)
	return nil
}

func (s *InMemorySkipMapWindowStore[K, V]) Get(ctx context.Context, key K, windowStartTs int64) (V, bool, error) {
	var zero V
	m, ok := s.store.Load(windowStartTs)
	if !ok {
		return zero, false, nil
	}
	v, ok := m.Load(key)
	if !ok {
		return zero, false, nil
	}
	return v, true, nil
}

func (s *InMemorySkipMapWindowStore[K, V]) Delete(ctx context.Context, key K, windowStartTs int64) error {
	m, ok := s.store.Load(windowStartTs)
	if ok {
		m.Delete(key)
	}
	return nil
}

func (s *InMemorySkipMapWindowStore[K, V]) IterWindow(windowStartTs int64, iterFunc func(key K, value V) error) error {
	m, ok := s.store.Load(windowStartTs)
	if !ok {
		return nil
	}
	var iterErr error
	m.Range(func(key K, value V) bool {
		iterErr = iterFunc(key, value)
		return iterErr == nil
	})
	return iterErr
}

func (s *InMemorySkipMapWindowStore[K, V]) DeleteWindow(windowStartTs int64) error {
	s.store.Delete(windowStartTs)
	return nil
}

func (s *InMemorySkipMapWindowStore[K, V]) removeExpiredSegments() {
	if s.retentionMs <= 0 {
		return
	}
	cutoff := syncutils.MaxInt64(&s.observedWindowTime, 0) - s.retentionMs
	s.store.Range(func(windowStartTs int64, _ *skipmap.FuncMap[K, V]) bool {
		if windowStartTs <= cutoff {
			s.store.Delete(windowStartTs)
			return true
		}
		return false
	})
}
