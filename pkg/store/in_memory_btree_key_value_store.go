package store

import (
	"bytes"
	"context"
	"time"

	"tidestream/pkg/utils/syncutils"
	"tidestream/pkg/watermark"

	"github.com/google/btree"
)

type bkvPair struct {
	key      []byte
	val      []byte
	expireAt int64
}

func bkvLess(a, b bkvPair) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// InMemoryBTreeKeyValueStore is the default reconciler state backend.
// Entries carry a wall-clock deadline; expired entries are dropped
// lazily on access and in bulk by PurgeExpired.
type InMemoryBTreeKeyValueStore struct {
	mux   syncutils.Mutex
	store *btree.BTreeG[bkvPair]
	clock watermark.Clock
	ttl   time.Duration
	name  string
}

var _ = KeyValueStoreWithTTL(&InMemoryBTreeKeyValueStore{})

func NewInMemoryBTreeKeyValueStore(name string, ttl time.Duration, clock watermark.Clock) *InMemoryBTreeKeyValueStore {
	return &InMemoryBTreeKeyValueStore{
		name:  name,
		store: btree.NewG(2, bkvLess),
		clock: clock,
		ttl:   ttl,
	}
}

func (st *InMemoryBTreeKeyValueStore) Name() string {
	return st.name
}

func (st *InMemoryBTreeKeyValueStore) expired(p bkvPair) bool {
	return p.expireAt != 0 && st.clock.Now().UnixNano() >= p.expireAt
}

func (st *InMemoryBTreeKeyValueStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	st.mux.Lock()
	defer st.mux.Unlock()
	ret, ok := st.store.Get(bkvPair{key: key})
	if !ok {
		return nil, false, nil
	}
	if st.expired(ret) {
		st.store.Delete(bkvPair{key: key})
		return nil, false, nil
	}
	return ret.val, true, nil
}

func (st *InMemoryBTreeKeyValueStore) Put(ctx context.Context, key []byte, value []byte) error {
	st.mux.Lock()
	defer st.mux.Unlock()
	var expireAt int64
	if st.ttl > 0 {
		expireAt = st.clock.Now().Add(st.ttl).UnixNano()
	}
	st.store.ReplaceOrInsert(bkvPair{key: key, val: value, expireAt: expireAt})
	return nil
}

func (st *InMemoryBTreeKeyValueStore) Delete(ctx context.Context, key []byte) error {
	st.mux.Lock()
	defer st.mux.Unlock()
	st.store.Delete(bkvPair{key: key})
	return nil
}

// PurgeExpired removes every entry past its deadline and returns the
// number removed.
func (st *InMemoryBTreeKeyValueStore) PurgeExpired(ctx context.Context) int {
	st.mux.Lock()
	defer st.mux.Unlock()
	var stale [][]byte
	st.store.Ascend(func(p bkvPair) bool {
		if st.expired(p) {
			stale = append(stale, p.key)
		}
		return true
	})
	for _, k := range stale {
		st.store.Delete(bkvPair{key: k})
	}
	return len(stale)
}

func (st *InMemoryBTreeKeyValueStore) Len(ctx context.Context) int {
	st.mux.Lock()
	defer st.mux.Unlock()
	return st.store.Len()
}
