package store

import (
	"context"
	"sort"
	"testing"
)

func getWindowStore(retentionMs int64) *InMemorySkipMapWindowStore[string, int] {
	return NewInMemorySkipMapWindowStore[string, int]("test1", retentionMs, StringCompare)
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	st := getWindowStore(0)
	if err := st.Put(ctx, "a", 1, 0); err != nil {
		t.Fatal(err)
	}
	v, ok, err := st.Get(ctx, "a", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || v != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", v, ok)
	}
	// same key in a different window is independent state
	_, ok, err = st.Get(ctx, "a", 300)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("window 300 should not see window 0 state")
	}
	if err := st.Delete(ctx, "a", 0); err != nil {
		t.Fatal(err)
	}
	_, ok, _ = st.Get(ctx, "a", 0)
	if ok {
		t.Fatal("deleted key still present")
	}
}

func TestPutOverwrites(t *testing.T) {
	ctx := context.Background()
	st := getWindowStore(0)
	_ = st.Put(ctx, "a", 1, 0)
	_ = st.Put(ctx, "a", 2, 0)
	v, ok, _ := st.Get(ctx, "a", 0)
	if !ok || v != 2 {
		t.Fatalf("expected (2, true), got (%d, %v)", v, ok)
	}
}

func TestIterWindowKeyOrdered(t *testing.T) {
	ctx := context.Background()
	st := getWindowStore(0)
	for _, k := range []string{"c", "a", "b"} {
		_ = st.Put(ctx, k, 1, 0)
	}
	var keys []string
	err := st.IterWindow(0, func(key string, _ int) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !sort.StringsAreSorted(keys) {
		t.Fatalf("keys not in order: %v", keys)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %v", keys)
	}
}

func TestDeleteWindowDropsAllKeys(t *testing.T) {
	ctx := context.Background()
	st := getWindowStore(0)
	_ = st.Put(ctx, "a", 1, 0)
	_ = st.Put(ctx, "b", 2, 0)
	_ = st.Put(ctx, "a", 3, 300)
	if err := st.DeleteWindow(0); err != nil {
		t.Fatal(err)
	}
	_, ok, _ := st.Get(ctx, "a", 0)
	if ok {
		t.Fatal("window 0 state survived DeleteWindow")
	}
	v, ok, _ := st.Get(ctx, "a", 300)
	if !ok || v != 3 {
		t.Fatal("window 300 state should be untouched")
	}
}

func TestExpiration(t *testing.T) {
	ctx := context.Background()
	st := getWindowStore(1000)
	_ = st.Put(ctx, "a", 1, 0)
	// advancing observed window time far enough evicts the old segment
	_ = st.Put(ctx, "b", 2, 2000)
	_, ok, _ := st.Get(ctx, "a", 0)
	if ok {
		t.Fatal("expired segment should be dropped")
	}
	// a put into an already-expired segment is skipped
	_ = st.Put(ctx, "c", 3, 100)
	_, ok, _ = st.Get(ctx, "c", 100)
	if ok {
		t.Fatal("put into expired segment should be skipped")
	}
}
