package store

import (
	"context"
	"testing"
	"time"

	"tidestream/pkg/watermark"
)

func getTTLStore(ttl time.Duration) (*InMemoryBTreeKeyValueStore, *watermark.ManualClock) {
	clock := watermark.NewManualClock(time.Unix(5000, 0))
	return NewInMemoryBTreeKeyValueStore("recon", ttl, clock), clock
}

func TestBTreePutGetDelete(t *testing.T) {
	ctx := context.Background()
	st, _ := getTTLStore(0)
	if err := st.Put(ctx, []byte("k1"), []byte("v1")); err != nil {
		t.Fatal(err)
	}
	v, ok, err := st.Get(ctx, []byte("k1"))
	if err != nil {
		t.Fatal(err)
	}
	if !ok || string(v) != "v1" {
		t.Fatalf("expected (v1, true), got (%s, %v)", v, ok)
	}
	if err := st.Delete(ctx, []byte("k1")); err != nil {
		t.Fatal(err)
	}
	_, ok, _ = st.Get(ctx, []byte("k1"))
	if ok {
		t.Fatal("deleted key still present")
	}
}

func TestBTreeZeroTTLKeepsForever(t *testing.T) {
	ctx := context.Background()
	st, clock := getTTLStore(0)
	_ = st.Put(ctx, []byte("k1"), []byte("v1"))
	clock.Advance(1000 * time.Hour)
	_, ok, _ := st.Get(ctx, []byte("k1"))
	if !ok {
		t.Fatal("zero TTL entry should never expire")
	}
}

func TestBTreeTTLExpiresLazily(t *testing.T) {
	ctx := context.Background()
	st, clock := getTTLStore(time.Minute)
	_ = st.Put(ctx, []byte("k1"), []byte("v1"))
	clock.Advance(30 * time.Second)
	_, ok, _ := st.Get(ctx, []byte("k1"))
	if !ok {
		t.Fatal("entry expired too early")
	}
	clock.Advance(31 * time.Second)
	_, ok, _ = st.Get(ctx, []byte("k1"))
	if ok {
		t.Fatal("entry should be expired")
	}
}

func TestBTreePurgeExpired(t *testing.T) {
	ctx := context.Background()
	st, clock := getTTLStore(time.Minute)
	_ = st.Put(ctx, []byte("old"), []byte("v"))
	clock.Advance(2 * time.Minute)
	_ = st.Put(ctx, []byte("fresh"), []byte("v"))
	if n := st.PurgeExpired(ctx); n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	if n := st.Len(ctx); n != 1 {
		t.Fatalf("expected 1 remaining, got %d", n)
	}
	_, ok, _ := st.Get(ctx, []byte("fresh"))
	if !ok {
		t.Fatal("fresh entry should survive purge")
	}
}

// TTL refresh: a rewrite extends the deadline, matching the reconciler
// contract that active window-key pairs stay reconcilable.
func TestBTreeTTLRefreshedOnPut(t *testing.T) {
	ctx := context.Background()
	st, clock := getTTLStore(time.Minute)
	_ = st.Put(ctx, []byte("k1"), []byte("v1"))
	clock.Advance(45 * time.Second)
	_ = st.Put(ctx, []byte("k1"), []byte("v2"))
	clock.Advance(45 * time.Second)
	v, ok, _ := st.Get(ctx, []byte("k1"))
	if !ok || string(v) != "v2" {
		t.Fatalf("rewritten entry should still be live, got (%s, %v)", v, ok)
	}
}
