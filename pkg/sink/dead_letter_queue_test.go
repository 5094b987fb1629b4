package sink

import (
	"context"
	"testing"
	"time"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/common_errors"

	"github.com/stretchr/testify/require"
)

func lateRec(ts int64) commtypes.LateRecord {
	return commtypes.LateRecord{
		Rec:               commtypes.Record{Key: "k", Timestamp: ts},
		ObservedWatermark: ts + 5,
	}
}

func TestDeadLetterQueueFIFO(t *testing.T) {
	ctx := context.Background()
	q := NewDeadLetterQueue(8)
	for _, ts := range []int64{1, 2, 3} {
		require.NoError(t, q.Push(ctx, lateRec(ts)))
	}
	require.Equal(t, 3, q.Len())
	for _, want := range []int64{1, 2, 3} {
		lr, ok, err := q.Pop(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want, lr.Rec.Timestamp)
	}
}

func TestDeadLetterQueueCloseDrains(t *testing.T) {
	ctx := context.Background()
	q := NewDeadLetterQueue(8)
	require.NoError(t, q.Push(ctx, lateRec(1)))
	q.Close()
	require.ErrorIs(t, q.Push(ctx, lateRec(2)), common_errors.ErrPipelineStopped)
	// buffered record remains poppable after close
	lr, ok, err := q.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), lr.Rec.Timestamp)
	_, ok, err = q.Pop(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeadLetterQueuePopBlocksUntilPush(t *testing.T) {
	ctx := context.Background()
	q := NewDeadLetterQueue(8)
	got := make(chan commtypes.LateRecord, 1)
	go func() {
		lr, ok, err := q.Pop(ctx)
		if err == nil && ok {
			got <- lr
		}
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Push(ctx, lateRec(7)))
	select {
	case lr := <-got:
		require.Equal(t, int64(7), lr.Rec.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("pop did not wake up after push")
	}
}

func TestDeadLetterQueuePushBlocksWhenFull(t *testing.T) {
	ctx := context.Background()
	q := NewDeadLetterQueue(1)
	require.NoError(t, q.Push(ctx, lateRec(1)))
	pushed := make(chan struct{})
	go func() {
		_ = q.Push(ctx, lateRec(2))
		close(pushed)
	}()
	select {
	case <-pushed:
		t.Fatal("push should block while the queue is full")
	case <-time.After(20 * time.Millisecond):
	}
	_, _, err := q.Pop(ctx)
	require.NoError(t, err)
	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("push did not unblock after pop")
	}
}
