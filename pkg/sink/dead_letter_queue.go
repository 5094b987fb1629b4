package sink

import (
	"context"

	"tidestream/pkg/commtypes"
	"tidestream/pkg/common_errors"
	"tidestream/pkg/utils/syncutils"

	"github.com/gammazero/deque"
)

// DeadLetterQueue buffers late records between the router and the
// reconciler worker. Push blocks when the queue is full, which is how
// backpressure reaches the partition workers.
type DeadLetterQueue struct {
	mux      syncutils.Mutex
	dq       deque.Deque[commtypes.LateRecord]
	notEmpty chan struct{}
	notFull  chan struct{}
	capacity int
	closed   syncutils.AtomicBool
}

func NewDeadLetterQueue(capacity int) *DeadLetterQueue {
	return &DeadLetterQueue{
		capacity: capacity,
		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (q *DeadLetterQueue) Push(ctx context.Context, lr commtypes.LateRecord) error {
	for {
		if q.closed.Get() {
			return common_errors.ErrPipelineStopped
		}
		q.mux.Lock()
		if q.capacity <= 0 || q.dq.Len() < q.capacity {
			q.dq.PushBack(lr)
			q.mux.Unlock()
			signal(q.notEmpty)
			return nil
		}
		q.mux.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.notFull:
		}
	}
}

// Pop blocks until a record is available. Returns ok=false once the
// queue is closed and drained.
func (q *DeadLetterQueue) Pop(ctx context.Context) (commtypes.LateRecord, bool, error) {
	for {
		// read closed before the length check so a record pushed just
		// ahead of Close is still drained
		closed := q.closed.Get()
		q.mux.Lock()
		if q.dq.Len() > 0 {
			lr := q.dq.PopFront()
			q.mux.Unlock()
			signal(q.notFull)
			return lr, true, nil
		}
		q.mux.Unlock()
		if closed {
			return commtypes.LateRecord{}, false, nil
		}
		select {
		case <-ctx.Done():
			return commtypes.LateRecord{}, false, ctx.Err()
		case <-q.notEmpty:
		}
	}
}

func (q *DeadLetterQueue) Len() int {
	q.mux.Lock()
	defer q.mux.Unlock()
	return q.dq.Len()
}

// Close stops accepting pushes. Buffered records remain poppable.
func (q *DeadLetterQueue) Close() {
	q.closed.Set(true)
	signal(q.notEmpty)
	signal(q.notFull)
}
