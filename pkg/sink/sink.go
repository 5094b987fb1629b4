package sink

import (
	"context"
	"fmt"

	"tidestream/pkg/utils/syncutils"

	"golang.org/x/xerrors"
)

// Sink receives emitted tuples (closed window aggregates, reconciler
// updates, dead-lettered records). Emit blocking is the backpressure
// signal: upstream offer/add calls block behind it.
type Sink interface {
	Name() string
	Emit(ctx context.Context, msg interface{}) error
	Flush(ctx context.Context) error
}

// RetryableError marks a sink failure that is worth retrying with
// backoff. Any other error aborts the emit immediately.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable sink error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func Retryable(err error) error {
	return &RetryableError{Err: err}
}

func IsRetryable(err error) bool {
	var re *RetryableError
	return xerrors.As(err, &re)
}

// CollectorSink gathers emissions in memory. Used by tests and the
// demo binary.
type CollectorSink struct {
	mux  syncutils.Mutex
	msgs []interface{}
	name string
}

var _ = Sink(&CollectorSink{})

func NewCollectorSink(name string) *CollectorSink {
	return &CollectorSink{name: name}
}

func (s *CollectorSink) Name() string { return s.name }

func (s *CollectorSink) Emit(ctx context.Context, msg interface{}) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *CollectorSink) Flush(ctx context.Context) error {
	return nil
}

func (s *CollectorSink) Collected() []interface{} {
	s.mux.Lock()
	defer s.mux.Unlock()
	out := make([]interface{}, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// FuncSink adapts a function into a Sink.
type FuncSink struct {
	fn   func(ctx context.Context, msg interface{}) error
	name string
}

var _ = Sink(&FuncSink{})

func NewFuncSink(name string, fn func(ctx context.Context, msg interface{}) error) *FuncSink {
	return &FuncSink{fn: fn, name: name}
}

func (s *FuncSink) Name() string { return s.name }

func (s *FuncSink) Emit(ctx context.Context, msg interface{}) error {
	return s.fn(ctx, msg)
}

func (s *FuncSink) Flush(ctx context.Context) error {
	return nil
}
