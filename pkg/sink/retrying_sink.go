package sink

import (
	"context"
	"time"

	"tidestream/pkg/common_errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// RetryingSink retries retryable emit failures with doubling backoff.
// When attempts are exhausted it surfaces ErrSinkUnavailable so the
// pipeline fails loudly instead of dropping aggregated results.
type RetryingSink struct {
	inner       Sink
	maxAttempts int
	baseBackoff time.Duration
}

var _ = Sink(&RetryingSink{})

func NewRetryingSink(inner Sink, maxAttempts int, baseBackoff time.Duration) *RetryingSink {
	if maxAttempts <= 0 {
		log.Fatal().Int("maxAttempts", maxAttempts).Msg("max attempts must be positive")
	}
	return &RetryingSink{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
	}
}

func (s *RetryingSink) Name() string { return s.inner.Name() }

func (s *RetryingSink) Emit(ctx context.Context, msg interface{}) error {
	backoff := s.baseBackoff
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		lastErr = s.inner.Emit(ctx, msg)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		log.Warn().Err(lastErr).Str("sink", s.inner.Name()).
			Int("attempt", attempt+1).Msg("sink emit failed, backing off")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return xerrors.Errorf("sink %s failed after %d attempts: %v: %w",
		s.inner.Name(), s.maxAttempts, lastErr, common_errors.ErrSinkUnavailable)
}

func (s *RetryingSink) Flush(ctx context.Context) error {
	return s.inner.Flush(ctx)
}
