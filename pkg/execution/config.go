package execution

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Config is the kernel's tuning surface. Durations mirror the options
// a client would set per query: window size, idle timeout, state TTL
// and heartbeat cadence.
type Config struct {
	// WindowSize is the tumbling window size.
	WindowSize time.Duration
	// IdleTimeout is how long a partition may stay silent before it is
	// excluded from the merged watermark minimum.
	IdleTimeout time.Duration
	// StateTTL bounds reconciler state retention. Zero keeps state
	// forever.
	StateTTL time.Duration
	// HeartbeatInterval is the synthetic partition cadence. Zero
	// disables the built-in heartbeat source.
	HeartbeatInterval time.Duration
	// FlushOnShutdown closes in-flight windows best-effort when the
	// sources end; otherwise partial state is discarded.
	FlushOnShutdown bool

	// NumShards is the lock striping factor for keyed state.
	NumShards int
	// MergeBufSize is the union merger's channel buffer.
	MergeBufSize int
	// DeadLetterCap bounds the dead-letter queue; pushes block when it
	// is full.
	DeadLetterCap int
	// SinkMaxAttempts and SinkBaseBackoff drive emit retries.
	SinkMaxAttempts int
	SinkBaseBackoff time.Duration
}

const (
	defaultNumShards       = 16
	defaultMergeBufSize    = 128
	defaultDeadLetterCap   = 1024
	defaultSinkMaxAttempts = 5
	defaultSinkBaseBackoff = 20 * time.Millisecond
)

func (c *Config) fillDefaults() {
	if c.WindowSize <= 0 {
		log.Fatal().Dur("windowSize", c.WindowSize).Msg("window size must be positive")
	}
	if c.IdleTimeout <= 0 {
		log.Fatal().Dur("idleTimeout", c.IdleTimeout).Msg("idle timeout must be positive")
	}
	if c.NumShards <= 0 {
		c.NumShards = defaultNumShards
	}
	if c.MergeBufSize <= 0 {
		c.MergeBufSize = defaultMergeBufSize
	}
	if c.DeadLetterCap <= 0 {
		c.DeadLetterCap = defaultDeadLetterCap
	}
	if c.SinkMaxAttempts <= 0 {
		c.SinkMaxAttempts = defaultSinkMaxAttempts
	}
	if c.SinkBaseBackoff <= 0 {
		c.SinkBaseBackoff = defaultSinkBaseBackoff
	}
}
