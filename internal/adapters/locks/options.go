package locks

import "time"

// Option applies a configuration option to MemLS.
type Option func(*MemLS)

// WithJanitorInterval sets the sweep interval for expired locks.
func WithJanitorInterval(interval time.Duration) Option {
	return func(m *MemLS) {
		if interval > 0 {
			m.janitorInterval = interval
		}
	}
}

// WithMaxTimeout caps the timeout granted to clients.
func WithMaxTimeout(max time.Duration) Option {
	return func(m *MemLS) {
		if max > 0 {
			m.maxTimeout = max
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(m *MemLS) {
		if clock != nil {
			m.clock = clock
		}
	}
}
