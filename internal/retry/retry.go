// Package retry provides the retry and backoff rules used by the sync core:
// bounded in-pass retries of transient remote failures and the full-jitter
// backoff between failed passes.
package retry

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-sync-core/internal/logger"
)

// Config holds configuration for retry logic
type Config struct {
	MaxRetries    uint64
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterPercent uint64
}

// RemoteDefaults returns the defaults for calls to the remote service.
func RemoteDefaults() *Config {
	return &Config{
		MaxRetries:    3,
		BaseDelay:     200 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		JitterPercent: 10,
	}
}

// CreateBackoff creates a reusable backoff strategy from config
func (c *Config) CreateBackoff() retry.Backoff {
	backoff := retry.NewExponential(max(c.BaseDelay, time.Nanosecond))
	backoff = retry.WithMaxRetries(c.MaxRetries, backoff)
	backoff = retry.WithCappedDuration(c.MaxDelay, backoff)
	if c.JitterPercent > 0 {
		backoff = retry.WithJitterPercent(c.JitterPercent, backoff)
	}
	return backoff
}

// Do runs fn until it succeeds, returns an error for which retryable is
// false, or the retries configured in cfg run out. The last error of fn is
// returned as is. Cancellation of ctx while waiting returns ctx.Err().
func Do[T any](
	ctx context.Context,
	cfg *Config,
	log *logger.Logger,
	operation string,
	retryable func(error) bool,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var (
		out     T
		attempt int
	)
	err := retry.Do(ctx, cfg.CreateBackoff(), func(ctx context.Context) error {
		attempt++
		var err error
		out, err = fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if log != nil {
			log.Warn().
				Err(err).
				Str("operation", operation).
				Int("attempt", attempt).
				Msg("operation failed, retrying")
		}
		return retry.RetryableError(err)
	})
	return out, err
}

// FullJitter produces exponentially growing delays, capped at max, each drawn
// uniformly from [0, ceiling]. It is safe for concurrent use.
type FullJitter struct {
	mu      sync.Mutex
	base    time.Duration
	max     time.Duration
	backoff retry.Backoff
	attempt int
	rand    func(n int64) int64
}

// NewFullJitter returns a FullJitter starting at base.
func NewFullJitter(base, maxDelay time.Duration) *FullJitter {
	f := &FullJitter{base: base, max: maxDelay, rand: rand.Int64N}
	f.Reset()
	return f
}

// Next returns the delay before the next attempt.
func (f *FullJitter) Next() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempt++
	ceiling, _ := f.backoff.Next()
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(f.rand(int64(ceiling) + 1))
}

// Attempts returns the number of delays handed out since the last Reset.
func (f *FullJitter) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempt
}

// Reset starts the sequence over from base.
func (f *FullJitter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempt = 0
	f.backoff = retry.WithCappedDuration(f.max, retry.NewExponential(max(f.base, time.Nanosecond)))
}
