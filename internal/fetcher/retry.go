package fetcher

import (
	"context"
	"math/rand"
	"time"

	"github.com/example/slotwatch/internal/common"
	"github.com/example/slotwatch/internal/config"
	"github.com/rs/zerolog"
)

// Retrier runs operations with exponential backoff. The delay multiplier
// depends on the error kind: timeouts back off harder than plain network
// failures, and parsing errors barely back off since waiting rarely fixes
// malformed markup. Fatal errors and context cancellation stop immediately.
type Retrier struct {
	config config.RetryConfig
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a retrier from configuration.
func NewRetrier(cfg config.RetryConfig, logger zerolog.Logger) *Retrier {
	return &Retrier{
		config: cfg,
		logger: logger.With().Str("component", "Retrier").Logger(),
		sleep:  sleepContext,
	}
}

// Execute runs op up to MaxAttempts times. It returns nil on the first
// success, the context error if canceled mid-backoff, and otherwise the
// error from the final attempt.
func (r *Retrier) Execute(ctx context.Context, name string, op func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return common.WrapError(err, name+" canceled")
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if common.IsFatal(lastErr) {
			return lastErr
		}
		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.delayFor(lastErr, attempt)
		r.logger.Warn().
			Err(lastErr).
			Str("operation", name).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Attempt failed, backing off")

		if err := r.sleep(ctx, delay); err != nil {
			return common.WrapError(err, name+" canceled during backoff")
		}
	}

	return lastErr
}

// delayFor computes the backoff before the next attempt: base delay doubled
// per attempt, scaled by the error kind factor, capped, with optional jitter.
func (r *Retrier) delayFor(err error, attempt int) time.Duration {
	base := time.Duration(r.config.BaseDelayMs) * time.Millisecond
	maxDelay := time.Duration(r.config.MaxDelayMs) * time.Millisecond

	delay := base << (attempt - 1)
	delay = time.Duration(float64(delay) * r.kindFactor(err))

	if delay > maxDelay {
		delay = maxDelay
	}
	if r.config.EnableJitter && delay > 0 {
		// Up to 25% jitter spreads retries from concurrent deployments.
		jitter := time.Duration(rand.Int63n(int64(delay) / 4))
		delay += jitter
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return delay
}

func (r *Retrier) kindFactor(err error) float64 {
	switch common.ClassifyError(err) {
	case common.ErrorKindTimeout:
		return r.config.TimeoutFactor
	case common.ErrorKindNetwork:
		return r.config.NetworkFactor
	case common.ErrorKindParsing:
		return r.config.ParsingFactor
	default:
		return 1.0
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
