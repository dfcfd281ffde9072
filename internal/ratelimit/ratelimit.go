// Package ratelimit retries Slack Web API calls that were rate limited.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/slack-go/slack"
)

// MaxRetries is the max number of retries for rate-limited API calls.
const MaxRetries = 3

// Retry calls fn and retries with backoff on Slack rate limit errors.
// It respects context cancellation and the RetryAfter duration from Slack.
func Retry(ctx context.Context, fn func() error) error {
	return retry(ctx, fn, time.Second)
}

func retry(ctx context.Context, fn func() error, base time.Duration) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slack.RateLimitedError
		if !errors.As(err, &rle) {
			return err // not a rate limit error, don't retry
		}
		if attempt == MaxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * base
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
