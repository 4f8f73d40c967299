package gcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/googleapi"
)

// errorClass buckets a collaborator failure for retry purposes.
type errorClass int

const (
	classTransient errorClass = iota // network blips, timeouts, 5xx
	classRateLimit                   // 429; backs off longer before retrying
	classFatal                       // auth and client errors; never retried
)

func classify(err error) errorClass {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests:
			return classRateLimit
		case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
			return classFatal
		case gerr.Code >= 500 || gerr.Code == http.StatusRequestTimeout:
			return classTransient
		case gerr.Code >= 400:
			return classFatal
		}
	}
	if errors.Is(err, context.Canceled) {
		return classFatal
	}
	// Timeouts and plain network errors reach here.
	return classTransient
}

// RetrySettings tunes the Call backoff. The defaults are generous because
// the pipeline is batch-oriented and the collaborators rate-limit freely.
type RetrySettings struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	MaxElapsedTime      time.Duration
	RateLimitMultiplier float64
}

// DefaultRetrySettings returns the production retry configuration.
func DefaultRetrySettings() RetrySettings {
	return RetrySettings{
		InitialInterval:     2 * time.Second,
		MaxInterval:         time.Minute,
		MaxElapsedTime:      5 * time.Minute,
		RateLimitMultiplier: 4,
	}
}

// Call invokes fn with retries per the pipeline's error taxonomy: transient
// failures retry on an exponential backoff with jitter, rate limits wait a
// longer multiple of the current interval, and authentication failures fail
// immediately. Before each re-attempt the reset hook (when non-nil) is
// invoked so the caller can establish a fresh connection instead of reusing
// a possibly stale one.
func Call(ctx context.Context, op string, s RetrySettings, reset func(context.Context) error, fn func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.InitialInterval
	b.MaxInterval = s.MaxInterval
	b.MaxElapsedTime = s.MaxElapsedTime
	b.Reset()

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		class := classify(err)
		if class == classFatal {
			return fmt.Errorf("%s failed permanently: %w", op, err)
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("%s failed after %d attempts: %w", op, attempt, err)
		}
		if class == classRateLimit {
			wait = time.Duration(float64(wait) * s.RateLimitMultiplier)
		}

		slog.Warn("Collaborator call failed; backing off before retry.",
			"op", op, "attempt", attempt, "backoff", wait.String(), "rateLimited", class == classRateLimit, "error", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("%s canceled while backing off: %w", op, ctx.Err())
		}

		if reset != nil {
			if rerr := reset(ctx); rerr != nil {
				slog.Warn("Failed to re-establish connection before retry.", "op", op, "error", rerr)
			}
		}
	}
}
