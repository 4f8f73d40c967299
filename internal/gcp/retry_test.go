package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func apiErr(code int) error {
	return &googleapi.Error{Code: code, Message: http.StatusText(code)}
}

func fastSettings() RetrySettings {
	return RetrySettings{
		InitialInterval:     time.Millisecond,
		MaxInterval:         5 * time.Millisecond,
		MaxElapsedTime:      200 * time.Millisecond,
		RateLimitMultiplier: 4,
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want errorClass
	}{
		{"server error", apiErr(http.StatusInternalServerError), classTransient},
		{"service unavailable", apiErr(http.StatusServiceUnavailable), classTransient},
		{"request timeout", apiErr(http.StatusRequestTimeout), classTransient},
		{"rate limited", apiErr(http.StatusTooManyRequests), classRateLimit},
		{"unauthorized", apiErr(http.StatusUnauthorized), classFatal},
		{"forbidden", apiErr(http.StatusForbidden), classFatal},
		{"bad request", apiErr(http.StatusBadRequest), classFatal},
		{"wrapped auth error", fmt.Errorf("calling model: %w", apiErr(http.StatusForbidden)), classFatal},
		{"context canceled", context.Canceled, classFatal},
		{"plain network error", errors.New("connection reset by peer"), classTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify(tc.err))
		})
	}
}

func TestCall_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Call(context.Background(), "test op", fastSettings(), nil, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return apiErr(http.StatusServiceUnavailable)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestCall_FatalErrorNotRetried(t *testing.T) {
	attempts := 0
	err := Call(context.Background(), "test op", fastSettings(), nil, func(ctx context.Context) error {
		attempts++
		return apiErr(http.StatusForbidden)
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Contains(t, err.Error(), "failed permanently")
}

func TestCall_ResetHookRunsBeforeEachRetry(t *testing.T) {
	attempts := 0
	resets := 0
	err := Call(context.Background(), "test op", fastSettings(),
		func(ctx context.Context) error {
			resets++
			return nil
		},
		func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return apiErr(http.StatusBadGateway)
			}
			return nil
		})
	require.NoError(t, err)
	// The hook runs between attempts, never before the first one.
	assert.Equal(t, attempts-1, resets)
}

func TestCall_GivesUpAfterMaxElapsed(t *testing.T) {
	err := Call(context.Background(), "test op", RetrySettings{
		InitialInterval:     time.Millisecond,
		MaxInterval:         2 * time.Millisecond,
		MaxElapsedTime:      20 * time.Millisecond,
		RateLimitMultiplier: 4,
	}, nil, func(ctx context.Context) error {
		return apiErr(http.StatusServiceUnavailable)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after")
}

func TestCall_CancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	settings := fastSettings()
	settings.InitialInterval = time.Second
	settings.MaxInterval = time.Second

	err := Call(ctx, "test op", settings, nil, func(ctx context.Context) error {
		cancel()
		return apiErr(http.StatusServiceUnavailable)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canceled while backing off")
}
