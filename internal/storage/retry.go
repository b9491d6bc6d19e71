package storage

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"
)

// Retry timing for the remote driver.
const (
	RetryInitialDelay     = 500 * time.Millisecond
	RetryBackoffFactor    = 2
	RetryMaxDelayNoHeader = 10 * time.Second
	RetryMaxAttempts      = 3
)

// ComputeRetryDelay calculates the delay before the next attempt. The
// Retry-After-Ms and Retry-After headers win over exponential backoff.
func ComputeRetryDelay(attempt int, headers http.Header) time.Duration {
	if headers != nil {
		if retryAfterMs := headers.Get("Retry-After-Ms"); retryAfterMs != "" {
			if ms, err := strconv.ParseFloat(retryAfterMs, 64); err == nil {
				return time.Duration(ms) * time.Millisecond
			}
		}
		if retryAfter := headers.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.ParseFloat(retryAfter, 64); err == nil {
				return time.Duration(seconds*1000) * time.Millisecond
			}
			if t, err := http.ParseTime(retryAfter); err == nil {
				if delay := time.Until(t); delay > 0 {
					return delay
				}
			}
		}
	}

	delay := RetryInitialDelay * time.Duration(math.Pow(RetryBackoffFactor, float64(attempt-1)))
	if delay > RetryMaxDelayNoHeader {
		delay = RetryMaxDelayNoHeader
	}
	return delay
}

// isRetryableStatus reports backend responses worth retrying.
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// sleepContext waits for d or until ctx is done.
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
