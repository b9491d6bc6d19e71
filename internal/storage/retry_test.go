package storage

import (
	"net/http"
	"testing"
	"time"
)

func TestComputeRetryDelay(t *testing.T) {
	tests := []struct {
		name    string
		attempt int
		headers http.Header
		want    time.Duration
	}{
		{"first attempt", 1, nil, 500 * time.Millisecond},
		{"second attempt", 2, nil, time.Second},
		{"third attempt", 3, nil, 2 * time.Second},
		{"capped", 10, nil, RetryMaxDelayNoHeader},
		{"retry-after-ms", 1, http.Header{"Retry-After-Ms": []string{"250"}}, 250 * time.Millisecond},
		{"retry-after seconds", 1, http.Header{"Retry-After": []string{"3"}}, 3 * time.Second},
		{"invalid header falls back", 2, http.Header{"Retry-After": []string{"soon"}}, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeRetryDelay(tt.attempt, tt.headers); got != tt.want {
				t.Errorf("ComputeRetryDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for code, want := range map[int]bool{
		200: false,
		400: false,
		404: false,
		429: true,
		500: false,
		502: true,
		503: true,
		504: true,
	} {
		if got := isRetryableStatus(code); got != want {
			t.Errorf("isRetryableStatus(%d) = %v, want %v", code, got, want)
		}
	}
}
