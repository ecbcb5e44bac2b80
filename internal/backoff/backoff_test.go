package backoff

import (
	"errors"
	"testing"
	"time"
)

func TestNextDelaySchedule(t *testing.T) {
	p := Default()
	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"attempt 1", 1, time.Second},
		{"attempt 2", 2, 2 * time.Second},
		{"attempt 3", 3, 4 * time.Second},
		{"attempt 4", 4, 8 * time.Second},
		{"attempt 5 clamped", 5, 10 * time.Second},
		{"attempt 10 clamped", 10, 10 * time.Second},
		{"attempt 63 no overflow", 63, 10 * time.Second},
		{"zero attempt treated as first", 0, time.Second},
		{"negative attempt treated as first", -4, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.NextDelay(tt.attempt); got != tt.want {
				t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestNextDelayDefaultsOnZeroPolicy(t *testing.T) {
	var p Policy
	if got := p.NextDelay(1); got != time.Second {
		t.Fatalf("NextDelay(1) on zero policy = %v, want 1s", got)
	}
	if got := p.NextDelay(8); got != time.Second {
		t.Fatalf("NextDelay(8) on zero policy = %v, want clamp at base", got)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection reset", errors.New("read tcp: ECONNRESET"), true},
		{"connection refused", errors.New("dial: ECONNREFUSED"), true},
		{"network timeout", errors.New("network timeout"), true},
		{"plain timeout", errors.New("request timeout after 10s"), true},
		{"service unavailable", errors.New("payment rail unavailable"), true},
		{"http 503", errors.New("unexpected status 503"), true},
		{"http 504", errors.New("unexpected status 504"), true},
		{"validation failure", errors.New("validation failed"), false},
		{"invalid wallet", errors.New("invalid wallet address"), false},
		{"worker not found", errors.New("worker not found"), false},
		{"unauthorized", errors.New("unauthorized platform"), false},
		{"forbidden", errors.New("forbidden: webhooks disabled"), false},
		{"permanent beats transient wording", errors.New("invalid connection string"), false},
		{"unclassified defaults retryable", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
