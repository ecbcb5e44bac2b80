package backoff

import (
	"strings"
	"time"
)

// Policy maps an attempt number to a retry delay. It is a pure value: the
// orchestrator owns the sleeping, the policy only does arithmetic.
type Policy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// Default is the pipeline's retry contract: 1s, 2s, 4s, capped at 10s,
// three attempts per stage per cycle.
func Default() Policy {
	return Policy{
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		MaxAttempts: 3,
	}
}

// NextDelay returns the delay to wait after attempt (1-based) fails:
// min(base * 2^(attempt-1), max). Attempt counts beyond MaxAttempts occur
// during manual replays and are clamped at MaxDelay.
func (p Policy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	ceiling := p.MaxDelay
	if ceiling <= 0 {
		ceiling = base
	}
	shift := uint(attempt - 1)
	if shift > 40 {
		return ceiling
	}
	d := base * time.Duration(1<<shift)
	if d > ceiling || d <= 0 {
		return ceiling
	}
	return d
}

// Substrings that mark an error as a caller/business failure. These never
// succeed on retry, so they dead-letter immediately.
var permanentMarkers = []string{
	"invalid",
	"not found",
	"unauthorized",
	"forbidden",
	"validation",
}

// Substrings that mark an error as transient infrastructure trouble.
var transientMarkers = []string{
	"timeout",
	"connection",
	"network",
	"econnreset",
	"econnrefused",
	"unavailable",
	"503",
	"504",
}

// IsRetryable classifies err by message. Permanent markers win over
// transient ones; anything unclassified is treated as retryable, since
// losing a payment to an unrecognized transient fault costs more than one
// extra attempt against an idempotent payment call.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range permanentMarkers {
		if strings.Contains(msg, m) {
			return false
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return true
}
