package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ClaimState is the coarse lifecycle a claim identity moves through in the
// ledger. It exists only to refuse duplicate webhook deliveries; the full
// story of a cycle lives in the audit stream.
type ClaimState string

const (
	ClaimReceived     ClaimState = "received"
	ClaimPaid         ClaimState = "paid"
	ClaimRejected     ClaimState = "rejected"
	ClaimFlagged      ClaimState = "flagged"
	ClaimDeadLettered ClaimState = "dead-lettered"
)

var ErrClaimUnknown = errors.New("claim not present in ledger")

// ClaimLedger is the short-lived (platformId, externalTaskId) identity map
// checked at ingress. A platform re-sending the same webhook while an entry
// is live gets refused instead of triggering a second cycle and a second
// payment. Entries expire after the configured TTL; manual replay bypasses
// the ledger via Reopen.
type ClaimLedger interface {
	// Begin claims the identity. Returns false when a live entry already
	// exists, i.e. the delivery is a duplicate.
	Begin(ctx context.Context, platformID, externalTaskID string) (bool, error)
	Complete(ctx context.Context, platformID, externalTaskID string, state ClaimState) error
	Reopen(ctx context.Context, platformID, externalTaskID string) error
	State(ctx context.Context, platformID, externalTaskID string) (ClaimState, error)
}

type claimRedisLedger struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewClaimLedger(rdb *redis.Client, ttl time.Duration) ClaimLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &claimRedisLedger{rdb: rdb, ttl: ttl}
}

func (l *claimRedisLedger) key(platformID, externalTaskID string) string {
	return fmt.Sprintf("gigstream:claims:%s:%s", platformID, externalTaskID)
}

func (l *claimRedisLedger) Begin(ctx context.Context, platformID, externalTaskID string) (bool, error) {
	return l.rdb.SetNX(ctx, l.key(platformID, externalTaskID), string(ClaimReceived), l.ttl).Result()
}

func (l *claimRedisLedger) Complete(ctx context.Context, platformID, externalTaskID string, state ClaimState) error {
	// KeepTTL so the dedupe window is anchored at first delivery.
	return l.rdb.Set(ctx, l.key(platformID, externalTaskID), string(state), redis.KeepTTL).Err()
}

func (l *claimRedisLedger) Reopen(ctx context.Context, platformID, externalTaskID string) error {
	return l.rdb.Set(ctx, l.key(platformID, externalTaskID), string(ClaimReceived), l.ttl).Err()
}

func (l *claimRedisLedger) State(ctx context.Context, platformID, externalTaskID string) (ClaimState, error) {
	v, err := l.rdb.Get(ctx, l.key(platformID, externalTaskID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrClaimUnknown
	}
	if err != nil {
		return "", err
	}
	return ClaimState(v), nil
}
