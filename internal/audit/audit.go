package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// Event is one append-only audit record. Every state transition in the
// pipeline emits one; the stream is the only durable record of why a cycle
// reached its terminal state.
type Event struct {
	ActorID      string         `json:"actorId"`
	ActorType    string         `json:"actorType"` // platform | system | operator
	Action       string         `json:"action"`
	ResourceType string         `json:"resourceType"`
	ResourceID   string         `json:"resourceId"`
	Success      bool           `json:"success"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Common audit actions emitted by the pipeline.
const (
	ActionSignatureRejected = "webhook.signature_rejected"
	ActionClaimReceived     = "claim.received"
	ActionClaimVerified     = "claim.verified"
	ActionClaimRejected     = "claim.rejected"
	ActionClaimFlagged      = "claim.flagged"
	ActionPaymentAttempt    = "payment.attempt"
	ActionPaymentSettled    = "payment.settled"
	ActionStageRetry        = "stage.retry"
	ActionDeadLettered      = "claim.dead_lettered"
	ActionReplayStarted     = "deadletter.replay_started"
	ActionReplayFinished    = "deadletter.replay_finished"
)

// Recorder is the append-only audit collaborator. Implementations must be
// best-effort: recording never fails the caller.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

const streamMaxLen = 100_000

type streamRecorder struct {
	rdb    *redis.Client
	logger *slog.Logger
	stream string
	now    func() time.Time
}

// NewStreamRecorder appends events to a capped Redis Stream. Write failures
// degrade to a log line; they never propagate to the pipeline.
func NewStreamRecorder(rdb *redis.Client, logger *slog.Logger) Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &streamRecorder{
		rdb:    rdb,
		logger: logger,
		stream: "gigstream:audit",
		now:    time.Now,
	}
}

func (r *streamRecorder) Record(ctx context.Context, ev Event) {
	meta := "{}"
	if len(ev.Metadata) > 0 {
		if b, err := json.Marshal(ev.Metadata); err == nil {
			meta = string(b)
		}
	}
	err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream:       r.stream,
		MaxLenApprox: streamMaxLen,
		Values: map[string]any{
			"at":           r.now().UTC().Format(time.RFC3339Nano),
			"actorId":      ev.ActorID,
			"actorType":    ev.ActorType,
			"action":       ev.Action,
			"resourceType": ev.ResourceType,
			"resourceId":   ev.ResourceID,
			"success":      ev.Success,
			"metadata":     meta,
		},
	}).Err()
	if err != nil {
		// Last-resort visibility when the sink itself is down.
		r.logger.Error("audit append failed",
			"action", ev.Action,
			"resourceId", ev.ResourceID,
			"err", err,
		)
	}
}
