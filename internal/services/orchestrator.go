package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/obaidsafi51/GigStream-sub003/internal/audit"
	"github.com/obaidsafi51/GigStream-sub003/internal/backoff"
	"github.com/obaidsafi51/GigStream-sub003/internal/clients"
	"github.com/obaidsafi51/GigStream-sub003/internal/metrics"
	"github.com/obaidsafi51/GigStream-sub003/internal/repository"
	"github.com/obaidsafi51/GigStream-sub003/pkg/domain"

	"github.com/google/uuid"
)

// Orchestrator drives one claim through the state machine:
//
//	Received -> Verifying -> {Rejected | Flagged | Paying}
//	Paying   -> {Paid | retrying -> DeadLettered}
//
// Each cycle is independent; the orchestrator keeps no shared mutable state
// across calls, so instances scale out without coordination.
type Orchestrator interface {
	Process(ctx context.Context, platform domain.Platform, claim domain.TaskCompletionClaim) domain.CycleResult
}

type orchestrator struct {
	history clients.HistoryProvider
	oracle  clients.VerificationOracle
	payer   clients.PaymentExecutor
	dlq     repository.DeadLetterRepository
	reviews repository.ReviewRepository
	ledger  repository.ClaimLedger
	auditor audit.Recorder
	logger  *slog.Logger
	policy  backoff.Policy
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(
	history clients.HistoryProvider,
	oracle clients.VerificationOracle,
	payer clients.PaymentExecutor,
	dlq repository.DeadLetterRepository,
	reviews repository.ReviewRepository,
	ledger repository.ClaimLedger,
	auditor audit.Recorder,
	logger *slog.Logger,
	policy backoff.Policy,
) Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MaxAttempts <= 0 {
		policy = backoff.Default()
	}
	return &orchestrator{
		history: history,
		oracle:  oracle,
		payer:   payer,
		dlq:     dlq,
		reviews: reviews,
		ledger:  ledger,
		auditor: auditor,
		logger:  logger,
		policy:  policy,
		now:     time.Now,
		sleep:   sleepOrDone,
	}
}

// sleepOrDone is a cooperative wait: retry delays park on a timer instead of
// blocking an OS thread, so one retrying webhook does not starve others.
func sleepOrDone(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (o *orchestrator) Process(ctx context.Context, platform domain.Platform, claim domain.TaskCompletionClaim) domain.CycleResult {
	start := o.now()
	cycleID := uuid.NewString()
	res := domain.CycleResult{
		CycleID:        cycleID,
		ExternalTaskID: claim.ExternalTaskID,
		Amount:         claim.Amount,
	}

	o.record(ctx, platform.ID, "platform", audit.ActionClaimReceived, claim.ExternalTaskID, true, map[string]any{
		"cycleId": cycleID,
		"amount":  claim.Amount,
	})

	verification, verifyAttempts, err := o.runVerification(ctx, platform, claim, cycleID, &res)
	if err != nil {
		return o.finish(ctx, platform, claim, o.deadLetter(ctx, platform, claim, domain.StageVerification, err, verifyAttempts, res), start)
	}
	res.Verification = verification
	metrics.ClaimsVerifiedTotal.WithLabelValues(string(verification.Verdict)).Inc()
	o.record(ctx, platform.ID, "system", audit.ActionClaimVerified, claim.ExternalTaskID, true, map[string]any{
		"cycleId":    cycleID,
		"verdict":    string(verification.Verdict),
		"confidence": verification.Confidence,
		"latencyMs":  verification.LatencyMs,
		"fraudRisk":  string(verification.FraudRisk),
	})

	switch verification.Verdict {
	case domain.VerdictReject:
		res.Status = domain.CycleRejected
		res.ErrorCode = domain.CodeTaskRejected
		res.ErrorMessage = verification.Reason
		o.record(ctx, platform.ID, "system", audit.ActionClaimRejected, claim.ExternalTaskID, false, map[string]any{
			"cycleId":    cycleID,
			"reason":     verification.Reason,
			"confidence": verification.Confidence,
		})
		o.completeLedger(ctx, platform, claim, repository.ClaimRejected)
		return o.finish(ctx, platform, claim, res, start)

	case domain.VerdictFlag:
		res.Status = domain.CycleFlagged
		res.ErrorCode = domain.CodeTaskFlagged
		res.ErrorMessage = "flagged for manual review, expect a 1-2 hour review window"
		if o.reviews != nil {
			if _, err := o.reviews.Add(ctx, domain.FlaggedReview{
				PlatformID: platform.ID,
				Claim:      claim,
				Reason:     verification.Reason,
				Confidence: verification.Confidence,
				FraudRisk:  verification.FraudRisk,
			}); err != nil {
				o.logger.Error("flagged review write failed", "taskId", claim.ExternalTaskID, "err", err)
			}
		}
		o.record(ctx, platform.ID, "system", audit.ActionClaimFlagged, claim.ExternalTaskID, false, map[string]any{
			"cycleId":    cycleID,
			"reason":     verification.Reason,
			"confidence": verification.Confidence,
			"fraudRisk":  string(verification.FraudRisk),
		})
		o.completeLedger(ctx, platform, claim, repository.ClaimFlagged)
		return o.finish(ctx, platform, claim, res, start)
	}

	// Approved: pay. Verification is settled now; payment retries never
	// re-run it within this cycle.
	return o.finish(ctx, platform, claim, o.runPayment(ctx, platform, claim, cycleID, res), start)
}

// runVerification executes the verification step under the retry policy.
// A thrown verification error (as opposed to a reject/flag verdict) follows
// the same backoff schedule as a failed payment. Returns the verdict, or the
// last error with the number of attempts spent.
func (o *orchestrator) runVerification(ctx context.Context, platform domain.Platform, claim domain.TaskCompletionClaim, cycleID string, res *domain.CycleResult) (*domain.VerificationResult, int, error) {
	var lastErr error
	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		att := domain.ProcessingAttempt{
			AttemptNumber: attempt,
			Stage:         domain.StageVerification,
			StartedAt:     o.now().UTC(),
		}

		history, err := o.history.GetWorkerHistory(ctx, claim.WorkerID)
		var verification *domain.VerificationResult
		if err == nil {
			verification, err = o.oracle.Verify(ctx, claim, history)
		}
		if err == nil {
			att.Outcome = domain.OutcomeSuccess
			res.Attempts = append(res.Attempts, att)
			return verification, attempt, nil
		}

		lastErr = err
		att.Error = err.Error()
		retryable := backoff.IsRetryable(err)
		if !retryable {
			att.Outcome = domain.OutcomePermanentFailure
			res.Attempts = append(res.Attempts, att)
			return nil, attempt, lastErr
		}
		att.Outcome = domain.OutcomeRetryableFailure
		res.Attempts = append(res.Attempts, att)
		if attempt == o.policy.MaxAttempts {
			return nil, attempt, lastErr
		}

		metrics.StageRetriesTotal.WithLabelValues(string(domain.StageVerification)).Inc()
		o.record(ctx, platform.ID, "system", audit.ActionStageRetry, claim.ExternalTaskID, false, map[string]any{
			"cycleId": cycleID,
			"stage":   string(domain.StageVerification),
			"attempt": attempt,
			"error":   err.Error(),
		})
		if err := o.sleep(ctx, o.policy.NextDelay(attempt)); err != nil {
			return nil, attempt, fmt.Errorf("verification aborted: %w", err)
		}
	}
	return nil, o.policy.MaxAttempts, lastErr
}

// runPayment executes the payment step under the retry policy. The
// idempotency key is pinned to (externalTaskId, cycleId) so every retry of
// this cycle presents the same key to the executor.
func (o *orchestrator) runPayment(ctx context.Context, platform domain.Platform, claim domain.TaskCompletionClaim, cycleID string, res domain.CycleResult) domain.CycleResult {
	idemKey := claim.ExternalTaskID + ":" + cycleID
	var lastErr error
	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		att := domain.ProcessingAttempt{
			AttemptNumber: attempt,
			Stage:         domain.StagePayment,
			StartedAt:     o.now().UTC(),
		}

		receipt, err := o.payer.Pay(ctx, clients.PaymentRequest{
			TaskID:         claim.ExternalTaskID,
			WorkerID:       claim.WorkerID,
			Amount:         claim.Amount,
			IdempotencyKey: idemKey,
		})
		if err == nil {
			att.Outcome = domain.OutcomeSuccess
			res.Attempts = append(res.Attempts, att)
			metrics.PaymentAttemptsTotal.WithLabelValues("success").Inc()
			res.Status = domain.CyclePaid
			res.TransactionID = receipt.TransactionID
			res.TxHash = receipt.TxHash
			res.RetriesAttempted = attempt - 1
			o.record(ctx, platform.ID, "system", audit.ActionPaymentSettled, claim.ExternalTaskID, true, map[string]any{
				"cycleId":       cycleID,
				"transactionId": receipt.TransactionID,
				"txHash":        receipt.TxHash,
				"amount":        claim.Amount,
				"attempt":       attempt,
			})
			o.completeLedger(ctx, platform, claim, repository.ClaimPaid)
			return res
		}

		lastErr = err
		att.Error = err.Error()
		metrics.PaymentAttemptsTotal.WithLabelValues("failure").Inc()
		o.record(ctx, platform.ID, "system", audit.ActionPaymentAttempt, claim.ExternalTaskID, false, map[string]any{
			"cycleId": cycleID,
			"attempt": attempt,
			"error":   err.Error(),
		})

		retryable := backoff.IsRetryable(err)
		if !retryable {
			att.Outcome = domain.OutcomePermanentFailure
			res.Attempts = append(res.Attempts, att)
			return o.deadLetter(ctx, platform, claim, domain.StagePayment, lastErr, attempt, res)
		}
		att.Outcome = domain.OutcomeRetryableFailure
		res.Attempts = append(res.Attempts, att)
		if attempt == o.policy.MaxAttempts {
			return o.deadLetter(ctx, platform, claim, domain.StagePayment, lastErr, attempt, res)
		}

		metrics.StageRetriesTotal.WithLabelValues(string(domain.StagePayment)).Inc()
		o.record(ctx, platform.ID, "system", audit.ActionStageRetry, claim.ExternalTaskID, false, map[string]any{
			"cycleId": cycleID,
			"stage":   string(domain.StagePayment),
			"attempt": attempt,
			"error":   err.Error(),
		})
		if err := o.sleep(ctx, o.policy.NextDelay(attempt)); err != nil {
			return o.deadLetter(ctx, platform, claim, domain.StagePayment, fmt.Errorf("payment aborted: %w", err), attempt, res)
		}
	}
	return o.deadLetter(ctx, platform, claim, domain.StagePayment, lastErr, o.policy.MaxAttempts, res)
}

// deadLetter records the terminal failure. The store write is hot-path safe:
// a persistence failure degrades to a synchronous log line instead of
// surfacing, so the claim's fate always stays visible somewhere.
func (o *orchestrator) deadLetter(ctx context.Context, platform domain.Platform, claim domain.TaskCompletionClaim, stage domain.Stage, cause error, attempts int, res domain.CycleResult) domain.CycleResult {
	res.Status = domain.CycleDeadLettered
	res.RetriesAttempted = attempts
	res.ErrorMessage = cause.Error()
	if stage == domain.StageVerification {
		res.ErrorCode = domain.CodeVerificationFailed
	} else {
		res.ErrorCode = domain.CodePaymentFailed
	}

	entry := domain.DeadLetterEntry{
		PlatformID: platform.ID,
		Claim:      claim,
		Stage:      stage,
		LastError:  cause.Error(),
		Attempts:   attempts,
	}
	if o.dlq != nil {
		if _, err := o.dlq.Add(ctx, entry); err != nil {
			o.logger.Error("dead-letter persist failed",
				"taskId", claim.ExternalTaskID,
				"platformId", platform.ID,
				"stage", string(stage),
				"lastError", cause.Error(),
				"attempts", attempts,
				"err", err,
			)
		}
	}
	metrics.DeadLetteredTotal.WithLabelValues(string(stage)).Inc()
	o.record(ctx, platform.ID, "system", audit.ActionDeadLettered, claim.ExternalTaskID, false, map[string]any{
		"cycleId":  res.CycleID,
		"stage":    string(stage),
		"error":    cause.Error(),
		"attempts": attempts,
	})
	o.completeLedger(ctx, platform, claim, repository.ClaimDeadLettered)
	return res
}

func (o *orchestrator) finish(ctx context.Context, platform domain.Platform, claim domain.TaskCompletionClaim, res domain.CycleResult, start time.Time) domain.CycleResult {
	elapsed := o.now().Sub(start)
	res.ProcessingTimeMs = elapsed.Milliseconds()
	metrics.CycleLatencySeconds.WithLabelValues(string(res.Status)).Observe(elapsed.Seconds())
	o.logger.Info("cycle finished",
		"taskId", claim.ExternalTaskID,
		"platformId", platform.ID,
		"status", string(res.Status),
		"processingTimeMs", res.ProcessingTimeMs,
	)
	return res
}

func (o *orchestrator) completeLedger(ctx context.Context, platform domain.Platform, claim domain.TaskCompletionClaim, state repository.ClaimState) {
	if o.ledger == nil {
		return
	}
	if err := o.ledger.Complete(ctx, platform.ID, claim.ExternalTaskID, state); err != nil {
		o.logger.Warn("claim ledger update failed", "taskId", claim.ExternalTaskID, "state", string(state), "err", err)
	}
}

func (o *orchestrator) record(ctx context.Context, actorID, actorType, action, resourceID string, success bool, meta map[string]any) {
	if o.auditor == nil {
		return
	}
	o.auditor.Record(ctx, audit.Event{
		ActorID:      actorID,
		ActorType:    actorType,
		Action:       action,
		ResourceType: "claim",
		ResourceID:   resourceID,
		Success:      success,
		Metadata:     meta,
	})
}
