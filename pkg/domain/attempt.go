package domain

import "time"

// Stage identifies which pipeline step an attempt ran against.
type Stage string

const (
	StageVerification Stage = "verification"
	StagePayment      Stage = "payment"
)

type AttemptOutcome string

const (
	OutcomeSuccess          AttemptOutcome = "success"
	OutcomeRejected         AttemptOutcome = "rejected"
	OutcomeFlagged          AttemptOutcome = "flagged"
	OutcomeRetryableFailure AttemptOutcome = "retryable-failure"
	OutcomePermanentFailure AttemptOutcome = "permanent-failure"
)

// ProcessingAttempt records one pass of a stage within a cycle. Attempts are
// appended, never deleted; AttemptNumber is 1-based and strictly increasing
// within a cycle.
type ProcessingAttempt struct {
	AttemptNumber int            `json:"attemptNumber"`
	Stage         Stage          `json:"stage"`
	StartedAt     time.Time      `json:"startedAt"`
	Outcome       AttemptOutcome `json:"outcome"`
	Error         string         `json:"error,omitempty"`
}

// CycleStatus is the terminal state of one full run through the pipeline.
// Exactly one terminal status exists per cycle; a replay starts a new cycle.
type CycleStatus string

const (
	CyclePaid         CycleStatus = "paid"
	CycleRejected     CycleStatus = "rejected"
	CycleFlagged      CycleStatus = "flagged"
	CycleDeadLettered CycleStatus = "dead-lettered"
)

// Cycle result error codes surfaced to webhook callers.
const (
	CodeTaskRejected       = "TASK_REJECTED"
	CodeTaskFlagged        = "TASK_FLAGGED"
	CodeVerificationFailed = "VERIFICATION_FAILED"
	CodePaymentFailed      = "PAYMENT_FAILED"
)

// CycleResult is the terminal summary of one cycle, returned on the
// synchronous ingress path and by dead-letter replays.
type CycleResult struct {
	Status           CycleStatus         `json:"status"`
	CycleID          string              `json:"cycleId"`
	ExternalTaskID   string              `json:"taskId"`
	TransactionID    string              `json:"transactionId,omitempty"`
	TxHash           string              `json:"transactionHash,omitempty"`
	Amount           float64             `json:"amount,omitempty"`
	Verification     *VerificationResult `json:"verification,omitempty"`
	RetriesAttempted int                 `json:"retriesAttempted,omitempty"`
	ProcessingTimeMs int64               `json:"processingTime"`
	ErrorCode        string              `json:"errorCode,omitempty"`
	ErrorMessage     string              `json:"errorMessage,omitempty"`
	Attempts         []ProcessingAttempt `json:"attempts,omitempty"`
}

// Success reports whether the cycle settled with a completed payment.
func (r CycleResult) Success() bool { return r.Status == CyclePaid }
