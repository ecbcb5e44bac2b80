package domain

import "time"

// FlaggedReview is the task record created when the oracle flags a claim
// instead of approving or rejecting it. Flagged claims park here in
// pending_review until a human settles them; the cycle itself is terminal.
type FlaggedReview struct {
	ID         string              `json:"id"`
	PlatformID string              `json:"platformId"`
	Claim      TaskCompletionClaim `json:"taskData"`
	Reason     string              `json:"reason"`
	Confidence float64             `json:"confidence"`
	FraudRisk  FraudRisk           `json:"fraudRisk"`
	Status     string              `json:"status"` // pending_review
	CreatedAt  time.Time           `json:"createdAt"`
}
