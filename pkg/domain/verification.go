package domain

type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictFlag    Verdict = "flag"
	VerdictReject  Verdict = "reject"
)

type FraudRisk string

const (
	RiskLow    FraudRisk = "low"
	RiskMedium FraudRisk = "medium"
	RiskHigh   FraudRisk = "high"
)

// VerificationResult is the oracle's verdict for one claim. Created once per
// processing attempt and never mutated. Reason is populated whenever the
// verdict is not approve.
type VerificationResult struct {
	Verdict    Verdict   `json:"verdict"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason,omitempty"`
	LatencyMs  int64     `json:"latencyMs"`
	FraudRisk  FraudRisk `json:"fraudRisk"`
}
