package domain

// TaskCompletionClaim is the untrusted payload a platform delivers over the
// task-completed webhook. It is read-only input to the pipeline: once decoded
// it is never mutated, and the raw request bytes (not a re-serialization of
// this struct) are what the signature check runs over.
type TaskCompletionClaim struct {
	ExternalTaskID  string         `json:"externalTaskId"`
	WorkerID        string         `json:"workerId"`
	PlatformID      string         `json:"platformId,omitempty"`
	Amount          float64        `json:"amount"`
	CompletionProof string         `json:"completionProof,omitempty"`
	Timestamp       string         `json:"timestamp"` // RFC3339
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// HistoryRecord summarizes a worker's track record on the platform. It is
// fetched from the worker-history collaborator and fed to the verification
// oracle alongside the claim.
type HistoryRecord struct {
	WorkerID       string  `json:"workerId"`
	TotalTasks     int     `json:"totalTasks"`
	ApprovedTasks  int     `json:"approvedTasks"`
	ApprovalRate   float64 `json:"approvalRate"`
	AccountAgeDays int     `json:"accountAgeDays"`
	RecentFlags    int     `json:"recentFlags"`
}
