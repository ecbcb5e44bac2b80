package domain

import "time"

// DeadLetterEntry is the durable record of a permanently-failed cycle. It owns
// a copy of the original claim so a replay can re-inject it without touching
// any other table. Entries are audit records: replay marks them resolved but
// never deletes them.
type DeadLetterEntry struct {
	ID                         string              `json:"id"`
	PlatformID                 string              `json:"platformId"`
	Claim                      TaskCompletionClaim `json:"taskData"`
	Stage                      Stage               `json:"stage"`
	LastError                  string              `json:"error"`
	Attempts                   int                 `json:"attempts"`
	RequiresManualIntervention bool                `json:"requiresManualIntervention"`
	CreatedAt                  time.Time           `json:"createdAt"`
	Resolved                   bool                `json:"resolved,omitempty"`
	ResolvedAt                 *time.Time          `json:"resolvedAt,omitempty"`
	ReplayCount                int                 `json:"replayCount,omitempty"`
}
