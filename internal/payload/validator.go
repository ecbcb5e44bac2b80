package payload

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/obaidsafi51/GigStream-sub003/pkg/domain"
)

// MalformedJSONError means the body was not structurally valid JSON. It is
// never retried; the request terminates with a 400.
type MalformedJSONError struct {
	Cause error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("malformed json: %v", e.Cause)
}

func (e *MalformedJSONError) Unwrap() error { return e.Cause }

// FieldIssue is one schema violation, addressed to the offending field.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SchemaViolationError carries every field-level issue found in a
// structurally-valid body. Never retried; terminates with a 400.
type SchemaViolationError struct {
	Issues []FieldIssue
}

func (e *SchemaViolationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, iss := range e.Issues {
		parts = append(parts, iss.Field+": "+iss.Message)
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

// Validate decodes body into a TaskCompletionClaim and applies the schema
// constraints: required identifiers, positive amount, parseable RFC3339
// timestamp. Validation errors never reach the background pipeline.
func Validate(body []byte) (domain.TaskCompletionClaim, error) {
	var claim domain.TaskCompletionClaim
	if err := json.Unmarshal(body, &claim); err != nil {
		return domain.TaskCompletionClaim{}, &MalformedJSONError{Cause: err}
	}

	var issues []FieldIssue
	if strings.TrimSpace(claim.ExternalTaskID) == "" {
		issues = append(issues, FieldIssue{Field: "externalTaskId", Message: "is required"})
	}
	if strings.TrimSpace(claim.WorkerID) == "" {
		issues = append(issues, FieldIssue{Field: "workerId", Message: "is required"})
	}
	if claim.Amount <= 0 {
		issues = append(issues, FieldIssue{Field: "amount", Message: "must be greater than zero"})
	}
	if strings.TrimSpace(claim.Timestamp) == "" {
		issues = append(issues, FieldIssue{Field: "timestamp", Message: "is required"})
	} else if _, err := time.Parse(time.RFC3339, claim.Timestamp); err != nil {
		issues = append(issues, FieldIssue{Field: "timestamp", Message: "must be RFC3339"})
	}
	if len(issues) > 0 {
		return domain.TaskCompletionClaim{}, &SchemaViolationError{Issues: issues}
	}
	return claim, nil
}
