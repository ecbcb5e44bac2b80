package payload

import (
	"errors"
	"testing"
)

func validBody() string {
	return `{"externalTaskId":"t-100","workerId":"w-7","platformId":"p-1","amount":25,"completionProof":"ipfs://abc","timestamp":"2026-08-01T12:00:00Z","metadata":{"category":"delivery"}}`
}

func TestValidateOK(t *testing.T) {
	claim, err := Validate([]byte(validBody()))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claim.ExternalTaskID != "t-100" || claim.WorkerID != "w-7" {
		t.Fatalf("unexpected claim identifiers: %+v", claim)
	}
	if claim.Amount != 25 {
		t.Fatalf("expected amount 25, got %v", claim.Amount)
	}
}

func TestValidateMalformedJSON(t *testing.T) {
	_, err := Validate([]byte(`{"externalTaskId": `))
	var malformed *MalformedJSONError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedJSONError, got %v", err)
	}
}

func TestValidateSchemaViolations(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing task id", `{"workerId":"w-1","amount":5,"timestamp":"2026-08-01T12:00:00Z"}`, "externalTaskId"},
		{"missing worker id", `{"externalTaskId":"t-1","amount":5,"timestamp":"2026-08-01T12:00:00Z"}`, "workerId"},
		{"zero amount", `{"externalTaskId":"t-1","workerId":"w-1","amount":0,"timestamp":"2026-08-01T12:00:00Z"}`, "amount"},
		{"negative amount", `{"externalTaskId":"t-1","workerId":"w-1","amount":-3,"timestamp":"2026-08-01T12:00:00Z"}`, "amount"},
		{"missing timestamp", `{"externalTaskId":"t-1","workerId":"w-1","amount":5}`, "timestamp"},
		{"bad timestamp", `{"externalTaskId":"t-1","workerId":"w-1","amount":5,"timestamp":"yesterday"}`, "timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate([]byte(tt.body))
			var sv *SchemaViolationError
			if !errors.As(err, &sv) {
				t.Fatalf("expected SchemaViolationError, got %v", err)
			}
			found := false
			for _, iss := range sv.Issues {
				if iss.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected an issue on %q, got %v", tt.field, sv.Issues)
			}
		})
	}
}

func TestValidateCollectsAllIssues(t *testing.T) {
	_, err := Validate([]byte(`{"amount":-1}`))
	var sv *SchemaViolationError
	if !errors.As(err, &sv) {
		t.Fatalf("expected SchemaViolationError, got %v", err)
	}
	if len(sv.Issues) < 3 {
		t.Fatalf("expected issues for every missing field, got %v", sv.Issues)
	}
}
