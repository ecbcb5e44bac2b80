package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/obaidsafi51/GigStream-sub003/internal/tracing"
	"github.com/obaidsafi51/GigStream-sub003/pkg/domain"
)

// VerificationOracle scores a claim against the worker's history and returns
// a verdict. The model behind it is opaque here; transient failures surface
// as errors and are retried by the orchestrator.
type VerificationOracle interface {
	Verify(ctx context.Context, claim domain.TaskCompletionClaim, history *domain.HistoryRecord) (*domain.VerificationResult, error)
}

type verificationClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewVerificationClient(baseURL, apiKey string, timeout time.Duration) VerificationOracle {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &verificationClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type verifyRequest struct {
	Claim   domain.TaskCompletionClaim `json:"claim"`
	History *domain.HistoryRecord      `json:"history,omitempty"`
}

func (c *verificationClient) Verify(ctx context.Context, claim domain.TaskCompletionClaim, history *domain.HistoryRecord) (*domain.VerificationResult, error) {
	started := time.Now()
	body, err := json.Marshal(verifyRequest{Claim: claim, History: history})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	tracing.InjectHeaders(ctx, req.Header)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verification request: %w", err)
	}
	defer resp.Body.Close()

	if err := errorFromStatus("verification oracle", resp); err != nil {
		return nil, err
	}
	var result domain.VerificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("verification decode: %w", err)
	}
	if result.LatencyMs == 0 {
		result.LatencyMs = time.Since(started).Milliseconds()
	}
	return &result, nil
}
