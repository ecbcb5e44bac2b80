package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/obaidsafi51/GigStream-sub003/internal/tracing"
)

// PaymentRequest moves funds to a worker for one settled claim. The
// IdempotencyKey is stable across payment retries within a cycle, so a
// retried call after a partial upstream success cannot double-pay.
type PaymentRequest struct {
	TaskID         string  `json:"taskId"`
	WorkerID       string  `json:"workerId"`
	Amount         float64 `json:"amount"`
	IdempotencyKey string  `json:"-"`
}

// PaymentReceipt is the executor's confirmation of a settled transfer.
type PaymentReceipt struct {
	TransactionID string `json:"transactionId"`
	TxHash        string `json:"txHash"`
}

// PaymentExecutor wraps the wallet/stablecoin service. Failures are
// classified by the retry policy; error text therefore carries the
// downstream message verbatim.
type PaymentExecutor interface {
	Pay(ctx context.Context, req PaymentRequest) (*PaymentReceipt, error)
}

type paymentClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewPaymentClient(baseURL, apiKey string, timeout time.Duration) PaymentExecutor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &paymentClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *paymentClient) Pay(ctx context.Context, payReq PaymentRequest) (*PaymentReceipt, error) {
	body, err := json.Marshal(payReq)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if payReq.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", payReq.IdempotencyKey)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	tracing.InjectHeaders(ctx, req.Header)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment request: %w", err)
	}
	defer resp.Body.Close()

	if err := errorFromStatus("payment executor", resp); err != nil {
		return nil, err
	}
	var receipt PaymentReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("payment decode: %w", err)
	}
	return &receipt, nil
}

// errorFromStatus converts a non-2xx response into an error whose message
// preserves the downstream error text, keeping substring classification
// meaningful. 503/504 are called out as unavailability.
func errorFromStatus(who string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg := downstreamMessage(resp.Body)
	switch resp.StatusCode {
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		if msg != "" {
			return fmt.Errorf("%s unavailable (status %d): %s", who, resp.StatusCode, msg)
		}
		return fmt.Errorf("%s unavailable (status %d)", who, resp.StatusCode)
	default:
		if msg != "" {
			return fmt.Errorf("%s: %s (status %d)", who, msg, resp.StatusCode)
		}
		return fmt.Errorf("%s: unexpected status %d", who, resp.StatusCode)
	}
}

func downstreamMessage(body io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(b))
}
