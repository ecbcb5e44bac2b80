package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/obaidsafi51/GigStream-sub003/internal/tracing"
	"github.com/obaidsafi51/GigStream-sub003/pkg/domain"
)

// HistoryProvider fetches a worker's track record, used as verification
// input. Implemented elsewhere; this package only speaks its HTTP contract.
type HistoryProvider interface {
	GetWorkerHistory(ctx context.Context, workerID string) (*domain.HistoryRecord, error)
}

type historyClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHistoryClient(baseURL, apiKey string, timeout time.Duration) HistoryProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &historyClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *historyClient) GetWorkerHistory(ctx context.Context, workerID string) (*domain.HistoryRecord, error) {
	url := fmt.Sprintf("%s/v1/workers/%s/history", c.baseURL, workerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	tracing.InjectHeaders(ctx, req.Header)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("worker history request: %w", err)
	}
	defer resp.Body.Close()

	if err := errorFromStatus("worker history", resp); err != nil {
		return nil, err
	}
	var rec domain.HistoryRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("worker history decode: %w", err)
	}
	return &rec, nil
}
