package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/obaidsafi51/GigStream-sub003/internal/clients"
	"github.com/obaidsafi51/GigStream-sub003/internal/repository"
	"github.com/obaidsafi51/GigStream-sub003/internal/signature"
	"github.com/obaidsafi51/GigStream-sub003/pkg/config"
	"github.com/obaidsafi51/GigStream-sub003/pkg/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

const (
	testAPIKey = "pk_live_acme"
	testSecret = "whsec_acme"
)

type fakeHistory struct{ calls int32 }

func (f *fakeHistory) GetWorkerHistory(ctx context.Context, workerID string) (*domain.HistoryRecord, error) {
	atomic.AddInt32(&f.calls, 1)
	return &domain.HistoryRecord{WorkerID: workerID, TotalTasks: 50, ApprovalRate: 0.95}, nil
}

type fakeOracle struct {
	calls  int32
	result domain.VerificationResult
}

func (f *fakeOracle) Verify(ctx context.Context, claim domain.TaskCompletionClaim, history *domain.HistoryRecord) (*domain.VerificationResult, error) {
	atomic.AddInt32(&f.calls, 1)
	r := f.result
	return &r, nil
}

type fakePayer struct{ calls int32 }

func (f *fakePayer) Pay(ctx context.Context, req clients.PaymentRequest) (*clients.PaymentReceipt, error) {
	atomic.AddInt32(&f.calls, 1)
	return &clients.PaymentReceipt{TransactionID: "pay-1", TxHash: "0xabc"}, nil
}

type testEnv struct {
	app    *Application
	oracle *fakeOracle
	payer  *fakePayer
	rdb    *redis.Client
}

func setupApp(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.RedisAddr = mr.Addr()
	if mutate != nil {
		mutate(cfg)
	}

	oracle := &fakeOracle{result: domain.VerificationResult{
		Verdict:    domain.VerdictApprove,
		Confidence: 0.95,
		FraudRisk:  domain.RiskLow,
	}}
	payer := &fakePayer{}

	application, err := NewApplication(cfg,
		WithHistoryProvider(&fakeHistory{}),
		WithVerificationOracle(oracle),
		WithPaymentExecutor(payer),
	)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	SetupMappings(application)
	application.Start(context.Background())
	t.Cleanup(application.Shutdown)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	if err := application.Platforms.Upsert(context.Background(), domain.Platform{
		ID:              "p-acme",
		Name:            "Acme Gigs",
		Status:          domain.PlatformActive,
		WebhooksEnabled: true,
		WebhookSecret:   testSecret,
		APIKeyHash:      repository.HashAPIKey(testAPIKey),
		CreatedAt:       time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed platform: %v", err)
	}

	return &testEnv{app: application, oracle: oracle, payer: payer, rdb: rdb}
}

func webhookBody(t *testing.T, taskID string) []byte {
	t.Helper()
	b, err := json.Marshal(domain.TaskCompletionClaim{
		ExternalTaskID: taskID,
		WorkerID:       "w-1",
		Amount:         25,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("marshal claim: %v", err)
	}
	return b
}

func deliver(env *testEnv, body []byte, sig string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/task-completed", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("X-Signature", sig)
	env.app.Engine.ServeHTTP(w, req)
	return w
}

func TestWebhookMissingAuthHeaders(t *testing.T) {
	env := setupApp(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/task-completed", bytes.NewReader(webhookBody(t, "t-1")))
	env.app.Engine.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "MISSING_AUTH_HEADERS") {
		t.Fatalf("expected MISSING_AUTH_HEADERS, got %s", w.Body.String())
	}
}

func TestWebhookInvalidSignatureHasNoSideEffects(t *testing.T) {
	env := setupApp(t, nil)

	body := webhookBody(t, "t-1")
	w := deliver(env, body, "sha256=deadbeef")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "INVALID_SIGNATURE") {
		t.Fatalf("expected INVALID_SIGNATURE, got %s", w.Body.String())
	}
	if atomic.LoadInt32(&env.oracle.calls) != 0 || atomic.LoadInt32(&env.payer.calls) != 0 {
		t.Fatalf("rejected signature must never reach the oracle or executor")
	}
}

func TestWebhookFastAck(t *testing.T) {
	env := setupApp(t, nil)

	body := webhookBody(t, "t-1")
	w := deliver(env, body, signature.Sign(testSecret, body))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"accepted"`) || !strings.Contains(w.Body.String(), "t-1") {
		t.Fatalf("unexpected ack body: %s", w.Body.String())
	}
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	env := setupApp(t, nil)

	body := webhookBody(t, "t-dup")
	first := deliver(env, body, signature.Sign(testSecret, body))
	if first.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", first.Code, first.Body.String())
	}

	second := deliver(env, body, signature.Sign(testSecret, body))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", second.Code, second.Body.String())
	}
	if !strings.Contains(second.Body.String(), "DUPLICATE_DELIVERY") {
		t.Fatalf("expected DUPLICATE_DELIVERY, got %s", second.Body.String())
	}
}

func TestWebhookSyncFallbackWhenPoolSaturated(t *testing.T) {
	env := setupApp(t, func(cfg *config.Config) {
		cfg.PoolWorkers = 1
		cfg.PoolQueueSize = 1
	})
	// Tie up the single worker and the single queue slot so the delivery's
	// Submit is refused and the handler takes the synchronous path.
	env.app.Pool.Submit(func(ctx context.Context) {
		time.Sleep(500 * time.Millisecond)
	})
	env.app.Pool.Submit(func(ctx context.Context) {
		time.Sleep(500 * time.Millisecond)
	})

	body := webhookBody(t, "t-sync")
	w := deliver(env, body, signature.Sign(testSecret, body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected synchronous 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool    `json:"success"`
		TaskID  string  `json:"taskId"`
		Amount  float64 `json:"amount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.TaskID != "t-sync" || resp.Amount != 25 {
		t.Fatalf("unexpected sync result: %s", w.Body.String())
	}
	if atomic.LoadInt32(&env.payer.calls) != 1 {
		t.Fatalf("expected exactly one payment, got %d", env.payer.calls)
	}
}

func TestWebhookSchemaViolation(t *testing.T) {
	env := setupApp(t, nil)

	body := []byte(`{"externalTaskId":"","workerId":"w-1","amount":-3,"timestamp":"nope"}`)
	w := deliver(env, body, signature.Sign(testSecret, body))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "SCHEMA_VIOLATION") || !strings.Contains(w.Body.String(), "externalTaskId") {
		t.Fatalf("expected field details, got %s", w.Body.String())
	}
}

func TestDeadLetterListIsPlatformScoped(t *testing.T) {
	env := setupApp(t, nil)

	// Seed entries for two platforms directly in the store.
	dlq := repository.NewDeadLetterRepository(env.rdb, time.Now)
	for _, platformID := range []string{"p-acme", "p-other"} {
		if _, err := dlq.Add(context.Background(), domain.DeadLetterEntry{
			PlatformID: platformID,
			Claim:      domain.TaskCompletionClaim{ExternalTaskID: "t-" + platformID, WorkerID: "w-1", Amount: 10},
			Stage:      domain.StagePayment,
			LastError:  "network timeout",
			Attempts:   3,
		}); err != nil {
			t.Fatalf("seed dlq: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/webhooks/dead-letter-queue", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	env.app.Engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "p-other") {
		t.Fatalf("foreign platform entries leaked: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "t-p-acme") {
		t.Fatalf("expected own entry, got %s", w.Body.String())
	}
}

func TestDeadLetterRetryForeignEntryNotFound(t *testing.T) {
	env := setupApp(t, nil)

	dlq := repository.NewDeadLetterRepository(env.rdb, time.Now)
	entry, err := dlq.Add(context.Background(), domain.DeadLetterEntry{
		PlatformID: "p-other",
		Claim:      domain.TaskCompletionClaim{ExternalTaskID: "t-x", WorkerID: "w-1", Amount: 10},
		Stage:      domain.StagePayment,
		LastError:  "network timeout",
		Attempts:   3,
	})
	if err != nil {
		t.Fatalf("seed dlq: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/dead-letter-queue/"+entry.ID+"/retry", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	env.app.Engine.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign entry, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDeadLetterRetryReplaysOwnEntry(t *testing.T) {
	env := setupApp(t, nil)

	dlq := repository.NewDeadLetterRepository(env.rdb, time.Now)
	entry, err := dlq.Add(context.Background(), domain.DeadLetterEntry{
		PlatformID: "p-acme",
		Claim:      domain.TaskCompletionClaim{ExternalTaskID: "t-replay", WorkerID: "w-1", Amount: 25},
		Stage:      domain.StagePayment,
		LastError:  "network timeout",
		Attempts:   3,
	})
	if err != nil {
		t.Fatalf("seed dlq: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/dead-letter-queue/"+entry.ID+"/retry", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	env.app.Engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"success":true`) {
		t.Fatalf("expected successful replay, got %s", w.Body.String())
	}

	// The original entry survives, marked resolved.
	kept, err := dlq.Get(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("entry must survive replay: %v", err)
	}
	if !kept.Resolved {
		t.Fatalf("expected resolved entry, got %+v", kept)
	}
}
