package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.AckBudgetMs != 200 {
		t.Errorf("expected 200ms ack budget, got %d", cfg.AckBudgetMs)
	}
	if cfg.MaxAttempts != 3 || cfg.BackoffBaseSeconds != 1 || cfg.BackoffMaxSeconds != 10 {
		t.Errorf("unexpected retry defaults: %+v", cfg)
	}
	if cfg.DedupeTTL() != 24*time.Hour {
		t.Errorf("expected 24h dedupe TTL, got %v", cfg.DedupeTTL())
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("ACK_BUDGET_MS", "50")
	t.Setenv("PAYMENT_URL", "http://payments.internal")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != 9999 {
		t.Errorf("expected Port=9999 from env, got %d", cfg.Port)
	}
	if cfg.AckBudget() != 50*time.Millisecond {
		t.Errorf("expected 50ms budget, got %v", cfg.AckBudget())
	}
	if cfg.PaymentURL != "http://payments.internal" {
		t.Errorf("expected payment url from env, got %q", cfg.PaymentURL)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
port: 8088
redisAddr: "redis:6379"
ackBudgetMs: 150
maxAttempts: 3
paymentUrl: "https://pay.example.com"
poolWorkers: 4
`
	if err := os.WriteFile(configPath, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != 8088 || cfg.RedisAddr != "redis:6379" || cfg.PoolWorkers != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.AckBudget() != 150*time.Millisecond {
		t.Fatalf("expected 150ms budget, got %v", cfg.AckBudget())
	}
}

func TestLoadConfigOptionalMissingFile(t *testing.T) {
	cfg, err := LoadConfigOptional(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestValidateRequiresURLsOutsideDev(t *testing.T) {
	cfg, _ := LoadConfig("")
	cfg.Env = "prod"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation failure without collaborator URLs")
	}
	if !strings.Contains(err.Error(), "paymentUrl") {
		t.Fatalf("expected paymentUrl in error, got %v", err)
	}

	cfg.WorkerHistoryURL = "http://history.internal"
	cfg.VerificationURL = "http://verify.internal"
	cfg.PaymentURL = "http://pay.internal"
	cfg.PaymentAPIKey = "svc-key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsBadURL(t *testing.T) {
	cfg, _ := LoadConfig("")
	cfg.PaymentURL = "not-a-url"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected bad URL to fail validation")
	}
}
