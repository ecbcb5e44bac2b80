package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          int    `yaml:"port"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	LogLevel      string `yaml:"logLevel"`
	LogFormat     string `yaml:"logFormat"`
	Env           string `yaml:"env"`

	// Ack-timing: deliveries processed within the budget get a 202 and run
	// in the background; otherwise the cycle runs synchronously under the
	// hard timeout.
	AckBudgetMs        int `yaml:"ackBudgetMs"`
	SyncTimeoutSeconds int `yaml:"syncTimeoutSeconds"`

	WorkerHistoryURL            string `yaml:"workerHistoryUrl"`
	WorkerHistoryAPIKey         string `yaml:"workerHistoryApiKey"`
	WorkerHistoryTimeoutSeconds int    `yaml:"workerHistoryTimeoutSeconds"`

	VerificationURL            string `yaml:"verificationUrl"`
	VerificationAPIKey         string `yaml:"verificationApiKey"`
	VerificationTimeoutSeconds int    `yaml:"verificationTimeoutSeconds"`

	PaymentURL            string `yaml:"paymentUrl"`
	PaymentAPIKey         string `yaml:"paymentApiKey"`
	PaymentTimeoutSeconds int    `yaml:"paymentTimeoutSeconds"`

	BackoffBaseSeconds int `yaml:"backoffBaseSeconds"`
	BackoffMaxSeconds  int `yaml:"backoffMaxSeconds"`
	MaxAttempts        int `yaml:"maxAttempts"`

	DedupeTTLSeconds int `yaml:"dedupeTtlSeconds"`

	PoolWorkers   int `yaml:"poolWorkers"`
	PoolQueueSize int `yaml:"poolQueueSize"`

	WebhookRateLimitPerMinute    int `yaml:"webhookRateLimitPerMinute"`
	WebhookRateLimitBurst        int `yaml:"webhookRateLimitBurst"`
	DeadLetterRateLimitPerMinute int `yaml:"deadLetterRateLimitPerMinute"`
	DeadLetterRateLimitBurst     int `yaml:"deadLetterRateLimitBurst"`

	TracingEnabled   bool    `yaml:"tracingEnabled"`
	OTLPEndpoint     string  `yaml:"otlpEndpoint"`
	OTLPInsecure     bool    `yaml:"otlpInsecure"`
	TraceSampleRatio float64 `yaml:"traceSampleRatio"`
}

func LoadConfig(filePath string) (*Config, error) {
	var c Config
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("ACK_BUDGET_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.AckBudgetMs = n
		}
	}
	if v := os.Getenv("SYNC_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SyncTimeoutSeconds = n
		}
	}
	if v := os.Getenv("WORKER_HISTORY_URL"); v != "" {
		c.WorkerHistoryURL = v
	}
	if v := os.Getenv("WORKER_HISTORY_API_KEY"); v != "" {
		c.WorkerHistoryAPIKey = v
	}
	if v := os.Getenv("VERIFICATION_URL"); v != "" {
		c.VerificationURL = v
	}
	if v := os.Getenv("VERIFICATION_API_KEY"); v != "" {
		c.VerificationAPIKey = v
	}
	if v := os.Getenv("PAYMENT_URL"); v != "" {
		c.PaymentURL = v
	}
	if v := os.Getenv("PAYMENT_API_KEY"); v != "" {
		c.PaymentAPIKey = v
	}
	if v := os.Getenv("BACKOFF_BASE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BackoffBaseSeconds = n
		}
	}
	if v := os.Getenv("BACKOFF_MAX_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BackoffMaxSeconds = n
		}
	}
	if v := os.Getenv("MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = n
		}
	}
	if v := os.Getenv("DEDUPE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DedupeTTLSeconds = n
		}
	}
	if v := os.Getenv("POOL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PoolWorkers = n
		}
	}
	if v := os.Getenv("POOL_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PoolQueueSize = n
		}
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		c.TracingEnabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("OTLP_ENDPOINT"); v != "" {
		c.OTLPEndpoint = v
	}
	if v := os.Getenv("TRACE_SAMPLE_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.TraceSampleRatio = f
		}
	}

	if c.Port == 0 {
		c.Port = 8080
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.AckBudgetMs <= 0 {
		c.AckBudgetMs = 200
	}
	if c.SyncTimeoutSeconds <= 0 {
		c.SyncTimeoutSeconds = 30
	}
	if c.WorkerHistoryTimeoutSeconds <= 0 {
		c.WorkerHistoryTimeoutSeconds = 5
	}
	if c.VerificationTimeoutSeconds <= 0 {
		c.VerificationTimeoutSeconds = 10
	}
	if c.PaymentTimeoutSeconds <= 0 {
		c.PaymentTimeoutSeconds = 15
	}
	if c.BackoffBaseSeconds <= 0 {
		c.BackoffBaseSeconds = 1
	}
	if c.BackoffMaxSeconds <= 0 {
		c.BackoffMaxSeconds = 10
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.DedupeTTLSeconds <= 0 {
		c.DedupeTTLSeconds = 86400
	}
	if c.PoolWorkers <= 0 {
		c.PoolWorkers = 8
	}
	if c.PoolQueueSize <= 0 {
		c.PoolQueueSize = 256
	}
	if c.TraceSampleRatio <= 0 || c.TraceSampleRatio > 1 {
		c.TraceSampleRatio = 1
	}

	log.Printf("GigStream Config: {Port:%d Redis:%s AckBudget:%dms MaxAttempts:%d Workers:%d}\n",
		c.Port, c.RedisAddr, c.AckBudgetMs, c.MaxAttempts, c.PoolWorkers)
	return &c, nil
}

// LoadConfigOptional behaves like LoadConfig but treats a blank or missing
// file as "defaults plus environment".
func LoadConfigOptional(filePath string) (*Config, error) {
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return LoadConfig("")
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return LoadConfig("")
	}
	return LoadConfig(filePath)
}

func (c *Config) AckBudget() time.Duration { return time.Duration(c.AckBudgetMs) * time.Millisecond }
func (c *Config) SyncTimeout() time.Duration {
	return time.Duration(c.SyncTimeoutSeconds) * time.Second
}
func (c *Config) DedupeTTL() time.Duration { return time.Duration(c.DedupeTTLSeconds) * time.Second }

func (c *Config) Validate() error {
	var errs []string
	env := strings.ToLower(strings.TrimSpace(c.Env))
	dev := env == "dev"

	for name, raw := range map[string]string{
		"workerHistoryUrl": c.WorkerHistoryURL,
		"verificationUrl":  c.VerificationURL,
		"paymentUrl":       c.PaymentURL,
	} {
		if raw == "" {
			if !dev {
				errs = append(errs, name+" is required in non-dev")
			}
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, name+" must be a valid http(s) URL")
		}
	}
	if !dev && c.PaymentAPIKey == "" {
		errs = append(errs, "paymentApiKey is required in non-dev")
	}
	if c.MaxAttempts > 10 {
		errs = append(errs, "maxAttempts must be 10 or fewer")
	}
	if c.BackoffBaseSeconds > c.BackoffMaxSeconds {
		errs = append(errs, "backoffBaseSeconds must not exceed backoffMaxSeconds")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
