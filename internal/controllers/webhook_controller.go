package controllers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/obaidsafi51/GigStream-sub003/internal/audit"
	"github.com/obaidsafi51/GigStream-sub003/internal/metrics"
	"github.com/obaidsafi51/GigStream-sub003/internal/middleware"
	"github.com/obaidsafi51/GigStream-sub003/internal/payload"
	"github.com/obaidsafi51/GigStream-sub003/internal/repository"
	"github.com/obaidsafi51/GigStream-sub003/internal/services"
	"github.com/obaidsafi51/GigStream-sub003/internal/signature"
	"github.com/obaidsafi51/GigStream-sub003/internal/workers"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 1 << 20

type webhookController struct {
	orch        services.Orchestrator
	pool        *workers.Pool
	ledger      repository.ClaimLedger
	auditor     audit.Recorder
	logger      *slog.Logger
	ackBudget   time.Duration
	syncTimeout time.Duration
	now         func() time.Time
}

func NewWebhookController(
	orch services.Orchestrator,
	pool *workers.Pool,
	ledger repository.ClaimLedger,
	auditor audit.Recorder,
	logger *slog.Logger,
	ackBudget time.Duration,
	syncTimeout time.Duration,
) *webhookController {
	if logger == nil {
		logger = slog.Default()
	}
	if ackBudget < 0 {
		ackBudget = 0
	}
	if syncTimeout <= 0 {
		syncTimeout = 30 * time.Second
	}
	return &webhookController{
		orch:        orch,
		pool:        pool,
		ledger:      ledger,
		auditor:     auditor,
		logger:      logger,
		ackBudget:   ackBudget,
		syncTimeout: syncTimeout,
		now:         time.Now,
	}
}

// Handle is the task-completed ingress. Auth ran in middleware; here the
// signature is checked against the raw bytes, the payload validated, the
// delivery deduped, and finally the ack-timing decision made: under budget
// the cycle runs in the background behind a 202, over budget (or with the
// pool saturated) it runs synchronously and returns the terminal result.
func (h *webhookController) Handle(c *gin.Context) {
	start := h.now()
	platform, ok := middleware.PlatformFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "MISSING_AUTH_HEADERS", "platform identity missing")
		return
	}

	if platform.WebhookSecret == "" {
		// Operational misconfiguration, not the caller's fault.
		metrics.WebhooksReceivedTotal.WithLabelValues("misconfigured").Inc()
		respondError(c, http.StatusInternalServerError, "WEBHOOK_NOT_CONFIGURED", "no webhook secret configured for platform")
		return
	}

	rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		respondError(c, http.StatusBadRequest, "UNREADABLE_BODY", "could not read request body")
		return
	}

	// The HMAC input is the raw, unmodified bytes. Parsing first and
	// re-serializing would silently break byte-different-but-equal payloads.
	if !signature.Verify(rawBody, c.GetHeader("X-Signature"), platform.WebhookSecret) {
		metrics.WebhooksReceivedTotal.WithLabelValues("invalid_signature").Inc()
		if h.auditor != nil {
			h.auditor.Record(c.Request.Context(), audit.Event{
				ActorID:      platform.ID,
				ActorType:    "platform",
				Action:       audit.ActionSignatureRejected,
				ResourceType: "webhook",
				ResourceID:   c.GetString(middleware.RequestIDKey),
				Success:      false,
				Metadata:     map[string]any{"remoteAddr": c.ClientIP()},
			})
		}
		respondError(c, http.StatusForbidden, "INVALID_SIGNATURE", "signature verification failed")
		return
	}

	claim, err := payload.Validate(rawBody)
	if err != nil {
		metrics.WebhooksReceivedTotal.WithLabelValues("invalid_payload").Inc()
		var malformed *payload.MalformedJSONError
		var violation *payload.SchemaViolationError
		switch {
		case errors.As(err, &malformed):
			respondError(c, http.StatusBadRequest, "MALFORMED_JSON", "request body is not valid JSON")
		case errors.As(err, &violation):
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
				"code":    "SCHEMA_VIOLATION",
				"message": "payload failed validation",
				"fields":  violation.Issues,
			}})
		default:
			respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		}
		return
	}
	claim.PlatformID = platform.ID

	if h.ledger != nil {
		fresh, err := h.ledger.Begin(c.Request.Context(), platform.ID, claim.ExternalTaskID)
		if err != nil {
			h.logger.Error("claim ledger begin failed", "taskId", claim.ExternalTaskID, "err", err)
			// Ledger trouble must not drop payouts; proceed without dedupe.
		} else if !fresh {
			metrics.WebhooksReceivedTotal.WithLabelValues("duplicate").Inc()
			respondError(c, http.StatusConflict, "DUPLICATE_DELIVERY", "a cycle for this task is already live or settled")
			return
		}
	}

	if h.now().Sub(start) < h.ackBudget && h.pool != nil {
		claimCopy := claim
		platformCopy := platform
		accepted := h.pool.Submit(func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, h.syncTimeout)
			defer cancel()
			h.orch.Process(ctx, platformCopy, claimCopy)
		})
		if accepted {
			metrics.WebhooksReceivedTotal.WithLabelValues("accepted").Inc()
			c.JSON(http.StatusAccepted, gin.H{
				"status":                  "accepted",
				"taskId":                  claim.ExternalTaskID,
				"estimatedProcessingTime": "5-30 seconds",
			})
			return
		}
		// Saturated pool: degrade to the synchronous path rather than drop.
		h.logger.Warn("background queue saturated; processing synchronously", "taskId", claim.ExternalTaskID)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.syncTimeout)
	defer cancel()
	res := h.orch.Process(ctx, platform, claim)
	if res.Success() {
		metrics.WebhooksReceivedTotal.WithLabelValues("sync_success").Inc()
		c.JSON(http.StatusOK, cycleResponse(res))
		return
	}
	metrics.WebhooksReceivedTotal.WithLabelValues("sync_failure").Inc()
	c.JSON(http.StatusBadRequest, cycleResponse(res))
}
