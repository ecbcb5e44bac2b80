package app

import (
	"github.com/obaidsafi51/GigStream-sub003/internal/controllers"
	"github.com/obaidsafi51/GigStream-sub003/internal/middleware"
	"github.com/obaidsafi51/GigStream-sub003/internal/ratelimit"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

func SetupMappings(app *Application) {
	cfg := app.Config

	webhookBucket := ratelimit.Bucket{
		RequestsPerMinute: cfg.WebhookRateLimitPerMinute,
		BurstSize:         cfg.WebhookRateLimitBurst,
	}
	dlqBucket := ratelimit.Bucket{
		RequestsPerMinute: cfg.DeadLetterRateLimitPerMinute,
		BurstSize:         cfg.DeadLetterRateLimitBurst,
	}

	v1 := app.Engine.Group("/v1/webhooks")
	ingress := v1.Group("",
		middleware.PlatformAuth(app.Platforms, true),
		middleware.RateLimitPlatform(app.RateLimiter, "webhook", webhookBucket),
	)
	management := v1.Group("",
		middleware.PlatformAuth(app.Platforms, false),
		middleware.RateLimitPlatform(app.RateLimiter, "deadletter", dlqBucket),
	)
	{
		ingress.POST("/task-completed", controllers.NewWebhookController(
			app.Orchestrator,
			app.Pool,
			app.Ledger,
			app.Auditor,
			app.Logger,
			cfg.AckBudget(),
			cfg.SyncTimeout(),
		).Handle)

		management.GET("/dead-letter-queue", controllers.NewDeadLetterListController(app.DeadLetters).Handle)
		management.POST("/dead-letter-queue/:id/retry", controllers.NewDeadLetterRetryController(app.DeadLetters).Handle)
	}

	app.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	app.Engine.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
}
