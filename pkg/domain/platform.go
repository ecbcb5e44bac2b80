package domain

import "time"

type PlatformStatus string

const (
	PlatformActive    PlatformStatus = "active"
	PlatformSuspended PlatformStatus = "suspended"
)

// Platform is the authenticated caller of the webhook API. Only the fields
// the pipeline touches are modeled here; the rest of the platform record
// lives with the dashboard.
type Platform struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Status          PlatformStatus `json:"status"`
	WebhooksEnabled bool           `json:"webhooksEnabled"`
	// WebhookSecret signs inbound payloads; empty means the platform was
	// onboarded without webhook configuration (an operational error, not a
	// caller error).
	WebhookSecret string    `json:"webhookSecret,omitempty"`
	APIKeyHash    string    `json:"apiKeyHash"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (p *Platform) Active() bool { return p != nil && p.Status == PlatformActive }
