package repository

import (
	"testing"
	"time"

	"github.com/obaidsafi51/GigStream-sub003/pkg/domain"
)

func TestPlatformUpsertAndLookupByAPIKey(t *testing.T) {
	ctx, _, rdb := setupRedis(t)
	repo := NewPlatformRepository(rdb)

	p := domain.Platform{
		ID:              "p-a",
		Name:            "Acme Gigs",
		Status:          domain.PlatformActive,
		WebhooksEnabled: true,
		WebhookSecret:   "whsec_a",
		APIKeyHash:      HashAPIKey("key-a"),
		CreatedAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.GetByAPIKeyHash(ctx, HashAPIKey("key-a"))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != "p-a" || got.WebhookSecret != "whsec_a" {
		t.Fatalf("unexpected platform: %+v", got)
	}
	if !got.Active() {
		t.Fatalf("expected active platform")
	}
}

func TestPlatformLookupUnknownKey(t *testing.T) {
	ctx, _, rdb := setupRedis(t)
	repo := NewPlatformRepository(rdb)
	if _, err := repo.GetByAPIKeyHash(ctx, HashAPIKey("nope")); err != ErrPlatformNotFound {
		t.Fatalf("expected ErrPlatformNotFound, got %v", err)
	}
	if _, err := repo.GetByAPIKeyHash(ctx, ""); err != ErrPlatformNotFound {
		t.Fatalf("expected ErrPlatformNotFound for empty hash, got %v", err)
	}
}

func TestPlatformUpsertRequiresID(t *testing.T) {
	ctx, _, rdb := setupRedis(t)
	repo := NewPlatformRepository(rdb)
	if err := repo.Upsert(ctx, domain.Platform{Name: "anon"}); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestReviewRepositoryAddAndList(t *testing.T) {
	ctx, _, rdb := setupRedis(t)
	repo := NewReviewRepository(rdb, nil)

	review, err := repo.Add(ctx, domain.FlaggedReview{
		PlatformID: "p-a",
		Claim:      sampleClaim("t-9"),
		Reason:     "Completion proof mismatch",
		Confidence: 0.41,
		FraudRisk:  domain.RiskMedium,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if review.Status != "pending_review" {
		t.Fatalf("expected pending_review, got %s", review.Status)
	}

	reviews, err := repo.List(ctx, "p-a", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reviews) != 1 || reviews[0].Claim.ExternalTaskID != "t-9" {
		t.Fatalf("unexpected reviews: %+v", reviews)
	}
	other, err := repo.List(ctx, "p-b", 10, 0)
	if err != nil || len(other) != 0 {
		t.Fatalf("expected no reviews for p-b, got %d err=%v", len(other), err)
	}
}
