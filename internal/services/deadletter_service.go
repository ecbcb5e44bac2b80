package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/obaidsafi51/GigStream-sub003/internal/audit"
	"github.com/obaidsafi51/GigStream-sub003/internal/metrics"
	"github.com/obaidsafi51/GigStream-sub003/internal/repository"
	"github.com/obaidsafi51/GigStream-sub003/pkg/domain"
)

// DeadLetterService exposes the platform-facing view of the dead-letter
// store: listing your own failures and manually replaying one.
type DeadLetterService interface {
	List(ctx context.Context, platformID string, limit, offset int) ([]domain.DeadLetterEntry, error)
	Replay(ctx context.Context, platform domain.Platform, entryID string) (*domain.CycleResult, error)
}

type deadLetterService struct {
	repo   repository.DeadLetterRepository
	ledger repository.ClaimLedger
	orch   Orchestrator
	audit  audit.Recorder
	logger *slog.Logger
	now    func() time.Time
}

func NewDeadLetterService(repo repository.DeadLetterRepository, ledger repository.ClaimLedger, orch Orchestrator, auditor audit.Recorder, logger *slog.Logger) DeadLetterService {
	if logger == nil {
		logger = slog.Default()
	}
	return &deadLetterService{
		repo:   repo,
		ledger: ledger,
		orch:   orch,
		audit:  auditor,
		logger: logger,
		now:    time.Now,
	}
}

func (s *deadLetterService) List(ctx context.Context, platformID string, limit, offset int) ([]domain.DeadLetterEntry, error) {
	return s.repo.List(ctx, platformID, limit, offset)
}

// Replay re-injects the entry's original claim as a fresh cycle. The entry
// itself survives: success only marks it resolved. Foreign entries report
// not-found so the endpoint does not leak other platforms' ids.
func (s *deadLetterService) Replay(ctx context.Context, platform domain.Platform, entryID string) (*domain.CycleResult, error) {
	entry, err := s.repo.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.PlatformID != platform.ID {
		return nil, repository.ErrEntryNotFound
	}

	if s.audit != nil {
		s.audit.Record(ctx, audit.Event{
			ActorID:      platform.ID,
			ActorType:    "operator",
			Action:       audit.ActionReplayStarted,
			ResourceType: "deadLetterEntry",
			ResourceID:   entry.ID,
			Success:      true,
			Metadata: map[string]any{
				"taskId":           entry.Claim.ExternalTaskID,
				"originalError":    entry.LastError,
				"originalAttempts": entry.Attempts,
			},
		})
	}

	// Manual replay deliberately bypasses the dedupe refusal: the operator
	// is restarting a settled-as-failed identity.
	if s.ledger != nil {
		if err := s.ledger.Reopen(ctx, entry.PlatformID, entry.Claim.ExternalTaskID); err != nil {
			s.logger.Warn("claim ledger reopen failed", "entryId", entry.ID, "err", err)
		}
	}

	result := s.orch.Process(ctx, platform, entry.Claim)

	if result.Success() {
		if _, err := s.repo.MarkResolved(ctx, entry.ID, s.now()); err != nil {
			s.logger.Error("mark resolved failed", "entryId", entry.ID, "err", err)
		}
		metrics.ReplaysTotal.WithLabelValues("success").Inc()
	} else {
		metrics.ReplaysTotal.WithLabelValues("failure").Inc()
	}

	if s.audit != nil {
		s.audit.Record(ctx, audit.Event{
			ActorID:      platform.ID,
			ActorType:    "operator",
			Action:       audit.ActionReplayFinished,
			ResourceType: "deadLetterEntry",
			ResourceID:   entry.ID,
			Success:      result.Success(),
			Metadata: map[string]any{
				"taskId": entry.Claim.ExternalTaskID,
				"status": string(result.Status),
			},
		})
	}
	return &result, nil
}
