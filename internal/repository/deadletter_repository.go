package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/obaidsafi51/GigStream-sub003/pkg/domain"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var ErrEntryNotFound = errors.New("dead-letter entry not found")

// DeadLetterRepository persists permanently-failed cycles. Entries are
// written once, listed per platform (newest first), and mutated only by the
// replay path marking them resolved. They are never deleted.
type DeadLetterRepository interface {
	Add(ctx context.Context, entry domain.DeadLetterEntry) (*domain.DeadLetterEntry, error)
	Get(ctx context.Context, id string) (*domain.DeadLetterEntry, error)
	List(ctx context.Context, platformID string, limit, offset int) ([]domain.DeadLetterEntry, error)
	MarkResolved(ctx context.Context, id string, at time.Time) (*domain.DeadLetterEntry, error)
}

type deadLetterRedisRepo struct {
	rdb *redis.Client
	now func() time.Time
}

func NewDeadLetterRepository(rdb *redis.Client, now func() time.Time) DeadLetterRepository {
	if now == nil {
		now = time.Now
	}
	return &deadLetterRedisRepo{rdb: rdb, now: now}
}

func (r *deadLetterRedisRepo) keyEntries() string { return "gigstream:dlq:entries" }
func (r *deadLetterRedisRepo) keyPlatformIndex(platformID string) string {
	return fmt.Sprintf("gigstream:dlq:idx:%s", platformID)
}

func (r *deadLetterRedisRepo) Add(ctx context.Context, entry domain.DeadLetterEntry) (*domain.DeadLetterEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	entry.RequiresManualIntervention = true

	b, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.keyEntries(), entry.ID, string(b))
	pipe.ZAdd(ctx, r.keyPlatformIndex(entry.PlatformID), &redis.Z{
		Score:  float64(entry.CreatedAt.UnixNano()),
		Member: entry.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *deadLetterRedisRepo) Get(ctx context.Context, id string) (*domain.DeadLetterEntry, error) {
	js, err := r.rdb.HGet(ctx, r.keyEntries(), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	var entry domain.DeadLetterEntry
	if err := json.Unmarshal([]byte(js), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns entries owned by platformID, newest first. Scoping by the
// per-platform index is the ownership guarantee: entries of other platforms
// are unreachable from here.
func (r *deadLetterRedisRepo) List(ctx context.Context, platformID string, limit, offset int) ([]domain.DeadLetterEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	ids, err := r.rdb.ZRevRange(ctx, r.keyPlatformIndex(platformID), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]domain.DeadLetterEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrEntryNotFound) {
				continue
			}
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (r *deadLetterRedisRepo) MarkResolved(ctx context.Context, id string, at time.Time) (*domain.DeadLetterEntry, error) {
	entry, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	at = at.UTC()
	entry.Resolved = true
	entry.ResolvedAt = &at
	entry.ReplayCount++
	b, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	if err := r.rdb.HSet(ctx, r.keyEntries(), entry.ID, string(b)).Err(); err != nil {
		return nil, err
	}
	return entry, nil
}
