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

const reviewStatusPending = "pending_review"

// ReviewRepository stores claims the oracle flagged for manual human review.
type ReviewRepository interface {
	Add(ctx context.Context, review domain.FlaggedReview) (*domain.FlaggedReview, error)
	List(ctx context.Context, platformID string, limit, offset int) ([]domain.FlaggedReview, error)
}

type reviewRedisRepo struct {
	rdb *redis.Client
	now func() time.Time
}

func NewReviewRepository(rdb *redis.Client, now func() time.Time) ReviewRepository {
	if now == nil {
		now = time.Now
	}
	return &reviewRedisRepo{rdb: rdb, now: now}
}

func (r *reviewRedisRepo) keyReviews() string { return "gigstream:reviews" }
func (r *reviewRedisRepo) keyPlatformIndex(platformID string) string {
	return fmt.Sprintf("gigstream:reviews:idx:%s", platformID)
}

func (r *reviewRedisRepo) Add(ctx context.Context, review domain.FlaggedReview) (*domain.FlaggedReview, error) {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = r.now().UTC()
	}
	review.Status = reviewStatusPending

	b, err := json.Marshal(review)
	if err != nil {
		return nil, err
	}
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.keyReviews(), review.ID, string(b))
	pipe.ZAdd(ctx, r.keyPlatformIndex(review.PlatformID), &redis.Z{
		Score:  float64(review.CreatedAt.UnixNano()),
		Member: review.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRedisRepo) List(ctx context.Context, platformID string, limit, offset int) ([]domain.FlaggedReview, error) {
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
	reviews := make([]domain.FlaggedReview, 0, len(ids))
	for _, id := range ids {
		js, err := r.rdb.HGet(ctx, r.keyReviews(), id).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var review domain.FlaggedReview
		if err := json.Unmarshal([]byte(js), &review); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}
