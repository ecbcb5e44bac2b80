package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/obaidsafi51/GigStream-sub003/pkg/domain"

	"github.com/go-redis/redis/v8"
)

var ErrPlatformNotFound = errors.New("platform not found")

// PlatformRepository resolves the authenticated caller of the webhook API.
// Platforms are looked up by the sha256 of their API key so the plaintext
// key is never stored.
type PlatformRepository interface {
	Upsert(ctx context.Context, p domain.Platform) error
	Get(ctx context.Context, id string) (*domain.Platform, error)
	GetByAPIKeyHash(ctx context.Context, hash string) (*domain.Platform, error)
}

// HashAPIKey returns the hex sha256 of an API key, the form stored in
// Platform.APIKeyHash and used for lookups.
func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

type platformRedisRepo struct {
	rdb *redis.Client
}

func NewPlatformRepository(rdb *redis.Client) PlatformRepository {
	return &platformRedisRepo{rdb: rdb}
}

func (r *platformRedisRepo) keyPlatforms() string { return "gigstream:platforms" }
func (r *platformRedisRepo) keyByAPIKey() string  { return "gigstream:platforms:bykey" }

func (r *platformRedisRepo) Upsert(ctx context.Context, p domain.Platform) error {
	if p.ID == "" {
		return errors.New("platform id is required")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.keyPlatforms(), p.ID, string(b))
	if p.APIKeyHash != "" {
		pipe.HSet(ctx, r.keyByAPIKey(), p.APIKeyHash, p.ID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *platformRedisRepo) Get(ctx context.Context, id string) (*domain.Platform, error) {
	js, err := r.rdb.HGet(ctx, r.keyPlatforms(), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPlatformNotFound
	}
	if err != nil {
		return nil, err
	}
	var p domain.Platform
	if err := json.Unmarshal([]byte(js), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *platformRedisRepo) GetByAPIKeyHash(ctx context.Context, hash string) (*domain.Platform, error) {
	if hash == "" {
		return nil, ErrPlatformNotFound
	}
	id, err := r.rdb.HGet(ctx, r.keyByAPIKey(), hash).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPlatformNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}
