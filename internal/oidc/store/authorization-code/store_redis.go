package authorizationcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lokal/internal/oidc/models"
	"lokal/pkg/platform/sentinel"
)

const authCodeKeyPrefix = "oidc:code:"

// RedisStore keeps authorization codes in Redis with their lifetime as TTL.
// Consume uses GETDEL so a code can be redeemed by exactly one caller across
// instances; a replay finds nothing and reports ErrNotFound.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, authCode *models.AuthorizationCode) error {
	ttl := time.Until(authCode.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("authorization code: %w", sentinel.ErrExpired)
	}
	payload, err := json.Marshal(authCode)
	if err != nil {
		return fmt.Errorf("marshal authorization code: %w", err)
	}
	ok, err := s.client.SetNX(ctx, authCodeKeyPrefix+authCode.Code, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("store authorization code: %w", err)
	}
	if !ok {
		return fmt.Errorf("authorization code: %w", sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, code string, now time.Time) (*models.AuthorizationCode, error) {
	payload, err := s.client.GetDel(ctx, authCodeKeyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("authorization code not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("consume authorization code: %w", err)
	}

	var record models.AuthorizationCode
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("unmarshal authorization code: %w", err)
	}
	if err := record.Consume(now); err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteExpiredCodes is a no-op: Redis expires keys itself.
func (s *RedisStore) DeleteExpiredCodes(context.Context, time.Time) (int, error) {
	return 0, nil
}
