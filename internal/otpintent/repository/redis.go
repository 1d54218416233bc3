package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sambhav-gg/StreetBites/internal/otpintent/domain"
)

const keyPrefix = "otp:intent:"

// RedisRepository stores each intent as JSON under otp:intent:<handle> with the intent's
// remaining lifetime as TTL. Failed attempts live in a sibling counter key so that
// incrementing never rewrites the intent.
type RedisRepository struct {
	client redis.Cmdable
	nowF   func() time.Time
}

// NewRedisRepository returns a Redis-backed intent store.
func NewRedisRepository(client redis.Cmdable) *RedisRepository {
	return &RedisRepository{
		client: client,
		nowF:   func() time.Time { return time.Now().UTC() },
	}
}

func intentKey(handle string) string   { return keyPrefix + handle }
func attemptsKey(handle string) string { return keyPrefix + handle + ":attempts" }

// Create writes the intent with a TTL matching ExpiresAt.
func (r *RedisRepository) Create(ctx context.Context, i *domain.Intent) error {
	ttl := i.ExpiresAt.Sub(r.nowF())
	if ttl <= 0 {
		return fmt.Errorf("otp intent %s already expired", i.SessionHandle)
	}
	payload, err := json.Marshal(i)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, intentKey(i.SessionHandle), payload, ttl)
		pipe.Del(ctx, attemptsKey(i.SessionHandle))
		return nil
	})
	return err
}

// GetByHandle returns the intent with its current attempt count, or nil.
func (r *RedisRepository) GetByHandle(ctx context.Context, handle string) (*domain.Intent, error) {
	raw, err := r.client.Get(ctx, intentKey(handle)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	i, err := r.decode(raw)
	if err != nil || i == nil {
		return nil, err
	}
	n, err := r.client.Get(ctx, attemptsKey(handle)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	i.Attempts = n
	return i, nil
}

// Take uses GETDEL so only one caller can ever receive the intent.
func (r *RedisRepository) Take(ctx context.Context, handle string) (*domain.Intent, error) {
	raw, err := r.client.GetDel(ctx, intentKey(handle)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = r.client.Del(ctx, attemptsKey(handle)).Err()
	return r.decode(raw)
}

// RecordFailedAttempt increments the counter and aligns its TTL with the intent key.
func (r *RedisRepository) RecordFailedAttempt(ctx context.Context, handle string) (int, error) {
	ttl, err := r.client.PTTL(ctx, intentKey(handle)).Result()
	if err != nil {
		return 0, err
	}
	// PTTL is negative when the key is missing or has no expiry.
	if ttl <= 0 {
		return 0, nil
	}
	var incr *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, attemptsKey(handle))
		pipe.PExpire(ctx, attemptsKey(handle), ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

// Delete removes the intent and its counter.
func (r *RedisRepository) Delete(ctx context.Context, handle string) error {
	return r.client.Del(ctx, intentKey(handle), attemptsKey(handle)).Err()
}

func (r *RedisRepository) decode(raw []byte) (*domain.Intent, error) {
	var i domain.Intent
	if err := json.Unmarshal(raw, &i); err != nil {
		return nil, fmt.Errorf("decode otp intent: %w", err)
	}
	if i.Expired(r.nowF()) {
		return nil, nil
	}
	return &i, nil
}
