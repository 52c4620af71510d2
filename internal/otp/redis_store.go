package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengePrefix = "otp:v1:challenge:"
	authPrefix      = "otp:v1:auth:"
	authIndexPrefix = "otp:v1:auths:"
	maxTxRetries    = 10
)

// ErrConflict is returned when an optimistic transaction keeps losing to
// concurrent writers.
var ErrConflict = errors.New("otp store: too much contention")

// RedisStore keeps challenges and authorizations in Redis with native TTLs.
// Read-modify-write cycles run under WATCH so concurrent updates of the same
// key never lose writes.
type RedisStore struct {
	client *redis.Client
	grace  time.Duration
	now    Clock
}

// NewRedisStore builds a Redis-backed Store.
func NewRedisStore(client *redis.Client, grace time.Duration) *RedisStore {
	return &RedisStore{client: client, grace: grace, now: time.Now}
}

func (s *RedisStore) UpdateChallenge(ctx context.Context, identity string, fn ChallengeFunc) error {
	key := challengePrefix + identity
	var result error
	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		var current *Challenge
		if err := getJSON(ctx, tx, key, &current); err != nil {
			return err
		}
		next, fnErr := fn(current)
		result = fnErr

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
				return nil
			}
			return s.setJSON(ctx, pipe, key, next, next.RetainUntil(s.grace))
		})
		return err
	})
	if err != nil {
		return err
	}
	return result
}

func (s *RedisStore) GetChallenge(ctx context.Context, identity string) (*Challenge, error) {
	var c *Challenge
	if err := getJSON(ctx, s.client, challengePrefix+identity, &c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *RedisStore) DeleteChallenge(ctx context.Context, identity string) error {
	return s.client.Del(ctx, challengePrefix+identity).Err()
}

func (s *RedisStore) SaveAuthorization(ctx context.Context, auth Authorization) error {
	retain := auth.RetainUntil(s.grace)
	ttl := retain.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	indexKey := authIndexPrefix + auth.Identity
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := s.setJSON(ctx, pipe, authPrefix+auth.TokenHash, &auth, retain); err != nil {
			return err
		}
		pipe.SAdd(ctx, indexKey, auth.TokenHash)
		// the index lives as long as its newest member
		pipe.Expire(ctx, indexKey, ttl)
		return nil
	})
	return err
}

func (s *RedisStore) GetAuthorization(ctx context.Context, tokenHash string) (*Authorization, error) {
	var a *Authorization
	if err := getJSON(ctx, s.client, authPrefix+tokenHash, &a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *RedisStore) UpdateAuthorization(ctx context.Context, tokenHash string, fn AuthorizationFunc) error {
	key := authPrefix + tokenHash
	var result error
	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		var current *Authorization
		if err := getJSON(ctx, tx, key, &current); err != nil {
			return err
		}
		next, fnErr := fn(current)
		result = fnErr

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
				return nil
			}
			return s.setJSON(ctx, pipe, key, next, next.RetainUntil(s.grace))
		})
		return err
	})
	if err != nil {
		return err
	}
	return result
}

func (s *RedisStore) RevokeOthers(ctx context.Context, identity, keepTokenHash string) error {
	indexKey := authIndexPrefix + identity
	members, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("list authorizations: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, hash := range members {
			if hash == keepTokenHash {
				continue
			}
			pipe.Del(ctx, authPrefix+hash)
			pipe.SRem(ctx, indexKey, hash)
		}
		return nil
	})
	return err
}

func (s *RedisStore) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (s *RedisStore) setJSON(ctx context.Context, pipe redis.Pipeliner, key string, v any, retainUntil time.Time) error {
	ttl := retainUntil.Sub(s.now())
	if ttl <= 0 {
		pipe.Del(ctx, key)
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	pipe.Set(ctx, key, payload, ttl)
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getJSON[T any](ctx context.Context, c getter, key string, out **T) error {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		*out = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	*out = v
	return nil
}
