package xtoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store 共享令牌存储（L2）。
// Get 未命中返回 ErrStoreMiss。
type Store interface {
	Get(ctx context.Context, key string) (*Token, error)
	Set(ctx context.Context, key string, token *Token) error
	Delete(ctx context.Context, key string) error
}

// NoopStore 不做任何存储。
type NoopStore struct{}

func (NoopStore) Get(context.Context, string) (*Token, error) { return nil, ErrStoreMiss }
func (NoopStore) Set(context.Context, string, *Token) error   { return nil }
func (NoopStore) Delete(context.Context, string) error        { return nil }

// DefaultRedisKeyPrefix RedisStore 默认 key 前缀。
const DefaultRedisKeyPrefix = "restclient:token:"

// RedisStore 基于 Redis 的令牌存储，多个进程共享同一份令牌。
// 条目 TTL 与令牌剩余有效期一致。
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

// RedisStoreOption RedisStore 配置选项。
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix 设置 key 前缀。
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.keyPrefix = prefix
	}
}

// NewRedisStore 创建 RedisStore。
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}
	s := &RedisStore{
		client:    client,
		keyPrefix: DefaultRedisKeyPrefix,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *RedisStore) redisKey(key string) string {
	return s.keyPrefix + key
}

// Get 读取令牌。
func (s *RedisStore) Get(ctx context.Context, key string) (*Token, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStoreMiss
		}
		return nil, fmt.Errorf("xtoken: redis get: %w", err)
	}

	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("xtoken: unmarshal stored token: %w", err)
	}
	return &tok, nil
}

// Set 写入令牌，已过期的令牌不写入。
func (s *RedisStore) Set(ctx context.Context, key string, token *Token) error {
	if token == nil {
		return nil
	}
	ttl := token.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("xtoken: marshal token: %w", err)
	}
	if err := s.client.Set(ctx, s.redisKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("xtoken: redis set: %w", err)
	}
	return nil
}

// Delete 删除令牌，key 不存在不视为错误。
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("xtoken: redis del: %w", err)
	}
	return nil
}
