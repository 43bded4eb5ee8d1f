package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/portfolioweb/internal/model"
)

// profileCacheNamespace はRedisキーの接頭辞。
const profileCacheNamespace = "portfolioweb:profile:username:"

// RedisProfileCache はRedisを使用したProfileCache実装。
// 値はJSONで保存する。パスワードハッシュはキャッシュしない。
type RedisProfileCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisClient はredis://形式のURLからクライアントを生成する。
func NewRedisClient(redisURL string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewRedisProfileCache はRedisProfileCacheを生成する。
func NewRedisProfileCache(client redis.UniversalClient, ttl time.Duration) *RedisProfileCache {
	return &RedisProfileCache{client: client, ttl: ttl}
}

// Get はキャッシュ済みのプロフィールを返す。存在しない場合はnilを返す。
func (c *RedisProfileCache) Get(ctx context.Context, username string) (*model.Profile, error) {
	data, err := c.client.Get(ctx, profileCacheKey(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached profile: %w", err)
	}

	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode cached profile: %w", err)
	}
	return &p, nil
}

// Set はプロフィールをTTL付きで保存する。
func (c *RedisProfileCache) Set(ctx context.Context, p *model.Profile) error {
	cached := *p
	cached.PasswordHash = ""

	data, err := json.Marshal(&cached)
	if err != nil {
		return fmt.Errorf("failed to encode profile for cache: %w", err)
	}
	if err := c.client.Set(ctx, profileCacheKey(p.Username), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache profile: %w", err)
	}
	return nil
}

// Delete は指定ユーザー名のキャッシュを削除する。
func (c *RedisProfileCache) Delete(ctx context.Context, usernames ...string) error {
	if len(usernames) == 0 {
		return nil
	}
	keys := make([]string, 0, len(usernames))
	for _, u := range usernames {
		keys = append(keys, profileCacheKey(u))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cached profile: %w", err)
	}
	return nil
}

// profileCacheKey はユーザー名を小文字化してキーを組み立てる。
func profileCacheKey(username string) string {
	return profileCacheNamespace + strings.ToLower(username)
}

// compile-time interface check
var _ ProfileCache = (*RedisProfileCache)(nil)
