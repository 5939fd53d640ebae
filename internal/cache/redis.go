package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tangerine/internal/config"
)

// fixedWindowScript 在同一次往返里自增计数并在首次命中时设置过期时间。
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// Redis 封装带前缀的 Redis 客户端。nil 值表示未启用，所有方法都安全可调。
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis 按配置创建客户端，未启用时返回 nil。
func NewRedis(cfg config.RedisConfig) *Redis {
	if !cfg.Enabled {
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "tangerine"
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", host, port),
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: prefix,
	}
}

// Enabled 判断缓存是否可用
func (r *Redis) Enabled() bool {
	return r != nil && r.client != nil
}

// Ping 检查连接
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// Close 关闭连接
func (r *Redis) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Close()
}

// GetJSON 读取 JSON 缓存，未命中返回 false。
func (r *Redis) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !r.Enabled() {
		return false, nil
	}
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !r.Enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), payload, ttl).Err()
}

// Allow 固定窗口计数：窗口内第 limit+1 次调用起返回 false。
// 未启用或 limit<=0 时总是放行。
func (r *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.Enabled() || limit <= 0 {
		return true, nil
	}
	if window <= 0 {
		window = time.Minute
	}
	count, err := fixedWindowScript.Run(ctx, r.client, []string{r.key(key)}, window.Milliseconds()).Int64()
	if err != nil {
		return true, err
	}
	return count <= int64(limit), nil
}

func (r *Redis) key(key string) string {
	return BuildKey(r.prefix, key)
}

// BuildKey 拼接 "prefix:key"，key 为空时只返回前缀。
func BuildKey(prefix, key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return prefix
	}
	return prefix + ":" + trimmed
}
