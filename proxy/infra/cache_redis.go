package infra

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implementa domain.Cache sobre redis.
//
// Contrato de fail-open: QUALQUER erro do store é convertido em miss/no-op e
// logado. Indisponibilidade do redis degrada desempenho, nunca derruba uma
// requisição. A expiração é responsabilidade do próprio redis (SET com EX);
// a aplicação não reconfere TTL.
type RedisCache struct {
	rdb  *redis.Client
	logf func(format string, args ...any)

	// scanCount é o COUNT usado no SCAN de invalidação por prefixo.
	scanCount int64
}

type RedisCacheOption func(*RedisCache)

// WithCacheLogf troca o destino dos logs de falha do store (padrão: log.Printf).
func WithCacheLogf(logf func(format string, args ...any)) RedisCacheOption {
	return func(c *RedisCache) { c.logf = logf }
}

func WithScanCount(n int64) RedisCacheOption {
	return func(c *RedisCache) {
		if n > 0 {
			c.scanCount = n
		}
	}
}

func NewRedisCache(rdb *redis.Client, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		rdb:       rdb,
		logf:      log.Printf,
		scanCount: 100,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implementa domain.Cache. Erro de store vira miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logf("cache: get %q degraded to miss: %v", key, err)
		return nil, false
	}
	return b, true
}

// Set implementa domain.Cache, best-effort.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logf("cache: set %q dropped: %v", key, err)
	}
}

// DeletePrefix remove via SCAN+DEL todas as chaves sob o prefixo e retorna
// quantas removeu. Em erro, retorna o que conseguiu até ali.
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) int {
	removed := 0
	var cursor uint64

	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", c.scanCount).Result()
		if err != nil {
			c.logf("cache: scan %q aborted after %d removals: %v", prefix, removed, err)
			return removed
		}
		if len(keys) > 0 {
			n, err := c.rdb.Del(ctx, keys...).Result()
			removed += int(n)
			if err != nil {
				c.logf("cache: del under %q aborted after %d removals: %v", prefix, removed, err)
				return removed
			}
		}
		cursor = next
		if cursor == 0 {
			return removed
		}
	}
}
