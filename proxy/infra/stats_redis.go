package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rickmorty-gateway/proxy/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava os contadores do ciclo de vida de fetch em redis.
//
// Layout de chaves (hashes):
//   <prefix>:total                    evento -> contagem acumulada
//   <prefix>:minute:<yyyymmddhhmm>    série temporal por minuto (com ttl)
//   <prefix>:resource:<recurso>       evento -> contagem por recurso
//   <prefix>:scope:<escopo>           evento -> contagem por escopo (opcional, com ttl)
type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas às chaves de série temporal e por escopo.
	// total e por-recurso são cumulativos e não expiram.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackScopes bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

// WithStatsTrackScopes liga a contagem por escopo (cardinalidade alta:
// carrega IPs de chamadores; o ttl limita o estrago).
func WithStatsTrackScopes(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackScopes = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "rm:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record implementa domain.StatsStore. Best-effort: quem chama ignora o erro.
func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	if ev.Event == "" {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", ev.Event, 1)

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, ev.Event, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if ev.Resource != "" {
		pipe.HIncrBy(ctx, s.prefix+":resource:"+string(ev.Resource), ev.Event, 1)
	}

	if s.trackScopes {
		if scope := strings.TrimSpace(string(ev.Scope)); scope != "" {
			scopeKey := s.prefix + ":scope:" + scope
			pipe.HIncrBy(ctx, scopeKey, ev.Event, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, scopeKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
