package infra

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// unreachableClient aponta para uma porta fechada: toda operação falha com
// connection refused, o cenário do contrato de fail-open.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1, // sem retry interno do driver
	})
}

func TestRedisCache_FailOpenWhenStoreUnreachable(t *testing.T) {
	rdb := unreachableClient()
	defer func() { _ = rdb.Close() }()

	var logged []string
	c := NewRedisCache(rdb, WithCacheLogf(func(format string, args ...any) {
		logged = append(logged, format)
	}))

	ctx := context.Background()

	// Get degrada para miss, nunca erro
	if _, ok := c.Get(ctx, "rm:cache:character:q:x"); ok {
		t.Fatalf("expected miss against unreachable store")
	}

	// Set é best-effort: não pode explodir
	c.Set(ctx, "rm:cache:character:q:x", []byte(`{}`), time.Minute)

	// DeletePrefix retorna o que conseguiu (zero)
	if n := c.DeletePrefix(ctx, "rm:cache:"); n != 0 {
		t.Fatalf("expected 0 removals against unreachable store, got %d", n)
	}

	if len(logged) != 3 {
		t.Fatalf("expected each degraded operation to be logged once, got %d logs", len(logged))
	}
	for _, msg := range logged {
		if !strings.HasPrefix(msg, "cache: ") {
			t.Fatalf("unexpected log line %q", msg)
		}
	}
}
