package infra

import (
	"context"
	"testing"

	"rickmorty-gateway/proxy/domain"
)

func TestMemoryStatsStore_CountsByEventAndResource(t *testing.T) {
	s := NewMemoryStatsStore()
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Event: domain.EventCacheHit, Resource: domain.ResourceCharacter})
	_ = s.Record(ctx, domain.StatsEvent{Event: domain.EventCacheHit, Resource: domain.ResourceCharacter})
	_ = s.Record(ctx, domain.StatsEvent{Event: domain.EventCacheMiss, Resource: domain.ResourceEpisode})
	_ = s.Record(ctx, domain.StatsEvent{Event: ""}) // ignorado

	if got := s.Total(domain.EventCacheHit); got != 2 {
		t.Fatalf("expected 2 hits, got %d", got)
	}
	if got := s.ByResource(domain.ResourceCharacter, domain.EventCacheHit); got != 2 {
		t.Fatalf("expected 2 character hits, got %d", got)
	}
	if got := s.ByResource(domain.ResourceEpisode, domain.EventCacheMiss); got != 1 {
		t.Fatalf("expected 1 episode miss, got %d", got)
	}
}

func TestMemoryStatsStore_ScopeTrackingIsOptIn(t *testing.T) {
	ctx := context.Background()

	off := NewMemoryStatsStore()
	_ = off.Record(ctx, domain.StatsEvent{Event: domain.EventDenied, Scope: domain.ClientScope("1.2.3.4")})
	if got := off.ByScope(domain.ClientScope("1.2.3.4"), domain.EventDenied); got != 0 {
		t.Fatalf("expected scope tracking off by default, got %d", got)
	}

	on := NewMemoryStatsStore(WithTrackScopes(true))
	_ = on.Record(ctx, domain.StatsEvent{Event: domain.EventDenied, Scope: domain.ClientScope("1.2.3.4")})
	if got := on.ByScope(domain.ClientScope("1.2.3.4"), domain.EventDenied); got != 1 {
		t.Fatalf("expected 1 denied for scope, got %d", got)
	}
}
