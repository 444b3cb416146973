package infra

import (
	"testing"
	"time"

	"rickmorty-gateway/proxy/domain"
)

func TestCallerStore_GetSameScopeReturnsSameLimiter(t *testing.T) {
	s := NewCallerStore(30, time.Minute)

	l1 := s.Get(domain.ClientScope("10.0.0.1"))
	l2 := s.Get(domain.ClientScope("10.0.0.1"))
	if l1 != l2 {
		t.Fatalf("expected same limiter pointer for same scope")
	}
}

func TestCallerStore_ScopesAreIsolated(t *testing.T) {
	// janela longa: sem refil relevante durante o teste
	s := NewCallerStore(1, time.Hour)

	if !s.Get(domain.ClientScope("10.0.0.1")).Allow() {
		t.Fatalf("expected first caller to be admitted")
	}
	// esgotar um escopo não consome o orçamento do outro
	if !s.Get(domain.ClientScope("10.0.0.2")).Allow() {
		t.Fatalf("expected second caller unaffected by first caller's quota")
	}
	if s.Get(domain.ClientScope("10.0.0.1")).Allow() {
		t.Fatalf("expected first caller to be over quota")
	}
}

func TestCallerStore_QuotaBoundaryWithinWindow(t *testing.T) {
	const quota = 5
	s := NewCallerStore(quota, time.Hour)

	lim := s.Get(domain.ClientScope("10.0.0.1"))
	for i := 0; i < quota; i++ {
		if !lim.Allow() {
			t.Fatalf("expected admission %d of %d", i+1, quota)
		}
	}
	if lim.Allow() {
		t.Fatalf("expected admission %d to be rejected within the window", quota+1)
	}
}

func TestCallerStore_WindowRolloverReadmits(t *testing.T) {
	// cota 1 por 50ms: depois da janela rolar, admite de novo
	s := NewCallerStore(1, 50*time.Millisecond)

	lim := s.Get(domain.ClientScope("10.0.0.1"))
	if !lim.Allow() {
		t.Fatalf("expected first admission")
	}
	if lim.Allow() {
		t.Fatalf("expected rejection within the window")
	}

	time.Sleep(60 * time.Millisecond)
	if !lim.Allow() {
		t.Fatalf("expected admission after window rollover")
	}
}

func TestCallerStore_CleanupRemovesIdleScopes(t *testing.T) {
	s := NewCallerStore(30, time.Minute, WithIdleTTL(2*time.Millisecond), WithCleanupEvery(0))

	before := s.Get(domain.ClientScope("10.0.0.1"))
	time.Sleep(4 * time.Millisecond)

	s.Cleanup()

	after := s.Get(domain.ClientScope("10.0.0.1"))
	if before == after {
		t.Fatalf("expected limiter to be recreated after cleanup")
	}
}
