package application

import (
	"testing"
	"time"

	"rickmorty-gateway/proxy/domain"
)

type fakeLimiter struct {
	allow bool
}

func (f fakeLimiter) Allow() bool { return f.allow }

type fakeStore struct {
	lim domain.Limiter
}

func (s fakeStore) Get(domain.Key) domain.Limiter { return s.lim }

func TestAdmission_AllowsWhenNoStore(t *testing.T) {
	a := Admission{}
	dec := a.Decide(domain.ClientScope("10.0.0.1"))
	if !dec.Allowed {
		t.Fatalf("expected allowed")
	}
	if dec.RetryAfter != 0 {
		t.Fatalf("expected RetryAfter=0 when allowed, got %s", dec.RetryAfter)
	}
}

func TestAdmission_AllowsWhenLimiterAllows(t *testing.T) {
	a := Admission{Store: fakeStore{lim: fakeLimiter{allow: true}}, RetryAfter: 5 * time.Second}
	if dec := a.Decide("client:k"); !dec.Allowed {
		t.Fatalf("expected allowed")
	}
}

func TestAdmission_BlocksWithRetryAfterDefault(t *testing.T) {
	a := Admission{Store: fakeStore{lim: fakeLimiter{allow: false}}}
	dec := a.Decide("client:k")
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.RetryAfter != 1*time.Second {
		t.Fatalf("expected default RetryAfter=1s, got %s", dec.RetryAfter)
	}
}

func TestAdmission_BlocksWithConfiguredRetryAfter(t *testing.T) {
	a := Admission{Store: fakeStore{lim: fakeLimiter{allow: false}}, RetryAfter: 2500 * time.Millisecond}
	dec := a.Decide("client:k")
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.RetryAfter != 2500*time.Millisecond {
		t.Fatalf("expected RetryAfter=2.5s, got %s", dec.RetryAfter)
	}
}
