package application

import (
	"time"

	"rickmorty-gateway/proxy/domain"
)

// Admission concentra a decisão inbound de rate limit por chamador.
//
// Ela não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão
// imediata: o escopo client:<ip> nunca segura o chamador.
type Admission struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

func (a Admission) Decide(key domain.Key) domain.Decision {
	if a.Store == nil {
		return domain.Decision{Allowed: true}
	}
	if a.RetryAfter <= 0 {
		a.RetryAfter = 1 * time.Second
	}

	lim := a.Store.Get(key)
	if lim == nil {
		return domain.Decision{Allowed: true}
	}
	if lim.Allow() {
		return domain.Decision{Allowed: true}
	}
	return domain.Decision{Allowed: false, RetryAfter: a.RetryAfter}
}
