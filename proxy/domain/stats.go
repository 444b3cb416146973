package domain

import (
	"context"
	"time"
)

// StatsEvent registra um evento do ciclo de vida de um fetch.
//
// Observação: cuidado com cardinalidade, Scope carrega IP de chamador;
// implementações que persistem por chave devem aplicar TTL.
type StatsEvent struct {
	// Scope é o escopo de rate limit envolvido ("client:<ip>" ou
	// "upstream"), vazio quando o evento não é de admissão.
	Scope Key

	// Event: "allowed", "denied", "cache_hit", "cache_miss",
	// "upstream_retry", "upstream_failure".
	Event string

	// Resource é o recurso consultado, quando aplicável.
	Resource ResourceType

	At time.Time
}

// StatsStore persiste eventos de estatística. Implementações podem gravar em
// redis, memória etc. Quem registra trata erro como best-effort (nunca
// derruba a requisição).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// Nomes de evento usados pelo serviço.
const (
	EventAllowed         = "allowed"
	EventDenied          = "denied"
	EventCacheHit        = "cache_hit"
	EventCacheMiss       = "cache_miss"
	EventUpstreamRetry   = "upstream_retry"
	EventUpstreamFailure = "upstream_failure"
)
