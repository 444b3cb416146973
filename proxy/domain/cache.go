package domain

import (
	"context"
	"time"
)

// Cache é a visão chave-valor usada pelo orquestrador (cache-aside: quem
// busca no upstream em caso de miss é o orquestrador, nunca o cache).
//
// Contrato de fail-open: indisponibilidade do backing store degrada para
// miss/no-op, nunca vira erro para quem chama.
type Cache interface {
	// Get retorna (valor, true) em hit. Miss e erro de store retornam
	// (nil, false); Get nunca falha.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set grava com TTL, best-effort. Erros de store são absorvidos
	// (logados pela implementação).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// DeletePrefix remove todas as chaves com o prefixo dado e retorna
	// quantas foram removidas. Best-effort: em erro, retorna o que
	// conseguiu remover até ali.
	DeletePrefix(ctx context.Context, prefix string) int
}
