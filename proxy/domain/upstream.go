package domain

import (
	"context"
	"encoding/json"
)

// UpstreamClient executa UMA tentativa física contra a API upstream.
// Retry, backoff e admissão de cota ficam na camada application.
//
// Erros retornados são *UpstreamError (classificáveis para retry) ou
// *Failure (permanentes, ex: NotFound confirmado pelo upstream).
type UpstreamClient interface {
	// FetchPage busca uma página de listagem com filtros.
	FetchPage(ctx context.Context, q Query) (*Page, error)

	// FetchByID busca um recurso individual.
	FetchByID(ctx context.Context, resource ResourceType, id int) (json.RawMessage, error)
}
