package application

import (
	"context"
	"encoding/json"
	"time"

	"rickmorty-gateway/proxy/domain"
)

// Client é o que o orquestrador precisa do cliente resiliente.
type Client interface {
	FetchPage(ctx context.Context, q domain.Query) (*domain.Page, error)
	FetchByID(ctx context.Context, resource domain.ResourceType, id int) (json.RawMessage, error)
}

// Service é o orquestrador: ponto único de entrada da camada de rotas.
//
// Ciclo por chamada: CHECK_CACHE → hit: retorna | miss: DISPATCH (admissão e
// retry dentro do Client) → POPULATE_CACHE → retorna. Falha de despacho
// nunca popula o cache.
//
// Duas chamadas concorrentes para a mesma chave podem ambas despachar ao
// upstream (miss duplo). Trade-off aceito: a leitura é idempotente e a
// janela fecha na primeira população.
type Service struct {
	Cache  domain.Cache
	Client Client
	// TTL aplicado uniformemente a toda entrada criada.
	TTL time.Duration
	// Stats recebe hit/miss de cache, best-effort. Opcional.
	Stats domain.StatsStore
	// MaxPages trava o FetchAll contra paginação defeituosa do upstream.
	// Zero usa o padrão (MaxPage).
	MaxPages int
}

// Fetch retorna uma página de listagem, servida do cache quando possível.
func (s *Service) Fetch(ctx context.Context, resource domain.ResourceType, filters domain.Filters, page int) (*domain.Page, error) {
	q, err := NormalizeQuery(resource, filters, page)
	if err != nil {
		return nil, err
	}

	key := domain.QueryKey(q)
	if b, ok := s.cacheGet(ctx, key); ok {
		var p domain.Page
		if jsonErr := json.Unmarshal(b, &p); jsonErr == nil {
			s.record(ctx, domain.EventCacheHit, q.Resource)
			return &p, nil
		}
		// entrada ilegível vira miss; a população a seguir sobrescreve
	}
	s.record(ctx, domain.EventCacheMiss, q.Resource)

	p, err := s.Client.FetchPage(ctx, q)
	if err != nil {
		return nil, err
	}

	if b, jsonErr := json.Marshal(p); jsonErr == nil {
		s.cacheSet(ctx, key, b)
	}
	return p, nil
}

// FetchByID retorna um recurso individual, servido do cache quando possível.
func (s *Service) FetchByID(ctx context.Context, resource domain.ResourceType, id int) (json.RawMessage, error) {
	rt, ok := domain.ParseResourceType(string(resource))
	if !ok {
		return nil, domain.InvalidParams("unknown resource type")
	}
	if id <= 0 {
		return nil, domain.InvalidParams("id must be a positive integer")
	}

	key := domain.IDKey(rt, id)
	if b, ok := s.cacheGet(ctx, key); ok {
		s.record(ctx, domain.EventCacheHit, rt)
		return json.RawMessage(b), nil
	}
	s.record(ctx, domain.EventCacheMiss, rt)

	raw, err := s.Client.FetchByID(ctx, rt, id)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, raw)
	return raw, nil
}

// FetchAll agrega todas as páginas de uma consulta seguindo a paginação do
// upstream. Qualquer falha de página aborta a agregação inteira: resultado
// parcial nunca é devolvido como completo.
//
// Exceção herdada do comportamento do serviço original: NotFound na primeira
// página significa "consulta sem resultados" e devolve agregado vazio.
func (s *Service) FetchAll(ctx context.Context, resource domain.ResourceType, filters domain.Filters) (*domain.Page, error) {
	maxPages := s.MaxPages
	if maxPages <= 0 {
		maxPages = MaxPage
	}

	out := &domain.Page{Results: []json.RawMessage{}}
	for page := 1; ; page++ {
		p, err := s.Fetch(ctx, resource, filters, page)
		if err != nil {
			if page == 1 && domain.KindOf(err) == domain.KindNotFound {
				return out, nil
			}
			return nil, err
		}

		out.Results = append(out.Results, p.Results...)
		out.Info.Pages = page
		out.Info.Count = len(out.Results)

		if !p.HasNext() {
			return out, nil
		}
		if page >= maxPages {
			return nil, domain.UpstreamUnavailable("upstream pagination did not converge")
		}
	}
}

// Invalidate remove as entradas de cache de um recurso (ou de todos, com
// recurso vazio) e retorna quantas foram removidas.
func (s *Service) Invalidate(ctx context.Context, resource domain.ResourceType) (int, error) {
	if resource != "" {
		if _, ok := domain.ParseResourceType(string(resource)); !ok {
			return 0, domain.InvalidParams("unknown resource type")
		}
	}
	if s.Cache == nil {
		return 0, nil
	}
	return s.Cache.DeletePrefix(ctx, domain.ResourcePrefix(resource)), nil
}

func (s *Service) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if s.Cache == nil {
		return nil, false
	}
	return s.Cache.Get(ctx, key)
}

func (s *Service) cacheSet(ctx context.Context, key string, value []byte) {
	if s.Cache == nil {
		return
	}
	s.Cache.Set(ctx, key, value, s.TTL)
}

func (s *Service) record(ctx context.Context, event string, resource domain.ResourceType) {
	if s.Stats == nil {
		return
	}
	_ = s.Stats.Record(ctx, domain.StatsEvent{
		Event:    event,
		Resource: resource,
		At:       time.Now(),
	})
}
