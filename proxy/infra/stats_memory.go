package infra

import (
	"context"
	"sync"

	"rickmorty-gateway/proxy/domain"
)

// MemoryStatsStore é uma implementação simples de domain.StatsStore em
// memória. Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicada para produção.
type MemoryStatsStore struct {
	mu         sync.Mutex
	total      map[string]int64
	byResource map[domain.ResourceType]map[string]int64
	byScope    map[domain.Key]map[string]int64

	trackScopes bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackScopes(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackScopes = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total:      make(map[string]int64),
		byResource: make(map[domain.ResourceType]map[string]int64),
		byScope:    make(map[domain.Key]map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	if ev.Event == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Event]++

	if ev.Resource != "" {
		m := s.byResource[ev.Resource]
		if m == nil {
			m = make(map[string]int64)
			s.byResource[ev.Resource] = m
		}
		m[ev.Event]++
	}

	if s.trackScopes && ev.Scope != "" {
		m := s.byScope[ev.Scope]
		if m == nil {
			m = make(map[string]int64)
			s.byScope[ev.Scope] = m
		}
		m[ev.Event]++
	}
	return nil
}

// Total retorna a contagem acumulada de um evento.
func (s *MemoryStatsStore) Total(event string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total[event]
}

// ByResource retorna a contagem de um evento para um recurso.
func (s *MemoryStatsStore) ByResource(rt domain.ResourceType, event string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byResource[rt][event]
}

// ByScope retorna a contagem de um evento para um escopo.
func (s *MemoryStatsStore) ByScope(scope domain.Key, event string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byScope[scope][event]
}
