package infra

import (
	"sync"
	"time"

	"rickmorty-gateway/proxy/domain"

	"golang.org/x/time/rate"
)

// CallerStore é o registro processo-wide de limiters por escopo de chamador
// (client:<ip>). Cota expressa como N operações por janela; cada escopo é um
// token bucket independente (tráfego de um escopo nunca consome o orçamento
// de outro), criado na primeira utilização e expirado após ociosidade.
type CallerStore struct {
	mu           sync.Mutex
	entries      map[string]*callerEntry
	rps          rate.Limit
	burst        int
	quota        int
	window       time.Duration
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type callerEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type CallerStoreOption func(*CallerStore)

func WithIdleTTL(d time.Duration) CallerStoreOption {
	return func(s *CallerStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) CallerStoreOption {
	return func(s *CallerStore) { s.cleanupEvery = d }
}

// NewCallerStore cria o registro com cota `quota` por `window`.
// O burst equivale à cota: um chamador novo consegue a janela inteira de uma
// vez, e o refil repõe na taxa quota/janela.
func NewCallerStore(quota int, window time.Duration, opts ...CallerStoreOption) *CallerStore {
	s := &CallerStore{
		entries:      make(map[string]*callerEntry),
		rps:          rate.Limit(float64(quota) / window.Seconds()),
		burst:        quota,
		quota:        quota,
		window:       window,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CallerStore) Quota() int            { return s.quota }
func (s *CallerStore) Window() time.Duration { return s.window }

// Get implementa domain.LimiterStore.
func (s *CallerStore) Get(key domain.Key) domain.Limiter {
	return s.GetString(string(key))
}

func (s *CallerStore) GetString(key string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &callerEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup remove escopos sem atividade recente (contém o crescimento do
// registro; o estado de um escopo removido renasce zerado no próximo uso).
func (s *CallerStore) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa escopos ociosos periodicamente.
// Pare cancelando o contexto.
func (s *CallerStore) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar
// context aqui. (Permite reuso em libs sem acoplar.)
type DoneContext interface {
	Done() <-chan struct{}
}
