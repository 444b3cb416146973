package application

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"rickmorty-gateway/proxy/domain"
)

// Fetcher executa um fetch lógico contra o upstream: admissão no pacer a
// cada tentativa, uma chamada física, classificação do resultado e backoff.
//
// Rejeição do pacer NÃO consome tentativa: ela vira KindRateLimited na hora,
// sem tocar o orçamento de retry.
type Fetcher struct {
	Upstream domain.UpstreamClient
	// Pacer é a admissão do escopo upstream. Opcional: nil desliga o pacing
	// (útil em testes).
	Pacer  domain.Pacer
	Policy RetryPolicy
	// Stats recebe eventos de retry/falha, best-effort. Opcional.
	Stats domain.StatsStore
	// Debugf, se definido, recebe os logs de decisão de retry.
	Debugf func(format string, args ...any)
}

// FetchPage busca uma página de listagem, com retry interno.
func (f *Fetcher) FetchPage(ctx context.Context, q domain.Query) (*domain.Page, error) {
	return fetchWithRetry(ctx, f, q.Resource, func(ctx context.Context) (*domain.Page, error) {
		return f.Upstream.FetchPage(ctx, q)
	})
}

// FetchByID busca um recurso individual, com retry interno.
func (f *Fetcher) FetchByID(ctx context.Context, resource domain.ResourceType, id int) (json.RawMessage, error) {
	return fetchWithRetry(ctx, f, resource, func(ctx context.Context) (json.RawMessage, error) {
		return f.Upstream.FetchByID(ctx, resource, id)
	})
}

func fetchWithRetry[T any](ctx context.Context, f *Fetcher, resource domain.ResourceType, op func(context.Context) (T, error)) (T, error) {
	var zero T

	state := f.Policy.NewState()
	for {
		if f.Pacer != nil {
			if err := f.Pacer.Admit(ctx); err != nil {
				return zero, err
			}
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		var ue *domain.UpstreamError
		if !errors.As(err, &ue) {
			// falha já tipada pelo cliente (ex: NotFound), permanente.
			return zero, err
		}

		delay, retry := state.Next(ue)
		if !retry {
			f.record(ctx, domain.EventUpstreamFailure, resource)
			if state.Exhausted() {
				return zero, domain.UpstreamUnavailable("upstream unavailable, retries exhausted")
			}
			return zero, domain.UpstreamUnavailable("upstream returned an unusable response")
		}

		f.debugf("upstream retry for %s in %s (attempt %d, status %d)", resource, delay, state.Attempt, ue.Status)
		f.record(ctx, domain.EventUpstreamRetry, resource)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (f *Fetcher) record(ctx context.Context, event string, resource domain.ResourceType) {
	if f.Stats == nil {
		return
	}
	_ = f.Stats.Record(ctx, domain.StatsEvent{
		Scope:    domain.Key("upstream"),
		Event:    event,
		Resource: resource,
		At:       time.Now(),
	})
}

func (f *Fetcher) debugf(format string, args ...any) {
	if f.Debugf != nil {
		f.Debugf(format, args...)
	}
}
