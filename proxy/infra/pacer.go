package infra

import (
	"context"
	"time"

	"rickmorty-gateway/proxy/domain"

	"golang.org/x/time/rate"
)

// UpstreamPacer é a admissão do escopo upstream: um único token bucket
// compartilhado por todas as chamadas de saída do processo.
//
// Diferente do escopo por chamador, aqui o objetivo é ritmar, não negar:
// Admit segura o chamador até a cota liberar, limitado por maxWait. Estourado
// o tempo máximo, a chamada falha com KindRateLimited em vez de esperar
// indefinidamente.
type UpstreamPacer struct {
	lim     *rate.Limiter
	maxWait time.Duration
}

type PacerOption func(*UpstreamPacer)

// WithBurst ajusta a rajada permitida (padrão: a cota inteira).
func WithBurst(burst int) PacerOption {
	return func(p *UpstreamPacer) {
		if burst > 0 {
			p.lim.SetBurst(burst)
		}
	}
}

// NewUpstreamPacer cria o pacer com cota `quota` por `window` e espera máxima
// `maxWait` na admissão (0 = nunca espera, só admite o que está disponível).
func NewUpstreamPacer(quota int, window, maxWait time.Duration, opts ...PacerOption) *UpstreamPacer {
	p := &UpstreamPacer{
		lim:     rate.NewLimiter(rate.Limit(float64(quota)/window.Seconds()), quota),
		maxWait: maxWait,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Admit implementa domain.Pacer. O cancelamento do ctx do chamador
// interrompe só a espera dele; tokens já consumidos não são devolvidos.
func (p *UpstreamPacer) Admit(ctx context.Context) error {
	wctx := ctx
	if p.maxWait > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, p.maxWait)
		defer cancel()
	} else if p.lim.Allow() {
		return nil
	} else {
		return domain.RateLimited(p.retryHint())
	}

	if err := p.lim.Wait(wctx); err != nil {
		if ctx.Err() != nil {
			// cancelamento veio do chamador, não do teto de espera
			return ctx.Err()
		}
		return domain.RateLimited(p.retryHint())
	}
	return nil
}

// retryHint mede quanto falta para o próximo token liberar, para Retry-After.
// A reserva é cancelada na hora: só queremos o delay real, sem consumir cota.
func (p *UpstreamPacer) retryHint() time.Duration {
	r := p.lim.Reserve()
	if !r.OK() {
		return time.Second
	}
	d := r.Delay()
	r.Cancel()
	if d < time.Second {
		return time.Second
	}
	return d
}
