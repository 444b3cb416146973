package application

import (
	"math/rand/v2"
	"time"

	"rickmorty-gateway/proxy/domain"
)

// RetryPolicy parametriza o backoff do cliente resiliente.
//
// delay(tentativa) = BaseDelay * 2^(tentativa-1), com teto em MaxDelay e
// jitter de ±50% para evitar tempestades de retry sincronizadas entre
// chamadas concorrentes.
type RetryPolicy struct {
	// MaxAttempts é o total de tentativas (incluindo a primeira). Padrão: 3.
	MaxAttempts int
	// BaseDelay é o atraso antes do primeiro retry. Padrão: 500ms.
	BaseDelay time.Duration
	// MaxDelay é o teto de qualquer atraso. Padrão: 30s.
	MaxDelay time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	return p
}

// Delay calcula o atraso antes da próxima tentativa. Um atraso anunciado
// pelo upstream (Retry-After em 429) tem prioridade sobre a agenda
// exponencial e é usado sem jitter, respeitando o teto.
func (p RetryPolicy) Delay(attempt int, advertised time.Duration) time.Duration {
	p = p.withDefaults()

	if advertised > 0 {
		if advertised > p.MaxDelay {
			return p.MaxDelay
		}
		return advertised
	}

	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay || d <= 0 {
			d = p.MaxDelay
			break
		}
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return jitter(d)
}

// jitter aplica um fator uniforme em [0.5, 1.5).
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	f := 0.5 + rand.Float64()
	return time.Duration(float64(d) * f)
}

// NewState inicia o estado de retry de uma chamada lógica.
func (p RetryPolicy) NewState() *RetryState {
	return &RetryState{Attempt: 1, policy: p.withDefaults()}
}

// RetryState é o estado transiente de UMA chamada lógica em andamento:
// tentativa corrente, última classificação e próximo atraso. Nunca é
// compartilhado entre chamadas.
type RetryState struct {
	// Attempt é a tentativa corrente (1-based).
	Attempt int
	// Last é o último erro de tentativa observado.
	Last *domain.UpstreamError

	policy RetryPolicy
}

// Next registra o erro da tentativa corrente e decide o próximo passo.
// Retorna (atraso, true) quando cabe retry; (0, false) quando o erro é
// permanente ou o orçamento de tentativas acabou.
func (s *RetryState) Next(err *domain.UpstreamError) (time.Duration, bool) {
	s.Last = err

	if !err.Transient() {
		return 0, false
	}
	if s.Attempt >= s.policy.MaxAttempts {
		return 0, false
	}

	d := s.policy.Delay(s.Attempt, err.RetryAfter)
	s.Attempt++
	return d, true
}

// Exhausted informa se a última decisão parou por orçamento (e não por erro
// permanente).
func (s *RetryState) Exhausted() bool {
	return s.Last != nil && s.Last.Transient() && s.Attempt >= s.policy.MaxAttempts
}
