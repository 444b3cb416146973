package domain

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifica as falhas que o orquestrador devolve ao chamador.
// Cada Kind mapeia para exatamente um status HTTP na camada de rotas.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindInvalidParams
	KindRateLimited
	KindUpstreamUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidParams:
		return "invalid_params"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	}
	return "unknown"
}

// Failure é a falha tipada do domínio. A mensagem é pensada para o cliente
// final: nada de erro cru do upstream ou detalhe interno.
type Failure struct {
	Kind    Kind
	Message string
	// RetryAfter é a recomendação para Retry-After quando Kind é
	// KindRateLimited. Zero significa sem recomendação.
	RetryAfter time.Duration
}

func (f *Failure) Error() string { return f.Message }

// NotFound constrói a falha de recurso ausente confirmada pelo upstream.
func NotFound(resource ResourceType, id int) *Failure {
	msg := fmt.Sprintf("%s not found", resource)
	if id > 0 {
		msg = fmt.Sprintf("%s with ID %d not found", resource, id)
	}
	return &Failure{Kind: KindNotFound, Message: msg}
}

// InvalidParams constrói a falha de validação local (nenhuma chamada ao
// upstream aconteceu).
func InvalidParams(msg string) *Failure {
	return &Failure{Kind: KindInvalidParams, Message: msg}
}

// RateLimited constrói a falha de cota estourada (inbound ou outbound).
func RateLimited(retryAfter time.Duration) *Failure {
	return &Failure{
		Kind:       KindRateLimited,
		Message:    "rate limit exceeded",
		RetryAfter: retryAfter,
	}
}

// UpstreamUnavailable cobre tanto esgotamento de retries em erro transiente
// quanto resposta permanente inutilizável do upstream.
func UpstreamUnavailable(msg string) *Failure {
	if msg == "" {
		msg = "upstream unavailable"
	}
	return &Failure{Kind: KindUpstreamUnavailable, Message: msg}
}

// KindOf extrai o Kind de um erro qualquer. Retorna 0 se o erro não carrega
// uma Failure na cadeia.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}

// UpstreamError é o resultado classificado de UMA tentativa física contra o
// upstream. A camada application decide entre retry e desistência a partir
// de Transient(); quem desiste converte para Failure.
type UpstreamError struct {
	// Status é o código HTTP observado. Zero indica erro de rede/timeout
	// (nenhuma resposta chegou).
	Status int
	// RetryAfter vem do header Retry-After em respostas 429, quando presente.
	RetryAfter time.Duration
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("upstream status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream status %d", e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Transient informa se vale a pena tentar de novo: erro de rede, 5xx e 429.
// Qualquer outro status (incluindo 200 com corpo malformado) é permanente.
func (e *UpstreamError) Transient() bool {
	return e.Status == 0 || e.Status == 429 || e.Status >= 500
}
