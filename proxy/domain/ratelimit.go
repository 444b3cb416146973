package domain

// Camada de domínio do rate limit.
//
// Dois escopos convivem no serviço:
//   - client:<ip>  protege o serviço de chamadores abusivos; decisão
//     imediata (allow/deny), nunca bloqueia.
//   - upstream     protege a relação com a API terceira; a admissão pode
//     segurar o chamador até um tempo máximo configurado.

import (
	"context"
	"time"
)

type Key string

// ClientScope monta a chave de escopo de um chamador.
func ClientScope(ip string) Key { return Key("client:" + ip) }

// Limiter decide se uma ação é permitida agora. A implementação pode ser
// token-bucket, janela deslizante etc (infra usa golang.org/x/time/rate).
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por escopo. Escopos são criados sob demanda
// na primeira utilização e vivem enquanto o processo viver (a infra pode
// expirar escopos ociosos para conter memória).
type LimiterStore interface {
	Get(Key) Limiter
}

// Decision é o resultado da admissão inbound.
type Decision struct {
	Allowed bool
	// RetryAfter é o valor sugerido para o header Retry-After ao bloquear.
	RetryAfter time.Duration
}

// Pacer é a admissão do escopo upstream. Admit pode bloquear até o tempo
// máximo configurado; estourado esse tempo (ou a cota), retorna uma Failure
// com KindRateLimited. Cancelamento do ctx interrompe só a espera do chamador.
type Pacer interface {
	Admit(ctx context.Context) error
}
