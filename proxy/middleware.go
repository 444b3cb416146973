package proxy

import (
	"net"
	"net/http"
	"strings"
	"time"

	"rickmorty-gateway/proxy/application"
	"rickmorty-gateway/proxy/domain"
)

// KeyFunc extrai a chave do chamador a partir da requisição.
type KeyFunc func(r *http.Request) string

// RateLimitOptions configura o middleware de admissão inbound.
type RateLimitOptions struct {
	Store               domain.LimiterStore
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	// ExemptPaths ficam de fora da admissão (ex: /health para probes).
	ExemptPaths []string
}

type quotaInfo interface {
	Quota() int
	Window() time.Duration
}

// DefaultKeyFunc resolve a identidade do chamador: header dedicado, primeiro
// IP do X-Forwarded-For (quando o proxy de borda é confiável) ou RemoteAddr.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				parts := strings.Split(xff, ",")
				if len(parts) > 0 {
					ip := strings.TrimSpace(parts[0])
					if ip != "" {
						return ip
					}
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// RateLimit devolve o middleware de admissão por chamador. A decisão é
// imediata: permitido segue adiante, bloqueado recebe 429 com Retry-After.
// A requisição de um chamador estourado nunca fica presa esperando token.
func RateLimit(opts RateLimitOptions) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}

	adm := application.Admission{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}

	exempt := make(map[string]bool, len(opts.ExemptPaths))
	for _, p := range opts.ExemptPaths {
		exempt[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := opts.KeyFn(r)
			scope := domain.ClientScope(key)

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				if qi, ok := opts.Store.(quotaInfo); ok {
					w.Header().Set("X-RateLimit-Limit", formatInt(qi.Quota()))
					w.Header().Set("X-RateLimit-Window", formatFloat(qi.Window().Seconds()))
				}
			}

			dec := adm.Decide(scope)
			if opts.Stats != nil {
				ev := domain.EventAllowed
				if !dec.Allowed {
					ev = domain.EventDenied
				}
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Scope: scope,
					Event: ev,
					At:    time.Now(),
				})
			}
			if !dec.Allowed {
				w.Header().Set("Retry-After", formatInt(int(dec.RetryAfter.Seconds())))
				writeFailure(w, domain.RateLimited(dec.RetryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
