package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"rickmorty-gateway/proxy/application"
	"rickmorty-gateway/proxy/domain"
)

// API agrupa os handlers HTTP do serviço em torno do orquestrador.
type API struct {
	Svc *application.Service
	// Exporter habilita GET /download/all quando presente.
	Exporter *Exporter
	// ExportTimeout limita o export em background. Zero usa o padrão (10min).
	ExportTimeout time.Duration
	// Logf para eventos fora do ciclo requisição/resposta. Default log.Printf.
	Logf func(format string, args ...any)
}

// rotas plurais expostas pelo serviço → recurso do upstream.
var routeResources = map[string]domain.ResourceType{
	"characters": domain.ResourceCharacter,
	"locations":  domain.ResourceLocation,
	"episodes":   domain.ResourceEpisode,
}

// Routes monta o mux com todas as rotas do serviço.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	for route, rt := range routeResources {
		mux.HandleFunc("GET /"+route, a.handleList(rt))
		mux.HandleFunc("GET /"+route+"/{id}", a.handleByID(rt))
	}

	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /cache/clear", a.handleCacheClear)
	if a.Exporter != nil {
		mux.HandleFunc("GET /download/all", a.handleDownloadAll)
	}

	return mux
}

func (a *API) handleList(rt domain.ResourceType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		page := 1
		if raw := q.Get("page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeFailure(w, domain.InvalidParams("page must be a positive integer"))
				return
			}
			page = n
		}

		filters := domain.Filters{}
		for _, name := range application.AllowedFilters(rt) {
			if v := q.Get(name); v != "" {
				filters[name] = v
			}
		}

		p, err := a.Svc.Fetch(r.Context(), rt, filters, page)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (a *API) handleByID(rt domain.ResourceType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			writeFailure(w, domain.InvalidParams("id must be a positive integer"))
			return
		}

		raw, err := a.Svc.FetchByID(r.Context(), rt, id)
		if err != nil {
			writeFailure(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCacheClear invalida as entradas de um recurso (?resource=character)
// ou de todos, sem parâmetro. Responde quantas entradas foram removidas.
func (a *API) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	resource := domain.ResourceType(r.URL.Query().Get("resource"))

	n, err := a.Svc.Invalidate(r.Context(), resource)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "cache cleared",
		"removed": n,
	})
}

// handleDownloadAll dispara o export completo em background e responde 202
// imediatamente. O export herda um contexto próprio (não o da requisição,
// que morre na resposta).
func (a *API) handleDownloadAll(w http.ResponseWriter, r *http.Request) {
	logf := a.Logf
	if logf == nil {
		logf = log.Printf
	}
	timeout := a.ExportTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := a.Exporter.Run(ctx); err != nil {
			logf("export failed: %v", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"message": "export started",
		"dir":     a.Exporter.Dir,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeFailure traduz uma falha tipada do domínio em status + corpo JSON
// estável. Erros fora da taxonomia viram 500 com mensagem genérica (nunca
// vaza detalhe interno).
func writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var f *domain.Failure
	if errors.As(err, &f) {
		message = f.Message
		switch f.Kind {
		case domain.KindNotFound:
			status = http.StatusNotFound
		case domain.KindInvalidParams:
			status = http.StatusBadRequest
		case domain.KindRateLimited:
			status = http.StatusTooManyRequests
			if f.RetryAfter > 0 {
				secs := int(f.RetryAfter.Seconds())
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", formatInt(secs))
			}
		case domain.KindUpstreamUnavailable:
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, map[string]any{
		"error":  message,
		"status": status,
	})
}
