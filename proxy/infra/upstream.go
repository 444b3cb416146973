package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rickmorty-gateway/proxy/domain"
)

// Limite de leitura do corpo de resposta do upstream.
const maxResponseBytes = 10 << 20

// Upstream é o cliente HTTP da API terceira. Executa UMA tentativa física
// por chamada e classifica o resultado; retry/backoff/admissão ficam na
// camada application.
//
// As conexões são agrupadas e reutilizadas entre chamadas (pool no
// http.Transport compartilhado); nunca uma conexão nova por requisição.
type Upstream struct {
	baseURL string
	httpc   *http.Client
}

type UpstreamOption func(*Upstream)

// WithHTTPClient troca o cliente HTTP (testes injetam o do httptest).
func WithHTTPClient(httpc *http.Client) UpstreamOption {
	return func(u *Upstream) { u.httpc = httpc }
}

// WithTimeout ajusta o timeout por requisição do cliente padrão.
func WithTimeout(d time.Duration) UpstreamOption {
	return func(u *Upstream) { u.httpc.Timeout = d }
}

func NewUpstream(baseURL string, opts ...UpstreamOption) *Upstream {
	u := &Upstream{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// FetchPage implementa domain.UpstreamClient.
func (u *Upstream) FetchPage(ctx context.Context, q domain.Query) (*domain.Page, error) {
	vals := url.Values{}
	for k, v := range q.Filters {
		vals.Set(k, v)
	}
	vals.Set("page", strconv.Itoa(q.Page))

	body, err := u.get(ctx, string(q.Resource)+"?"+vals.Encode(), q.Resource, 0)
	if err != nil {
		return nil, err
	}

	var page domain.Page
	if jsonErr := json.Unmarshal(body, &page); jsonErr != nil {
		return nil, &domain.UpstreamError{Status: http.StatusOK, Err: fmt.Errorf("malformed response: %w", jsonErr)}
	}
	if page.Results == nil {
		// resposta 200 sem o array de results é inutilizável
		return nil, &domain.UpstreamError{Status: http.StatusOK, Err: errors.New("malformed response: missing results")}
	}
	return &page, nil
}

// FetchByID implementa domain.UpstreamClient.
func (u *Upstream) FetchByID(ctx context.Context, resource domain.ResourceType, id int) (json.RawMessage, error) {
	body, err := u.get(ctx, string(resource)+"/"+strconv.Itoa(id), resource, id)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &domain.UpstreamError{Status: http.StatusOK, Err: errors.New("malformed response: invalid json")}
	}
	return json.RawMessage(body), nil
}

// get executa o GET e devolve o corpo de um 200, ou o erro já classificado.
func (u *Upstream) get(ctx context.Context, endpoint string, resource domain.ResourceType, id int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/"+endpoint, nil)
	if err != nil {
		return nil, &domain.UpstreamError{Status: 0, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.httpc.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Status: 0, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &domain.UpstreamError{
			Status:     resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}

	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, domain.NotFound(resource, id)

	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &domain.UpstreamError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.UpstreamError{Status: 0, Err: err}
	}
	return body, nil
}

// parseRetryAfter aceita segundos (forma comum) ou HTTP-date (RFC 7231).
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
