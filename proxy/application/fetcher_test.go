package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"rickmorty-gateway/proxy/domain"
)

// fakeUpstream devolve respostas roteirizadas, uma por tentativa física.
type fakeUpstream struct {
	calls   int
	results []fakeResult
}

type fakeResult struct {
	page *domain.Page
	err  error
}

func (u *fakeUpstream) FetchPage(ctx context.Context, q domain.Query) (*domain.Page, error) {
	r := u.results[u.calls]
	u.calls++
	return r.page, r.err
}

func (u *fakeUpstream) FetchByID(ctx context.Context, rt domain.ResourceType, id int) (json.RawMessage, error) {
	r := u.results[u.calls]
	u.calls++
	if r.err != nil {
		return nil, r.err
	}
	return json.RawMessage(`{}`), nil
}

type fakePacer struct {
	admits int
	err    error
}

func (p *fakePacer) Admit(ctx context.Context) error {
	p.admits++
	return p.err
}

func quickPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestFetcher_TransientTwiceThenSuccess(t *testing.T) {
	ok := &domain.Page{Info: domain.PageInfo{Count: 1}}
	up := &fakeUpstream{results: []fakeResult{
		{err: &domain.UpstreamError{Status: 0, Err: errors.New("timeout")}},
		{err: &domain.UpstreamError{Status: 503}},
		{page: ok},
	}}
	pacer := &fakePacer{}
	f := &Fetcher{Upstream: up, Pacer: pacer, Policy: quickPolicy()}

	p, err := f.FetchPage(context.Background(), domain.Query{Resource: domain.ResourceCharacter, Page: 1})
	if err != nil {
		t.Fatalf("expected success on attempt 3, got %v", err)
	}
	if p != ok {
		t.Fatalf("expected scripted page back")
	}
	if up.calls != 3 {
		t.Fatalf("expected exactly 3 outbound calls, got %d", up.calls)
	}
	// cada tentativa passa pela admissão do pacer
	if pacer.admits != 3 {
		t.Fatalf("expected 3 pacer admissions, got %d", pacer.admits)
	}
}

func TestFetcher_ExhaustionSurfacesUpstreamUnavailable(t *testing.T) {
	up := &fakeUpstream{results: []fakeResult{
		{err: &domain.UpstreamError{Status: 500}},
		{err: &domain.UpstreamError{Status: 500}},
		{err: &domain.UpstreamError{Status: 500}},
	}}
	f := &Fetcher{Upstream: up, Policy: quickPolicy()}

	_, err := f.FetchPage(context.Background(), domain.Query{Resource: domain.ResourceEpisode, Page: 1})
	if domain.KindOf(err) != domain.KindUpstreamUnavailable {
		t.Fatalf("expected KindUpstreamUnavailable, got %v", err)
	}
	if up.calls != 3 {
		t.Fatalf("expected no more than 3 outbound calls, got %d", up.calls)
	}
}

func TestFetcher_PermanentErrorShortCircuits(t *testing.T) {
	start := time.Now()
	up := &fakeUpstream{results: []fakeResult{
		{err: &domain.UpstreamError{Status: 200, Err: errors.New("malformed response")}},
	}}
	f := &Fetcher{Upstream: up, Policy: RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}}

	_, err := f.FetchPage(context.Background(), domain.Query{Resource: domain.ResourceCharacter, Page: 1})
	if domain.KindOf(err) != domain.KindUpstreamUnavailable {
		t.Fatalf("expected typed failure, got %v", err)
	}
	if up.calls != 1 {
		t.Fatalf("expected single attempt for permanent error, got %d", up.calls)
	}
	// sem atraso de retry (BaseDelay=1s detectaria um sleep indevido)
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("permanent error must not incur retry delay")
	}
}

func TestFetcher_TypedFailurePassesThroughUntouched(t *testing.T) {
	nf := domain.NotFound(domain.ResourceCharacter, 999)
	up := &fakeUpstream{results: []fakeResult{{err: nf}}}
	f := &Fetcher{Upstream: up, Policy: quickPolicy()}

	_, err := f.FetchPage(context.Background(), domain.Query{Resource: domain.ResourceCharacter, Page: 1})
	if !errors.Is(err, nf) {
		t.Fatalf("expected NotFound to pass through untouched, got %v", err)
	}
	if up.calls != 1 {
		t.Fatalf("expected no retry for NotFound, got %d calls", up.calls)
	}
}

func TestFetcher_PacerRejectionDoesNotConsumeAttempts(t *testing.T) {
	up := &fakeUpstream{results: []fakeResult{{page: &domain.Page{}}}}
	pacer := &fakePacer{err: domain.RateLimited(2 * time.Second)}
	f := &Fetcher{Upstream: up, Pacer: pacer, Policy: quickPolicy()}

	_, err := f.FetchPage(context.Background(), domain.Query{Resource: domain.ResourceCharacter, Page: 1})
	if domain.KindOf(err) != domain.KindRateLimited {
		t.Fatalf("expected KindRateLimited, got %v", err)
	}
	if up.calls != 0 {
		t.Fatalf("expected zero outbound calls after pacer rejection, got %d", up.calls)
	}
}

func TestFetcher_CancellationAbortsBackoffWait(t *testing.T) {
	up := &fakeUpstream{results: []fakeResult{
		{err: &domain.UpstreamError{Status: 500}},
		{err: &domain.UpstreamError{Status: 500}},
	}}
	f := &Fetcher{Upstream: up, Policy: RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.FetchPage(ctx, domain.Query{Resource: domain.ResourceCharacter, Page: 1})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond) // deixa entrar no backoff
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("cancellation did not abort the backoff wait")
	}
}
