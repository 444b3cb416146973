package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"rickmorty-gateway/proxy"
	"rickmorty-gateway/proxy/application"
	"rickmorty-gateway/proxy/domain"
	"rickmorty-gateway/proxy/infra"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if _, err := url.Parse(cfg.upstreamURL); err != nil {
		log.Fatalf("invalid UPSTREAM_URL: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// cache: redis quando configurado; sem redis o serviço roda com cache em
	// memória (desenvolvimento); o contrato de fail-open vale nos dois casos.
	var cache domain.Cache
	var rdb *redis.Client
	if cfg.redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		pingCancel()
		if err != nil {
			// cache é best-effort: sobe degradado e loga, não derruba o boot
			log.Printf("redis ping error (cache will degrade to miss): %v", err)
		}

		cache = infra.NewRedisCache(rdb)
	} else {
		cache = infra.NewMemoryCache()
	}

	var statsStore domain.StatsStore
	if cfg.statsEnabled {
		if rdb == nil {
			log.Fatalf("STATS_ENABLED=true requires REDIS_ADDR")
		}
		statsStore = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackScopes(cfg.statsTrackScopes),
		)
	}

	pacer := infra.NewUpstreamPacer(cfg.upstreamQuota, cfg.upstreamWindow, cfg.upstreamMaxWait,
		infra.WithBurst(cfg.upstreamBurst))

	fetcher := &application.Fetcher{
		Upstream: infra.NewUpstream(cfg.upstreamURL, infra.WithTimeout(cfg.upstreamTimeout)),
		Pacer:    pacer,
		Policy: application.RetryPolicy{
			MaxAttempts: cfg.maxRetries,
			BaseDelay:   cfg.baseBackoff,
			MaxDelay:    cfg.maxBackoff,
		},
		Stats: statsStore,
	}
	if cfg.debugRetries {
		fetcher.Debugf = log.Printf
	}

	svc := &application.Service{
		Cache:  cache,
		Client: fetcher,
		TTL:    cfg.cacheTTL,
		Stats:  statsStore,
	}

	api := &proxy.API{
		Svc: svc,
		Exporter: &proxy.Exporter{
			Svc: svc,
			Dir: cfg.exportDir,
		},
	}

	store := infra.NewCallerStore(cfg.rateQuota, cfg.rateWindow)
	store.StartJanitor(ctx)

	h := http.Handler(api.Routes())
	h = proxy.Concurrency(proxy.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.concurrencyTimeout,
	})(h)
	if cfg.rateEnabled {
		h = proxy.RateLimit(proxy.RateLimitOptions{
			Store:               store,
			Stats:               statsStore,
			KeyHeader:           cfg.rateKeyHeader,
			TrustXForwardedFor:  cfg.trustXFF,
			RetryAfter:          cfg.retryAfter,
			AddRateLimitHeaders: cfg.addHeaders,
			ExemptPaths:         []string{"/health"},
		})(h)
	}
	h = proxy.SecurityHeaders(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("gateway listening on %s -> %s", cfg.listenAddr, cfg.upstreamURL)
	log.Printf("cache: redis=%q ttl=%s", cfg.redisAddr, cfg.cacheTTL)
	log.Printf("rate: enabled=%v quota=%d window=%s keyHeader=%q trustXFF=%v", cfg.rateEnabled, cfg.rateQuota, cfg.rateWindow, cfg.rateKeyHeader, cfg.trustXFF)
	log.Printf("upstream pace: quota=%d window=%s burst=%d maxWait=%s", cfg.upstreamQuota, cfg.upstreamWindow, cfg.upstreamBurst, cfg.upstreamMaxWait)
	log.Printf("retry: attempts=%d base=%s max=%s", cfg.maxRetries, cfg.baseBackoff, cfg.maxBackoff)
	log.Printf("concurrency: max=%d acquireTimeout=%s", cfg.concurrencyMax, cfg.concurrencyTimeout)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

type config struct {
	listenAddr      string
	upstreamURL     string
	upstreamTimeout time.Duration

	redisAddr     string
	redisPassword string
	redisDB       int
	cacheTTL      time.Duration

	rateEnabled   bool
	rateQuota     int
	rateWindow    time.Duration
	rateKeyHeader string
	trustXFF      bool
	retryAfter    time.Duration
	addHeaders    bool

	upstreamQuota   int
	upstreamWindow  time.Duration
	upstreamBurst   int
	upstreamMaxWait time.Duration

	maxRetries   int
	baseBackoff  time.Duration
	maxBackoff   time.Duration
	debugRetries bool

	concurrencyMax     int
	concurrencyTimeout time.Duration

	exportDir string

	statsEnabled     bool
	statsPrefix      string
	statsTTL         time.Duration
	statsBucket      string
	statsTrackScopes bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = getenvDefault("UPSTREAM_URL", "https://rickandmortyapi.com/api")
	cfg.upstreamTimeout = getenvDurationDefault("UPSTREAM_TIMEOUT", 10*time.Second)

	cfg.redisAddr = getenvDefault("REDIS_ADDR", "")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)
	cfg.cacheTTL = getenvDurationDefault("CACHE_TTL", 1*time.Hour)

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", true)
	cfg.rateQuota = getenvIntDefault("RATE_QUOTA", 30)
	cfg.rateWindow = getenvDurationDefault("RATE_WINDOW", 1*time.Minute)
	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", 1*time.Second)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)

	cfg.upstreamQuota = getenvIntDefault("UPSTREAM_QUOTA", 10)
	cfg.upstreamWindow = getenvDurationDefault("UPSTREAM_WINDOW", 1*time.Second)
	// IMPORTANTE: o burst do pacer permite uma rajada inicial. O padrão é a
	// cota inteira; com cota alta e upstream sensível, configure um burst
	// menor para suavizar a saída.
	cfg.upstreamBurst = getenvIntDefault("UPSTREAM_BURST", cfg.upstreamQuota)
	cfg.upstreamMaxWait = getenvDurationDefault("UPSTREAM_MAX_WAIT", 5*time.Second)

	cfg.maxRetries = getenvIntDefault("MAX_RETRIES", 3)
	cfg.baseBackoff = getenvDurationDefault("BASE_BACKOFF", 500*time.Millisecond)
	cfg.maxBackoff = getenvDurationDefault("MAX_BACKOFF", 30*time.Second)
	cfg.debugRetries = getenvBoolDefault("DEBUG_RETRIES", false)

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.exportDir = getenvDefault("EXPORT_DIR", "rickmorty_data")

	cfg.statsEnabled = getenvBoolDefault("STATS_ENABLED", false)
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "rm:stats")
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("STATS_BUCKET", "minute")
	cfg.statsTrackScopes = getenvBoolDefault("STATS_TRACK_SCOPES", false)

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.cacheTTL <= 0 {
		return config{}, errors.New("CACHE_TTL must be > 0")
	}
	if cfg.rateQuota <= 0 {
		return config{}, errors.New("RATE_QUOTA must be > 0")
	}
	if cfg.rateWindow <= 0 {
		return config{}, errors.New("RATE_WINDOW must be > 0")
	}
	if cfg.upstreamQuota <= 0 {
		return config{}, errors.New("UPSTREAM_QUOTA must be > 0")
	}
	if cfg.upstreamWindow <= 0 {
		return config{}, errors.New("UPSTREAM_WINDOW must be > 0")
	}
	if cfg.maxRetries <= 0 {
		return config{}, errors.New("MAX_RETRIES must be > 0")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if cfg.statsEnabled && cfg.redisAddr == "" {
		return config{}, errors.New("REDIS_ADDR is required when STATS_ENABLED=true")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
