package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dharmasatrya/flightscout/internal/aggregator"
	"github.com/dharmasatrya/flightscout/internal/auth"
	"github.com/dharmasatrya/flightscout/internal/cache"
	"github.com/dharmasatrya/flightscout/internal/config"
	"github.com/dharmasatrya/flightscout/internal/criteria"
	"github.com/dharmasatrya/flightscout/internal/handler"
	"github.com/dharmasatrya/flightscout/internal/history"
	"github.com/dharmasatrya/flightscout/internal/lookup"
	"github.com/dharmasatrya/flightscout/internal/providers"
	"github.com/dharmasatrya/flightscout/internal/ratelimit"
	"github.com/dharmasatrya/flightscout/internal/store"
	"github.com/dharmasatrya/flightscout/internal/userdata"
	"github.com/dharmasatrya/flightscout/pkg/logger"
)

const (
	shutdownTimeout   = 10 * time.Second
	lookupIdleTimeout = 15 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(context.Background(), "server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return err
	}
	log := logger.Named("server")

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	log.Info(ctx, "store ready", logger.String("driver", cfg.StoreDriver))

	providerList, err := initializeProviders(cfg)
	if err != nil {
		return fmt.Errorf("initialize providers: %w", err)
	}
	log.Info(ctx, "providers initialized", logger.Any("providers", cfg.ProviderNames()))

	rateLimiter := ratelimit.NewProviderLimiter(ratelimit.Limit{
		RequestsPerSecond: cfg.ProviderRPS,
		Burst:             cfg.ProviderBurst,
	})
	overrides, err := cfg.RateOverrides()
	if err != nil {
		return err
	}
	for name, o := range overrides {
		rateLimiter.Set(name, ratelimit.Limit{RequestsPerSecond: o.RequestsPerSecond, Burst: o.Burst})
	}
	agg := aggregator.NewAggregator(providerList, aggregator.Config{
		Timeout:     cfg.ProviderTimeout,
		MaxRetries:  cfg.ProviderRetries,
		RetryDelays: cfg.RetryDelays(),
		RateLimiter: rateLimiter,
	})

	resultCache, err := initializeCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer resultCache.Close()

	engine := history.NewEngine(st, history.WithLimit(cfg.HistoryLimit))
	locations := handler.NewLocationService(agg, resultCache, cfg.LookupMinLength)
	registry := lookup.NewRegistry(locations.Search,
		lookup.WithWait(cfg.LookupDebounce),
		lookup.WithMinLength(cfg.LookupMinLength),
	)
	defer registry.Close()
	go pruneLookups(ctx, registry)

	defaults := criteria.Defaults{
		SortBy:      criteria.DefaultDefaults().SortBy,
		Currency:    cfg.Currency,
		Market:      cfg.Market,
		CountryCode: cfg.CountryCode,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(handler.RequestLogger(logger.Named("http")))
	e.Use(handler.Metrics())

	handler.Handlers{
		Search:    handler.NewSearchHandler(agg, resultCache, engine, defaults),
		Locations: handler.NewLocationHandler(locations),
		Lookup:    handler.NewLookupHandler(registry),
		UserData:  handler.NewUserDataHandler(engine, userdata.NewService(st, st)),
		Health:    handler.NewHealthHandler(st),
	}.Register(e, auth.New(cfg.JWTSecret))

	if cfg.JWTSecret == "" {
		log.Warn(ctx, "jwt_secret not set; trusting X-User-ID header")
	}

	e.Server.BaseContext = func(net.Listener) context.Context { return ctx }
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting flightscout server", logger.String("addr", cfg.Addr))
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func initializeProviders(cfg *config.Config) ([]providers.Provider, error) {
	var providerList []providers.Provider

	for _, name := range cfg.ProviderNames() {
		switch name {
		case providers.DemoName:
			demo, err := providers.NewDemoProvider(0)
			if err != nil {
				return nil, err
			}
			providerList = append(providerList, demo)
		case providers.SkyScrapperName:
			providerList = append(providerList, providers.NewSkyScrapperProvider(providers.SkyScrapperConfig{
				BaseURL: cfg.RapidAPIBaseURL,
				APIKey:  cfg.RapidAPIKey,
				Host:    cfg.RapidAPIHost,
				Locale:  cfg.Market,
				Client:  &http.Client{Timeout: cfg.ProviderTimeout},
			}))
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}

	return providerList, nil
}

func initializeCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if !cfg.CacheEnabled {
		logger.Named("server").Info(ctx, "cache disabled")
		return cache.NewNoOpCache(), nil
	}

	redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.CacheTTL,
	})
	if err != nil {
		return nil, err
	}
	logger.Named("server").Info(ctx, "redis cache enabled",
		logger.String("host", cfg.RedisHost),
		logger.String("port", cfg.RedisPort),
		logger.String("ttl", cfg.CacheTTL.String()),
	)
	return redisCache, nil
}

// pruneLookups drops debouncers for sessions that went quiet.
func pruneLookups(ctx context.Context, registry *lookup.Registry) {
	ticker := time.NewTicker(lookupIdleTimeout / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := registry.Prune(lookupIdleTimeout); n > 0 {
				logger.Named("lookup").Debug(ctx, "pruned idle sessions", logger.Int("count", n))
			}
		}
	}
}
