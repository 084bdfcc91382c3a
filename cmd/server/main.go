// Command server runs the OAuth login and provisioning service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/teamauth/internal/config"
	"github.com/dmitrymomot/teamauth/internal/handler"
	"github.com/dmitrymomot/teamauth/internal/server"
	"github.com/dmitrymomot/teamauth/pkg/cache"
	"github.com/dmitrymomot/teamauth/pkg/cookie"
	"github.com/dmitrymomot/teamauth/pkg/db"
	"github.com/dmitrymomot/teamauth/pkg/health"
	"github.com/dmitrymomot/teamauth/pkg/logger"
	"github.com/dmitrymomot/teamauth/pkg/oauth"
	"github.com/dmitrymomot/teamauth/pkg/provision"
	"github.com/dmitrymomot/teamauth/pkg/provision/memstore"
	"github.com/dmitrymomot/teamauth/pkg/provision/pgstore"
	"github.com/dmitrymomot/teamauth/pkg/redis"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log, logger.RequestID(), logger.ContextAttrs())

	checks := health.Checks{}
	var hooks []server.ShutdownHook

	store, err := openStore(ctx, cfg, log, checks, &hooks)
	if err != nil {
		return err
	}

	states := oauth.StateStore(oauth.NewMemoryStateStore())
	tenantCache := cache.Cache[uuid.UUID](cache.NewMemory[uuid.UUID](cache.WithMaxEntries(cfg.TenantCacheSize)))
	if cfg.Redis.URL != "" {
		client, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		checks["redis"] = redis.Healthcheck(client)
		hooks = append(hooks, redis.Shutdown(client))
		states = oauth.NewRedisStateStore(client)
		tenantCache = cache.NewRedis[uuid.UUID](client, "teamauth:tenant")
	}

	opts := []handler.Option{
		handler.WithLogger(log),
		handler.WithTenantCache(cache.NewLoader(tenantCache, cfg.TenantCacheTTL)),
	}
	if cfg.CookieSecret != "" {
		cookies, err := cookie.New(cfg.CookieSecret,
			cookie.WithDomain(cfg.CookieDomain),
			cookie.WithSecure(cfg.CookieSecure),
		)
		if err != nil {
			return err
		}
		opts = append(opts, handler.WithStateCookie(cookies))
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	auth := handler.New(
		handler.Config{
			BaseDomain:         cfg.BaseDomain,
			ReservedSubdomains: cfg.ReservedSubdomains,
			Languages:          cfg.Provision.Languages,
			StateTTL:           cfg.StateTTL,
		},
		providers,
		states,
		provision.NewService(cfg.Provision, store, provision.WithLogger(log)),
		append(opts, handler.WithMetrics(handler.NewMetrics(reg)))...,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(checks, health.WithLogger(log)))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	auth.Routes(r)

	srv := server.New(r,
		server.WithAddress(cfg.Address),
		server.WithLogger(log),
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
		server.WithShutdownHooks(hooks...),
	)
	return srv.Run(ctx)
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger, checks health.Checks, hooks *[]server.ShutdownHook) (provision.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("using in-memory store; accounts are lost on restart")
		return memstore.New(), nil
	}

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, pool, pgstore.Migrations, "", log); err != nil {
		pool.Close()
		return nil, err
	}

	checks["postgres"] = db.Healthcheck(pool)
	*hooks = append(*hooks, db.Shutdown(pool))
	return pgstore.New(pool), nil
}

func buildProviders(cfg config.Config) (oauth.Registry, error) {
	var providers []oauth.Provider

	if cfg.Google.ClientID != "" {
		p, err := oauth.NewGoogleProvider(cfg.Google)
		if err != nil {
			return nil, fmt.Errorf("google provider: %w", err)
		}
		providers = append(providers, p)
	}
	if cfg.GitHub.ClientID != "" {
		p, err := oauth.NewGitHubProvider(cfg.GitHub)
		if err != nil {
			return nil, fmt.Errorf("github provider: %w", err)
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, config.ErrNoProviders
	}

	return oauth.NewRegistry(providers...), nil
}
