// Command tenantdemo serves the notes module with tenant isolation.
//
// Configuration is read from the environment, after loading an optional
// .env file:
//
//	TENANTDB_BACKEND   - "memory", "postgres" or "mongo" (default: memory)
//	TENANTS_FILE       - YAML tenant directory; tenant ids are used as tokens when unset
//	TENANT_CACHE       - "memory", "redis" or "none" (default: memory)
//	TENANCY_MODE, CONNECTION_STRINGS, TENANCY_SHARED_DATABASES, ...
//	                   - tenancy settings, see package tenantconfig
//	HTTP_*, LOG_*, PG_*, MONGODB_*, REDIS_*
//	                   - see the matching packages
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/tenantkit/modules/notes"
	"github.com/dmitrymomot/tenantkit/pkg/config"
	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/messaging"
	"github.com/dmitrymomot/tenantkit/pkg/mongo"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/redis"
	"github.com/dmitrymomot/tenantkit/pkg/requestid"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantconfig"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb/memory"
	tenantmongo "github.com/dmitrymomot/tenantkit/pkg/tenantdb/mongo"
	tenantpg "github.com/dmitrymomot/tenantkit/pkg/tenantdb/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("tenantdemo failed", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnv(); err != nil {
		return err
	}

	var logCfg logger.Config
	if err := config.Load(&logCfg); err != nil {
		return err
	}
	log := logger.New(
		logger.FromConfig(logCfg),
		logger.WithContextExtractors(tenant.LoggerExtractor(), requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	settings, err := tenantconfig.Load()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	configs := tenantconfig.NewResolver(settings)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := make(map[string]httpserver.Check)

	connector, closeStore, err := openStore(cfg.Store, log)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := tenantdb.NewMetrics(reg)
	if err != nil {
		return err
	}

	factory := tenantdb.NewFactory(notes.Register(tenantdb.NewModel()), configs, connector,
		tenantdb.WithConnectionName(cfg.Connection),
		tenantdb.WithLogger(log.With(logger.Component("tenantdb"))),
		tenantdb.WithMetrics(metrics),
	)
	checks["store"] = storeCheck(factory)

	cache, err := openCache(ctx, cfg.Cache, log, checks)
	if err != nil {
		return err
	}
	defer cache.Close()

	provider, err := loadProvider(cfg.TenantsFile)
	if err != nil {
		return err
	}
	identifier := tenant.NewIdentifier(provider,
		tenant.WithCache(cache),
		tenant.WithCacheTTL(cfg.CacheTTL),
		tenant.WithIdentifierLogger(log),
	)

	transport := messaging.NewMemoryTransport(cfg.EventBuffer, log.With(logger.Component("messaging")))
	defer transport.Close()

	svc := notes.NewService(factory,
		notes.WithPublisher(messaging.NewPublisher(transport)),
		notes.WithLogger(log.With(logger.Component("notes"))),
	)
	if err := notes.Subscribe(ctx, transport, identifier, svc, log); err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Get("/healthz", httpserver.HealthHandler(log, cfg.HealthTimeout, nil))
	r.Get("/readyz", httpserver.HealthHandler(log, cfg.HealthTimeout, checks))
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}
	r.Group(func(r chi.Router) {
		r.Use(tenant.Middleware(tenant.NewHeaderResolver(cfg.TenantHeader), identifier, tenant.WithLogger(log)))
		r.Mount("/notes", notes.Router(svc, log))
	})

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}

	log.InfoContext(ctx, "tenantdemo starting",
		slog.String("store", cfg.Store),
		slog.String("tenancy_mode", configs.Mode().String()),
		slog.String("addr", httpCfg.Addr),
	)
	return httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log)).Run(ctx, r)
}

// openStore returns the connector for kind and a func releasing it.
func openStore(kind string, log *slog.Logger) (tenantdb.Connector, func(), error) {
	switch kind {
	case StoreMemory:
		return memory.NewRegistry(), func() {}, nil

	case StorePostgres:
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, nil, err
		}
		c := tenantpg.NewConnector(pgCfg, tenantpg.WithLogger(log.With(logger.Component("postgres"))))
		return c, func() { _ = c.Close() }, nil

	case StoreMongo:
		var mongoCfg mongo.Config
		if err := config.Load(&mongoCfg); err != nil {
			return nil, nil, err
		}
		c := tenantmongo.NewConnector(mongoCfg, tenantmongo.WithLogger(log.With(logger.Component("mongo"))))
		return c, func() { _ = c.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown TENANTDB_BACKEND %q", kind)
	}
}

// openCache builds the identifier cache. A Redis cache adds its readiness check.
func openCache(ctx context.Context, kind string, log *slog.Logger, checks map[string]httpserver.Check) (tenant.Cache, error) {
	switch kind {
	case CacheMemory:
		return tenant.NewInMemoryCache(), nil
	case CacheNone:
		return tenant.NewNoOpCache(), nil
	case CacheRedis:
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		checks["redis"] = redis.Healthcheck(client)
		return &ownedCache{
			Cache: tenant.NewRedisCache(client,
				tenant.WithRedisKeyPrefix(redisCfg.KeyPrefix),
				tenant.WithRedisLogger(log),
			),
			owned: client,
		}, nil
	default:
		return nil, fmt.Errorf("unknown TENANT_CACHE %q", kind)
	}
}

// ownedCache closes the Redis client it was built on.
type ownedCache struct {
	tenant.Cache
	owned io.Closer
}

func (c *ownedCache) Close() error {
	return errors.Join(c.Cache.Close(), c.owned.Close())
}

// storeCheck opens a session outside any tenant and pings its backend when
// the backend supports it.
func storeCheck(factory *tenantdb.Factory) httpserver.Check {
	return func(ctx context.Context) error {
		ctx, _ = tenant.NewScope(ctx)
		s, err := factory.Open(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if p, ok := s.Backend().(interface{ Ping(context.Context) error }); ok {
			return p.Ping(ctx)
		}
		return nil
	}
}
