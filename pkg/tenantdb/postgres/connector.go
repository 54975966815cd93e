package postgres

import (
	"context"
	"embed"
	"log/slog"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/tenantkit/pkg/cache"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// DefaultCapacity is the number of pools a Connector keeps open.
const DefaultCapacity = 64

// Migrate creates or upgrades the tenant_rows schema on pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, migrations, migrationsDir, cfg, log)
}

// Connector opens one Backend per connection string and reuses it.
// It is safe for concurrent use.
type Connector struct {
	cfg      pg.Config
	logger   *slog.Logger
	capacity int
	migrate  bool

	pools  *cache.LRU[string, *Backend]
	dials  singleflight.Group
	closed atomic.Bool
}

// Ensure Connector implements tenantdb.Connector at compile time.
var _ tenantdb.Connector = (*Connector)(nil)

// Option configures a Connector.
type Option func(*Connector)

// WithLogger sets the logger used for pool lifecycle and migrations.
func WithLogger(log *slog.Logger) Option {
	return func(c *Connector) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithCapacity sets how many pools stay cached. The least recently used pool
// is retired when another connection string is opened past the limit and
// closed once no session holds it.
func WithCapacity(n int) Option {
	return func(c *Connector) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithoutMigrations skips schema migrations when a pool is opened.
func WithoutMigrations() Option {
	return func(c *Connector) {
		c.migrate = false
	}
}

// NewConnector creates a connector. cfg supplies pool and retry settings;
// its ConnectionString is ignored in favour of the one passed to Connect.
func NewConnector(cfg pg.Config, opts ...Option) *Connector {
	c := &Connector{
		cfg:      cfg,
		logger:   slog.Default(),
		capacity: DefaultCapacity,
		migrate:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pools = cache.New(c.capacity, cache.WithOnEvict(func(_ string, b *Backend) {
		b.refs.Retire()
	}))
	return c
}

// Connect implements tenantdb.Connector. Concurrent calls for the same
// connection string share one dial; dials for other strings are not blocked.
// Every returned backend must be released, which Session.Close does.
func (c *Connector) Connect(ctx context.Context, connString string) (tenantdb.Backend, error) {
	for {
		if c.closed.Load() {
			return nil, ErrClosed
		}
		b, err := c.lookup(ctx, connString)
		if err != nil {
			return nil, err
		}
		// A pool retired and closed since lookup is dialed again.
		if b.refs.Acquire() {
			return b, nil
		}
	}
}

func (c *Connector) lookup(ctx context.Context, connString string) (*Backend, error) {
	if b, ok := c.pools.Get(connString); ok {
		return b, nil
	}

	ch := c.dials.DoChan(connString, func() (any, error) {
		if b, ok := c.pools.Get(connString); ok {
			return b, nil
		}
		// A caller giving up must not fail the others waiting on this dial.
		return c.dial(context.WithoutCancel(ctx), connString)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Backend), nil
	}
}

func (c *Connector) dial(ctx context.Context, connString string) (*Backend, error) {
	pool, err := pg.Connect(ctx, c.cfg.WithConnectionString(connString))
	if err != nil {
		return nil, err
	}

	if c.migrate {
		if err := Migrate(ctx, pool, c.cfg, c.logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	b := NewBackend(pool)
	b.refs = tenantdb.NewRefs(pool.Close)
	if c.closed.Load() {
		pool.Close()
		return nil, ErrClosed
	}
	c.pools.Put(connString, b)
	c.logger.DebugContext(ctx, "postgres pool opened", slog.Int("open_pools", c.pools.Len()))
	return b, nil
}

// Len returns the number of cached pools. Retired pools still held by a
// session are not counted.
func (c *Connector) Len() int {
	return c.pools.Len()
}

// Close retires every cached pool; pools still held by a session close when
// it releases them. Later calls to Connect fail with ErrClosed.
func (c *Connector) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	c.pools.Clear()
	return nil
}
