package mongo

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/tenantkit/pkg/cache"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	mongoconn "github.com/dmitrymomot/tenantkit/pkg/mongo"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

// DefaultCapacity is the number of clients a Connector keeps connected.
const DefaultCapacity = 32

// Connector opens one Backend per connection URL and reuses it.
// It is safe for concurrent use.
type Connector struct {
	cfg      mongoconn.Config
	logger   *slog.Logger
	capacity int
	prefix   string

	clients *cache.LRU[string, *Backend]
	dials   singleflight.Group
	closed  atomic.Bool
}

// Ensure Connector implements tenantdb.Connector at compile time.
var _ tenantdb.Connector = (*Connector)(nil)

// Option configures a Connector.
type Option func(*Connector)

// WithLogger sets the logger used for client lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(c *Connector) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithCapacity sets how many clients stay connected.
func WithCapacity(n int) Option {
	return func(c *Connector) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithCollectionPrefix prepends prefix to every collection name.
func WithCollectionPrefix(prefix string) Option {
	return func(c *Connector) {
		c.prefix = prefix
	}
}

// NewConnector creates a connector. cfg supplies client and retry settings;
// its ConnectionURL is ignored in favour of the one passed to Connect.
func NewConnector(cfg mongoconn.Config, opts ...Option) *Connector {
	c := &Connector{
		cfg:      cfg,
		logger:   slog.Default(),
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.clients = cache.New(c.capacity, cache.WithOnEvict(func(_ string, b *Backend) {
		b.refs.Retire()
	}))
	return c
}

// Connect implements tenantdb.Connector. The database is the one named in
// url. Concurrent calls for the same url share one dial. Every returned
// backend must be released, which Session.Close does.
func (c *Connector) Connect(ctx context.Context, url string) (tenantdb.Backend, error) {
	if _, err := mongoconn.DatabaseName(url); err != nil {
		return nil, err
	}
	for {
		if c.closed.Load() {
			return nil, ErrClosed
		}
		b, err := c.lookup(ctx, url)
		if err != nil {
			return nil, err
		}
		if b.refs.Acquire() {
			return b, nil
		}
	}
}

func (c *Connector) lookup(ctx context.Context, url string) (*Backend, error) {
	if b, ok := c.clients.Get(url); ok {
		return b, nil
	}

	ch := c.dials.DoChan(url, func() (any, error) {
		if b, ok := c.clients.Get(url); ok {
			return b, nil
		}
		return c.dial(context.WithoutCancel(ctx), url)
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

func (c *Connector) dial(ctx context.Context, url string) (*Backend, error) {
	db, err := mongoconn.NewWithDatabase(ctx, c.cfg.WithConnectionURL(url))
	if err != nil {
		return nil, err
	}
	b := NewBackend(db, c.prefix)
	b.refs = tenantdb.NewRefs(func() { c.disconnect(b) })
	if c.closed.Load() {
		_ = db.Client().Disconnect(ctx)
		return nil, ErrClosed
	}
	c.clients.Put(url, b)
	c.logger.DebugContext(ctx, "mongo client connected", slog.String("database", db.Name()))
	return b, nil
}

func (c *Connector) disconnect(b *Backend) {
	if err := b.db.Client().Disconnect(context.Background()); err != nil {
		c.logger.Error("mongo disconnect failed", slog.String("database", b.db.Name()), logger.Error(err))
	}
}

// Len returns the number of cached clients.
func (c *Connector) Len() int {
	return c.clients.Len()
}

// Close retires every cached client; clients still held by a session are
// disconnected when it releases them. Later calls to Connect fail with ErrClosed.
func (c *Connector) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	c.clients.Clear()
	return nil
}
