package tenantdb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantconfig"
)

// DefaultConnectionName is the connection sessions are routed for unless
// WithConnectionName is given.
const DefaultConnectionName = "main"

// Factory opens sessions. It is process-wide, read-only after construction
// and safe for concurrent use.
type Factory struct {
	model      *Model
	configs    *tenantconfig.Resolver
	connector  Connector
	connection string
	logger     *slog.Logger
	metrics    *Metrics
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithConnectionName sets the configured connection sessions use.
func WithConnectionName(name string) FactoryOption {
	return func(f *Factory) {
		if name != "" {
			f.connection = name
		}
	}
}

// WithLogger sets the logger used by the factory and its units of work.
func WithLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMetrics records commit outcomes of every session.
func WithMetrics(m *Metrics) FactoryOption {
	return func(f *Factory) {
		f.metrics = m
	}
}

// NewFactory creates a session factory.
func NewFactory(model *Model, configs *tenantconfig.Resolver, connector Connector, opts ...FactoryOption) *Factory {
	f := &Factory{
		model:      model,
		configs:    configs,
		connector:  connector,
		connection: DefaultConnectionName,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Model returns the factory's entity model.
func (f *Factory) Model() *Model {
	return f.model
}

// Open creates a session for the scope of ctx. The connection is routed by
// the scope's ambient tenant, or to the shared connection string when there
// is none or the process is single-tenant. The session only serves the
// tenant it was routed for; see ErrTenantMismatch.
//
// Close the session when done so the connector can release the backend.
func (f *Factory) Open(ctx context.Context) (*Session, error) {
	mode := f.configs.Mode()
	accessor, _ := tenant.AccessorFromContext(ctx)

	var (
		token  string
		routed uuid.NullUUID
	)
	if c, ok := accessor.Get(); ok && mode.IsMultiTenant() {
		token = c.Tenant().Token()
		routed = uuid.NullUUID{UUID: c.Tenant().ID, Valid: true}
	}

	connString, err := f.configs.Resolve(token).ConnectionString(f.connection)
	if err != nil {
		return nil, err
	}

	backend, err := f.connector.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("tenantdb: connect %q: %w", f.connection, err)
	}

	return &Session{
		backend:    backend,
		model:      f.model,
		mode:       mode,
		accessor:   accessor,
		connection: f.connection,
		shared:     f.configs.IsSharedDatabase(f.connection),
		routed:     routed,
		logger:     f.logger,
		metrics:    f.metrics,
		entries:    make(map[entryKey]*Entry),
	}, nil
}

// Run opens a session, passes a unit of work over it to fn and saves the
// changes fn left pending. Nothing is saved when fn fails.
func (f *Factory) Run(ctx context.Context, fn func(ctx context.Context, uow *UnitOfWork) error) (int, error) {
	s, err := f.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	uow := NewUnitOfWork(s)
	if err := fn(ctx, uow); err != nil {
		return 0, err
	}
	return uow.SaveChanges(ctx)
}
