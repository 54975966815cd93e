package tenantdb_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantconfig"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb/memory"
)

const (
	orderType    = "order"
	currencyType = "currency"

	sharedDB = "mem://shared"
	staticDB = "mem://main"
)

type order struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

func (o *order) EntityKey() string { return o.ID }

type currency struct {
	Code string `json:"code"`
}

func (c *currency) EntityKey() string { return c.Code }

func newModel() *tenantdb.Model {
	return tenantdb.NewModel().
		RegisterTenantOwned(orderType).
		RegisterShared(currencyType)
}

// sharedSettings puts every tenant in one database, isolated by tenant id.
func sharedSettings() tenantconfig.Settings {
	return tenantconfig.Settings{
		Mode:              tenant.MultiTenant,
		ConnectionStrings: map[string]string{"main": sharedDB},
		SharedDatabases:   []string{"main"},
	}
}

// perTenantSettings gives every tenant its own database.
func perTenantSettings() tenantconfig.Settings {
	return tenantconfig.Settings{
		Mode:              tenant.MultiTenant,
		ConnectionStrings: map[string]string{"main": staticDB},
		Defaults: tenantconfig.TenantSettings{
			ConnectionStrings: map[string]string{"main": "mem://tenant_{tenant}"},
		},
	}
}

func newFactory(t *testing.T, s tenantconfig.Settings, opts ...tenantdb.FactoryOption) (*tenantdb.Factory, *memory.Registry) {
	t.Helper()

	reg := memory.NewRegistry()
	opts = append([]tenantdb.FactoryOption{
		tenantdb.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return tenantdb.NewFactory(newModel(), tenantconfig.NewResolver(s), reg, opts...), reg
}

// inTenant runs fn in a fresh scope whose ambient tenant is id.
func inTenant(t *testing.T, id uuid.UUID, fn func(ctx context.Context)) {
	t.Helper()
	require.NoError(t, tenant.WithScope(context.Background(), tenant.New(id, ""), func(ctx context.Context) error {
		fn(ctx)
		return nil
	}))
}

// noTenant runs fn in a fresh scope without an ambient tenant.
func noTenant(fn func(ctx context.Context)) {
	ctx, _ := tenant.NewScope(context.Background())
	fn(ctx)
}

func openOrders(t *testing.T, ctx context.Context, f *tenantdb.Factory) (*tenantdb.Session, *tenantdb.Table[*order]) {
	t.Helper()
	s, err := f.Open(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, tenantdb.MustSet[*order](s, orderType)
}

func insertOrders(t *testing.T, f *tenantdb.Factory, id uuid.UUID, keys ...string) {
	t.Helper()
	inTenant(t, id, func(ctx context.Context) {
		s, orders := openOrders(t, ctx, f)
		for _, k := range keys {
			require.NoError(t, orders.Add(&order{ID: k}))
		}
		n, err := tenantdb.NewUnitOfWork(s).SaveChanges(ctx)
		require.NoError(t, err)
		require.Equal(t, len(keys), n)
	})
}
