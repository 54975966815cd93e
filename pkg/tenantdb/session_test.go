package tenantdb_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenantconfig"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb/memory"
)

func TestTable_CRUD(t *testing.T) {
	t.Parallel()

	f, _ := newFactory(t, sharedSettings())
	tid := uuid.New()
	insertOrders(t, f, tid, "1", "2", "3")

	inTenant(t, tid, func(ctx context.Context) {
		s, orders := openOrders(t, ctx, f)
		uow := tenantdb.NewUnitOfWork(s)

		o, err := orders.Find(ctx, "2")
		require.NoError(t, err)
		o.Total = 42
		require.NoError(t, orders.Update(o))

		third, err := orders.Find(ctx, "3")
		require.NoError(t, err)
		require.NoError(t, orders.Remove(third))

		assert.True(t, s.HasChanges())
		n, err := uow.SaveChanges(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.False(t, s.HasChanges())

		_, ok := orders.Entry(third)
		assert.False(t, ok, "deleted entities are no longer tracked")
	})

	inTenant(t, tid, func(ctx context.Context) {
		_, orders := openOrders(t, ctx, f)

		big, err := orders.Where(ctx, func(o *order) bool { return o.Total > 10 })
		require.NoError(t, err)
		require.Len(t, big, 1)
		assert.Equal(t, "2", big[0].ID)

		n, err := orders.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestTable_IdentityMap(t *testing.T) {
	t.Parallel()

	f, _ := newFactory(t, sharedSettings())
	tid := uuid.New()
	insertOrders(t, f, tid, "1")

	inTenant(t, tid, func(ctx context.Context) {
		_, orders := openOrders(t, ctx, f)

		first, err := orders.Find(ctx, "1")
		require.NoError(t, err)
		first.Total = 7

		list, err := orders.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Same(t, first, list[0])
		assert.Equal(t, 7, list[0].Total)
	})
}

func TestTable_FindTrackedEntity(t *testing.T) {
	t.Parallel()

	f, _ := newFactory(t, sharedSettings())
	tid := uuid.New()
	insertOrders(t, f, tid, "1")

	inTenant(t, tid, func(ctx context.Context) {
		_, orders := openOrders(t, ctx, f)

		added := &order{ID: "2", Total: 5}
		require.NoError(t, orders.Add(added))
		got, err := orders.Find(ctx, "2")
		require.NoError(t, err)
		assert.Same(t, added, got)

		loaded, err := orders.Find(ctx, "1")
		require.NoError(t, err)
		require.NoError(t, orders.Remove(loaded))
		_, err = orders.Find(ctx, "1")
		assert.ErrorIs(t, err, tenantdb.ErrNotFound)
	})
}

func TestTable_Errors(t *testing.T) {
	t.Parallel()

	f, _ := newFactory(t, sharedSettings())

	inTenant(t, uuid.New(), func(ctx context.Context) {
		s, orders := openOrders(t, ctx, f)

		_, err := tenantdb.Set[*order](s, "unknown")
		assert.ErrorIs(t, err, tenantdb.ErrUnknownEntityType)
		assert.Panics(t, func() { tenantdb.MustSet[*order](s, "unknown") })

		assert.ErrorIs(t, orders.Add(&order{}), tenantdb.ErrInvalidEntity)

		require.NoError(t, orders.Add(&order{ID: "1"}))
		assert.ErrorIs(t, orders.Add(&order{ID: "1"}), tenantdb.ErrConflict)

		_, err = orders.Find(ctx, "missing")
		assert.ErrorIs(t, err, tenantdb.ErrNotFound)
	})
}

func TestTable_RemoveAddedEntity(t *testing.T) {
	t.Parallel()

	f, reg := newFactory(t, sharedSettings())

	inTenant(t, uuid.New(), func(ctx context.Context) {
		s, orders := openOrders(t, ctx, f)

		o := &order{ID: "1"}
		require.NoError(t, orders.Add(o))
		require.NoError(t, orders.Remove(o))
		assert.False(t, s.HasChanges())

		n, err := s.SaveChanges(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	assert.Zero(t, reg.Database(sharedDB).Len())
}

func TestSaveChanges_CannotTouchOtherTenantsRows(t *testing.T) {
	t.Parallel()

	f, reg := newFactory(t, sharedSettings())
	owner := uuid.New()
	insertOrders(t, f, owner, "1")

	inTenant(t, uuid.New(), func(ctx context.Context) {
		s, orders := openOrders(t, ctx, f)

		// Attaching a detached entity does not bypass the tenant scope.
		require.NoError(t, orders.Update(&order{ID: "1", Total: 99}))
		_, err := s.SaveChanges(ctx)
		assert.ErrorIs(t, err, tenantdb.ErrNotFound)
	})

	rows := reg.Database(sharedDB).Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, owner, rows[0].TenantID.UUID)
	assert.JSONEq(t, `{"id":"1","total":0}`, string(rows[0].Data))
}

func TestSaveChanges_BackendFailureKeepsPendingState(t *testing.T) {
	t.Parallel()

	f, _ := newFactory(t, sharedSettings())
	tid := uuid.New()
	insertOrders(t, f, tid, "1")

	inTenant(t, tid, func(ctx context.Context) {
		s, orders := openOrders(t, ctx, f)

		o := &order{ID: "1"}
		require.NoError(t, orders.Add(o))
		_, err := s.SaveChanges(ctx)
		require.ErrorIs(t, err, tenantdb.ErrConflict)

		entry, ok := orders.Entry(o)
		require.True(t, ok)
		assert.Equal(t, tenantdb.Added, entry.State())
		_, stamped := entry.TenantID()
		assert.False(t, stamped, "stamps are recorded only after a successful commit")
	})
}

func TestSession_Closed(t *testing.T) {
	t.Parallel()

	f, _ := newFactory(t, sharedSettings())
	inTenant(t, uuid.New(), func(ctx context.Context) {
		s, orders := openOrders(t, ctx, f)
		require.NoError(t, s.Close())

		assert.ErrorIs(t, orders.Add(&order{ID: "1"}), tenantdb.ErrSessionClosed)
		_, err := orders.List(ctx)
		assert.ErrorIs(t, err, tenantdb.ErrSessionClosed)
		_, err = s.SaveChanges(ctx)
		assert.ErrorIs(t, err, tenantdb.ErrSessionClosed)
	})
}

type releasingBackend struct {
	*memory.Database
	released atomic.Int32
}

func (b *releasingBackend) Release() { b.released.Add(1) }

func TestSession_CloseReleasesBackend(t *testing.T) {
	t.Parallel()

	backend := &releasingBackend{Database: memory.New()}
	f := tenantdb.NewFactory(newModel(), tenantconfig.NewResolver(sharedSettings()),
		tenantdb.ConnectorFunc(func(context.Context, string) (tenantdb.Backend, error) { return backend, nil }))

	_, err := f.Run(context.Background(), func(context.Context, *tenantdb.UnitOfWork) error { return nil })
	require.NoError(t, err)
	assert.EqualValues(t, 1, backend.released.Load())

	s, err := f.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.EqualValues(t, 2, backend.released.Load())
}

func TestFactory_Open(t *testing.T) {
	t.Parallel()

	t.Run("configuration error", func(t *testing.T) {
		t.Parallel()

		settings := perTenantSettings()
		settings.Defaults.ConnectionStrings = nil
		f, _ := newFactory(t, settings)

		inTenant(t, uuid.New(), func(ctx context.Context) {
			_, err := f.Open(ctx)
			assert.ErrorIs(t, err, tenantconfig.ErrConfiguration)
		})
	})

	t.Run("connector error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("unreachable")
		f := tenantdb.NewFactory(newModel(), tenantconfig.NewResolver(sharedSettings()),
			tenantdb.ConnectorFunc(func(context.Context, string) (tenantdb.Backend, error) { return nil, boom }))

		_, err := f.Open(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("custom connection name", func(t *testing.T) {
		t.Parallel()

		settings := sharedSettings()
		settings.ConnectionStrings["reports"] = "mem://reports"
		settings.SharedDatabases = append(settings.SharedDatabases, "reports")
		f, reg := newFactory(t, settings, tenantdb.WithConnectionName("reports"))

		insertOrders(t, f, uuid.New(), "1")
		assert.Equal(t, []string{"mem://reports"}, reg.Names())
	})
}

func TestFactory_Run(t *testing.T) {
	t.Parallel()

	f, reg := newFactory(t, sharedSettings())
	tid := uuid.New()

	inTenant(t, tid, func(ctx context.Context) {
		n, err := f.Run(ctx, func(ctx context.Context, uow *tenantdb.UnitOfWork) error {
			return tenantdb.MustSet[*order](uow.Session(), orderType).Add(&order{ID: "1"})
		})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		boom := errors.New("handler failed")
		_, err = f.Run(ctx, func(ctx context.Context, uow *tenantdb.UnitOfWork) error {
			if err := tenantdb.MustSet[*order](uow.Session(), orderType).Add(&order{ID: "2"}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})

	assert.Equal(t, 1, reg.Database(sharedDB).Len())
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	m, err := tenantdb.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	f, _ := newFactory(t, perTenantSettings(), tenantdb.WithMetrics(m))
	insertOrders(t, f, uuid.New(), "1", "2")

	noTenant(func(ctx context.Context) {
		s, orders := openOrders(t, ctx, f)
		require.NoError(t, orders.Add(&order{ID: "3"}))
		_, err := s.SaveChanges(ctx)
		require.ErrorIs(t, err, tenantdb.ErrMissingTenantContext)
	})

	assert.InDelta(t, 1, testutil.ToFloat64(m.Commits("committed")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.AffectedRows()), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Commits("missing_tenant")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.Commits("tenant_mismatch")), 0)
}

func TestNewMetrics_ReusesRegisteredCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first, err := tenantdb.NewMetrics(reg)
	require.NoError(t, err)
	second, err := tenantdb.NewMetrics(reg)
	require.NoError(t, err)

	first.Commits("committed").Inc()
	assert.InDelta(t, 1, testutil.ToFloat64(second.Commits("committed")), 0)
}

func TestModel(t *testing.T) {
	t.Parallel()

	m := newModel()
	assert.True(t, m.IsTenantOwned(orderType))
	assert.False(t, m.IsTenantOwned(currencyType))
	assert.False(t, m.IsTenantOwned("unknown"))

	o, err := m.Ownership(currencyType)
	require.NoError(t, err)
	assert.Equal(t, tenantdb.Shared, o)
	assert.Equal(t, "shared", o.String())

	_, err = m.Ownership("unknown")
	assert.ErrorIs(t, err, tenantdb.ErrUnknownEntityType)

	assert.Len(t, m.Types(), 2)
}

func TestQuery_Matches(t *testing.T) {
	t.Parallel()

	tid := uuid.New()
	row := tenantdb.Row{Type: orderType, Key: "1", TenantID: uuid.NullUUID{UUID: tid, Valid: true}}

	assert.True(t, tenantdb.Query{Type: orderType}.Matches(row))
	assert.True(t, tenantdb.Query{Type: orderType, TenantID: uuid.NullUUID{UUID: tid, Valid: true}, Keys: []string{"1"}}.Matches(row))
	assert.False(t, tenantdb.Query{Type: currencyType}.Matches(row))
	assert.False(t, tenantdb.Query{Type: orderType, TenantID: uuid.NullUUID{UUID: uuid.New(), Valid: true}}.Matches(row))
	assert.False(t, tenantdb.Query{Type: orderType, Keys: []string{"2"}}.Matches(row))

	row.TenantID = uuid.NullUUID{}
	assert.False(t, tenantdb.Query{Type: orderType, TenantID: uuid.NullUUID{UUID: tid, Valid: true}}.Matches(row))
}
