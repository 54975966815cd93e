package tenant_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

func TestAccessor(t *testing.T) {
	t.Parallel()

	t.Run("empty accessor reports absent", func(t *testing.T) {
		t.Parallel()

		var a tenant.Accessor
		c, ok := a.Get()
		assert.False(t, ok)
		assert.Nil(t, c)
	})

	t.Run("nil accessor reports absent", func(t *testing.T) {
		t.Parallel()

		var a *tenant.Accessor
		_, ok := a.Get()
		assert.False(t, ok)
	})

	t.Run("set once then read many", func(t *testing.T) {
		t.Parallel()

		var a tenant.Accessor
		acme := *createTestTenant("acme")
		require.NoError(t, a.Set(tenant.NewContext(acme)))

		for range 3 {
			c, ok := a.Get()
			require.True(t, ok)
			assert.Equal(t, acme, c.Tenant())
		}
	})

	t.Run("second set fails", func(t *testing.T) {
		t.Parallel()

		var a tenant.Accessor
		require.NoError(t, a.Set(tenant.NewContext(*createTestTenant("acme"))))

		err := a.Set(tenant.NewContext(*createTestTenant("globex")))
		assert.ErrorIs(t, err, tenant.ErrContextAlreadySet)

		c, _ := a.Get()
		assert.Equal(t, "acme", c.Tenant().Name)
	})

	t.Run("nil context rejected", func(t *testing.T) {
		t.Parallel()

		var a tenant.Accessor
		assert.ErrorIs(t, a.Set(nil), tenant.ErrNilContext)
	})
}

func TestScope(t *testing.T) {
	t.Parallel()

	t.Run("context without scope has no tenant", func(t *testing.T) {
		t.Parallel()

		_, ok := tenant.AccessorFromContext(context.Background())
		assert.False(t, ok)

		got, ok := tenant.FromContext(context.Background())
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("tenant set on accessor is visible through context", func(t *testing.T) {
		t.Parallel()

		ctx, a := tenant.NewScope(context.Background())
		acme := createTestTenant("acme")
		require.NoError(t, a.Set(tenant.NewContext(*acme)))

		got, ok := tenant.FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, acme, got)

		id, ok := tenant.IDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, acme.ID, id)

		fromCtx, ok := tenant.AccessorFromContext(ctx)
		require.True(t, ok)
		assert.Same(t, a, fromCtx)
	})

	t.Run("nested scope does not inherit parent tenant", func(t *testing.T) {
		t.Parallel()

		parent, a := tenant.NewScope(context.Background())
		require.NoError(t, a.Set(tenant.NewContext(*createTestTenant("acme"))))

		child, _ := tenant.NewScope(parent)
		_, ok := tenant.FromContext(child)
		assert.False(t, ok)

		_, ok = tenant.FromContext(parent)
		assert.True(t, ok)
	})

	t.Run("with scope runs fn under tenant", func(t *testing.T) {
		t.Parallel()

		acme := createTestTenant("acme")
		called := false
		err := tenant.WithScope(context.Background(), *acme, func(ctx context.Context) error {
			called = true
			got := tenant.MustFromContext(ctx)
			assert.Equal(t, acme.ID, got.ID)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("with scope propagates fn error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		err := tenant.WithScope(context.Background(), *createTestTenant("acme"), func(context.Context) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("must from context panics without tenant", func(t *testing.T) {
		t.Parallel()

		ctx, _ := tenant.NewScope(context.Background())
		assert.Panics(t, func() { tenant.MustFromContext(ctx) })
	})
}

func TestScope_ConcurrentIsolation(t *testing.T) {
	t.Parallel()

	base := context.Background()
	const workers = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()

			want := uuid.New()
			err := tenant.WithScope(base, tenant.New(want, ""), func(ctx context.Context) error {
				for range 100 {
					got, ok := tenant.IDFromContext(ctx)
					if !ok || got != want {
						return errors.New("tenant leaked between scopes")
					}
				}
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := tenant.LoggerExtractor()

	t.Run("adds tenant id", func(t *testing.T) {
		t.Parallel()

		acme := createTestTenant("acme")
		ctx, a := tenant.NewScope(context.Background())
		require.NoError(t, a.Set(tenant.NewContext(*acme)))

		attr, ok := extract(ctx)
		require.True(t, ok)
		assert.Equal(t, slog.String("tenant_id", acme.ID.String()), attr)
	})

	t.Run("skips without tenant", func(t *testing.T) {
		t.Parallel()

		_, ok := extract(context.Background())
		assert.False(t, ok)
	})
}
