package tenantconfig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/config"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantconfig"
)

func TestLoadFile(t *testing.T) {
	t.Parallel()

	s, err := tenantconfig.LoadFile("testdata/tenancy.yaml")
	require.NoError(t, err)

	assert.Equal(t, tenant.MultiTenant, s.Mode)
	assert.Equal(t, []string{"audit"}, s.SharedDatabases)
	assert.Equal(t, "postgres://app@localhost:5432/tenant_{tenant}", s.Defaults.ConnectionStrings["main"])
	assert.Equal(t, "postgres://app@dedicated:5432/acme", s.Tenants["0b9c2c0e-4c1f-4a55-9b7c-2f0a2f3c6a11"].ConnectionStrings["main"])
}

func TestFromOptions(t *testing.T) {
	t.Parallel()

	t.Run("environment overrides file", func(t *testing.T) {
		t.Parallel()

		s, err := tenantconfig.FromOptions(tenantconfig.Options{
			Mode:                     tenant.SingleTenant,
			ConfigFile:               "testdata/tenancy.yaml",
			ConnectionStrings:        map[string]string{"main": "postgres://app@env:5432/main", "reports": "postgres://app@env:5432/reports"},
			DefaultConnectionStrings: map[string]string{"reports": "postgres://app@env:5432/reports_{tenant}"},
			SharedDatabases:          []string{" reports ", ""},
		})
		require.NoError(t, err)

		assert.Equal(t, tenant.SingleTenant, s.Mode)
		assert.Equal(t, "postgres://app@env:5432/main", s.ConnectionStrings["main"])
		assert.Equal(t, "postgres://app@localhost:5432/audit", s.ConnectionStrings["audit"])
		assert.Equal(t, "postgres://app@localhost:5432/tenant_{tenant}", s.Defaults.ConnectionStrings["main"])
		assert.Equal(t, "postgres://app@env:5432/reports_{tenant}", s.Defaults.ConnectionStrings["reports"])
		assert.Equal(t, []string{"audit", "reports"}, s.SharedDatabases)
	})

	t.Run("empty mode keeps file mode", func(t *testing.T) {
		t.Parallel()

		s, err := tenantconfig.FromOptions(tenantconfig.Options{ConfigFile: "testdata/tenancy.yaml"})
		require.NoError(t, err)
		assert.Equal(t, tenant.MultiTenant, s.Mode)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := tenantconfig.FromOptions(tenantconfig.Options{ConfigFile: "testdata/missing.yaml"})
		assert.ErrorIs(t, err, config.ErrReadingConfigFile)
	})

	t.Run("shared database without connection string", func(t *testing.T) {
		t.Parallel()

		_, err := tenantconfig.FromOptions(tenantconfig.Options{SharedDatabases: []string{"main"}})
		assert.ErrorIs(t, err, tenantconfig.ErrInvalidSettings)
	})
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("TENANCY_MODE", "multi")
	t.Setenv("CONNECTION_STRINGS", "main=postgres://app@localhost:5432/main?sslmode=disable;audit=postgres://app@localhost:5432/audit")
	t.Setenv("TENANCY_DEFAULT_CONNECTION_STRINGS", "main=postgres://app@localhost:5432/tenant_{tenant}?sslmode=disable")
	t.Setenv("TENANCY_SHARED_DATABASES", "audit")
	config.ResetCache()
	t.Cleanup(config.ResetCache)

	s, err := tenantconfig.Load()
	require.NoError(t, err)

	r := tenantconfig.NewResolver(s)
	cs, err := r.Resolve("acme").ConnectionString("main")
	require.NoError(t, err)
	assert.Equal(t, "postgres://app@localhost:5432/tenant_acme?sslmode=disable", cs)

	cs, err = r.Resolve("acme").ConnectionString("audit")
	require.NoError(t, err)
	assert.Equal(t, "postgres://app@localhost:5432/audit", cs)
}
