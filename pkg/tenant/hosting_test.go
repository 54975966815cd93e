package tenant_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

func TestParseHostingMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want tenant.HostingMode
	}{
		{"single-tenant", tenant.SingleTenant},
		{"SingleTenant", tenant.SingleTenant},
		{"single", tenant.SingleTenant},
		{"multi-tenant", tenant.MultiTenant},
		{"MultiTenant", tenant.MultiTenant},
		{" multi ", tenant.MultiTenant},
		{"", tenant.MultiTenant},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := tenant.ParseHostingMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown mode", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.ParseHostingMode("shared")
		assert.ErrorIs(t, err, tenant.ErrInvalidHostingMode)
	})
}

func TestHostingMode_IsMultiTenant(t *testing.T) {
	t.Parallel()

	var zero tenant.HostingMode
	assert.True(t, zero.IsMultiTenant())
	assert.Equal(t, "multi-tenant", zero.String())
	assert.True(t, tenant.MultiTenant.IsMultiTenant())
	assert.False(t, tenant.SingleTenant.IsMultiTenant())

	var m tenant.HostingMode
	require.NoError(t, m.UnmarshalText([]byte("single")))
	assert.Equal(t, tenant.SingleTenant, m)
	assert.Error(t, m.UnmarshalText([]byte("nope")))
}
