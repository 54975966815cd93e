package tenant_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

func TestMapResolver(t *testing.T) {
	t.Parallel()

	headers := map[string]string{"test token key": "test token value"}

	t.Run("returns value under configured key", func(t *testing.T) {
		t.Parallel()

		token, err := tenant.NewMapResolver("test token key")(headers)
		require.NoError(t, err)
		assert.Equal(t, "test token value", token)
	})

	t.Run("missing key resolves to empty", func(t *testing.T) {
		t.Parallel()

		token, err := tenant.NewMapResolver("bad token key")(headers)
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("nil map resolves to empty", func(t *testing.T) {
		t.Parallel()

		token, err := tenant.NewMapResolver("test token key")(nil)
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("value is returned untouched", func(t *testing.T) {
		t.Parallel()

		token, err := tenant.NewMapResolver("k")(map[string]string{"k": "  spaced value "})
		require.NoError(t, err)
		assert.Equal(t, "  spaced value ", token)
	})
}

func TestHeaderResolver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		header  string
		set     map[string]string
		want    string
		wantErr bool
	}{
		{name: "default header", set: map[string]string{"X-Tenant-ID": "acme"}, want: "acme"},
		{name: "custom header", header: "X-Org", set: map[string]string{"X-Org": "globex"}, want: "globex"},
		{name: "trims whitespace", set: map[string]string{"X-Tenant-ID": "  acme  "}, want: "acme"},
		{name: "missing header", want: ""},
		{name: "invalid characters", set: map[string]string{"X-Tenant-ID": "acme_corp"}, wantErr: true},
		{name: "too long", set: map[string]string{"X-Tenant-ID": strings.Repeat("a", tenant.MaxTokenLength+1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.set {
				req.Header.Set(k, v)
			}

			got, err := tenant.NewHeaderResolver(tt.header)(req)
			if tt.wantErr {
				assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubdomainResolver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		suffix  string
		host    string
		want    string
		wantErr bool
	}{
		{name: "simple subdomain", host: "acme.example.com", want: "acme"},
		{name: "with port", host: "acme.example.com:8080", want: "acme"},
		{name: "www prefix skipped", host: "www.acme.example.com", want: "acme"},
		{name: "base domain", host: "example.com", want: ""},
		{name: "suffix stripped", suffix: ".app.example.com", host: "acme.app.example.com", want: "acme"},
		{name: "invalid subdomain", host: "-bad.example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = tt.host

			got, err := tenant.NewSubdomainResolver(tt.suffix)(req)
			if tt.wantErr {
				assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathResolver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		position int
		path     string
		want     string
		wantErr  bool
	}{
		{name: "second segment", position: 2, path: "/tenants/acme/dashboard", want: "acme"},
		{name: "first segment", position: 1, path: "/acme/orders", want: "acme"},
		{name: "position beyond path", position: 4, path: "/tenants/acme", want: ""},
		{name: "root path", position: 1, path: "/", want: ""},
		{name: "invalid position", position: 0, path: "/acme", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			got, err := tenant.NewPathResolver(tt.position)(req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryResolver(t *testing.T) {
	t.Parallel()

	resolve := tenant.NewQueryResolver("tenant")

	req := httptest.NewRequest(http.MethodGet, "/?tenant=acme", nil)
	got, err := resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "acme", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	got, err = resolve(req)
	require.NoError(t, err)
	assert.Empty(t, got)

	req = httptest.NewRequest(http.MethodGet, "/?tenant=a%20b", nil)
	_, err = resolve(req)
	assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
}

func TestCompositeResolver(t *testing.T) {
	t.Parallel()

	empty := func(map[string]string) (string, error) { return "", nil }
	failing := func(map[string]string) (string, error) { return "", errors.New("broken source") }

	t.Run("first non-empty wins", func(t *testing.T) {
		t.Parallel()

		resolve := tenant.NewCompositeResolver(
			empty,
			tenant.NewMapResolver("a"),
			tenant.NewMapResolver("b"),
		)
		got, err := resolve(map[string]string{"a": "first", "b": "second"})
		require.NoError(t, err)
		assert.Equal(t, "first", got)
	})

	t.Run("errors ignored when a later resolver succeeds", func(t *testing.T) {
		t.Parallel()

		resolve := tenant.NewCompositeResolver(failing, tenant.NewMapResolver("b"))
		got, err := resolve(map[string]string{"b": "second"})
		require.NoError(t, err)
		assert.Equal(t, "second", got)
	})

	t.Run("errors reported when nothing resolves", func(t *testing.T) {
		t.Parallel()

		resolve := tenant.NewCompositeResolver(failing, empty)
		_, err := resolve(map[string]string{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken source")
	})

	t.Run("all empty resolves to empty", func(t *testing.T) {
		t.Parallel()

		resolve := tenant.NewCompositeResolver(empty, nil)
		got, err := resolve(nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("works for http resolvers", func(t *testing.T) {
		t.Parallel()

		resolve := tenant.NewCompositeResolver(
			tenant.NewHeaderResolver(""),
			tenant.NewQueryResolver("tenant"),
		)
		req := httptest.NewRequest(http.MethodGet, "/?tenant=globex", nil)
		got, err := resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "globex", got)
	})
}
