package tenant

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// Middleware creates HTTP middleware that opens a tenant scope for every
// request, resolves the tenant token and populates the scope's accessor.
// Requests without a token continue with an empty scope.
func Middleware(resolver HTTPResolver, identifier *Identifier, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		errorHandler: defaultErrorHandler,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, _ := NewScope(r.Context())
			r = r.WithContext(ctx)

			if cfg.skipped(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token, err := resolver(r)
			if err == nil {
				err = identifier.Populate(ctx, token)
			}
			if err != nil {
				cfg.logger.WarnContext(ctx, "tenant not identified",
					logger.Token(token),
					slog.String("path", r.URL.Path),
					logger.Error(err),
				)
				cfg.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireTenant rejects requests whose scope has no tenant with
// ErrNoTenantInContext. A nil errorHandler uses the default one.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (c *config) skipped(path string) bool {
	for _, prefix := range c.skipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
