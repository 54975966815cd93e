// Package tenant propagates the identity of the active tenant through request
// and message processing.
//
// The package is built around four concepts:
//
//  1. Scopes - every logical operation (HTTP request, message handler
//     invocation, background job) gets its own Accessor via NewScope. The
//     accessor is attached to the operation's context.Context and is never
//     shared with other operations.
//  2. Resolvers - extract a raw tenant token from an inbound carrier (HTTP
//     request, message headers). A missing token is not an error; resolvers
//     return an empty string and the pipeline moves on.
//  3. Identifier - turns a token into a Tenant using a Provider, with an
//     optional Cache in front of it, and populates the scope's accessor.
//  4. Middleware - wires the three together for net/http handlers.
//
// # Usage
//
//	ident := tenant.NewIdentifier(tenant.NewIDProvider(),
//		tenant.WithCache(tenant.NewInMemoryCache()),
//	)
//	mw := tenant.Middleware(tenant.NewHeaderResolver("X-Tenant-ID"), ident)
//	router.Use(mw)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		t, ok := tenant.FromContext(r.Context())
//		if !ok {
//			// no ambient tenant for this request
//		}
//		_ = t
//	}
//
// Background jobs that already know their tenant run inside WithScope:
//
//	err := tenant.WithScope(ctx, t, func(ctx context.Context) error {
//		return job.Run(ctx)
//	})
//
// # Hosting mode
//
// HostingMode tells downstream components whether tenant isolation is active
// at all. In SingleTenant mode the persistence layer skips stamping,
// filtering and validation entirely.
//
// # Error Handling
//
//   - ErrTenantNotFound: the provider has no tenant for the token
//   - ErrInvalidIdentifier: the token is malformed
//   - ErrNoTenantInContext: a tenant is required but the scope has none
//   - ErrNoScope: the context carries no Accessor
//   - ErrContextAlreadySet: the scope's tenant was already set
package tenant
