// Package tenantdb is a tenant-isolating persistence layer: a change
// tracking session over a pluggable Backend that routes, filters, stamps
// and validates tenant-owned data.
//
// # Model
//
// Entity types are registered once as tenant-owned or shared:
//
//	model := tenantdb.NewModel().
//	    RegisterTenantOwned("order", "invoice").
//	    RegisterShared("currency")
//
// The tenant id of a tenant-owned entity is not a field of the domain type.
// It is kept in the session's Entry for the entity and in Row.TenantID in the
// backend.
//
// # Sessions
//
// A Factory opens one Session per scope. The connection string is resolved
// through tenantconfig using the scope's ambient tenant:
//
//	factory := tenantdb.NewFactory(model, configs, memory.NewRegistry())
//
//	s, err := factory.Open(ctx)
//	defer s.Close()
//	orders := tenantdb.MustSet[*Order](s, "order")
//	_ = orders.Add(&Order{ID: "1"})
//	n, err := tenantdb.NewUnitOfWork(s).SaveChanges(ctx)
//
// In multi-tenant mode:
//
//   - Queries on tenant-owned types only see rows of the ambient tenant.
//     Without an ambient tenant they return nothing.
//   - SaveChanges stamps added tenant-owned entities with the ambient tenant
//     and fails with ErrMissingTenantContext when there is none.
//   - SaveChanges fails with ErrTenantMismatch when the written tenant-owned
//     rows carry more than one tenant id, or one other than the ambient
//     tenant. Entry.SetTenantID is the usual way to get there.
//   - Outside a shared database a session serves only the tenant it was
//     opened for. Setting another tenant afterwards makes reads and commits
//     fail with ErrTenantMismatch.
//
// Shared types are never inspected. Single-tenant hosting, or a shared
// database used without an ambient tenant, turns all of the above off.
//
// Validation happens before the backend is called, and backends apply a
// batch atomically, so a rejected or failed commit leaves the store as it was.
//
// # Backends
//
// Subpackages provide backends: memory (in-process, one database per
// connection string), postgres (pgx) and mongo (mongo-driver).
//
// # Metrics
//
// WithMetrics records commit outcomes with Prometheus counters.
package tenantdb
