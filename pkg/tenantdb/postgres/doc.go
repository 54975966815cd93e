// Package postgres is the PostgreSQL backend of tenantdb.
//
// Rows of every entity type live in one table, tenant_rows, keyed by
// (entity_type, entity_key). The tenant id is a nullable column next to the
// JSONB payload so shared and tenant-owned types use the same layout. A commit
// batch runs in a single transaction; updates and deletes carry the tenant
// scope in their WHERE clause so a session can never touch another tenant's
// row.
//
// A Connector keeps one pgx pool per connection string. With a database per
// tenant the number of pools grows with the number of active tenants, so
// pools live in an LRU cache and are closed when evicted:
//
//	conn := postgres.NewConnector(pgCfg,
//		postgres.WithCapacity(128),
//		postgres.WithLogger(log),
//	)
//	defer conn.Close()
//
//	factory := tenantdb.NewFactory(model, configs, conn)
//
// Schema migrations are embedded and applied with goose the first time a
// connection string is opened, unless WithoutMigrations is given.
package postgres
