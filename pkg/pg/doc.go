// Package pg holds the PostgreSQL plumbing shared by the postgres tenantdb
// backend and the example service: pgx/v5 pool construction with retries,
// goose migrations from an embedded file system, a health check and error
// classification helpers.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg.WithConnectionString(connString))
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	if err := pg.Migrate(ctx, pool, migrations, "migrations", cfg, slog.Default()); err != nil {
//	    return err
//	}
//
// Connect retries with a linearly growing delay and stops early when ctx is
// canceled. Migrate serializes goose runs because goose keeps its settings in
// package globals.
//
// # Error Handling
//
// HasCode matches server errors by SQLSTATE; IsDuplicateKeyError is the
// unique violation shorthand used to report conflicts.
package pg
