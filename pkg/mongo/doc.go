// Package mongo provides MongoDB client construction with retries.
//
// Config is populated from MONGODB_* environment variables through
// github.com/caarlos0/env. When connection URLs are resolved per tenant the
// URL is left empty in the environment and set per database with
// WithConnectionURL; the database name is taken from the URL path.
//
// # Usage
//
//	cfg := mongo.Config{ConnectionURL: "mongodb://localhost:27017/app"}
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	health := mongo.Healthcheck(db.Client())
//
// # Error Handling
//
// Failures wrap the sentinel errors of this package with errors.Join, so
// callers match them with errors.Is.
package mongo
