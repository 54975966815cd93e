// Package mongo is the MongoDB backend of tenantdb.
//
// Every entity type is stored in its own collection. Documents carry the
// entity key as _id, the owning tenant as tenant_id (null for shared types)
// and the encoded entity as data. Commit batches run inside a multi-document
// transaction, which requires a replica set or sharded cluster.
//
//	conn := mongo.NewConnector(mongoCfg, mongo.WithCollectionPrefix("app_"))
//	defer conn.Close()
//
//	factory := tenantdb.NewFactory(model, configs, conn)
//
// The database is the one named in the connection URL, so per-tenant
// templates such as "mongodb://db:27017/tenant_{tenant}?replicaSet=rs0" route
// every tenant to its own database.
package mongo
