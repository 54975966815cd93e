package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	mongoconn "github.com/dmitrymomot/tenantkit/pkg/mongo"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

type document struct {
	Key      string  `bson:"_id"`
	TenantID *string `bson:"tenant_id"`
	Data     []byte  `bson:"data"`
}

// Backend stores each entity type in a collection of one database.
// It is safe for concurrent use.
type Backend struct {
	db     *mongo.Database
	prefix string
	refs   *tenantdb.Refs
}

// Ensure Backend implements tenantdb.Backend at compile time.
var (
	_ tenantdb.Backend  = (*Backend)(nil)
	_ tenantdb.Releaser = (*Backend)(nil)
)

// NewBackend wraps db. Collection names are the entity type names with
// prefix prepended.
func NewBackend(db *mongo.Database, prefix string) *Backend {
	return &Backend{db: db, prefix: prefix}
}

// Release implements tenantdb.Releaser. Only backends handed out by a
// Connector are counted.
func (b *Backend) Release() {
	if b.refs != nil {
		b.refs.Release()
	}
}

// Database returns the underlying database.
func (b *Backend) Database() *mongo.Database {
	return b.db
}

// Ping verifies the server is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return mongoconn.Healthcheck(b.db.Client())(ctx)
}

func (b *Backend) collection(typ string) *mongo.Collection {
	return b.db.Collection(b.prefix + typ)
}

// Query implements tenantdb.Backend. Rows are returned ordered by key.
func (b *Backend) Query(ctx context.Context, q tenantdb.Query) ([]tenantdb.Row, error) {
	filter := bson.D{}
	if q.TenantID.Valid {
		filter = append(filter, bson.E{Key: "tenant_id", Value: q.TenantID.UUID.String()})
	}
	if len(q.Keys) > 0 {
		filter = append(filter, bson.E{Key: "_id", Value: bson.D{{Key: "$in", Value: q.Keys}}})
	}

	cur, err := b.collection(q.Type).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}

	rows := make([]tenantdb.Row, 0, len(docs))
	for _, d := range docs {
		row := tenantdb.Row{Type: q.Type, Key: d.Key, Data: d.Data}
		if d.TenantID != nil {
			id, err := uuid.Parse(*d.TenantID)
			if err != nil {
				return nil, errors.Join(ErrQueryFailed, fmt.Errorf("%s %q: tenant_id: %w", q.Type, d.Key, err))
			}
			row.TenantID = uuid.NullUUID{UUID: id, Valid: true}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Commit implements tenantdb.Backend. All changes run in one transaction.
func (b *Backend) Commit(ctx context.Context, changes []tenantdb.Change) (int, error) {
	if len(changes) == 0 {
		return 0, nil
	}

	sess, err := b.db.Client().StartSession()
	if err != nil {
		return 0, errors.Join(ErrCommitFailed, err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	res, err := sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		affected := 0
		for _, c := range changes {
			if err := b.apply(ctx, c); err != nil {
				return 0, err
			}
			affected++
		}
		return affected, nil
	})
	if err != nil {
		if errors.Is(err, tenantdb.ErrConflict) || errors.Is(err, tenantdb.ErrNotFound) {
			return 0, err
		}
		return 0, errors.Join(ErrCommitFailed, err)
	}
	return res.(int), nil
}

func (b *Backend) apply(ctx context.Context, c tenantdb.Change) error {
	r := c.Row
	coll := b.collection(r.Type)

	filter := bson.D{{Key: "_id", Value: r.Key}}
	if c.Scope.Valid {
		filter = append(filter, bson.E{Key: "tenant_id", Value: c.Scope.UUID.String()})
	}

	switch c.Op {
	case tenantdb.OpInsert:
		_, err := coll.InsertOne(ctx, document{Key: r.Key, TenantID: tenantString(r.TenantID), Data: r.Data})
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s %q already exists", tenantdb.ErrConflict, r.Type, r.Key)
		}
		return err

	case tenantdb.OpUpdate:
		res, err := coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: bson.D{
			{Key: "tenant_id", Value: tenantString(r.TenantID)},
			{Key: "data", Value: r.Data},
		}}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("%w: %s %q", tenantdb.ErrNotFound, r.Type, r.Key)
		}
		return nil

	case tenantdb.OpDelete:
		res, err := coll.DeleteOne(ctx, filter)
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return fmt.Errorf("%w: %s %q", tenantdb.ErrNotFound, r.Type, r.Key)
		}
		return nil

	default:
		return fmt.Errorf("mongo: unsupported operation %v", c.Op)
	}
}

func tenantString(id uuid.NullUUID) *string {
	if !id.Valid {
		return nil
	}
	s := id.UUID.String()
	return &s
}
