package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

// Backend stores rows of every entity type in the tenant_rows table.
// It is safe for concurrent use.
type Backend struct {
	pool *pgxpool.Pool
	// refs is set for backends owned by a Connector.
	refs *tenantdb.Refs
}

// Ensure Backend implements tenantdb.Backend at compile time.
var (
	_ tenantdb.Backend  = (*Backend)(nil)
	_ tenantdb.Releaser = (*Backend)(nil)
)

// NewBackend wraps an open pool. The tenant_rows table must already exist,
// see Migrate.
func NewBackend(pool *pgxpool.Pool) *Backend {
	return &Backend{pool: pool}
}

// Release implements tenantdb.Releaser. Backends created with NewBackend
// are not pooled and ignore it.
func (b *Backend) Release() {
	if b.refs != nil {
		b.refs.Release()
	}
}

// Ping verifies the database is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return pg.Healthcheck(b.pool)(ctx)
}

// Query implements tenantdb.Backend. Rows are returned ordered by key.
func (b *Backend) Query(ctx context.Context, q tenantdb.Query) ([]tenantdb.Row, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT entity_type, entity_key, tenant_id, data FROM tenant_rows WHERE entity_type = $1`)
	args := []any{q.Type}

	if q.TenantID.Valid {
		args = append(args, toPgUUID(q.TenantID))
		fmt.Fprintf(&sb, " AND tenant_id = $%d", len(args))
	}
	if len(q.Keys) > 0 {
		args = append(args, q.Keys)
		fmt.Fprintf(&sb, " AND entity_key = ANY($%d)", len(args))
	}
	sb.WriteString(" ORDER BY entity_key")

	rows, err := b.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (tenantdb.Row, error) {
		var (
			r   tenantdb.Row
			tid pgtype.UUID
		)
		if err := row.Scan(&r.Type, &r.Key, &tid, &r.Data); err != nil {
			return tenantdb.Row{}, err
		}
		r.TenantID = fromPgUUID(tid)
		return r, nil
	})
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}
	return out, nil
}

// Commit implements tenantdb.Backend. All changes run in one transaction.
func (b *Backend) Commit(ctx context.Context, changes []tenantdb.Change) (int, error) {
	if len(changes) == 0 {
		return 0, nil
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return 0, errors.Join(ErrCommitFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	affected := 0
	for _, c := range changes {
		n, err := apply(ctx, tx, c)
		if err != nil {
			return 0, err
		}
		affected += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Join(ErrCommitFailed, err)
	}
	return affected, nil
}

func apply(ctx context.Context, tx pgx.Tx, c tenantdb.Change) (int, error) {
	r := c.Row
	switch c.Op {
	case tenantdb.OpInsert:
		_, err := tx.Exec(ctx,
			`INSERT INTO tenant_rows (entity_type, entity_key, tenant_id, data) VALUES ($1, $2, $3, $4)`,
			r.Type, r.Key, toPgUUID(r.TenantID), r.Data)
		if pg.IsDuplicateKeyError(err) {
			return 0, fmt.Errorf("%w: %s %q already exists", tenantdb.ErrConflict, r.Type, r.Key)
		}
		if err != nil {
			return 0, errors.Join(ErrCommitFailed, err)
		}
		return 1, nil

	case tenantdb.OpUpdate:
		tag, err := tx.Exec(ctx,
			`UPDATE tenant_rows SET tenant_id = $3, data = $4, updated_at = NOW()
			 WHERE entity_type = $1 AND entity_key = $2 AND ($5::uuid IS NULL OR tenant_id = $5)`,
			r.Type, r.Key, toPgUUID(r.TenantID), r.Data, toPgUUID(c.Scope))
		return affected(tag.RowsAffected(), err, r)

	case tenantdb.OpDelete:
		tag, err := tx.Exec(ctx,
			`DELETE FROM tenant_rows
			 WHERE entity_type = $1 AND entity_key = $2 AND ($3::uuid IS NULL OR tenant_id = $3)`,
			r.Type, r.Key, toPgUUID(c.Scope))
		return affected(tag.RowsAffected(), err, r)

	default:
		return 0, fmt.Errorf("postgres: unsupported operation %v", c.Op)
	}
}

func affected(n int64, err error, r tenantdb.Row) (int, error) {
	if err != nil {
		return 0, errors.Join(ErrCommitFailed, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %s %q", tenantdb.ErrNotFound, r.Type, r.Key)
	}
	return int(n), nil
}

func toPgUUID(id uuid.NullUUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id.UUID, Valid: id.Valid}
}

func fromPgUUID(id pgtype.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id.Bytes, Valid: id.Valid}
}
