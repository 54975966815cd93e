package tenantdb

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

// Row is the stored form of an entity. TenantID lives beside the payload,
// never inside it.
type Row struct {
	Type     string
	Key      string
	TenantID uuid.NullUUID
	Data     []byte
}

// Query selects rows of one entity type.
type Query struct {
	Type string
	// TenantID restricts the result to one tenant when valid.
	TenantID uuid.NullUUID
	// Keys restricts the result to the given keys when non-empty.
	Keys []string
}

// Matches reports whether r satisfies q.
func (q Query) Matches(r Row) bool {
	if r.Type != q.Type {
		return false
	}
	if q.TenantID.Valid && (!r.TenantID.Valid || r.TenantID.UUID != q.TenantID.UUID) {
		return false
	}
	if len(q.Keys) > 0 && !slices.Contains(q.Keys, r.Key) {
		return false
	}
	return true
}

// Op is the kind of a pending change.
type Op uint8

const (
	OpInsert Op = iota + 1
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change is one row-level write of a commit batch.
type Change struct {
	Op  Op
	Row Row
	// Scope, when valid, is the tenant the existing row must belong to for
	// an update or delete to apply.
	Scope uuid.NullUUID
}

// Backend is the store a session reads from and commits to.
// Implementations must be safe for concurrent use by many sessions.
type Backend interface {
	// Query returns the rows matching q.
	Query(ctx context.Context, q Query) ([]Row, error)

	// Commit applies all changes atomically and returns the number of rows
	// affected. Inserting an existing row fails with ErrConflict; updating or
	// deleting a missing (or out of scope) row fails with ErrNotFound. On any
	// error nothing is applied.
	Commit(ctx context.Context, changes []Change) (int, error)
}

// Connector opens backends by connection string. Connectors own the
// backends they return and may hand the same backend to many sessions.
// A backend that also implements Releaser is released once per Connect
// when the session holding it is closed.
type Connector interface {
	Connect(ctx context.Context, connString string) (Backend, error)
}

// Releaser is implemented by pooled backends that must not be closed while
// a session still holds them.
type Releaser interface {
	Release()
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context, connString string) (Backend, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context, connString string) (Backend, error) {
	return f(ctx, connString)
}
