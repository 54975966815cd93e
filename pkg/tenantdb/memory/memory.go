// Package memory provides an in-process tenantdb backend. Each connection
// string names its own database, so per-tenant routing can be exercised
// without a server. Data is lost when the process exits.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

type rowKey struct {
	typ string
	key string
}

// Database is one in-memory database. It is safe for concurrent use and
// applies commit batches atomically.
type Database struct {
	mu   sync.RWMutex
	rows map[rowKey]tenantdb.Row
}

// Ensure Database implements tenantdb.Backend at compile time.
var _ tenantdb.Backend = (*Database)(nil)

// New creates an empty database.
func New() *Database {
	return &Database{rows: make(map[rowKey]tenantdb.Row)}
}

// Query implements tenantdb.Backend. Rows are returned ordered by key.
func (d *Database) Query(ctx context.Context, q tenantdb.Query) ([]tenantdb.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []tenantdb.Row
	for _, r := range d.rows {
		if q.Matches(r) {
			out = append(out, cloneRow(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

type staged struct {
	row     tenantdb.Row
	present bool
}

// Commit implements tenantdb.Backend. Every change is checked against the
// state left by the previous changes of the batch before anything is applied.
func (d *Database) Commit(ctx context.Context, changes []tenantdb.Change) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	overlay := make(map[rowKey]staged, len(changes))
	lookup := func(k rowKey) (tenantdb.Row, bool) {
		if s, ok := overlay[k]; ok {
			return s.row, s.present
		}
		r, ok := d.rows[k]
		return r, ok
	}

	for _, c := range changes {
		k := rowKey{typ: c.Row.Type, key: c.Row.Key}
		current, exists := lookup(k)

		switch c.Op {
		case tenantdb.OpInsert:
			if exists {
				return 0, fmt.Errorf("%w: %s %q already exists", tenantdb.ErrConflict, k.typ, k.key)
			}
			overlay[k] = staged{row: cloneRow(c.Row), present: true}
		case tenantdb.OpUpdate:
			if !exists || !inScope(current, c) {
				return 0, fmt.Errorf("%w: %s %q", tenantdb.ErrNotFound, k.typ, k.key)
			}
			overlay[k] = staged{row: cloneRow(c.Row), present: true}
		case tenantdb.OpDelete:
			if !exists || !inScope(current, c) {
				return 0, fmt.Errorf("%w: %s %q", tenantdb.ErrNotFound, k.typ, k.key)
			}
			overlay[k] = staged{}
		default:
			return 0, fmt.Errorf("memory: unsupported operation %v", c.Op)
		}
	}

	for k, s := range overlay {
		if s.present {
			d.rows[k] = s.row
		} else {
			delete(d.rows, k)
		}
	}
	return len(changes), nil
}

// Len returns the number of stored rows.
func (d *Database) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rows)
}

// Rows returns a copy of every stored row, ordered by type and key.
func (d *Database) Rows() []tenantdb.Row {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]tenantdb.Row, 0, len(d.rows))
	for _, r := range d.rows {
		out = append(out, cloneRow(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func inScope(current tenantdb.Row, c tenantdb.Change) bool {
	if !c.Scope.Valid {
		return true
	}
	return current.TenantID.Valid && current.TenantID.UUID == c.Scope.UUID
}

func cloneRow(r tenantdb.Row) tenantdb.Row {
	r.Data = bytes.Clone(r.Data)
	return r
}

// Registry hands out one Database per connection string.
type Registry struct {
	mu  sync.Mutex
	dbs map[string]*Database
}

// Ensure Registry implements tenantdb.Connector at compile time.
var _ tenantdb.Connector = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{dbs: make(map[string]*Database)}
}

// Connect implements tenantdb.Connector.
func (r *Registry) Connect(_ context.Context, connString string) (tenantdb.Backend, error) {
	return r.Database(connString), nil
}

// Database returns the database named name, creating it on first use.
func (r *Registry) Database(name string) *Database {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, ok := r.dbs[name]
	if !ok {
		db = New()
		r.dbs[name] = db
	}
	return db
}

// Names returns the names of all databases created so far.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.dbs))
	for n := range r.dbs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
