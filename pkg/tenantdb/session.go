package tenantdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Session is a tenant-aware change tracker over a Backend. It belongs to
// one scope and must not be shared between goroutines.
//
// Reads of tenant-owned types are restricted to the ambient tenant. Commits
// stamp new tenant-owned entities with the ambient tenant and reject batches
// that span more than one tenant.
type Session struct {
	backend    Backend
	model      *Model
	mode       tenant.HostingMode
	accessor   *tenant.Accessor
	connection string
	shared     bool
	routed     uuid.NullUUID
	logger     *slog.Logger
	metrics    *Metrics

	entries map[entryKey]*Entry
	order   []*Entry
	closed  bool
}

// isolation is the tenant policy in effect for one read or commit.
type isolation struct {
	bypass bool
	tenant uuid.UUID
	ok     bool
}

func (i isolation) filter() uuid.NullUUID {
	return uuid.NullUUID{UUID: i.tenant, Valid: i.ok}
}

// isolation is recomputed per operation from the scope's accessor.
// Single-tenant hosting, or a shared database used without an ambient
// tenant, disables stamping, filtering and validation.
//
// Outside a shared database the backend was picked for the tenant seen at
// Open (s.routed), so an ambient tenant set later must be that same tenant.
func (s *Session) isolation() (isolation, error) {
	if !s.mode.IsMultiTenant() {
		return isolation{bypass: true}, nil
	}
	c, ok := s.accessor.Get()
	if !ok {
		return isolation{bypass: s.shared}, nil
	}
	id := c.Tenant().ID
	if !s.shared && (!s.routed.Valid || s.routed.UUID != id) {
		routed := "no tenant"
		if s.routed.Valid {
			routed = s.routed.UUID.String()
		}
		return isolation{}, fmt.Errorf("%w: ambient tenant %s, session routed for %s", ErrTenantMismatch, id, routed)
	}
	return isolation{tenant: id, ok: true}, nil
}

// TenantID returns the ambient tenant of the session's scope.
func (s *Session) TenantID() (uuid.UUID, bool) {
	c, ok := s.accessor.Get()
	if !ok {
		return uuid.Nil, false
	}
	return c.Tenant().ID, true
}

// Connection returns the connection name the session was routed for.
func (s *Session) Connection() string {
	return s.connection
}

// Backend returns the backend the session was routed to. Writes made through
// it directly skip tenant validation.
func (s *Session) Backend() Backend {
	return s.backend
}

// Entry returns the tracking entry for an entity, if tracked.
func (s *Session) Entry(typ, key string) (*Entry, bool) {
	e, ok := s.entries[entryKey{typ: typ, key: key}]
	return e, ok
}

// Entries returns all tracked entries in tracking order.
func (s *Session) Entries() []*Entry {
	return slices.Clone(s.order)
}

// HasChanges reports whether SaveChanges would write anything.
func (s *Session) HasChanges() bool {
	return slices.ContainsFunc(s.order, (*Entry).pending)
}

// Close discards all tracked state and hands the backend back to its
// connector. The backend itself belongs to the connector.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	if r, ok := s.backend.(Releaser); ok {
		r.Release()
	}
	s.closed = true
	s.entries = nil
	s.order = nil
	return nil
}

func (s *Session) checkOpen() error {
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) track(e *Entry) {
	s.entries[entryKey{typ: e.typ, key: e.key}] = e
	s.order = append(s.order, e)
}

func (s *Session) untrack(e *Entry) {
	delete(s.entries, entryKey{typ: e.typ, key: e.key})
	s.order = slices.DeleteFunc(s.order, func(x *Entry) bool { return x == e })
}

func (s *Session) add(typ, key string, entity any) (*Entry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	o, err := s.model.Ownership(typ)
	if err != nil {
		return nil, err
	}
	if existing, ok := s.Entry(typ, key); ok {
		if existing.state != Deleted {
			return nil, fmt.Errorf("%w: %s %q is already tracked", ErrConflict, typ, key)
		}
		// Re-adding a removed entity replaces it in place.
		existing.entity = entity
		existing.state = Modified
		return existing, nil
	}

	e := &Entry{typ: typ, key: key, entity: entity, ownership: o, state: Added}
	s.track(e)
	return e, nil
}

func (s *Session) update(typ, key string, entity any) (*Entry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	o, err := s.model.Ownership(typ)
	if err != nil {
		return nil, err
	}
	if e, ok := s.Entry(typ, key); ok {
		if e.state == Deleted {
			return nil, fmt.Errorf("%w: %s %q is marked for deletion", ErrNotFound, typ, key)
		}
		e.entity = entity
		if e.state == Unchanged {
			e.state = Modified
		}
		return e, nil
	}

	e := &Entry{typ: typ, key: key, entity: entity, ownership: o, state: Modified}
	s.track(e)
	return e, nil
}

func (s *Session) remove(typ, key string, entity any) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	o, err := s.model.Ownership(typ)
	if err != nil {
		return err
	}
	if e, ok := s.Entry(typ, key); ok {
		if e.state == Added {
			s.untrack(e)
			return nil
		}
		e.state = Deleted
		return nil
	}

	s.track(&Entry{typ: typ, key: key, entity: entity, ownership: o, state: Deleted})
	return nil
}

// load queries rows of typ and returns tracked entities, decoding rows not
// yet tracked. Entities marked for deletion are skipped.
func (s *Session) load(ctx context.Context, typ string, keys []string, decode func([]byte) (any, error)) ([]any, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	o, err := s.model.Ownership(typ)
	if err != nil {
		return nil, err
	}

	q := Query{Type: typ, Keys: keys}
	if o == TenantOwned {
		iso, err := s.isolation()
		if err != nil {
			return nil, err
		}
		if !iso.bypass && !iso.ok {
			return nil, nil
		}
		q.TenantID = iso.filter()
	}

	rows, err := s.backend.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("tenantdb: query %s: %w", typ, err)
	}

	out := make([]any, 0, len(rows))
	for _, row := range rows {
		if e, ok := s.Entry(row.Type, row.Key); ok {
			if e.state != Deleted {
				out = append(out, e.entity)
			}
			continue
		}

		entity, err := decode(row.Data)
		if err != nil {
			return nil, fmt.Errorf("tenantdb: decode %s %q: %w", row.Type, row.Key, err)
		}
		s.track(&Entry{
			typ:       row.Type,
			key:       row.Key,
			entity:    entity,
			ownership: o,
			state:     Unchanged,
			tenantID:  row.TenantID,
			original:  row.TenantID,
		})
		out = append(out, entity)
	}
	return out, nil
}

// plan is a validated commit batch and the tenant ids to record on success.
type plan struct {
	entries []*Entry
	changes []Change
	stamps  []uuid.NullUUID
}

// SaveChanges stamps, validates and commits all pending changes as one
// atomic batch and returns the number of affected rows.
//
// It fails with ErrMissingTenantContext when a tenant-owned entity is written
// without an ambient tenant, and with ErrTenantMismatch when the batch spans
// more than one tenant or a tenant other than the ambient one. In both cases
// the backend is not called and tracked state is left as it was.
func (s *Session) SaveChanges(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	pending := slices.DeleteFunc(slices.Clone(s.order), func(e *Entry) bool { return !e.pending() })
	if len(pending) == 0 {
		return 0, nil
	}

	start := time.Now()
	p, err := s.prepare(pending)
	if err != nil {
		s.metrics.observeRejected(err)
		return 0, err
	}

	n, err := s.backend.Commit(ctx, p.changes)
	if err != nil {
		s.metrics.observeFailed()
		return 0, fmt.Errorf("tenantdb: commit: %w", err)
	}

	s.accept(p)
	s.metrics.observeCommitted(n, time.Since(start))
	return n, nil
}

func (s *Session) prepare(pending []*Entry) (*plan, error) {
	iso, err := s.isolation()
	if err != nil {
		return nil, err
	}
	p := &plan{
		entries: pending,
		changes: make([]Change, 0, len(pending)),
		stamps:  make([]uuid.NullUUID, 0, len(pending)),
	}
	tenants := make(map[uuid.UUID]struct{}, 1)

	for _, e := range pending {
		tid := e.tenantID
		var scope uuid.NullUUID

		if e.TenantOwned() && !iso.bypass {
			if !iso.ok {
				return nil, fmt.Errorf("%w: %s %q", ErrMissingTenantContext, e.typ, e.key)
			}
			if e.state != Deleted {
				if !tid.Valid {
					tid = iso.filter()
				}
				tenants[tid.UUID] = struct{}{}
			}
			if e.state != Added {
				scope = e.original
				if !scope.Valid {
					scope = iso.filter()
				}
			}
		}

		change := Change{Row: Row{Type: e.typ, Key: e.key, TenantID: tid}, Scope: scope}
		switch e.state {
		case Added:
			change.Op = OpInsert
		case Modified:
			change.Op = OpUpdate
		case Deleted:
			change.Op = OpDelete
		}
		if change.Op != OpDelete {
			data, err := json.Marshal(e.entity)
			if err != nil {
				return nil, fmt.Errorf("tenantdb: encode %s %q: %w", e.typ, e.key, err)
			}
			change.Row.Data = data
		}

		p.changes = append(p.changes, change)
		p.stamps = append(p.stamps, tid)
	}

	if err := checkHomogeneous(tenants, iso); err != nil {
		return nil, err
	}
	return p, nil
}

func checkHomogeneous(tenants map[uuid.UUID]struct{}, iso isolation) error {
	if len(tenants) > 1 {
		ids := make([]string, 0, len(tenants))
		for id := range tenants {
			ids = append(ids, id.String())
		}
		slices.Sort(ids)
		return fmt.Errorf("%w: %s", ErrTenantMismatch, strings.Join(ids, ", "))
	}
	for id := range tenants {
		if iso.ok && id != iso.tenant {
			return fmt.Errorf("%w: batch tenant %s differs from ambient tenant %s", ErrTenantMismatch, id, iso.tenant)
		}
	}
	return nil
}

func (s *Session) accept(p *plan) {
	for i, e := range p.entries {
		if e.state == Deleted {
			s.untrack(e)
			continue
		}
		e.state = Unchanged
		e.tenantID = p.stamps[i]
		e.original = p.stamps[i]
	}
}

// rejectionReason classifies validation errors for metrics and logs.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrTenantMismatch):
		return "tenant_mismatch"
	case errors.Is(err, ErrMissingTenantContext):
		return "missing_tenant"
	default:
		return "invalid"
	}
}
