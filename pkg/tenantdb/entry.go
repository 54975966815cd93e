package tenantdb

import "github.com/google/uuid"

// State is the change-tracking state of an entry.
type State uint8

const (
	Unchanged State = iota + 1
	Added
	Modified
	Deleted
)

func (s State) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "detached"
	}
}

type entryKey struct {
	typ string
	key string
}

// Entry is the session's tracking record for one entity. The tenant id of
// tenant-owned entities is held here, beside the entity.
type Entry struct {
	typ       string
	key       string
	entity    any
	ownership Ownership
	state     State

	tenantID uuid.NullUUID
	// original is the tenant id the stored row had when it was loaded or last saved.
	original uuid.NullUUID
}

// Type returns the entity type name.
func (e *Entry) Type() string { return e.typ }

// Key returns the entity key.
func (e *Entry) Key() string { return e.key }

// Entity returns the tracked entity.
func (e *Entry) Entity() any { return e.entity }

// State returns the tracking state.
func (e *Entry) State() State { return e.state }

// TenantOwned reports whether the entity type is tenant-owned.
func (e *Entry) TenantOwned() bool { return e.ownership == TenantOwned }

// TenantID returns the tenant id recorded for the entity, if any.
func (e *Entry) TenantID() (uuid.UUID, bool) {
	return e.tenantID.UUID, e.tenantID.Valid
}

// SetTenantID overwrites the recorded tenant id and marks an unchanged
// entry as modified. Commits validate the result like any other change.
func (e *Entry) SetTenantID(id uuid.UUID) {
	e.tenantID = uuid.NullUUID{UUID: id, Valid: true}
	if e.state == Unchanged {
		e.state = Modified
	}
}

func (e *Entry) pending() bool {
	return e.state == Added || e.state == Modified || e.state == Deleted
}
