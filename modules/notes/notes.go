// Package notes is a small tenant-aware module: tenants keep private notes,
// and every tenant reads the same shared category list. It mounts on a chi
// router behind tenant.Middleware and persists through a tenantdb.Factory.
package notes

import (
	"time"

	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

// Entity type names.
const (
	NoteType     = "note"
	ActivityType = "note_activity"
	CategoryType = "category"
)

// TopicNoteCreated is published after a note is committed.
const TopicNoteCreated = "notes.created"

// Note is owned by the tenant that created it.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EntityKey implements tenantdb.Entity.
func (n *Note) EntityKey() string { return n.ID }

// Activity records an event handled for a tenant.
type Activity struct {
	ID     string    `json:"id"`
	NoteID string    `json:"note_id"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// EntityKey implements tenantdb.Entity.
func (a *Activity) EntityKey() string { return a.ID }

// Category is shared by all tenants.
type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// EntityKey implements tenantdb.Entity.
func (c *Category) EntityKey() string { return c.Slug }

// NoteCreated is the payload of TopicNoteCreated.
type NoteCreated struct {
	NoteID string `json:"note_id"`
	Title  string `json:"title"`
}

// Register adds the module's entity types to m.
func Register(m *tenantdb.Model) *tenantdb.Model {
	return m.RegisterTenantOwned(NoteType, ActivityType).RegisterShared(CategoryType)
}
