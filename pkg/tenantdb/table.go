package tenantdb

import (
	"context"
	"encoding/json"
	"fmt"
)

// Entity is implemented by persisted domain types. Keys are unique per
// entity type within a database.
type Entity interface {
	EntityKey() string
}

// Table is a typed view of one entity type in a session. T is usually a
// pointer type; entities are stored as JSON.
type Table[T Entity] struct {
	session *Session
	typ     string
}

// Set returns the table for entity type typ, which must be registered in
// the session's model.
func Set[T Entity](s *Session, typ string) (*Table[T], error) {
	if _, err := s.model.Ownership(typ); err != nil {
		return nil, err
	}
	return &Table[T]{session: s, typ: typ}, nil
}

// MustSet is like Set but panics on unknown types.
func MustSet[T Entity](s *Session, typ string) *Table[T] {
	t, err := Set[T](s, typ)
	if err != nil {
		panic(err)
	}
	return t
}

// Type returns the entity type name.
func (t *Table[T]) Type() string {
	return t.typ
}

func (t *Table[T]) key(entity T) (string, error) {
	key := entity.EntityKey()
	if key == "" {
		return "", fmt.Errorf("%w: %s entity has an empty key", ErrInvalidEntity, t.typ)
	}
	return key, nil
}

// Add tracks a new entity for insertion.
func (t *Table[T]) Add(entity T) error {
	key, err := t.key(entity)
	if err != nil {
		return err
	}
	_, err = t.session.add(t.typ, key, entity)
	return err
}

// Update marks an entity as modified. Untracked entities are attached.
func (t *Table[T]) Update(entity T) error {
	key, err := t.key(entity)
	if err != nil {
		return err
	}
	_, err = t.session.update(t.typ, key, entity)
	return err
}

// Remove marks an entity for deletion.
func (t *Table[T]) Remove(entity T) error {
	key, err := t.key(entity)
	if err != nil {
		return err
	}
	return t.session.remove(t.typ, key, entity)
}

// Entry returns the tracking entry for entity.
func (t *Table[T]) Entry(entity T) (*Entry, bool) {
	return t.session.Entry(t.typ, entity.EntityKey())
}

// Find returns the tracked entity with key, including one added but not yet
// saved, or loads it. Entities marked for deletion are not found.
func (t *Table[T]) Find(ctx context.Context, key string) (T, error) {
	var zero T
	if e, ok := t.session.Entry(t.typ, key); ok {
		if e.state == Deleted {
			return zero, fmt.Errorf("%w: %s %q", ErrNotFound, t.typ, key)
		}
		return t.cast(e.entity)
	}

	items, err := t.load(ctx, []string{key})
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, fmt.Errorf("%w: %s %q", ErrNotFound, t.typ, key)
	}
	return items[0], nil
}

// List loads every visible entity of the table.
func (t *Table[T]) List(ctx context.Context) ([]T, error) {
	return t.load(ctx, nil)
}

// Where loads the visible entities matching pred.
func (t *Table[T]) Where(ctx context.Context, pred func(T) bool) ([]T, error) {
	items, err := t.load(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, item := range items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Count returns the number of visible entities.
func (t *Table[T]) Count(ctx context.Context) (int, error) {
	items, err := t.load(ctx, nil)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (t *Table[T]) load(ctx context.Context, keys []string) ([]T, error) {
	raw, err := t.session.load(ctx, t.typ, keys, func(data []byte) (any, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(raw))
	for _, r := range raw {
		v, err := t.cast(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (t *Table[T]) cast(v any) (T, error) {
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s is tracked as %T", ErrInvalidEntity, t.typ, v)
	}
	return typed, nil
}
