// Package memory is the in-process storage gateway. It backs tests and
// single-instance deployments that run without PostgreSQL.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
)

// Collection is a mutex-guarded map of records. Records are cloned on the
// way in and on the way out, so callers never share state with the store.
type Collection[R shared.Record[R]] struct {
	schema shared.Schema[R]
	mu     sync.RWMutex
	items  map[string]R
	order  []string
}

// NewCollection creates an empty collection for schema.
func NewCollection[R shared.Record[R]](schema shared.Schema[R]) *Collection[R] {
	return &Collection[R]{
		schema: schema,
		items:  make(map[string]R),
	}
}

// Name returns the collection name.
func (c *Collection[R]) Name() string { return c.schema.Name }

// Len returns the number of stored records.
func (c *Collection[R]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// GetByID implements shared.Collection.
func (c *Collection[R]) GetByID(ctx context.Context, id string) (R, error) {
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.items[id]
	if !ok {
		return zero, nil
	}
	return rec.Clone(), nil
}

// Insert implements shared.Collection.
func (c *Collection[R]) Insert(ctx context.Context, rec R) (R, error) {
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	id := rec.RecordID()
	if id == "" {
		return zero, shared.Validation(c.schema.Name, "Insert", "record id is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[id]; exists {
		return zero, shared.WrapError(c.schema.Name, "Insert", shared.ErrConflict,
			fmt.Sprintf("record %s already exists", id), shared.ErrAlreadyExists)
	}
	c.items[id] = rec.Clone()
	c.order = append(c.order, id)
	return rec.Clone(), nil
}

// UpdateByID implements shared.Collection. fn runs on a copy under the write
// lock; the copy replaces the stored record only when fn succeeds.
func (c *Collection[R]) UpdateByID(ctx context.Context, id string, fn shared.UpdateFunc[R]) (R, error) {
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.items[id]
	if !ok {
		return zero, nil
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return zero, err
	}
	if next.RecordID() != id {
		return zero, shared.Validation(c.schema.Name, "UpdateByID", "record id cannot change")
	}
	c.items[id] = next
	return next.Clone(), nil
}

// DeleteByID implements shared.Collection.
func (c *Collection[R]) DeleteByID(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[id]; !ok {
		return false, nil
	}
	delete(c.items, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Query implements shared.Collection. Records without a value for the sort
// field come last in both directions. Ties keep insertion order.
func (c *Collection[R]) Query(ctx context.Context, q shared.Query) (shared.Page[R], error) {
	if err := ctx.Err(); err != nil {
		return shared.Page[R]{}, err
	}
	if err := c.schema.Validate(q); err != nil {
		return shared.Page[R]{}, err
	}

	c.mu.RLock()
	matched := make([]R, 0, len(c.items))
	for _, id := range c.order {
		rec := c.items[id]
		if c.matches(rec, q.Filters) {
			matched = append(matched, rec)
		}
	}
	c.mu.RUnlock()

	if q.Sort != nil {
		get := c.schema.Fields[q.Sort.Field].Get
		desc := q.Sort.Desc
		sort.SliceStable(matched, func(i, j int) bool {
			a, b := shared.Normalize(get(matched[i])), shared.Normalize(get(matched[j]))
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			}
			n, ok := shared.Compare(a, b)
			if !ok {
				return false
			}
			if desc {
				return n > 0
			}
			return n < 0
		})
	}

	total := len(matched)
	from := min(q.Offset(), total)
	to := total
	if q.Limit > 0 {
		to = min(from+q.Limit, total)
	}

	items := make([]R, 0, to-from)
	for _, rec := range matched[from:to] {
		items = append(items, rec.Clone())
	}
	return shared.Page[R]{Items: items, Total: total}, nil
}

func (c *Collection[R]) matches(rec R, filters []shared.Filter) bool {
	for _, f := range filters {
		if !match(c.schema.Fields[f.Field].Get(rec), f) {
			return false
		}
	}
	return true
}

func match(v any, f shared.Filter) bool {
	v = shared.Normalize(v)
	switch f.Op {
	case shared.OpIsNull:
		return v == nil
	case shared.OpNotNull:
		return v != nil
	case shared.OpEq:
		if f.Value == nil {
			return v == nil
		}
	}
	if v == nil {
		return false
	}

	switch f.Op {
	case shared.OpEq:
		n, ok := shared.Compare(v, f.Value)
		return ok && n == 0
	case shared.OpIn:
		for _, want := range f.Value.([]any) {
			if n, ok := shared.Compare(v, want); ok && n == 0 {
				return true
			}
		}
		return false
	}

	n, ok := shared.Compare(v, f.Value)
	if !ok {
		return false
	}
	switch f.Op {
	case shared.OpGt:
		return n > 0
	case shared.OpGte:
		return n >= 0
	case shared.OpLt:
		return n < 0
	case shared.OpLte:
		return n <= 0
	default:
		return false
	}
}
