package shared

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// STORAGE GATEWAY
// ═══════════════════════════════════════════════════════════════════════════

// Record is a storable entity. R is the pointer type itself, so Clone can
// return a detached copy that adapters hand out instead of their own state.
type Record[R any] interface {
	RecordID() string
	Clone() R
}

// UpdateFunc mutates a record in place. Returning an error aborts the update
// and nothing is written.
type UpdateFunc[R any] func(rec R) error

// Collection is the generic CRUD + query gateway for one entity collection.
// The domain is written against this interface only; adapters live under
// internal/infrastructure/persistence.
type Collection[R Record[R]] interface {
	// GetByID returns the record or the zero value (nil) when it is missing.
	GetByID(ctx context.Context, id string) (R, error)

	// Insert stores a new record. A duplicate id is a conflict.
	Insert(ctx context.Context, rec R) (R, error)

	// UpdateByID atomically reads, mutates and writes one record.
	// It returns nil when the record does not exist.
	UpdateByID(ctx context.Context, id string, fn UpdateFunc[R]) (R, error)

	// DeleteByID reports whether a record was removed.
	DeleteByID(ctx context.Context, id string) (bool, error)

	// Query filters, sorts and pages the collection.
	Query(ctx context.Context, q Query) (Page[R], error)
}

// ───────────────────────────────────────────────────────────────────────────
// Query model
// ───────────────────────────────────────────────────────────────────────────

// Op is a filter operator.
type Op string

const (
	OpEq      Op = "eq"
	OpIn      Op = "in"
	OpGt      Op = "gt"
	OpGte     Op = "gte"
	OpLt      Op = "lt"
	OpLte     Op = "lte"
	OpIsNull  Op = "is_null"
	OpNotNull Op = "not_null"
)

// Filter restricts a query on one field. For OpIn, Value is a slice.
// For OpIsNull and OpNotNull, Value is ignored.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, v any) Filter     { return Filter{Field: field, Op: OpEq, Value: v} }
func In(field string, vs ...any) Filter { return Filter{Field: field, Op: OpIn, Value: vs} }
func Gt(field string, v any) Filter     { return Filter{Field: field, Op: OpGt, Value: v} }
func Gte(field string, v any) Filter    { return Filter{Field: field, Op: OpGte, Value: v} }
func Lt(field string, v any) Filter     { return Filter{Field: field, Op: OpLt, Value: v} }
func Lte(field string, v any) Filter    { return Filter{Field: field, Op: OpLte, Value: v} }
func IsNull(field string) Filter        { return Filter{Field: field, Op: OpIsNull} }
func NotNull(field string) Filter       { return Filter{Field: field, Op: OpNotNull} }

// Sort orders results by a single field.
type Sort struct {
	Field string
	Desc  bool
}

// Query describes a filtered, sorted and paged read. Page is 1-based;
// Limit 0 returns every matching record.
type Query struct {
	Filters []Filter
	Sort    *Sort
	Page    int
	Limit   int
}

// Where appends filters.
func (q Query) Where(filters ...Filter) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), filters...)
	return q
}

// OrderBy sets the sort field.
func (q Query) OrderBy(field string, desc bool) Query {
	q.Sort = &Sort{Field: field, Desc: desc}
	return q
}

// Paginate sets page and limit.
func (q Query) Paginate(page, limit int) Query {
	q.Page = page
	q.Limit = limit
	return q
}

// Offset returns the number of records to skip.
func (q Query) Offset() int {
	if q.Limit <= 0 || q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Page is a query result.
type Page[R any] struct {
	Items []R
	Total int
}

// TotalPages returns ceil(total/limit), or 1 when limit is 0.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

// ───────────────────────────────────────────────────────────────────────────
// Schema
// ───────────────────────────────────────────────────────────────────────────

// FieldKind is the value type of a queryable field.
type FieldKind string

const (
	KindString FieldKind = "string"
	KindInt    FieldKind = "int"
	KindFloat  FieldKind = "float"
	KindBool   FieldKind = "bool"
	KindTime   FieldKind = "time"
)

// Field describes one queryable attribute. Get returns nil when the value is
// absent. The field name is the record's JSON key.
type Field[R any] struct {
	Kind FieldKind
	Get  func(R) any
}

// Schema names a collection and its queryable fields.
type Schema[R any] struct {
	Name   string
	Fields map[string]Field[R]
}

// Validate checks that every filter and the sort refer to known fields.
func (s Schema[R]) Validate(q Query) error {
	for _, f := range q.Filters {
		if _, ok := s.Fields[f.Field]; !ok {
			return Validation(s.Name, "Query", "unknown filter field %q", f.Field)
		}
		switch f.Op {
		case OpEq, OpIn, OpGt, OpGte, OpLt, OpLte, OpIsNull, OpNotNull:
		default:
			return Validation(s.Name, "Query", "unknown filter operator %q", f.Op)
		}
		if f.Op == OpIn {
			if _, ok := f.Value.([]any); !ok {
				return Validation(s.Name, "Query", "filter %q: in expects a list", f.Field)
			}
		}
	}
	if q.Sort != nil {
		if _, ok := s.Fields[q.Sort.Field]; !ok {
			return Validation(s.Name, "Query", "unknown sort field %q", q.Sort.Field)
		}
	}
	if q.Page < 0 || q.Limit < 0 {
		return Validation(s.Name, "Query", "page and limit must not be negative")
	}
	return nil
}

// Normalize converts named scalar types (typed status strings, typed ints)
// to their builtin equivalents so adapters can compare and bind them.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64, float64, time.Time:
		return v
	case *time.Time:
		if t == nil {
			return nil
		}
		return *t
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	default:
		return v
	}
}

// Compare orders two non-nil field values after normalization. It returns
// false when the values are not comparable.
func Compare(a, b any) (int, bool) {
	a, b = Normalize(a), Normalize(b)
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		return cmp3(!av && bv, av && !bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return 0, false
	}
	return cmp3(af < bf, af > bf), true
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// LOCKING
// ═══════════════════════════════════════════════════════════════════════════

// Locker serializes operations that touch the same key across several
// gateway calls.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LockKey builds a lock key for an entity.
func LockKey(domain, id string) string {
	return domain + ":" + id
}

// WithLock runs fn while holding key.
func WithLock(ctx context.Context, locker Locker, key string, fn func() error) error {
	unlock, err := locker.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}
	defer unlock()
	return fn()
}
