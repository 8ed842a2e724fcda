package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/pkg/retry"
)

// Collection stores records of one schema as JSONB documents. Schema field
// names are document keys.
type Collection[R shared.Record[R]] struct {
	conn      *Connection
	schema    shared.Schema[R]
	table     string
	newRecord func() R
	retrier   *retry.Retrier
}

// NewCollection binds schema to the table of the same name. newRecord
// returns an empty record to decode documents into.
func NewCollection[R shared.Record[R]](conn *Connection, schema shared.Schema[R], newRecord func() R) *Collection[R] {
	return &Collection[R]{
		conn:      conn,
		schema:    schema,
		table:     pgx.Identifier{schema.Name}.Sanitize(),
		newRecord: newRecord,
		retrier:   retry.DatabaseRetrier(IsTransient, 3),
	}
}

func (c *Collection[R]) decode(data []byte) (R, error) {
	rec := c.newRecord()
	if err := json.Unmarshal(data, rec); err != nil {
		var zero R
		return zero, fmt.Errorf("postgres: decode %s record: %w", c.schema.Name, err)
	}
	return rec, nil
}

// GetByID implements shared.Collection.
func (c *Collection[R]) GetByID(ctx context.Context, id string) (R, error) {
	return retry.DoWithData(ctx, c.retrier, func(ctx context.Context) (R, error) {
		var zero R
		var data []byte
		err := c.conn.QueryRow(ctx, "SELECT data FROM "+c.table+" WHERE id = $1", id).Scan(&data)
		if IsNoRows(err) {
			return zero, nil
		}
		if err != nil {
			return zero, err
		}
		return c.decode(data)
	})
}

// Insert implements shared.Collection.
func (c *Collection[R]) Insert(ctx context.Context, rec R) (R, error) {
	var zero R
	data, err := json.Marshal(rec)
	if err != nil {
		return zero, fmt.Errorf("postgres: encode %s record: %w", c.schema.Name, err)
	}

	err = c.retrier.Do(ctx, func(ctx context.Context) error {
		_, err := c.conn.Exec(ctx, "INSERT INTO "+c.table+" (id, data) VALUES ($1, $2)", rec.RecordID(), data)
		if IsUniqueViolation(err) {
			return retry.Permanent(shared.WrapError(c.schema.Name, "Insert", shared.ErrConflict,
				fmt.Sprintf("record %s already exists", rec.RecordID()), shared.ErrAlreadyExists))
		}
		return err
	})
	if err != nil {
		return zero, err
	}
	return rec.Clone(), nil
}

// UpdateByID implements shared.Collection. The row is locked with
// SELECT ... FOR UPDATE for the duration of fn.
func (c *Collection[R]) UpdateByID(ctx context.Context, id string, fn shared.UpdateFunc[R]) (R, error) {
	var updated R
	var fnErr error

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		var zero R
		updated, fnErr = zero, nil
		return c.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			var data []byte
			err := tx.QueryRow(ctx, "SELECT data FROM "+c.table+" WHERE id = $1 FOR UPDATE", id).Scan(&data)
			if IsNoRows(err) {
				return nil
			}
			if err != nil {
				return err
			}

			rec, err := c.decode(data)
			if err != nil {
				return retry.Permanent(err)
			}
			if err := fn(rec); err != nil {
				fnErr = err
				return retry.Permanent(err)
			}
			if rec.RecordID() != id {
				fnErr = shared.Validation(c.schema.Name, "UpdateByID", "record id cannot change")
				return retry.Permanent(fnErr)
			}

			out, err := json.Marshal(rec)
			if err != nil {
				return retry.Permanent(fmt.Errorf("postgres: encode %s record: %w", c.schema.Name, err))
			}
			if _, err := tx.Exec(ctx, "UPDATE "+c.table+" SET data = $2, updated_at = NOW() WHERE id = $1", id, out); err != nil {
				return err
			}
			updated = rec
			return nil
		})
	})
	if fnErr != nil {
		var zero R
		return zero, fnErr
	}
	if err != nil {
		var zero R
		return zero, err
	}
	return updated, nil
}

// DeleteByID implements shared.Collection.
func (c *Collection[R]) DeleteByID(ctx context.Context, id string) (bool, error) {
	return retry.DoWithData(ctx, c.retrier, func(ctx context.Context) (bool, error) {
		tag, err := c.conn.Exec(ctx, "DELETE FROM "+c.table+" WHERE id = $1", id)
		if err != nil {
			return false, err
		}
		return tag.RowsAffected() > 0, nil
	})
}

// Query implements shared.Collection.
func (c *Collection[R]) Query(ctx context.Context, q shared.Query) (shared.Page[R], error) {
	if err := c.schema.Validate(q); err != nil {
		return shared.Page[R]{}, err
	}
	countSQL, selectSQL, args, err := BuildQuery(c.schema, q)
	if err != nil {
		return shared.Page[R]{}, err
	}

	return retry.DoWithData(ctx, c.retrier, func(ctx context.Context) (shared.Page[R], error) {
		var page shared.Page[R]
		if err := c.conn.QueryRow(ctx, countSQL, args...).Scan(&page.Total); err != nil {
			return page, err
		}

		rows, err := c.conn.Query(ctx, selectSQL, args...)
		if err != nil {
			return page, err
		}
		defer rows.Close()

		for rows.Next() {
			var data []byte
			if err := rows.Scan(&data); err != nil {
				return page, err
			}
			rec, err := c.decode(data)
			if err != nil {
				return page, retry.Permanent(err)
			}
			page.Items = append(page.Items, rec)
		}
		return page, rows.Err()
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SQL BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// ErrUnsupportedValue is returned when a filter value cannot be bound to the
// field's kind.
var ErrUnsupportedValue = errors.New("postgres: unsupported filter value")

var casts = map[shared.FieldKind]string{
	shared.KindString: "text",
	shared.KindInt:    "bigint",
	shared.KindFloat:  "double precision",
	shared.KindBool:   "boolean",
	shared.KindTime:   "timestamptz",
}

// FieldExpr returns the SQL expression that reads a document key as kind.
func FieldExpr(key string, kind shared.FieldKind) string {
	expr := "(data->>'" + strings.ReplaceAll(key, "'", "''") + "')"
	if kind == shared.KindString {
		return expr
	}
	return expr + "::" + casts[kind]
}

// BuildQuery renders the count and page statements of q against the table
// named by schema. Both statements share args. The query must already be
// validated against schema.
func BuildQuery[R any](schema shared.Schema[R], q shared.Query) (countSQL, selectSQL string, args []any, err error) {
	table := pgx.Identifier{schema.Name}.Sanitize()
	b := &whereBuilder{}
	for _, f := range q.Filters {
		if err := b.add(f, schema.Fields[f.Field].Kind); err != nil {
			return "", "", nil, err
		}
	}
	where := b.sql()

	countSQL = "SELECT COUNT(*) FROM " + table + where

	var sb strings.Builder
	sb.WriteString("SELECT data FROM ")
	sb.WriteString(table)
	sb.WriteString(where)
	sb.WriteString(" ORDER BY ")
	if q.Sort != nil {
		sb.WriteString(FieldExpr(q.Sort.Field, schema.Fields[q.Sort.Field].Kind))
		if q.Sort.Desc {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
		sb.WriteString(" NULLS LAST, ")
	}
	sb.WriteString("seq ASC")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
		if off := q.Offset(); off > 0 {
			sb.WriteString(" OFFSET " + strconv.Itoa(off))
		}
	}
	return countSQL, sb.String(), b.args, nil
}

type whereBuilder struct {
	clauses []string
	args    []any
}

func (b *whereBuilder) sql() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

func (b *whereBuilder) bind(v any, kind shared.FieldKind) (string, error) {
	v, err := bindValue(v, kind)
	if err != nil {
		return "", err
	}
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args)) + "::" + casts[kind], nil
}

func (b *whereBuilder) add(f shared.Filter, kind shared.FieldKind) error {
	expr := FieldExpr(f.Field, kind)

	switch f.Op {
	case shared.OpIsNull:
		b.clauses = append(b.clauses, expr+" IS NULL")
		return nil
	case shared.OpNotNull:
		b.clauses = append(b.clauses, expr+" IS NOT NULL")
		return nil
	case shared.OpIn:
		values, _ := f.Value.([]any)
		if len(values) == 0 {
			b.clauses = append(b.clauses, "FALSE")
			return nil
		}
		params := make([]string, 0, len(values))
		for _, v := range values {
			p, err := b.bind(v, kind)
			if err != nil {
				return err
			}
			params = append(params, p)
		}
		b.clauses = append(b.clauses, expr+" IN ("+strings.Join(params, ", ")+")")
		return nil
	}

	if shared.Normalize(f.Value) == nil {
		if f.Op == shared.OpEq {
			b.clauses = append(b.clauses, expr+" IS NULL")
			return nil
		}
		return fmt.Errorf("%w: %s %s nil", ErrUnsupportedValue, f.Field, f.Op)
	}

	op, ok := map[shared.Op]string{
		shared.OpEq:  "=",
		shared.OpGt:  ">",
		shared.OpGte: ">=",
		shared.OpLt:  "<",
		shared.OpLte: "<=",
	}[f.Op]
	if !ok {
		return fmt.Errorf("%w: operator %s", ErrUnsupportedValue, f.Op)
	}
	p, err := b.bind(f.Value, kind)
	if err != nil {
		return err
	}
	b.clauses = append(b.clauses, expr+" "+op+" "+p)
	return nil
}

// bindValue converts a normalized filter value to the Go type pgx encodes
// for kind.
func bindValue(v any, kind shared.FieldKind) (any, error) {
	v = shared.Normalize(v)
	switch kind {
	case shared.KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case shared.KindInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case float64:
			return int64(n), nil
		}
	case shared.KindFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		}
	case shared.KindBool:
		if bv, ok := v.(bool); ok {
			return bv, nil
		}
	case shared.KindTime:
		if t, ok := v.(time.Time); ok {
			return t.UTC(), nil
		}
	}
	return nil, fmt.Errorf("%w: %T for %s field", ErrUnsupportedValue, v, kind)
}
