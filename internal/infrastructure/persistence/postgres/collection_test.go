package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
)

type row struct{}

type kind string

var rowSchema = shared.Schema[*row]{
	Name: "meetings",
	Fields: map[string]shared.Field[*row]{
		"status":         {Kind: shared.KindString},
		"duration":       {Kind: shared.KindInt},
		"rating":         {Kind: shared.KindFloat},
		"is_anonymous":   {Kind: shared.KindBool},
		"scheduled_date": {Kind: shared.KindTime},
	},
}

func TestFieldExpr(t *testing.T) {
	assert.Equal(t, "(data->>'status')", FieldExpr("status", shared.KindString))
	assert.Equal(t, "(data->>'duration')::bigint", FieldExpr("duration", shared.KindInt))
	assert.Equal(t, "(data->>'scheduled_date')::timestamptz", FieldExpr("scheduled_date", shared.KindTime))
	assert.Equal(t, "(data->>'o''brien')", FieldExpr("o'brien", shared.KindString))
}

func TestBuildQuery_NoFilters(t *testing.T) {
	count, sel, args, err := BuildQuery(rowSchema, shared.Query{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "meetings"`, count)
	assert.Equal(t, `SELECT data FROM "meetings" ORDER BY seq ASC`, sel)
	assert.Empty(t, args)
}

func TestBuildQuery_FiltersSortAndPage(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	q := shared.Query{}.
		Where(
			shared.Eq("status", kind("scheduled")),
			shared.Gt("scheduled_date", at),
			shared.In("duration", 30, 60),
			shared.NotNull("rating"),
		).
		OrderBy("scheduled_date", true).
		Paginate(3, 20)

	count, sel, args, err := BuildQuery(rowSchema, q)
	require.NoError(t, err)

	where := ` WHERE (data->>'status') = $1::text` +
		` AND (data->>'scheduled_date')::timestamptz > $2::timestamptz` +
		` AND (data->>'duration')::bigint IN ($3::bigint, $4::bigint)` +
		` AND (data->>'rating')::double precision IS NOT NULL`
	assert.Equal(t, `SELECT COUNT(*) FROM "meetings"`+where, count)
	assert.Equal(t, `SELECT data FROM "meetings"`+where+
		` ORDER BY (data->>'scheduled_date')::timestamptz DESC NULLS LAST, seq ASC LIMIT 20 OFFSET 40`, sel)

	require.Len(t, args, 4)
	assert.Equal(t, "scheduled", args[0])
	assert.Equal(t, at.UTC(), args[1])
	assert.Equal(t, int64(30), args[2])
	assert.Equal(t, int64(60), args[3])
}

func TestBuildQuery_NullAndEmptyIn(t *testing.T) {
	_, sel, args, err := BuildQuery(rowSchema, shared.Query{}.
		Where(shared.Eq("rating", nil), shared.In("status")).
		OrderBy("rating", false).
		Paginate(1, 5))
	require.NoError(t, err)
	assert.Equal(t, `SELECT data FROM "meetings" WHERE (data->>'rating')::double precision IS NULL AND FALSE`+
		` ORDER BY (data->>'rating')::double precision ASC NULLS LAST, seq ASC LIMIT 5`, sel)
	assert.Empty(t, args)
}

func TestBuildQuery_ValueConversion(t *testing.T) {
	_, _, args, err := BuildQuery(rowSchema, shared.Query{}.Where(
		shared.Gte("rating", 4),
		shared.Eq("is_anonymous", true),
	))
	require.NoError(t, err)
	assert.Equal(t, []any{4.0, true}, args)
}

func TestBuildQuery_UnsupportedValues(t *testing.T) {
	_, _, _, err := BuildQuery(rowSchema, shared.Query{}.Where(shared.Eq("duration", "long")))
	assert.ErrorIs(t, err, ErrUnsupportedValue)

	_, _, _, err = BuildQuery(rowSchema, shared.Query{}.Where(shared.Gt("rating", nil)))
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}
