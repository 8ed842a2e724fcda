package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
)

type note struct {
	ID       string
	Owner    string
	Priority int
	Due      *time.Time
}

func (n *note) RecordID() string { return n.ID }

func (n *note) Clone() *note {
	c := *n
	if n.Due != nil {
		d := *n.Due
		c.Due = &d
	}
	return &c
}

var noteSchema = shared.Schema[*note]{
	Name: "notes",
	Fields: map[string]shared.Field[*note]{
		"owner":    {Kind: shared.KindString, Get: func(n *note) any { return n.Owner }},
		"priority": {Kind: shared.KindInt, Get: func(n *note) any { return n.Priority }},
		"due": {Kind: shared.KindTime, Get: func(n *note) any {
			if n.Due == nil {
				return nil
			}
			return *n.Due
		}},
	},
}

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) *time.Time {
	t := base.AddDate(0, 0, n)
	return &t
}

func seed(t *testing.T) *Collection[*note] {
	t.Helper()
	c := NewCollection(noteSchema)
	ctx := context.Background()
	for _, n := range []*note{
		{ID: "a", Owner: "ann", Priority: 2, Due: day(3)},
		{ID: "b", Owner: "bob", Priority: 1},
		{ID: "c", Owner: "ann", Priority: 3, Due: day(1)},
		{ID: "d", Owner: "cid", Priority: 2, Due: day(2)},
	} {
		_, err := c.Insert(ctx, n)
		require.NoError(t, err)
	}
	return c
}

func ids(items []*note) []string {
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.ID
	}
	return out
}

func TestCollection_CRUD(t *testing.T) {
	ctx := context.Background()
	c := NewCollection(noteSchema)

	in := &note{ID: "n1", Owner: "ann"}
	stored, err := c.Insert(ctx, in)
	require.NoError(t, err)
	in.Owner = "mutated"
	assert.Equal(t, "ann", stored.Owner)

	got, err := c.GetByID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "ann", got.Owner)
	got.Owner = "mutated"
	again, _ := c.GetByID(ctx, "n1")
	assert.Equal(t, "ann", again.Owner)

	missing, err := c.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = c.Insert(ctx, &note{ID: "n1"})
	assert.True(t, shared.IsConflict(err))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	_, err = c.Insert(ctx, &note{})
	assert.True(t, shared.IsValidation(err))

	updated, err := c.UpdateByID(ctx, "n1", func(n *note) error {
		n.Priority = 9
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Priority)

	none, err := c.UpdateByID(ctx, "nope", func(n *note) error { return nil })
	require.NoError(t, err)
	assert.Nil(t, none)

	deleted, err := c.DeleteByID(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = c.DeleteByID(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, 0, c.Len())
}

func TestCollection_UpdateAbortsOnError(t *testing.T) {
	ctx := context.Background()
	c := seed(t)
	boom := errors.New("boom")

	_, err := c.UpdateByID(ctx, "a", func(n *note) error {
		n.Owner = "changed"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := c.GetByID(ctx, "a")
	assert.Equal(t, "ann", got.Owner)

	_, err = c.UpdateByID(ctx, "a", func(n *note) error {
		n.ID = "z"
		return nil
	})
	assert.True(t, shared.IsValidation(err))
}

func TestCollection_QueryFilters(t *testing.T) {
	ctx := context.Background()
	c := seed(t)

	tests := []struct {
		name string
		q    shared.Query
		want []string
	}{
		{"all in insertion order", shared.Query{}, []string{"a", "b", "c", "d"}},
		{"eq", shared.Query{}.Where(shared.Eq("owner", "ann")), []string{"a", "c"}},
		{"in", shared.Query{}.Where(shared.In("owner", "bob", "cid")), []string{"b", "d"}},
		{"empty in", shared.Query{}.Where(shared.In("owner")), []string{}},
		{"gte", shared.Query{}.Where(shared.Gte("priority", 2)), []string{"a", "c", "d"}},
		{"lt time", shared.Query{}.Where(shared.Lt("due", *day(3))), []string{"c", "d"}},
		{"is null", shared.Query{}.Where(shared.IsNull("due")), []string{"b"}},
		{"eq nil", shared.Query{}.Where(shared.Eq("due", nil)), []string{"b"}},
		{"not null", shared.Query{}.Where(shared.NotNull("due")), []string{"a", "c", "d"}},
		{"combined", shared.Query{}.Where(shared.Eq("owner", "ann"), shared.Gt("priority", 2)), []string{"c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := c.Query(ctx, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page.Items))
			assert.Equal(t, len(tt.want), page.Total)
		})
	}
}

func TestCollection_QuerySortAndPage(t *testing.T) {
	ctx := context.Background()
	c := seed(t)

	page, err := c.Query(ctx, shared.Query{}.OrderBy("due", false))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d", "a", "b"}, ids(page.Items), "nulls last ascending")

	page, err = c.Query(ctx, shared.Query{}.OrderBy("due", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d", "c", "b"}, ids(page.Items), "nulls last descending")

	page, err = c.Query(ctx, shared.Query{}.OrderBy("priority", false))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "d", "c"}, ids(page.Items), "ties keep insertion order")

	page, err = c.Query(ctx, shared.Query{}.OrderBy("priority", true).Paginate(2, 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b"}, ids(page.Items))
	assert.Equal(t, 4, page.Total)

	page, err = c.Query(ctx, shared.Query{}.Paginate(5, 2))
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 4, page.Total)
}

func TestCollection_QueryRejectsUnknownField(t *testing.T) {
	c := seed(t)
	_, err := c.Query(context.Background(), shared.Query{}.Where(shared.Eq("colour", "red")))
	assert.True(t, shared.IsValidation(err))
}

func TestCollection_ContextCancelled(t *testing.T) {
	c := seed(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetByID(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = c.Query(ctx, shared.Query{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollection_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	c := seed(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.UpdateByID(ctx, "b", func(n *note) error {
				n.Priority++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := c.GetByID(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 51, got.Priority, fmt.Sprintf("lost updates: %d", 51-got.Priority))
}
