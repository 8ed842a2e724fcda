package objective

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
)

var now = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestObjective(t *testing.T, status Status, progress int) *Objective {
	t.Helper()
	o, err := NewObjective(NewObjectiveParams{
		ID:           "o1",
		MentorshipID: "m1",
		Title:        "Learn channels",
		Status:       status,
		Progress:     progress,
		Now:          now,
	})
	require.NoError(t, err)
	return o
}

func TestNewObjective(t *testing.T) {
	o := newTestObjective(t, "", 0)
	assert.Equal(t, StatusPending, o.Status)
	assert.Nil(t, o.CompletedDate)

	done := newTestObjective(t, StatusCompleted, 100)
	require.NotNil(t, done.CompletedDate)
	assert.Equal(t, now, *done.CompletedDate)

	_, err := NewObjective(NewObjectiveParams{ID: "x", MentorshipID: "m", Title: "t", Progress: 101, Now: now})
	assert.True(t, shared.IsValidation(err))
	_, err = NewObjective(NewObjectiveParams{ID: "x", MentorshipID: "m", Title: "", Now: now})
	assert.True(t, shared.IsValidation(err))
	_, err = NewObjective(NewObjectiveParams{ID: "x", MentorshipID: "m", Title: "t", Status: "paused", Now: now})
	assert.True(t, shared.IsValidation(err))
}

func TestObjective_UpdateProgress(t *testing.T) {
	tests := []struct {
		name     string
		from     Status
		progress int
		want     Status
	}{
		{"pending partial", StatusPending, 40, StatusInProgress},
		{"pending full", StatusPending, 100, StatusCompleted},
		{"pending zero stays", StatusPending, 0, StatusPending},
		{"in progress full", StatusInProgress, 100, StatusCompleted},
		{"in progress zero", StatusInProgress, 0, StatusPending},
		{"in progress partial stays", StatusInProgress, 60, StatusInProgress},
		{"completed reopened", StatusCompleted, 80, StatusInProgress},
		{"completed zero stays", StatusCompleted, 0, StatusCompleted},
		{"cancelled partial", StatusCancelled, 20, StatusInProgress},
		{"cancelled full", StatusCancelled, 100, StatusCompleted},
		{"cancelled zero stays", StatusCancelled, 0, StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestObjective(t, tt.from, 0)
			require.NoError(t, o.UpdateProgress(now.Add(time.Hour), tt.progress))
			assert.Equal(t, tt.want, o.Status)
			assert.Equal(t, tt.progress, o.Progress)
			if tt.want == StatusCompleted {
				assert.NotNil(t, o.CompletedDate)
			} else {
				assert.Nil(t, o.CompletedDate)
			}
		})
	}
}

func TestObjective_UpdateProgressOutOfRange(t *testing.T) {
	o := newTestObjective(t, StatusPending, 10)
	assert.True(t, shared.IsValidation(o.UpdateProgress(now, -1)))
	assert.True(t, shared.IsValidation(o.UpdateProgress(now, 150)))
	assert.Equal(t, 10, o.Progress)
}

func TestObjective_Start(t *testing.T) {
	o := newTestObjective(t, StatusPending, 0)
	changed, err := o.Start(now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusInProgress, o.Status)
	assert.Equal(t, StartProgress, o.Progress)

	changed, err = o.Start(now)
	require.NoError(t, err)
	assert.False(t, changed)

	kept := newTestObjective(t, StatusPending, 35)
	_, err = kept.Start(now)
	require.NoError(t, err)
	assert.Equal(t, 35, kept.Progress)

	done := newTestObjective(t, StatusCompleted, 100)
	_, err = done.Start(now)
	assert.True(t, shared.IsInvalidState(err))
}

func TestObjective_Complete(t *testing.T) {
	o := newTestObjective(t, StatusInProgress, 50)
	changed, err := o.Complete(now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 100, o.Progress)
	require.NotNil(t, o.CompletedDate)

	changed, err = o.Complete(now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, now, *o.CompletedDate)

	cancelled := newTestObjective(t, StatusCancelled, 0)
	_, err = cancelled.Complete(now)
	assert.True(t, shared.IsInvalidState(err))
}

func TestObjective_Cancel(t *testing.T) {
	o := newTestObjective(t, StatusPending, 0)
	changed, err := o.Cancel(now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusCancelled, o.Status)

	changed, err = o.Cancel(now)
	require.NoError(t, err)
	assert.False(t, changed)

	done := newTestObjective(t, StatusCompleted, 100)
	_, err = done.Cancel(now)
	assert.True(t, shared.IsInvalidState(err))
}

func TestObjective_Apply(t *testing.T) {
	o := newTestObjective(t, StatusPending, 0)
	title := "Learn select"
	progress := 100

	prev, err := o.Apply(now, Patch{Title: &title, Progress: &progress})
	require.NoError(t, err)
	assert.Equal(t, "Learn channels", prev)
	assert.Equal(t, "Learn select", o.Title)
	assert.Equal(t, StatusCompleted, o.Status)

	blank := " "
	_, err = o.Apply(now, Patch{Title: &blank})
	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, "Learn select", o.Title)
}
