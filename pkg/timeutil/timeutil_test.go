package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestManualClock(t *testing.T) {
	c := NewManualClock(base)
	assert.Equal(t, base, c.Now())

	c.Advance(90 * time.Minute)
	assert.Equal(t, base.Add(90*time.Minute), c.Now())

	c.Set(base)
	assert.Equal(t, base, c.Now())

	assert.Same(t, c, OrReal(c))
	assert.IsType(t, RealClock{}, OrReal(nil))
}

func TestDaysBetweenCeil(t *testing.T) {
	assert.Equal(t, 0, DaysBetweenCeil(base, base))
	assert.Equal(t, 0, DaysBetweenCeil(base, base.Add(-time.Hour)))
	assert.Equal(t, 1, DaysBetweenCeil(base, base.Add(time.Minute)))
	assert.Equal(t, 2, DaysBetweenCeil(base, AddDays(base, 2)))
	assert.Equal(t, 3, DaysBetweenCeil(base, AddDays(base, 2).Add(time.Second)))
}

func TestHoursRounded(t *testing.T) {
	assert.Equal(t, 1.5, HoursRounded(90*time.Minute))
	assert.Equal(t, 0.3, HoursRounded(20*time.Minute))
}

func TestPointers(t *testing.T) {
	p := Ptr(base)
	c := ClonePtr(p)
	assert.Equal(t, *p, *c)
	assert.NotSame(t, p, c)
	assert.Nil(t, ClonePtr(nil))
}
