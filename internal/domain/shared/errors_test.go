package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"validation", Validation("mentorship", "Create", "bad %s", "input"), KindValidation},
		{"not found", NotFound("meeting", "Get", "missing"), KindNotFound},
		{"invalid state", InvalidState("objective", "Start", "done"), KindInvalidState},
		{"conflict", Conflict("mentorship", "Delete", "has meetings"), KindConflict},
		{"state transition sentinel", WrapError("meeting", "complete", ErrStateTransition, "no", nil), KindInvalidState},
		{"already exists sentinel", WrapError("x", "Insert", ErrConflict, "dup", ErrAlreadyExists), KindConflict},
		{"wrapped twice", fmt.Errorf("outer: %w", NotFound("x", "Get", "gone")), KindNotFound},
		{"plain error", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestDomainError_Message(t *testing.T) {
	err := Validation("mentorship", "Create", "mentor and mentee must differ")
	assert.Equal(t, "mentorship.Create: mentor and mentee must differ", err.Error())

	wrapped := WrapError("meeting", "Insert", ErrConflict, "duplicate", errors.New("id taken"))
	assert.Equal(t, "meeting.Insert: duplicate: id taken", wrapped.Error())
	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsNotFound(wrapped))
}
