package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
)

type signup struct {
	MentorID string `json:"mentor_id" validate:"required"`
	MenteeID string `json:"mentee_id" validate:"required,nefield=MentorID"`
	Kind     string `json:"kind" validate:"omitempty,oneof=weekly monthly"`
	Count    int    `json:"count" validate:"gte=0,lte=10"`
	Internal string `validate:"omitempty,gt=2"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name string
		in   signup
		want []string
	}{
		{"valid", signup{MentorID: "a", MenteeID: "b", Kind: "weekly", Count: 3}, nil},
		{"required", signup{MenteeID: "b"}, []string{"mentor_id is required"}},
		{"same ids", signup{MentorID: "a", MenteeID: "a"}, []string{"mentee_id must differ from MentorID"}},
		{"oneof", signup{MentorID: "a", MenteeID: "b", Kind: "daily"}, []string{"kind must be one of [weekly monthly]"}},
		{"range", signup{MentorID: "a", MenteeID: "b", Count: 11}, []string{"count must be at most 10"}},
		{"untagged field name", signup{MentorID: "a", MenteeID: "b", Internal: "x"}, []string{"Internal must be greater than 2"}},
		{"several", signup{Count: -1}, []string{"mentor_id is required", "mentee_id is required", "count must be at least 0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct("mentorship", "Create", tt.in)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err))
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
			for _, msg := range tt.want {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestStructRejectsNonStruct(t *testing.T) {
	err := Struct("mentorship", "Create", 42)
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}
