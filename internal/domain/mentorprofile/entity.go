// Package mentorprofile contains the public profile of a mentor, keyed by
// the mentor's user id. The aggregated rating lives here.
package mentorprofile

import (
	"slices"
	"strings"
	"time"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
)

const domainName = "mentor_profile"

// Rating bounds of the aggregated rating.
const (
	MinRating = 0.0
	MaxRating = 5.0
)

// Profile describes a mentor.
type Profile struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Specialties   []string  `json:"specialties"`
	Biography     string    `json:"biography"`
	Experience    []string  `json:"experience"`
	Education     []string  `json:"education"`
	Availability  []string  `json:"availability"`
	Rating        *float64  `json:"rating,omitempty"`
	TotalSessions int       `json:"total_sessions"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewProfileParams holds the input of NewProfile.
type NewProfileParams struct {
	UserID       string
	Specialties  []string
	Biography    string
	Experience   []string
	Education    []string
	Availability []string
	Now          time.Time
}

// NewProfile creates a profile whose id is the user id. It starts with no
// rating and zero sessions.
func NewProfile(p NewProfileParams) (*Profile, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return nil, shared.Validation(domainName, "Create", "user id is required")
	}
	now := p.Now.UTC()
	return &Profile{
		ID:           p.UserID,
		UserID:       p.UserID,
		Specialties:  nonNil(p.Specialties),
		Biography:    p.Biography,
		Experience:   nonNil(p.Experience),
		Education:    nonNil(p.Education),
		Availability: nonNil(p.Availability),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateRating accepts nil or a value in [0, 5].
func ValidateRating(rating *float64) error {
	if rating != nil && (*rating < MinRating || *rating > MaxRating) {
		return shared.NewDomainError(domainName, "SetRating", shared.ErrValueOutOfRange, "rating must be between 0 and 5")
	}
	return nil
}

// SetRating replaces the aggregated rating. Nil clears it.
func (p *Profile) SetRating(now time.Time, rating *float64) error {
	if err := ValidateRating(rating); err != nil {
		return err
	}
	if rating == nil {
		p.Rating = nil
	} else {
		r := *rating
		p.Rating = &r
	}
	p.UpdatedAt = now
	return nil
}

// IncrementSessions counts one more held session.
func (p *Profile) IncrementSessions(now time.Time) {
	p.TotalSessions++
	p.UpdatedAt = now
}

// Patch is a partial update of the descriptive fields.
type Patch struct {
	Specialties  []string
	Biography    *string
	Experience   []string
	Education    []string
	Availability []string
}

// Apply updates the descriptive fields. Nil slices are left unchanged.
func (p *Profile) Apply(now time.Time, patch Patch) {
	if patch.Specialties != nil {
		p.Specialties = slices.Clone(patch.Specialties)
	}
	if patch.Biography != nil {
		p.Biography = *patch.Biography
	}
	if patch.Experience != nil {
		p.Experience = slices.Clone(patch.Experience)
	}
	if patch.Education != nil {
		p.Education = slices.Clone(patch.Education)
	}
	if patch.Availability != nil {
		p.Availability = slices.Clone(patch.Availability)
	}
	p.UpdatedAt = now
}

// HasSpecialty reports whether the profile lists specialty (case-insensitive).
func (p *Profile) HasSpecialty(specialty string) bool {
	return slices.ContainsFunc(p.Specialties, func(s string) bool {
		return strings.EqualFold(s, specialty)
	})
}

// RecordID implements shared.Record.
func (p *Profile) RecordID() string { return p.ID }

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Specialties = slices.Clone(p.Specialties)
	c.Experience = slices.Clone(p.Experience)
	c.Education = slices.Clone(p.Education)
	c.Availability = slices.Clone(p.Availability)
	if p.Rating != nil {
		r := *p.Rating
		c.Rating = &r
	}
	return &c
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// STORAGE
// ══════════════════════════════════════════════════════════════════════════════

// Repository is the storage gateway for mentor profiles.
type Repository = shared.Collection[*Profile]

// Queryable field names (JSON keys).
const (
	FieldRating        = "rating"
	FieldTotalSessions = "total_sessions"
	FieldCreatedAt     = "created_at"
)

// Schema describes the mentor profiles collection.
var Schema = shared.Schema[*Profile]{
	Name: "mentor_profiles",
	Fields: map[string]shared.Field[*Profile]{
		FieldRating: {Kind: shared.KindFloat, Get: func(p *Profile) any {
			if p.Rating == nil {
				return nil
			}
			return *p.Rating
		}},
		FieldTotalSessions: {Kind: shared.KindInt, Get: func(p *Profile) any { return p.TotalSessions }},
		FieldCreatedAt:     {Kind: shared.KindTime, Get: func(p *Profile) any { return p.CreatedAt }},
	},
}
