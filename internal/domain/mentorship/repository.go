package mentorship

import "github.com/alem-hub/mentorship-hub/internal/domain/shared"

// Repository is the storage gateway for mentorships.
type Repository = shared.Collection[*Mentorship]

// Queryable field names (JSON keys).
const (
	FieldMentorID        = "mentor_id"
	FieldMenteeID        = "mentee_id"
	FieldStatus          = "status"
	FieldStartDate       = "start_date"
	FieldEndDate         = "end_date"
	FieldNextMeetingDate = "next_meeting_date"
	FieldCreatedAt       = "created_at"
	FieldUpdatedAt       = "updated_at"
)

// Schema describes the mentorships collection.
var Schema = shared.Schema[*Mentorship]{
	Name: "mentorships",
	Fields: map[string]shared.Field[*Mentorship]{
		FieldMentorID:  {Kind: shared.KindString, Get: func(m *Mentorship) any { return m.MentorID }},
		FieldMenteeID:  {Kind: shared.KindString, Get: func(m *Mentorship) any { return m.MenteeID }},
		FieldStatus:    {Kind: shared.KindString, Get: func(m *Mentorship) any { return string(m.Status) }},
		FieldStartDate: {Kind: shared.KindTime, Get: func(m *Mentorship) any { return m.StartDate }},
		FieldEndDate:   {Kind: shared.KindTime, Get: func(m *Mentorship) any { return optTime(m.EndDate) }},
		FieldNextMeetingDate: {Kind: shared.KindTime, Get: func(m *Mentorship) any {
			return optTime(m.NextMeetingDate)
		}},
		FieldCreatedAt: {Kind: shared.KindTime, Get: func(m *Mentorship) any { return m.CreatedAt }},
		FieldUpdatedAt: {Kind: shared.KindTime, Get: func(m *Mentorship) any { return m.UpdatedAt }},
	},
}

// StatusValues converts statuses for an In filter.
func StatusValues(statuses ...Status) []any {
	out := make([]any, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func optTime[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
