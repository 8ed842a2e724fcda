package meeting

import (
	"time"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

// Repository is the storage gateway for meetings.
type Repository = shared.Collection[*Meeting]

// Queryable field names (JSON keys).
const (
	FieldMentorshipID      = "mentorship_id"
	FieldStatus            = "status"
	FieldScheduledDate     = "scheduled_date"
	FieldMeetingType       = "meeting_type"
	FieldRescheduledFromID = "rescheduled_from_id"
	FieldRescheduledToID   = "rescheduled_to_id"
	FieldCreatedAt         = "created_at"
)

// Schema describes the meetings collection.
var Schema = shared.Schema[*Meeting]{
	Name: "meetings",
	Fields: map[string]shared.Field[*Meeting]{
		FieldMentorshipID:  {Kind: shared.KindString, Get: func(m *Meeting) any { return m.MentorshipID }},
		FieldStatus:        {Kind: shared.KindString, Get: func(m *Meeting) any { return string(m.Status) }},
		FieldScheduledDate: {Kind: shared.KindTime, Get: func(m *Meeting) any { return m.ScheduledDate }},
		FieldMeetingType:   {Kind: shared.KindString, Get: func(m *Meeting) any { return string(m.MeetingType) }},
		FieldRescheduledFromID: {Kind: shared.KindString, Get: func(m *Meeting) any {
			return optString(m.RescheduledFromID)
		}},
		FieldRescheduledToID: {Kind: shared.KindString, Get: func(m *Meeting) any {
			return optString(m.RescheduledToID)
		}},
		FieldCreatedAt: {Kind: shared.KindTime, Get: func(m *Meeting) any { return m.CreatedAt }},
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

func optString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// ══════════════════════════════════════════════════════════════════════════════
// SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// Window is a planned or actual date with a duration in minutes.
type Window struct {
	Date     time.Time `json:"date"`
	Duration int       `json:"duration"`
}

// Distance is the time between now and the scheduled date.
type Distance struct {
	Hours  float64 `json:"hours"`
	IsPast bool    `json:"is_past"`
}

// Summary is a read model of a meeting.
type Summary struct {
	ID               string   `json:"id"`
	MentorshipID     string   `json:"mentorship_id"`
	Status           Status   `json:"status"`
	IsUpcoming       bool     `json:"is_upcoming"`
	MeetingType      Type     `json:"meeting_type"`
	Scheduled        Window   `json:"scheduled"`
	Actual           *Window  `json:"actual"`
	TimeUntilOrSince Distance `json:"time_until_or_since"`
	Agenda           string   `json:"agenda"`
	HasFeedback      bool     `json:"has_feedback"`
	WasRescheduled   bool     `json:"was_rescheduled"`
}

// Summarize builds the summary at now. Hours are rounded to one decimal.
func (m *Meeting) Summarize(now time.Time) Summary {
	diff := m.ScheduledDate.Sub(now)
	if diff < 0 {
		diff = -diff
	}

	s := Summary{
		ID:           m.ID,
		MentorshipID: m.MentorshipID,
		Status:       m.Status,
		IsUpcoming:   m.IsUpcoming(now),
		MeetingType:  m.MeetingType,
		Scheduled:    Window{Date: m.ScheduledDate, Duration: m.Duration},
		TimeUntilOrSince: Distance{
			Hours:  timeutil.HoursRounded(diff),
			IsPast: !m.ScheduledDate.After(now),
		},
		Agenda:         m.Agenda,
		HasFeedback:    m.HasFeedback(),
		WasRescheduled: m.Status == StatusRescheduled,
	}
	if m.ActualDate != nil {
		w := Window{Date: *m.ActualDate}
		if m.ActualDuration != nil {
			w.Duration = *m.ActualDuration
		}
		s.Actual = &w
	}
	return s
}
