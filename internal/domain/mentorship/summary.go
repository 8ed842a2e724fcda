package mentorship

import (
	"slices"
	"time"
)

// Summary is a read model of a mentorship's progress.
type Summary struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Status            Status     `json:"status"`
	Progress          *int       `json:"progress"`
	DurationDays      int        `json:"duration_days"`
	CompletedMeetings int        `json:"completed_meetings"`
	TotalMeetings     int        `json:"total_meetings"`
	RemainingMeetings int        `json:"remaining_meetings"`
	NextMeetingDate   *time.Time `json:"next_meeting_date"`
	LastMeetingDate   *time.Time `json:"last_meeting_date"`
	Objectives        []string   `json:"objectives"`
	ObjectiveCount    int        `json:"objective_count"`
	UpcomingMeetings  int        `json:"upcoming_meetings"`
	Rating            *float64   `json:"rating"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
}

// Summarize builds the summary at now. Counts of live objectives and
// upcoming meetings are supplied by the caller.
func (m *Mentorship) Summarize(now time.Time, objectiveCount, upcomingMeetings int) Summary {
	c := m.Clone()
	return Summary{
		ID:                c.ID,
		Title:             c.Title,
		Status:            c.Status,
		Progress:          c.Progress(),
		DurationDays:      c.DurationDays(now),
		CompletedMeetings: c.CompletedMeetings,
		TotalMeetings:     c.TotalMeetings,
		RemainingMeetings: c.RemainingMeetings(),
		NextMeetingDate:   c.NextMeetingDate,
		LastMeetingDate:   c.LastMeetingDate,
		Objectives:        slices.Clone(c.Objectives),
		ObjectiveCount:    objectiveCount,
		UpcomingMeetings:  upcomingMeetings,
		Rating:            c.Rating,
		StartDate:         c.StartDate,
		EndDate:           c.EndDate,
	}
}
