package scheduling

import (
	"context"
	"fmt"

	"github.com/alem-hub/mentorship-hub/internal/application/lifecycle"
	"github.com/alem-hub/mentorship-hub/internal/domain/meeting"
	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
)

// ListQuery filters the meetings of one mentorship.
type ListQuery struct {
	MentorshipID string
	Statuses     []meeting.Status
	Page         int
	Limit        int
	// Upcoming keeps only meetings scheduled after now, soonest first.
	// Otherwise meetings are listed latest first.
	Upcoming bool
}

// ListResult is one page of meetings.
type ListResult struct {
	Items      []*meeting.Meeting `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

// ListMeetings pages through the meetings of an existing mentorship.
func (s *Scheduler) ListMeetings(ctx context.Context, q ListQuery) (*ListResult, error) {
	const op = "List"

	page, limit := q.Page, q.Limit
	if page == 0 {
		page = lifecycle.DefaultPage
	}
	if limit == 0 {
		limit = lifecycle.DefaultLimit
	}
	if page < 1 {
		return nil, shared.Validation(domainName, op, "page must be at least 1")
	}
	if limit < 1 || limit > s.maxPage {
		return nil, shared.Validation(domainName, op, "limit must be between 1 and %d", s.maxPage)
	}
	for _, st := range q.Statuses {
		if !st.IsValid() {
			return nil, shared.Validation(domainName, op, "invalid status %q", st)
		}
	}

	if _, err := s.mentorships.Get(ctx, q.MentorshipID); err != nil {
		return nil, err
	}

	query := shared.Query{}.
		Where(shared.Eq(meeting.FieldMentorshipID, q.MentorshipID)).
		Paginate(page, limit)
	switch len(q.Statuses) {
	case 0:
	case 1:
		query = query.Where(shared.Eq(meeting.FieldStatus, string(q.Statuses[0])))
	default:
		query = query.Where(shared.In(meeting.FieldStatus, meeting.StatusValues(q.Statuses...)...))
	}
	if q.Upcoming {
		query = query.
			Where(shared.Gt(meeting.FieldScheduledDate, s.now())).
			OrderBy(meeting.FieldScheduledDate, false)
	} else {
		query = query.OrderBy(meeting.FieldScheduledDate, true)
	}

	res, err := s.repo.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list meetings: %w", err)
	}
	return &ListResult{
		Items:      res.Items,
		Total:      res.Total,
		Page:       page,
		Limit:      limit,
		TotalPages: shared.TotalPages(res.Total, limit),
	}, nil
}

// UpcomingForMentorship returns every scheduled meeting still ahead,
// soonest first.
func (s *Scheduler) UpcomingForMentorship(ctx context.Context, mentorshipID string) ([]*meeting.Meeting, error) {
	res, err := s.repo.Query(ctx, shared.Query{}.
		Where(
			shared.Eq(meeting.FieldMentorshipID, mentorshipID),
			shared.Eq(meeting.FieldStatus, string(meeting.StatusScheduled)),
			shared.Gt(meeting.FieldScheduledDate, s.now()),
		).
		OrderBy(meeting.FieldScheduledDate, false))
	if err != nil {
		return nil, fmt.Errorf("scheduling: upcoming meetings: %w", err)
	}
	return res.Items, nil
}
