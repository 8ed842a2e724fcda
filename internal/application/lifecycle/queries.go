package lifecycle

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/mentorship-hub/internal/domain/meeting"
	"github.com/alem-hub/mentorship-hub/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-hub/internal/domain/objective"
	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
)

// ListQuery filters List. Empty fields do not filter.
type ListQuery struct {
	MentorID string
	MenteeID string
	Statuses []mentorship.Status
	Page     int
	Limit    int
}

// ListResult is one page of mentorships, newest first.
type ListResult struct {
	Items      []*mentorship.Mentorship `json:"items"`
	Total      int                      `json:"total"`
	Page       int                      `json:"page"`
	Limit      int                      `json:"limit"`
	TotalPages int                      `json:"total_pages"`
}

// List pages through mentorships sorted by creation time, newest first.
func (m *Manager) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	const op = "List"

	page, limit := q.Page, q.Limit
	if page == 0 {
		page = DefaultPage
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if page < 1 {
		return nil, shared.Validation(domainName, op, "page must be at least 1")
	}
	if limit < 1 || limit > m.cfg.MaxPageSize {
		return nil, shared.Validation(domainName, op, "limit must be between 1 and %d", m.cfg.MaxPageSize)
	}

	query := shared.Query{}.OrderBy(mentorship.FieldCreatedAt, true).Paginate(page, limit)
	if q.MentorID != "" {
		query = query.Where(shared.Eq(mentorship.FieldMentorID, q.MentorID))
	}
	if q.MenteeID != "" {
		query = query.Where(shared.Eq(mentorship.FieldMenteeID, q.MenteeID))
	}
	for _, s := range q.Statuses {
		if !s.IsValid() {
			return nil, shared.Validation(domainName, op, "invalid status %q", s)
		}
	}
	switch len(q.Statuses) {
	case 0:
	case 1:
		query = query.Where(shared.Eq(mentorship.FieldStatus, string(q.Statuses[0])))
	default:
		query = query.Where(shared.In(mentorship.FieldStatus, mentorship.StatusValues(q.Statuses...)...))
	}

	res, err := m.repo.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: list mentorships: %w", err)
	}
	return &ListResult{
		Items:      res.Items,
		Total:      res.Total,
		Page:       page,
		Limit:      limit,
		TotalPages: shared.TotalPages(res.Total, limit),
	}, nil
}

// ListByMentor returns every mentorship of a mentor, newest first.
func (m *Manager) ListByMentor(ctx context.Context, mentorID string) ([]*mentorship.Mentorship, error) {
	return m.listBy(ctx, mentorship.FieldMentorID, mentorID)
}

// ListByMentee returns every mentorship of a mentee, newest first.
func (m *Manager) ListByMentee(ctx context.Context, menteeID string) ([]*mentorship.Mentorship, error) {
	return m.listBy(ctx, mentorship.FieldMenteeID, menteeID)
}

func (m *Manager) listBy(ctx context.Context, field, userID string) ([]*mentorship.Mentorship, error) {
	if userID == "" {
		return nil, shared.Validation(domainName, "List", "user id is required")
	}
	res, err := m.repo.Query(ctx, shared.Query{}.
		Where(shared.Eq(field, userID)).
		OrderBy(mentorship.FieldCreatedAt, true))
	if err != nil {
		return nil, fmt.Errorf("lifecycle: list mentorships: %w", err)
	}
	return res.Items, nil
}

// Progress returns round(100*completed/total), or nil without a target.
func (m *Manager) Progress(ms *mentorship.Mentorship) *int {
	return ms.Progress()
}

// ExistsActiveBetween reports whether an active mentorship exists for the
// ordered (mentor, mentee) pair.
func (m *Manager) ExistsActiveBetween(ctx context.Context, mentorID, menteeID string) (bool, error) {
	res, err := m.repo.Query(ctx, shared.Query{Limit: 1}.Where(
		shared.Eq(mentorship.FieldMentorID, mentorID),
		shared.Eq(mentorship.FieldMenteeID, menteeID),
		shared.Eq(mentorship.FieldStatus, string(mentorship.StatusActive)),
	))
	if err != nil {
		return false, fmt.Errorf("lifecycle: check active pair: %w", err)
	}
	return res.Total > 0, nil
}

// Summary builds the progress summary of a mentorship. Objective and
// upcoming meeting counts are read in parallel.
func (m *Manager) Summary(ctx context.Context, id string) (*mentorship.Summary, error) {
	ms, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := m.now()

	var objectives, upcoming int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := m.objectives.Query(gctx, shared.Query{Limit: 1}.Where(
			shared.Eq(objective.FieldMentorshipID, id),
			shared.In(objective.FieldStatus, string(objective.StatusPending), string(objective.StatusInProgress), string(objective.StatusCompleted)),
		))
		if err != nil {
			return fmt.Errorf("lifecycle: count objectives: %w", err)
		}
		objectives = res.Total
		return nil
	})
	g.Go(func() error {
		res, err := m.meetings.Query(gctx, shared.Query{Limit: 1}.Where(
			shared.Eq(meeting.FieldMentorshipID, id),
			shared.Eq(meeting.FieldStatus, string(meeting.StatusScheduled)),
			shared.Gt(meeting.FieldScheduledDate, now),
		))
		if err != nil {
			return fmt.Errorf("lifecycle: count upcoming meetings: %w", err)
		}
		upcoming = res.Total
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := ms.Summarize(now, objectives, upcoming)
	return &s, nil
}
