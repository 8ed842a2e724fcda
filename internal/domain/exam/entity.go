// Package exam contains simulated exams and their assignment to
// mentorships.
package exam

import (
	"strings"
	"time"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

const domainName = "exam"

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Exam is a catalog entry that can be assigned to mentorships.
type Exam struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	QuestionCount int       `json:"question_count"`
	TimeLimitMins int       `json:"time_limit_minutes"`
	CreatedByUser string    `json:"created_by_user_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewExamParams holds the input of NewExam.
type NewExamParams struct {
	ID            string
	Title         string
	Description   string
	QuestionCount int
	TimeLimitMins int
	CreatedBy     string
	Now           time.Time
}

// NewExam validates and creates a catalog entry.
func NewExam(p NewExamParams) (*Exam, error) {
	const op = "CreateExam"
	if p.ID == "" {
		return nil, shared.Validation(domainName, op, "id is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, shared.Validation(domainName, op, "title is required")
	}
	if p.QuestionCount < 0 || p.TimeLimitMins < 0 {
		return nil, shared.Validation(domainName, op, "question count and time limit must not be negative")
	}
	now := p.Now.UTC()
	return &Exam{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		QuestionCount: p.QuestionCount,
		TimeLimitMins: p.TimeLimitMins,
		CreatedByUser: p.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// RecordID implements shared.Record.
func (e *Exam) RecordID() string { return e.ID }

// Clone returns a copy.
func (e *Exam) Clone() *Exam {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENT
// ══════════════════════════════════════════════════════════════════════════════

// Assignment is an exam given to a mentorship by its mentor. It is pending
// until completed with a score.
type Assignment struct {
	ID               string     `json:"id"`
	MentorshipID     string     `json:"mentorship_id"`
	ExamID           string     `json:"exam_id"`
	AssignedByUserID string     `json:"assigned_by_user_id"`
	AssignedDate     time.Time  `json:"assigned_date"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	CompletedDate    *time.Time `json:"completed_date,omitempty"`
	Score            *int       `json:"score,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewAssignmentParams holds the input of NewAssignment.
type NewAssignmentParams struct {
	ID           string
	MentorshipID string
	ExamID       string
	AssignedBy   string
	DueDate      *time.Time
	Now          time.Time
}

// NewAssignment creates a pending assignment.
func NewAssignment(p NewAssignmentParams) (*Assignment, error) {
	if p.ID == "" || p.MentorshipID == "" || p.ExamID == "" || p.AssignedBy == "" {
		return nil, shared.Validation(domainName, "Assign", "mentorship, exam and assigner are required")
	}
	now := p.Now.UTC()
	return &Assignment{
		ID:               p.ID,
		MentorshipID:     p.MentorshipID,
		ExamID:           p.ExamID,
		AssignedByUserID: p.AssignedBy,
		AssignedDate:     now,
		DueDate:          timeutil.ClonePtr(p.DueDate),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsCompleted reports whether a score was recorded.
func (a *Assignment) IsCompleted() bool { return a.CompletedDate != nil }

func validateScore(op string, score int) error {
	if score < MinScore || score > MaxScore {
		return shared.NewDomainError(domainName, op, shared.ErrValueOutOfRange, "score must be between 0 and 100")
	}
	return nil
}

// Complete records the score. Completing twice is an invalid state.
func (a *Assignment) Complete(now time.Time, score int) error {
	const op = "Complete"
	if err := validateScore(op, score); err != nil {
		return err
	}
	if a.IsCompleted() {
		return shared.InvalidState(domainName, op, "exam assignment %s is already completed", a.ID)
	}
	a.Score = &score
	a.CompletedDate = timeutil.Ptr(now)
	a.UpdatedAt = now
	return nil
}

// Patch is a partial update of an assignment.
type Patch struct {
	DueDate *time.Time
	Score   *int
}

// Apply updates the assignment. A completed assignment only accepts a new
// score.
func (a *Assignment) Apply(now time.Time, p Patch) error {
	const op = "UpdateAssignment"
	if a.IsCompleted() && (p.Score == nil || p.DueDate != nil) {
		return shared.InvalidState(domainName, op, "completed assignments may only change their score")
	}
	if p.Score != nil {
		if err := validateScore(op, *p.Score); err != nil {
			return err
		}
		s := *p.Score
		a.Score = &s
	}
	if p.DueDate != nil {
		a.DueDate = timeutil.ClonePtr(p.DueDate)
	}
	a.UpdatedAt = now
	return nil
}

// CanRemove fails for completed assignments.
func (a *Assignment) CanRemove() error {
	if a.IsCompleted() {
		return shared.InvalidState(domainName, "Remove", "completed exam assignments cannot be removed")
	}
	return nil
}

// RecordID implements shared.Record.
func (a *Assignment) RecordID() string { return a.ID }

// Clone returns a deep copy.
func (a *Assignment) Clone() *Assignment {
	if a == nil {
		return nil
	}
	c := *a
	c.DueDate = timeutil.ClonePtr(a.DueDate)
	c.CompletedDate = timeutil.ClonePtr(a.CompletedDate)
	if a.Score != nil {
		s := *a.Score
		c.Score = &s
	}
	return &c
}
