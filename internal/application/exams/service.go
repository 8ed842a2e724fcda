// Package exams assigns simulated exams from the catalog to active
// mentorships and records their scores.
package exams

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/mentorship-hub/internal/application/eventing"
	"github.com/alem-hub/mentorship-hub/internal/application/lifecycle"
	"github.com/alem-hub/mentorship-hub/internal/application/validation"
	"github.com/alem-hub/mentorship-hub/internal/domain/exam"
	"github.com/alem-hub/mentorship-hub/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/pkg/logger"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

const domainName = "exam"

// Mentorships is the part of the lifecycle manager the service needs.
type Mentorships interface {
	Get(ctx context.Context, id string) (*mentorship.Mentorship, error)
}

// Dependencies are the collaborators of the service.
type Dependencies struct {
	Catalog     exam.CatalogRepository
	Assignments exam.AssignmentRepository
	Mentorships Mentorships
	Locker      shared.Locker
	Events      shared.EventPublisher
	Clock       timeutil.Clock
	Logger      *logger.Logger
	NewID       func() string
}

// Service manages the exam catalog and exam assignments.
type Service struct {
	catalog     exam.CatalogRepository
	assignments exam.AssignmentRepository
	mentorships Mentorships
	locker      shared.Locker
	events      *eventing.Emitter
	clock       timeutil.Clock
	log         *logger.Logger
	newID       func() string
}

// NewService creates an exam service.
func NewService(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(logger.Component("exams"))
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Service{
		catalog:     deps.Catalog,
		assignments: deps.Assignments,
		mentorships: deps.Mentorships,
		locker:      deps.Locker,
		events:      eventing.NewEmitter(deps.Events, log),
		clock:       timeutil.OrReal(deps.Clock),
		log:         log,
		newID:       newID,
	}
}

func (s *Service) now() time.Time { return s.clock.Now().UTC() }

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// CreateExamCommand adds an exam to the catalog.
type CreateExamCommand struct {
	Title         string `json:"title" validate:"required"`
	Description   string `json:"description"`
	QuestionCount int    `json:"question_count" validate:"gte=0"`
	TimeLimitMins int    `json:"time_limit_minutes" validate:"gte=0"`
	CreatedBy     string `json:"created_by_user_id"`
}

// CreateExam stores a catalog entry.
func (s *Service) CreateExam(ctx context.Context, cmd CreateExamCommand) (*exam.Exam, error) {
	if err := validation.Struct(domainName, "CreateExam", cmd); err != nil {
		return nil, err
	}
	e, err := exam.NewExam(exam.NewExamParams{
		ID:            s.newID(),
		Title:         cmd.Title,
		Description:   cmd.Description,
		QuestionCount: cmd.QuestionCount,
		TimeLimitMins: cmd.TimeLimitMins,
		CreatedBy:     cmd.CreatedBy,
		Now:           s.now(),
	})
	if err != nil {
		return nil, err
	}
	stored, err := s.catalog.Insert(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("exams: insert exam: %w", err)
	}
	return stored, nil
}

// GetExam returns a catalog entry or a NotFoundError.
func (s *Service) GetExam(ctx context.Context, id string) (*exam.Exam, error) {
	e, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("exams: get exam: %w", err)
	}
	if e == nil {
		return nil, shared.NotFound(domainName, "GetExam", "exam %s not found", id)
	}
	return e, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENTS
// ══════════════════════════════════════════════════════════════════════════════

// AssignCommand gives an exam to a mentorship.
type AssignCommand struct {
	MentorshipID string     `json:"mentorship_id" validate:"required"`
	ExamID       string     `json:"exam_id" validate:"required"`
	AssignedBy   string     `json:"assigned_by_user_id" validate:"required"`
	DueDate      *time.Time `json:"due_date"`
}

// Assign gives an exam to an active mentorship. Only the mentor may assign,
// and an exam is assigned to a mentorship at most once.
func (s *Service) Assign(ctx context.Context, cmd AssignCommand) (*exam.Assignment, error) {
	const op = "Assign"
	if err := validation.Struct(domainName, op, cmd); err != nil {
		return nil, err
	}

	var created *exam.Assignment
	err := shared.WithLock(ctx, s.locker, lifecycle.LockKey(cmd.MentorshipID), func() error {
		ms, err := s.mentorships.Get(ctx, cmd.MentorshipID)
		if err != nil {
			return err
		}
		if !ms.IsActive() {
			return shared.InvalidState(domainName, op, "exams can only be assigned to active mentorships, status is %s", ms.Status)
		}
		if cmd.AssignedBy != ms.MentorID {
			return shared.Validation(domainName, op, "only the mentor can assign exams")
		}
		if _, err := s.GetExam(ctx, cmd.ExamID); err != nil {
			return err
		}

		dup, err := s.assignments.Query(ctx, shared.Query{Limit: 1}.Where(
			shared.Eq(exam.FieldMentorshipID, cmd.MentorshipID),
			shared.Eq(exam.FieldExamID, cmd.ExamID),
		))
		if err != nil {
			return fmt.Errorf("exams: check duplicate: %w", err)
		}
		if dup.Total > 0 {
			return shared.Conflict(domainName, op, "exam %s is already assigned to mentorship %s", cmd.ExamID, cmd.MentorshipID)
		}

		a, err := exam.NewAssignment(exam.NewAssignmentParams{
			ID:           s.newID(),
			MentorshipID: cmd.MentorshipID,
			ExamID:       cmd.ExamID,
			AssignedBy:   cmd.AssignedBy,
			DueDate:      cmd.DueDate,
			Now:          s.now(),
		})
		if err != nil {
			return err
		}
		if created, err = s.assignments.Insert(ctx, a); err != nil {
			return fmt.Errorf("exams: insert assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("exam assigned", logger.MentorshipID(cmd.MentorshipID), logger.String("exam_id", cmd.ExamID))
	s.events.Emit(ctx, shared.EventExamAssigned, created.ID, created.CreatedAt, map[string]any{
		"mentorship_id": created.MentorshipID,
		"exam_id":       created.ExamID,
	})
	return created, nil
}

// GetAssignment returns an assignment or a NotFoundError.
func (s *Service) GetAssignment(ctx context.Context, id string) (*exam.Assignment, error) {
	a, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("exams: get assignment: %w", err)
	}
	if a == nil {
		return nil, assignmentNotFound("GetAssignment", id)
	}
	return a, nil
}

func assignmentNotFound(op, id string) error {
	return shared.NotFound(domainName, op, "exam assignment %s not found", id)
}

// Complete records the score (0..100) of a pending assignment.
func (s *Service) Complete(ctx context.Context, id string, score int) (*exam.Assignment, error) {
	now := s.now()
	a, err := s.assignments.UpdateByID(ctx, id, func(a *exam.Assignment) error {
		return a.Complete(now, score)
	})
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, assignmentNotFound("Complete", id)
	}
	s.events.Emit(ctx, shared.EventExamCompleted, id, now, map[string]any{
		"mentorship_id": a.MentorshipID,
		"score":         score,
	})
	return a, nil
}

// UpdateAssignment applies a patch. Completed assignments only accept a new
// score.
func (s *Service) UpdateAssignment(ctx context.Context, id string, p exam.Patch) (*exam.Assignment, error) {
	now := s.now()
	a, err := s.assignments.UpdateByID(ctx, id, func(a *exam.Assignment) error {
		return a.Apply(now, p)
	})
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, assignmentNotFound("UpdateAssignment", id)
	}
	return a, nil
}

// Remove deletes a pending assignment. It reports false when the
// assignment does not exist.
func (s *Service) Remove(ctx context.Context, id string) (bool, error) {
	a, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("exams: get assignment: %w", err)
	}
	if a == nil {
		return false, nil
	}
	if err := a.CanRemove(); err != nil {
		return false, err
	}
	ok, err := s.assignments.DeleteByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("exams: delete assignment: %w", err)
	}
	return ok, nil
}

// ListByMentorship returns the assignments of an existing mentorship,
// newest first.
func (s *Service) ListByMentorship(ctx context.Context, mentorshipID string) ([]*exam.Assignment, error) {
	if _, err := s.mentorships.Get(ctx, mentorshipID); err != nil {
		return nil, err
	}
	return s.list(ctx, shared.Eq(exam.FieldMentorshipID, mentorshipID))
}

// ListPending returns the uncompleted assignments of an existing
// mentorship, newest first.
func (s *Service) ListPending(ctx context.Context, mentorshipID string) ([]*exam.Assignment, error) {
	if _, err := s.mentorships.Get(ctx, mentorshipID); err != nil {
		return nil, err
	}
	return s.list(ctx,
		shared.Eq(exam.FieldMentorshipID, mentorshipID),
		shared.IsNull(exam.FieldCompletedDate),
	)
}

// ListAssignedBy returns the assignments made by userID, newest first.
func (s *Service) ListAssignedBy(ctx context.Context, userID string) ([]*exam.Assignment, error) {
	if userID == "" {
		return nil, shared.Validation(domainName, "ListAssignedBy", "user id is required")
	}
	return s.list(ctx, shared.Eq(exam.FieldAssignedByUserID, userID))
}

func (s *Service) list(ctx context.Context, filters ...shared.Filter) ([]*exam.Assignment, error) {
	res, err := s.assignments.Query(ctx, shared.Query{}.Where(filters...).OrderBy(exam.FieldAssignedDate, true))
	if err != nil {
		return nil, fmt.Errorf("exams: list assignments: %w", err)
	}
	return res.Items, nil
}
