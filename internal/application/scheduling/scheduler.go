// Package scheduling implements the Meeting Scheduler: meeting status
// transitions, reschedule chains and the completion callback into the
// mentorship lifecycle.
package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/mentorship-hub/internal/application/eventing"
	"github.com/alem-hub/mentorship-hub/internal/application/lifecycle"
	"github.com/alem-hub/mentorship-hub/internal/application/validation"
	"github.com/alem-hub/mentorship-hub/internal/domain/meeting"
	"github.com/alem-hub/mentorship-hub/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/pkg/logger"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

const domainName = "meeting"

// LockKey is the lock guarding a meeting and its reschedule links.
func LockKey(meetingID string) string {
	return shared.LockKey(domainName, meetingID)
}

// Mentorships is the part of the lifecycle manager the scheduler needs.
type Mentorships interface {
	Get(ctx context.Context, id string) (*mentorship.Mentorship, error)
	RecordMeetingScheduled(ctx context.Context, id string) (*mentorship.Mentorship, error)
	RecordMeetingCompletion(ctx context.Context, id string) (*mentorship.Mentorship, error)
}

// Dependencies are the collaborators of the scheduler.
type Dependencies struct {
	Meetings    meeting.Repository
	Mentorships Mentorships
	Locker      shared.Locker
	Events      shared.EventPublisher
	Clock       timeutil.Clock
	Logger      *logger.Logger
	NewID       func() string
}

// Scheduler is the Meeting Scheduler.
type Scheduler struct {
	repo        meeting.Repository
	mentorships Mentorships
	locker      shared.Locker
	events      *eventing.Emitter
	clock       timeutil.Clock
	log         *logger.Logger
	newID       func() string
	maxPage     int
}

// NewScheduler creates a scheduler. maxPageSize bounds ListMeetings limits.
func NewScheduler(deps Dependencies, maxPageSize int) *Scheduler {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(logger.Component("scheduling"))
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	if maxPageSize <= 0 {
		maxPageSize = lifecycle.DefaultMaxLimit
	}
	return &Scheduler{
		repo:        deps.Meetings,
		mentorships: deps.Mentorships,
		locker:      deps.Locker,
		events:      eventing.NewEmitter(deps.Events, log),
		clock:       timeutil.OrReal(deps.Clock),
		log:         log,
		newID:       newID,
		maxPage:     maxPageSize,
	}
}

func (s *Scheduler) now() time.Time { return s.clock.Now().UTC() }

func notFound(op, id string) error {
	return shared.NotFound(domainName, op, "meeting %s not found", id)
}

// ══════════════════════════════════════════════════════════════════════════════
// CREATE
// ══════════════════════════════════════════════════════════════════════════════

// CreateCommand schedules a meeting. A non-empty RescheduledFromID makes
// the new meeting the successor of that meeting.
type CreateCommand struct {
	MentorshipID      string       `json:"mentorship_id" validate:"required"`
	ScheduledDate     time.Time    `json:"scheduled_date" validate:"required"`
	Duration          int          `json:"duration" validate:"gt=0"`
	MeetingType       meeting.Type `json:"meeting_type" validate:"required,oneof=video audio chat in-person"`
	MeetingLink       *string      `json:"meeting_link"`
	MeetingLocation   *string      `json:"meeting_location"`
	Agenda            string       `json:"agenda" validate:"required"`
	Notes             *string      `json:"notes"`
	RescheduledFromID string       `json:"rescheduled_from_id"`
}

// CreateMeeting schedules a meeting in an active mentorship. The date must
// be strictly in the future.
func (s *Scheduler) CreateMeeting(ctx context.Context, cmd CreateCommand) (*meeting.Meeting, error) {
	if err := validation.Struct(domainName, "Create", cmd); err != nil {
		return nil, err
	}
	if cmd.RescheduledFromID == "" {
		return s.create(ctx, cmd, "")
	}

	var created *meeting.Meeting
	err := shared.WithLock(ctx, s.locker, LockKey(cmd.RescheduledFromID), func() error {
		var err error
		created, err = s.create(ctx, cmd, "")
		return err
	})
	return created, err
}

// create inserts the meeting under the mentorship lock and, for a
// successor, retires the predecessor. Callers creating a successor hold the
// predecessor's lock.
func (s *Scheduler) create(ctx context.Context, cmd CreateCommand, reason string) (*meeting.Meeting, error) {
	const op = "Create"

	var created *meeting.Meeting
	err := shared.WithLock(ctx, s.locker, lifecycle.LockKey(cmd.MentorshipID), func() error {
		ms, err := s.mentorships.Get(ctx, cmd.MentorshipID)
		if err != nil {
			return err
		}
		if !ms.IsActive() {
			return shared.InvalidState(domainName, op, "mentorship %s is %s, meetings need an active mentorship", ms.ID, ms.Status)
		}

		var fromID *string
		if cmd.RescheduledFromID != "" {
			pred, err := s.repo.GetByID(ctx, cmd.RescheduledFromID)
			if err != nil {
				return fmt.Errorf("scheduling: get predecessor: %w", err)
			}
			if pred == nil {
				return notFound(op, cmd.RescheduledFromID)
			}
			if pred.MentorshipID != cmd.MentorshipID {
				return shared.Validation(domainName, op, "meeting %s belongs to another mentorship", pred.ID)
			}
			if err := pred.CanReschedule(); err != nil {
				return err
			}
			fromID = &cmd.RescheduledFromID
		}

		mt, err := meeting.NewMeeting(meeting.NewMeetingParams{
			ID:                s.newID(),
			MentorshipID:      cmd.MentorshipID,
			ScheduledDate:     cmd.ScheduledDate,
			Duration:          cmd.Duration,
			MeetingType:       cmd.MeetingType,
			MeetingLink:       cmd.MeetingLink,
			MeetingLocation:   cmd.MeetingLocation,
			Agenda:            cmd.Agenda,
			Notes:             cmd.Notes,
			RescheduledFromID: fromID,
			Now:               s.now(),
		})
		if err != nil {
			return err
		}

		created, err = s.repo.Insert(ctx, mt)
		if err != nil {
			return fmt.Errorf("scheduling: insert meeting: %w", err)
		}

		if fromID != nil {
			if err := s.retirePredecessor(ctx, *fromID, created.ID, reason); err != nil {
				if _, derr := s.repo.DeleteByID(ctx, created.ID); derr != nil {
					s.log.Error("failed to roll back successor meeting",
						logger.MeetingID(created.ID), logger.Err(derr))
				}
				created = nil
				return err
			}
		}

		if _, err := s.mentorships.RecordMeetingScheduled(ctx, cmd.MentorshipID); err != nil {
			s.log.Warn("failed to count scheduled meeting",
				logger.MentorshipID(cmd.MentorshipID), logger.Err(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("meeting scheduled",
		logger.MeetingID(created.ID),
		logger.MentorshipID(created.MentorshipID),
		logger.Time("scheduled_date", created.ScheduledDate),
	)
	s.events.Emit(ctx, shared.EventMeetingScheduled, created.ID, created.CreatedAt, map[string]any{
		"mentorship_id":       created.MentorshipID,
		"scheduled_date":      created.ScheduledDate,
		"rescheduled_from_id": cmd.RescheduledFromID,
	})
	return created, nil
}

func (s *Scheduler) retirePredecessor(ctx context.Context, predID, successorID, reason string) error {
	pred, err := s.repo.UpdateByID(ctx, predID, func(m *meeting.Meeting) error {
		now := s.now()
		if err := m.MarkRescheduled(now, successorID); err != nil {
			return err
		}
		if r := strings.TrimSpace(reason); r != "" {
			m.Notes = mentorship.AppendParagraph(m.Notes, "Rescheduled: "+r)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if pred == nil {
		return notFound("Reschedule", predID)
	}
	s.events.Emit(ctx, shared.EventMeetingRescheduled, predID, pred.UpdatedAt, map[string]any{
		"mentorship_id":     pred.MentorshipID,
		"rescheduled_to_id": successorID,
	})
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// READ
// ══════════════════════════════════════════════════════════════════════════════

// Get returns the meeting or a NotFoundError.
func (s *Scheduler) Get(ctx context.Context, id string) (*meeting.Meeting, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("scheduling: get meeting: %w", err)
	}
	if m == nil {
		return nil, notFound("Get", id)
	}
	return m, nil
}

// IsUpcoming reports whether m is scheduled and still ahead.
func (s *Scheduler) IsUpcoming(m *meeting.Meeting) bool {
	return m.IsUpcoming(s.now())
}

// Summary returns the read model of a meeting.
func (s *Scheduler) Summary(ctx context.Context, id string) (*meeting.Summary, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sum := m.Summarize(s.now())
	return &sum, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MUTATE
// ══════════════════════════════════════════════════════════════════════════════

// mutate applies fn atomically to one meeting.
func (s *Scheduler) mutate(ctx context.Context, op, id string, fn func(m *meeting.Meeting, now time.Time) error) (*meeting.Meeting, error) {
	now := s.now()
	m, err := s.repo.UpdateByID(ctx, id, func(m *meeting.Meeting) error {
		return fn(m, now)
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, notFound(op, id)
	}
	return m, nil
}

// UpdateMeeting applies a patch. Cancelled and completed meetings are
// immutable.
func (s *Scheduler) UpdateMeeting(ctx context.Context, id string, p meeting.Patch) (*meeting.Meeting, error) {
	return s.mutate(ctx, "Update", id, func(m *meeting.Meeting, now time.Time) error {
		return m.Apply(now, p)
	})
}

// CompleteCommand records the outcome of a held meeting.
type CompleteCommand struct {
	ActualDate      time.Time `json:"actual_date"`
	ActualDuration  int       `json:"actual_duration" validate:"gt=0"`
	Notes           *string   `json:"notes"`
	MentorFeedback  *string   `json:"mentor_feedback"`
	StudentFeedback *string   `json:"student_feedback"`
}

// CompleteMeeting completes a scheduled meeting, then counts it on the
// mentorship. If the count fails the completed meeting is returned along
// with the error.
func (s *Scheduler) CompleteMeeting(ctx context.Context, id string, cmd CompleteCommand) (*meeting.Meeting, error) {
	if err := validation.Struct(domainName, "Complete", cmd); err != nil {
		return nil, err
	}
	m, err := s.mutate(ctx, "Complete", id, func(m *meeting.Meeting, now time.Time) error {
		return m.Complete(now, meeting.CompleteParams{
			ActualDate:      cmd.ActualDate,
			ActualDuration:  cmd.ActualDuration,
			Notes:           cmd.Notes,
			MentorFeedback:  cmd.MentorFeedback,
			StudentFeedback: cmd.StudentFeedback,
		})
	})
	if err != nil {
		return nil, err
	}

	// The meeting stays completed when counting fails; the caller gets both
	// the meeting and the error and owns the retry of the count.
	if _, err := s.mentorships.RecordMeetingCompletion(ctx, m.MentorshipID); err != nil {
		s.log.Error("meeting completed but mentorship counter not updated",
			logger.MeetingID(id),
			logger.MentorshipID(m.MentorshipID),
			logger.Err(err),
		)
		return m, fmt.Errorf("scheduling: record completion on mentorship %s: %w", m.MentorshipID, err)
	}

	s.log.Debug("meeting completed", logger.MeetingID(id), logger.MentorshipID(m.MentorshipID))
	s.events.Emit(ctx, shared.EventMeetingCompleted, id, m.UpdatedAt, map[string]any{
		"mentorship_id":   m.MentorshipID,
		"actual_duration": cmd.ActualDuration,
	})
	return m, nil
}

// CancelMeeting cancels a scheduled meeting. A non-empty reason is
// appended to the notes.
func (s *Scheduler) CancelMeeting(ctx context.Context, id, reason string) (*meeting.Meeting, error) {
	m, err := s.mutate(ctx, "Cancel", id, func(m *meeting.Meeting, now time.Time) error {
		return m.Cancel(now, reason)
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("meeting cancelled", logger.MeetingID(id))
	s.events.Emit(ctx, shared.EventMeetingCancelled, id, m.UpdatedAt, map[string]any{
		"mentorship_id": m.MentorshipID,
		"reason":        reason,
	})
	return m, nil
}

// RescheduleCommand describes the successor of a rescheduled meeting. Nil
// fields are carried over from the original.
type RescheduleCommand struct {
	NewDate     time.Time     `json:"new_date" validate:"required"`
	NewDuration *int          `json:"new_duration" validate:"omitempty,gt=0"`
	NewType     *meeting.Type `json:"new_type" validate:"omitempty,oneof=video audio chat in-person"`
	NewLink     *string       `json:"new_link"`
	NewLocation *string       `json:"new_location"`
	NewAgenda   *string       `json:"new_agenda"`
	Reason      string        `json:"reason"`
}

// RescheduleMeeting replaces a scheduled meeting with a successor at a new
// date. The original becomes rescheduled and points at the successor.
func (s *Scheduler) RescheduleMeeting(ctx context.Context, id string, cmd RescheduleCommand) (*meeting.Meeting, error) {
	const op = "Reschedule"
	if err := validation.Struct(domainName, op, cmd); err != nil {
		return nil, err
	}

	var successor *meeting.Meeting
	err := shared.WithLock(ctx, s.locker, LockKey(id), func() error {
		orig, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := orig.CanReschedule(); err != nil {
			return err
		}
		if !cmd.NewDate.After(s.now()) {
			return shared.Validation(domainName, op, "new date must be in the future")
		}

		next := CreateCommand{
			MentorshipID:      orig.MentorshipID,
			ScheduledDate:     cmd.NewDate,
			Duration:          orig.Duration,
			MeetingType:       orig.MeetingType,
			MeetingLink:       orig.MeetingLink,
			MeetingLocation:   orig.MeetingLocation,
			Agenda:            orig.Agenda,
			RescheduledFromID: id,
		}
		if cmd.NewDuration != nil {
			next.Duration = *cmd.NewDuration
		}
		if cmd.NewType != nil {
			next.MeetingType = *cmd.NewType
		}
		if cmd.NewLink != nil {
			next.MeetingLink = cmd.NewLink
		}
		if cmd.NewLocation != nil {
			next.MeetingLocation = cmd.NewLocation
		}
		if cmd.NewAgenda != nil {
			next.Agenda = *cmd.NewAgenda
		}

		successor, err = s.create(ctx, next, cmd.Reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return successor, nil
}

// DeleteMeeting removes a meeting that is not completed and repairs the
// reschedule chain around it: a retired predecessor becomes cancelled and
// loses its forward link; a successor loses its backward link. It reports
// false when the meeting does not exist.
func (s *Scheduler) DeleteMeeting(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := shared.WithLock(ctx, s.locker, LockKey(id), func() error {
		m, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("scheduling: get meeting: %w", err)
		}
		if m == nil {
			return nil
		}
		if m.Status == meeting.StatusCompleted {
			return shared.InvalidState(domainName, "Delete", "completed meetings cannot be deleted")
		}

		if deleted, err = s.repo.DeleteByID(ctx, id); err != nil {
			return fmt.Errorf("scheduling: delete meeting: %w", err)
		}

		now := s.now()
		if m.RescheduledFromID != nil {
			if _, err := s.repo.UpdateByID(ctx, *m.RescheduledFromID, func(pred *meeting.Meeting) error {
				if pred.RescheduledToID != nil && *pred.RescheduledToID == id {
					pred.DetachSuccessor(now)
				}
				return nil
			}); err != nil {
				return fmt.Errorf("scheduling: detach predecessor %s: %w", *m.RescheduledFromID, err)
			}
		}
		if m.RescheduledToID != nil {
			if _, err := s.repo.UpdateByID(ctx, *m.RescheduledToID, func(succ *meeting.Meeting) error {
				if succ.RescheduledFromID != nil && *succ.RescheduledFromID == id {
					succ.DetachPredecessor(now)
				}
				return nil
			}); err != nil {
				return fmt.Errorf("scheduling: detach successor %s: %w", *m.RescheduledToID, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Debug("meeting deleted", logger.MeetingID(id))
	}
	return deleted, nil
}

// AddNotes appends a paragraph to the notes of a meeting in any status.
func (s *Scheduler) AddNotes(ctx context.Context, id, notes string) (*meeting.Meeting, error) {
	return s.mutate(ctx, "AddNotes", id, func(m *meeting.Meeting, now time.Time) error {
		return m.AddNotes(now, notes)
	})
}

// AddMentorFeedback stores the mentor's feedback on a completed meeting.
func (s *Scheduler) AddMentorFeedback(ctx context.Context, id, feedback string) (*meeting.Meeting, error) {
	return s.mutate(ctx, "AddMentorFeedback", id, func(m *meeting.Meeting, now time.Time) error {
		return m.SetMentorFeedback(now, feedback)
	})
}

// AddStudentFeedback stores the mentee's feedback on a completed meeting.
func (s *Scheduler) AddStudentFeedback(ctx context.Context, id, feedback string) (*meeting.Meeting, error) {
	return s.mutate(ctx, "AddStudentFeedback", id, func(m *meeting.Meeting, now time.Time) error {
		return m.SetStudentFeedback(now, feedback)
	})
}
