// Package meeting contains the MentorshipMeeting entity, its status machine
// and the reschedule chain that links a retired meeting to its successor.
package meeting

import (
	"strings"
	"time"

	"github.com/alem-hub/mentorship-hub/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

const domainName = "meeting"

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the state of a meeting.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	default:
		return false
	}
}

// IsFrozen reports whether the meeting no longer accepts edits. Feedback
// fields are the only exception, and only for completed meetings.
func (s Status) IsFrozen() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Type is the channel a meeting happens on.
type Type string

const (
	TypeVideo    Type = "video"
	TypeAudio    Type = "audio"
	TypeChat     Type = "chat"
	TypeInPerson Type = "in-person"
)

// IsValid reports whether t is a known meeting type.
func (t Type) IsValid() bool {
	switch t {
	case TypeVideo, TypeAudio, TypeChat, TypeInPerson:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE MACHINE
// ══════════════════════════════════════════════════════════════════════════════

const (
	ActionComplete   shared.Action = "complete"
	ActionCancel     shared.Action = "cancel"
	ActionReschedule shared.Action = "reschedule"
	// ActionUnlink retires a meeting whose reschedule successor was deleted.
	ActionUnlink shared.Action = "unlink"
)

// Lifecycle is the meeting transition table.
var Lifecycle = shared.Transitions[Status]{
	StatusScheduled: {
		ActionComplete:   StatusCompleted,
		ActionCancel:     StatusCancelled,
		ActionReschedule: StatusRescheduled,
	},
	StatusRescheduled: {
		ActionUnlink: StatusCancelled,
	},
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Meeting is one scheduled session within a mentorship.
type Meeting struct {
	ID           string `json:"id"`
	MentorshipID string `json:"mentorship_id"`

	ScheduledDate time.Time  `json:"scheduled_date"`
	ActualDate    *time.Time `json:"actual_date,omitempty"`
	// Duration and ActualDuration are in minutes.
	Duration       int  `json:"duration"`
	ActualDuration *int `json:"actual_duration,omitempty"`

	Status          Status  `json:"status"`
	MeetingType     Type    `json:"meeting_type"`
	MeetingLink     *string `json:"meeting_link,omitempty"`
	MeetingLocation *string `json:"meeting_location,omitempty"`
	Agenda          string  `json:"agenda"`

	Notes           *string `json:"notes,omitempty"`
	MentorFeedback  *string `json:"mentor_feedback,omitempty"`
	StudentFeedback *string `json:"student_feedback,omitempty"`

	RescheduledFromID *string `json:"rescheduled_from_id,omitempty"`
	RescheduledToID   *string `json:"rescheduled_to_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMeetingParams holds the input of NewMeeting.
type NewMeetingParams struct {
	ID                string
	MentorshipID      string
	ScheduledDate     time.Time
	Duration          int
	MeetingType       Type
	MeetingLink       *string
	MeetingLocation   *string
	Agenda            string
	Notes             *string
	RescheduledFromID *string
	Now               time.Time
}

// NewMeeting validates input and creates a scheduled meeting. The scheduled
// date must be strictly after now.
func NewMeeting(p NewMeetingParams) (*Meeting, error) {
	const op = "Create"

	if p.ID == "" {
		return nil, shared.Validation(domainName, op, "id is required")
	}
	if strings.TrimSpace(p.MentorshipID) == "" {
		return nil, shared.Validation(domainName, op, "mentorship id is required")
	}
	if err := validateSchedule(op, p.ScheduledDate, p.Now); err != nil {
		return nil, err
	}
	if p.Duration <= 0 {
		return nil, shared.Validation(domainName, op, "duration must be positive")
	}
	if !p.MeetingType.IsValid() {
		return nil, shared.Validation(domainName, op, "invalid meeting type %q", p.MeetingType)
	}
	if strings.TrimSpace(p.Agenda) == "" {
		return nil, shared.Validation(domainName, op, "agenda is required")
	}

	now := p.Now.UTC()
	return &Meeting{
		ID:                p.ID,
		MentorshipID:      p.MentorshipID,
		ScheduledDate:     p.ScheduledDate.UTC(),
		Duration:          p.Duration,
		Status:            StatusScheduled,
		MeetingType:       p.MeetingType,
		MeetingLink:       clonePtr(p.MeetingLink),
		MeetingLocation:   clonePtr(p.MeetingLocation),
		Agenda:            p.Agenda,
		Notes:             clonePtr(p.Notes),
		RescheduledFromID: clonePtr(p.RescheduledFromID),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func validateSchedule(op string, scheduled, now time.Time) error {
	if scheduled.IsZero() {
		return shared.Validation(domainName, op, "scheduled date is required")
	}
	if !scheduled.After(now) {
		return shared.Validation(domainName, op, "scheduled date must be in the future")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

func (m *Meeting) transition(action shared.Action, now time.Time) error {
	next, err := Lifecycle.Apply(domainName, m.Status, action)
	if err != nil {
		return err
	}
	m.Status = next
	m.UpdatedAt = now
	return nil
}

// CompleteParams holds the outcome of a held meeting.
type CompleteParams struct {
	ActualDate      time.Time
	ActualDuration  int
	Notes           *string
	MentorFeedback  *string
	StudentFeedback *string
}

// Complete records a held meeting. Only scheduled meetings can complete.
func (m *Meeting) Complete(now time.Time, p CompleteParams) error {
	if p.ActualDuration <= 0 {
		return shared.Validation(domainName, "Complete", "actual duration must be positive")
	}
	if err := m.transition(ActionComplete, now); err != nil {
		return err
	}

	actual := p.ActualDate
	if actual.IsZero() {
		actual = now
	}
	d := p.ActualDuration
	m.ActualDate = timeutil.Ptr(actual.UTC())
	m.ActualDuration = &d
	if p.Notes != nil {
		m.Notes = clonePtr(p.Notes)
	}
	if p.MentorFeedback != nil {
		m.MentorFeedback = clonePtr(p.MentorFeedback)
	}
	if p.StudentFeedback != nil {
		m.StudentFeedback = clonePtr(p.StudentFeedback)
	}
	return nil
}

// Cancel cancels a scheduled meeting and records the reason in the notes.
func (m *Meeting) Cancel(now time.Time, reason string) error {
	if err := m.transition(ActionCancel, now); err != nil {
		return err
	}
	if r := strings.TrimSpace(reason); r != "" {
		m.Notes = mentorship.AppendParagraph(m.Notes, "Cancelled: "+r)
	}
	return nil
}

// CanReschedule reports whether the meeting may be replaced by a successor.
func (m *Meeting) CanReschedule() error {
	if !Lifecycle.Can(m.Status, ActionReschedule) {
		return shared.WrapError(domainName, string(ActionReschedule), shared.ErrStateTransition,
			"cannot reschedule a "+string(m.Status)+" meeting", nil)
	}
	return nil
}

// MarkRescheduled retires the meeting in favour of successorID.
func (m *Meeting) MarkRescheduled(now time.Time, successorID string) error {
	if err := m.transition(ActionReschedule, now); err != nil {
		return err
	}
	m.RescheduledToID = &successorID
	return nil
}

// DetachSuccessor clears the forward chain link after the successor was
// deleted. A retired predecessor becomes cancelled.
func (m *Meeting) DetachSuccessor(now time.Time) {
	m.RescheduledToID = nil
	if next, ok := Lifecycle.Next(m.Status, ActionUnlink); ok {
		m.Status = next
	}
	m.UpdatedAt = now
}

// DetachPredecessor clears the backward chain link after the predecessor
// was deleted.
func (m *Meeting) DetachPredecessor(now time.Time) {
	m.RescheduledFromID = nil
	m.UpdatedAt = now
}

// ══════════════════════════════════════════════════════════════════════════════
// MUTATORS
// ══════════════════════════════════════════════════════════════════════════════

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	ScheduledDate   *time.Time
	Duration        *int
	MeetingType     *Type
	MeetingLink     *string
	MeetingLocation *string
	Agenda          *string
	Notes           *string
}

// Apply updates a meeting that is neither cancelled nor completed.
func (m *Meeting) Apply(now time.Time, p Patch) error {
	const op = "Update"

	if m.Status.IsFrozen() {
		return shared.InvalidState(domainName, op, "cannot update a %s meeting", m.Status)
	}
	if p.ScheduledDate != nil {
		if err := validateSchedule(op, *p.ScheduledDate, now); err != nil {
			return err
		}
	}
	if p.Duration != nil && *p.Duration <= 0 {
		return shared.Validation(domainName, op, "duration must be positive")
	}
	if p.MeetingType != nil && !p.MeetingType.IsValid() {
		return shared.Validation(domainName, op, "invalid meeting type %q", *p.MeetingType)
	}
	if p.Agenda != nil && strings.TrimSpace(*p.Agenda) == "" {
		return shared.Validation(domainName, op, "agenda cannot be empty")
	}

	if p.ScheduledDate != nil {
		m.ScheduledDate = p.ScheduledDate.UTC()
	}
	if p.Duration != nil {
		m.Duration = *p.Duration
	}
	if p.MeetingType != nil {
		m.MeetingType = *p.MeetingType
	}
	if p.MeetingLink != nil {
		m.MeetingLink = clonePtr(p.MeetingLink)
	}
	if p.MeetingLocation != nil {
		m.MeetingLocation = clonePtr(p.MeetingLocation)
	}
	if p.Agenda != nil {
		m.Agenda = *p.Agenda
	}
	if p.Notes != nil {
		m.Notes = clonePtr(p.Notes)
	}
	m.UpdatedAt = now
	return nil
}

// AddNotes appends a paragraph to the notes. Allowed in every status.
func (m *Meeting) AddNotes(now time.Time, text string) error {
	if strings.TrimSpace(text) == "" {
		return shared.Validation(domainName, "AddNotes", "notes cannot be empty")
	}
	m.Notes = mentorship.AppendParagraph(m.Notes, text)
	m.UpdatedAt = now
	return nil
}

// SetMentorFeedback replaces the mentor's feedback on a completed meeting.
func (m *Meeting) SetMentorFeedback(now time.Time, text string) error {
	if err := m.requireCompleted("AddMentorFeedback", text); err != nil {
		return err
	}
	m.MentorFeedback = &text
	m.UpdatedAt = now
	return nil
}

// SetStudentFeedback replaces the mentee's feedback on a completed meeting.
func (m *Meeting) SetStudentFeedback(now time.Time, text string) error {
	if err := m.requireCompleted("AddStudentFeedback", text); err != nil {
		return err
	}
	m.StudentFeedback = &text
	m.UpdatedAt = now
	return nil
}

func (m *Meeting) requireCompleted(op, text string) error {
	if strings.TrimSpace(text) == "" {
		return shared.Validation(domainName, op, "feedback cannot be empty")
	}
	if m.Status != StatusCompleted {
		return shared.InvalidState(domainName, op, "feedback requires a completed meeting, status is %s", m.Status)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// IsUpcoming reports whether the meeting is scheduled and still ahead.
func (m *Meeting) IsUpcoming(now time.Time) bool {
	return m.Status == StatusScheduled && m.ScheduledDate.After(now)
}

// HasFeedback reports whether either party left feedback.
func (m *Meeting) HasFeedback() bool {
	return (m.MentorFeedback != nil && *m.MentorFeedback != "") ||
		(m.StudentFeedback != nil && *m.StudentFeedback != "")
}

// RecordID implements shared.Record.
func (m *Meeting) RecordID() string { return m.ID }

// Clone returns a deep copy.
func (m *Meeting) Clone() *Meeting {
	if m == nil {
		return nil
	}
	c := *m
	c.ActualDate = timeutil.ClonePtr(m.ActualDate)
	c.ActualDuration = clonePtr(m.ActualDuration)
	c.MeetingLink = clonePtr(m.MeetingLink)
	c.MeetingLocation = clonePtr(m.MeetingLocation)
	c.Notes = clonePtr(m.Notes)
	c.MentorFeedback = clonePtr(m.MentorFeedback)
	c.StudentFeedback = clonePtr(m.StudentFeedback)
	c.RescheduledFromID = clonePtr(m.RescheduledFromID)
	c.RescheduledToID = clonePtr(m.RescheduledToID)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
