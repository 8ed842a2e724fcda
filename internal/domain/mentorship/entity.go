// Package mentorship contains the Mentorship aggregate: the pairing between
// a mentor and a mentee, its status machine and its meeting counters.
package mentorship

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

const domainName = "mentorship"

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the lifecycle state of a mentorship.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return Lifecycle.IsTerminal(s)
}

// Frequency is how often the pair intends to meet.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyCustom   Frequency = "custom"
)

// IsValid reports whether f is a known frequency.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyCustom:
		return true
	default:
		return false
	}
}

// IntervalDays returns the number of days between meetings. Custom
// frequencies without a positive day count fall back to a week.
func (f Frequency) IntervalDays(customDays *int) int {
	switch f {
	case FrequencyBiweekly:
		return 14
	case FrequencyMonthly:
		return 30
	case FrequencyCustom:
		if customDays != nil && *customDays > 0 {
			return *customDays
		}
		return 7
	default:
		return 7
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE MACHINE
// ══════════════════════════════════════════════════════════════════════════════

const (
	ActionAccept       shared.Action = "accept"
	ActionCancel       shared.Action = "cancel"
	ActionComplete     shared.Action = "complete"
	ActionAutoComplete shared.Action = "auto_complete"
)

// Lifecycle is the mentorship transition table. Completed and cancelled
// have no outgoing edges.
var Lifecycle = shared.Transitions[Status]{
	StatusPending: {
		ActionAccept: StatusActive,
		ActionCancel: StatusCancelled,
	},
	StatusActive: {
		ActionCancel:       StatusCancelled,
		ActionComplete:     StatusCompleted,
		ActionAutoComplete: StatusCompleted,
	},
}

// Rating bounds for a completed mentorship.
const (
	MinRating = 0.0
	MaxRating = 5.0
)

// NotesSeparator separates appended paragraphs in free-text notes.
const NotesSeparator = "\n\n"

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Mentorship is the aggregate root of the engine.
type Mentorship struct {
	ID          string  `json:"id"`
	MentorID    string  `json:"mentor_id"`
	MenteeID    string  `json:"mentee_id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Status      Status  `json:"status"`

	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	MeetingFrequency    *Frequency `json:"meeting_frequency,omitempty"`
	CustomFrequencyDays *int       `json:"custom_frequency_days,omitempty"`
	NextMeetingDate     *time.Time `json:"next_meeting_date,omitempty"`
	LastMeetingDate     *time.Time `json:"last_meeting_date,omitempty"`

	// MeetingCount counts meetings scheduled in this mentorship.
	MeetingCount int `json:"meeting_count"`
	// TotalMeetings is the target; 0 means no target.
	TotalMeetings     int `json:"total_meetings"`
	CompletedMeetings int `json:"completed_meetings"`

	// Objectives mirrors the titles of the mentorship's objectives.
	Objectives []string `json:"objectives"`

	Notes    *string  `json:"notes,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	Feedback *string  `json:"feedback,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMentorshipParams holds the input of NewMentorship.
type NewMentorshipParams struct {
	ID                  string
	MentorID            string
	MenteeID            string
	Title               string
	Description         *string
	MeetingFrequency    Frequency
	CustomFrequencyDays *int
	TotalMeetings       int
	Now                 time.Time
}

// NewMentorship validates input and creates a pending mentorship.
func NewMentorship(p NewMentorshipParams) (*Mentorship, error) {
	const op = "Create"

	if p.ID == "" {
		return nil, shared.Validation(domainName, op, "id is required")
	}
	if strings.TrimSpace(p.MentorID) == "" || strings.TrimSpace(p.MenteeID) == "" {
		return nil, shared.Validation(domainName, op, "mentor and mentee are required")
	}
	if p.MentorID == p.MenteeID {
		return nil, shared.Validation(domainName, op, "mentor and mentee must be different users")
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, shared.Validation(domainName, op, "title is required")
	}
	if p.TotalMeetings < 0 {
		return nil, shared.Validation(domainName, op, "total meetings cannot be negative")
	}

	freq := p.MeetingFrequency
	if freq == "" {
		freq = FrequencyWeekly
	}
	if err := validateFrequency(op, freq, p.CustomFrequencyDays); err != nil {
		return nil, err
	}

	var customDays *int
	if freq == FrequencyCustom {
		d := *p.CustomFrequencyDays
		customDays = &d
	}

	now := p.Now.UTC()
	return &Mentorship{
		ID:                  p.ID,
		MentorID:            p.MentorID,
		MenteeID:            p.MenteeID,
		Title:               strings.TrimSpace(p.Title),
		Description:         p.Description,
		Status:              StatusPending,
		StartDate:           now,
		MeetingFrequency:    &freq,
		CustomFrequencyDays: customDays,
		TotalMeetings:       p.TotalMeetings,
		Objectives:          []string{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

func validateFrequency(op string, f Frequency, customDays *int) error {
	if !f.IsValid() {
		return shared.Validation(domainName, op, "invalid meeting frequency %q", f)
	}
	if f == FrequencyCustom && (customDays == nil || *customDays <= 0) {
		return shared.Validation(domainName, op, "custom frequency requires a positive number of days")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

func (m *Mentorship) transition(action shared.Action, now time.Time) error {
	next, err := Lifecycle.Apply(domainName, m.Status, action)
	if err != nil {
		return err
	}
	m.Status = next
	m.UpdatedAt = now
	return nil
}

// Accept activates a pending mentorship and plans the first meeting.
func (m *Mentorship) Accept(now time.Time) error {
	if err := m.transition(ActionAccept, now); err != nil {
		return err
	}
	m.StartDate = now
	m.NextMeetingDate = timeutil.Ptr(m.nextMeetingAfter(now))
	return nil
}

// Cancel ends a pending or active mentorship, recording the reason.
func (m *Mentorship) Cancel(now time.Time, reason string) error {
	if err := m.transition(ActionCancel, now); err != nil {
		return err
	}
	m.EndDate = timeutil.Ptr(now)
	if r := strings.TrimSpace(reason); r != "" {
		m.AppendNotes("Mentorship cancelled: " + r)
	}
	return nil
}

// Complete closes an active mentorship with an optional rating and feedback.
func (m *Mentorship) Complete(now time.Time, rating *float64, feedback *string) error {
	if rating != nil && (*rating < MinRating || *rating > MaxRating || math.IsNaN(*rating)) {
		return shared.NewDomainError(domainName, "Complete", shared.ErrValueOutOfRange, "rating must be between 0 and 5")
	}
	if err := m.transition(ActionComplete, now); err != nil {
		return err
	}
	m.EndDate = timeutil.Ptr(now)
	if rating != nil {
		r := *rating
		m.Rating = &r
	}
	if feedback != nil {
		f := *feedback
		m.Feedback = &f
	}
	return nil
}

// RecordMeetingCompletion counts one completed meeting. The counter never
// exceeds a positive TotalMeetings. When autoComplete is set and the target
// is reached on an active mentorship, the mentorship completes. It reports
// whether that happened.
func (m *Mentorship) RecordMeetingCompletion(now time.Time, autoComplete bool) bool {
	if m.TotalMeetings == 0 || m.CompletedMeetings < m.TotalMeetings {
		m.CompletedMeetings++
	}
	m.LastMeetingDate = timeutil.Ptr(now)
	m.NextMeetingDate = timeutil.Ptr(m.nextMeetingAfter(now))
	m.UpdatedAt = now

	if !autoComplete || m.TotalMeetings == 0 || m.CompletedMeetings < m.TotalMeetings {
		return false
	}
	if m.transition(ActionAutoComplete, now) != nil {
		return false
	}
	m.EndDate = timeutil.Ptr(now)
	return true
}

// RecordMeetingScheduled counts one scheduled meeting.
func (m *Mentorship) RecordMeetingScheduled(now time.Time) {
	m.MeetingCount++
	m.UpdatedAt = now
}

// ══════════════════════════════════════════════════════════════════════════════
// MUTATORS
// ══════════════════════════════════════════════════════════════════════════════

// UpdateFrequency changes the meeting cadence and replans the next meeting.
func (m *Mentorship) UpdateFrequency(now time.Time, f Frequency, customDays *int) error {
	if err := validateFrequency("UpdateFrequency", f, customDays); err != nil {
		return err
	}
	if m.Status.IsTerminal() {
		return shared.InvalidState(domainName, "UpdateFrequency", "mentorship is %s", m.Status)
	}
	m.MeetingFrequency = &f
	m.CustomFrequencyDays = nil
	if f == FrequencyCustom {
		d := *customDays
		m.CustomFrequencyDays = &d
	}
	m.NextMeetingDate = timeutil.Ptr(m.nextMeetingAfter(now))
	m.UpdatedAt = now
	return nil
}

// SetTotalMeetings changes the meeting target. The target cannot drop below
// the meetings already completed.
func (m *Mentorship) SetTotalMeetings(now time.Time, total int) error {
	if total < 0 {
		return shared.Validation(domainName, "Update", "total meetings cannot be negative")
	}
	if total > 0 && total < m.CompletedMeetings {
		return shared.Validation(domainName, "Update",
			"total meetings (%d) cannot be lower than completed meetings (%d)", total, m.CompletedMeetings)
	}
	m.TotalMeetings = total
	m.UpdatedAt = now
	return nil
}

// AppendNotes adds a paragraph to the notes.
func (m *Mentorship) AppendNotes(text string) {
	m.Notes = AppendParagraph(m.Notes, text)
}

// ReplaceObjectives replaces the mirrored objective titles verbatim.
func (m *Mentorship) ReplaceObjectives(now time.Time, titles []string) {
	m.Objectives = slices.Clone(titles)
	if m.Objectives == nil {
		m.Objectives = []string{}
	}
	m.UpdatedAt = now
}

// AppendParagraph appends text to optional notes using NotesSeparator.
func AppendParagraph(notes *string, text string) *string {
	if text == "" {
		return notes
	}
	if notes == nil || *notes == "" {
		return &text
	}
	joined := *notes + NotesSeparator + text
	return &joined
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// IsParty reports whether userID is the mentor or the mentee.
func (m *Mentorship) IsParty(userID string) bool {
	return userID != "" && (userID == m.MentorID || userID == m.MenteeID)
}

// IsActive reports whether the mentorship is active.
func (m *Mentorship) IsActive() bool {
	return m.Status == StatusActive
}

// Progress returns round(100*completed/total) capped at 100, or nil when no
// target is set.
func (m *Mentorship) Progress() *int {
	if m.TotalMeetings <= 0 {
		return nil
	}
	p := int(math.Round(100 * float64(m.CompletedMeetings) / float64(m.TotalMeetings)))
	if p > 100 {
		p = 100
	}
	return &p
}

// RemainingMeetings returns how many meetings are left to reach the target.
func (m *Mentorship) RemainingMeetings() int {
	return max(0, m.TotalMeetings-m.CompletedMeetings)
}

// DurationDays returns the number of started days from start to end (or now).
func (m *Mentorship) DurationDays(now time.Time) int {
	end := now
	if m.EndDate != nil {
		end = *m.EndDate
	}
	return timeutil.DaysBetweenCeil(m.StartDate, end)
}

func (m *Mentorship) nextMeetingAfter(from time.Time) time.Time {
	f := FrequencyWeekly
	if m.MeetingFrequency != nil {
		f = *m.MeetingFrequency
	}
	return timeutil.AddDays(from, f.IntervalDays(m.CustomFrequencyDays))
}

// RecordID implements shared.Record.
func (m *Mentorship) RecordID() string { return m.ID }

// Clone returns a deep copy.
func (m *Mentorship) Clone() *Mentorship {
	if m == nil {
		return nil
	}
	c := *m
	c.Description = clonePtr(m.Description)
	c.EndDate = timeutil.ClonePtr(m.EndDate)
	c.MeetingFrequency = clonePtr(m.MeetingFrequency)
	c.CustomFrequencyDays = clonePtr(m.CustomFrequencyDays)
	c.NextMeetingDate = timeutil.ClonePtr(m.NextMeetingDate)
	c.LastMeetingDate = timeutil.ClonePtr(m.LastMeetingDate)
	c.Objectives = slices.Clone(m.Objectives)
	c.Notes = clonePtr(m.Notes)
	c.Rating = clonePtr(m.Rating)
	c.Feedback = clonePtr(m.Feedback)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
