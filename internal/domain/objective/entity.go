// Package objective contains MentorshipObjective: a goal tracked within a
// mentorship, whose status follows its progress.
package objective

import (
	"strings"
	"time"

	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

const domainName = "objective"

// Status is the state of an objective.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Progress bounds.
const (
	MinProgress = 0
	MaxProgress = 100
	// StartProgress is the nominal progress given to an objective started
	// with no progress.
	StartProgress = 10
)

// ══════════════════════════════════════════════════════════════════════════════
// STATE MACHINE
// ══════════════════════════════════════════════════════════════════════════════

// Explicit actions issued by callers.
const (
	ActionStart    shared.Action = "start"
	ActionComplete shared.Action = "complete"
	ActionCancel   shared.Action = "cancel"
)

// Actions derived from a progress update. A progress report describes the
// real state of the work, so it may reopen terminal objectives.
const (
	ActionProgressFull    shared.Action = "progress_full"
	ActionProgressPartial shared.Action = "progress_partial"
	ActionProgressZero    shared.Action = "progress_zero"
)

// Lifecycle is the objective transition table.
var Lifecycle = shared.Transitions[Status]{
	StatusPending: {
		ActionStart:           StatusInProgress,
		ActionComplete:        StatusCompleted,
		ActionCancel:          StatusCancelled,
		ActionProgressFull:    StatusCompleted,
		ActionProgressPartial: StatusInProgress,
	},
	StatusInProgress: {
		ActionComplete:     StatusCompleted,
		ActionCancel:       StatusCancelled,
		ActionProgressFull: StatusCompleted,
		ActionProgressZero: StatusPending,
	},
	StatusCompleted: {
		ActionProgressPartial: StatusInProgress,
	},
	StatusCancelled: {
		ActionProgressFull:    StatusCompleted,
		ActionProgressPartial: StatusInProgress,
	},
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Objective is a goal within a mentorship.
type Objective struct {
	ID            string     `json:"id"`
	MentorshipID  string     `json:"mentorship_id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description,omitempty"`
	Status        Status     `json:"status"`
	TargetDate    *time.Time `json:"target_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
	Progress      int        `json:"progress"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewObjectiveParams holds the input of NewObjective.
type NewObjectiveParams struct {
	ID           string
	MentorshipID string
	Title        string
	Description  *string
	Status       Status
	TargetDate   *time.Time
	Progress     int
	Now          time.Time
}

// NewObjective validates input and creates an objective. Status defaults to
// pending; a completed objective gets its completion date stamped.
func NewObjective(p NewObjectiveParams) (*Objective, error) {
	const op = "Create"

	if p.ID == "" {
		return nil, shared.Validation(domainName, op, "id is required")
	}
	if strings.TrimSpace(p.MentorshipID) == "" {
		return nil, shared.Validation(domainName, op, "mentorship id is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, shared.Validation(domainName, op, "title is required")
	}
	if err := validateProgress(op, p.Progress); err != nil {
		return nil, err
	}
	status := p.Status
	if status == "" {
		status = StatusPending
	}
	if !status.IsValid() {
		return nil, shared.Validation(domainName, op, "invalid status %q", status)
	}

	now := p.Now.UTC()
	o := &Objective{
		ID:           p.ID,
		MentorshipID: p.MentorshipID,
		Title:        p.Title,
		Description:  p.Description,
		Status:       status,
		TargetDate:   timeutil.ClonePtr(p.TargetDate),
		Progress:     p.Progress,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if status == StatusCompleted {
		o.CompletedDate = timeutil.Ptr(now)
	}
	return o, nil
}

func validateProgress(op string, progress int) error {
	if progress < MinProgress || progress > MaxProgress {
		return shared.NewDomainError(domainName, op, shared.ErrValueOutOfRange, "progress must be between 0 and 100")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

func (o *Objective) moveTo(next Status, now time.Time) {
	o.Status = next
	if next == StatusCompleted {
		o.CompletedDate = timeutil.Ptr(now)
	} else {
		o.CompletedDate = nil
	}
}

// UpdateProgress stores progress and derives the status from it:
// 100 completes, 1..99 marks in progress, and 0 sends an in-progress
// objective back to pending. Otherwise the status is left alone.
func (o *Objective) UpdateProgress(now time.Time, progress int) error {
	if err := validateProgress("UpdateProgress", progress); err != nil {
		return err
	}

	var action shared.Action
	switch {
	case progress == MaxProgress:
		action = ActionProgressFull
	case progress > MinProgress:
		action = ActionProgressPartial
	default:
		action = ActionProgressZero
	}

	o.Progress = progress
	if next, ok := Lifecycle.Next(o.Status, action); ok {
		o.moveTo(next, now)
	}
	o.UpdatedAt = now
	return nil
}

// Complete marks the objective done with full progress. Completing a
// completed objective is a no-op. It reports whether anything changed.
func (o *Objective) Complete(now time.Time) (bool, error) {
	if o.Status == StatusCompleted {
		return false, nil
	}
	next, err := Lifecycle.Apply(domainName, o.Status, ActionComplete)
	if err != nil {
		return false, err
	}
	o.moveTo(next, now)
	o.Progress = MaxProgress
	o.UpdatedAt = now
	return true, nil
}

// Start moves a pending objective into progress, bumping zero progress to
// StartProgress. Starting an in-progress objective is a no-op.
func (o *Objective) Start(now time.Time) (bool, error) {
	if o.Status == StatusInProgress {
		return false, nil
	}
	next, err := Lifecycle.Apply(domainName, o.Status, ActionStart)
	if err != nil {
		return false, err
	}
	o.moveTo(next, now)
	if o.Progress == 0 {
		o.Progress = StartProgress
	}
	o.UpdatedAt = now
	return true, nil
}

// Cancel abandons the objective. Cancelling a cancelled objective is a
// no-op.
func (o *Objective) Cancel(now time.Time) (bool, error) {
	if o.Status == StatusCancelled {
		return false, nil
	}
	next, err := Lifecycle.Apply(domainName, o.Status, ActionCancel)
	if err != nil {
		return false, err
	}
	o.moveTo(next, now)
	o.UpdatedAt = now
	return true, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MUTATORS
// ══════════════════════════════════════════════════════════════════════════════

// Patch is a partial update. Nil fields are left unchanged. A progress
// change goes through the same status rule as UpdateProgress.
type Patch struct {
	Title       *string
	Description *string
	TargetDate  *time.Time
	Progress    *int
}

// Apply updates the objective and returns its previous title.
func (o *Objective) Apply(now time.Time, p Patch) (string, error) {
	prev := o.Title
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return prev, shared.Validation(domainName, "Update", "title cannot be empty")
	}
	if p.Progress != nil {
		if err := o.UpdateProgress(now, *p.Progress); err != nil {
			return prev, err
		}
	}
	if p.Title != nil {
		o.Title = *p.Title
	}
	if p.Description != nil {
		d := *p.Description
		o.Description = &d
	}
	if p.TargetDate != nil {
		o.TargetDate = timeutil.ClonePtr(p.TargetDate)
	}
	o.UpdatedAt = now
	return prev, nil
}

// RecordID implements shared.Record.
func (o *Objective) RecordID() string { return o.ID }

// Clone returns a deep copy.
func (o *Objective) Clone() *Objective {
	if o == nil {
		return nil
	}
	c := *o
	if o.Description != nil {
		d := *o.Description
		c.Description = &d
	}
	c.TargetDate = timeutil.ClonePtr(o.TargetDate)
	c.CompletedDate = timeutil.ClonePtr(o.CompletedDate)
	return &c
}
