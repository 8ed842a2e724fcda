// Package lifecycle implements the Mentorship Lifecycle Manager: it owns
// the mentorship status machine and its aggregate counters. The meeting
// scheduler, objective tracker and rating aggregator all go through it.
package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/mentorship-hub/internal/application/eventing"
	"github.com/alem-hub/mentorship-hub/internal/application/validation"
	"github.com/alem-hub/mentorship-hub/internal/domain/meeting"
	"github.com/alem-hub/mentorship-hub/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-hub/internal/domain/objective"
	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/pkg/logger"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

const domainName = "mentorship"

// Paging defaults for List.
const (
	DefaultPage     = 1
	DefaultLimit    = 10
	DefaultMaxLimit = 100
)

// LockKey is the lock guarding a mentorship against structural changes
// (new meetings or objectives, deletion).
func LockKey(mentorshipID string) string {
	return shared.LockKey(domainName, mentorshipID)
}

func pairLockKey(mentorID, menteeID string) string {
	return shared.LockKey("mentorship-pair", mentorID+"|"+menteeID)
}

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config tunes the manager.
type Config struct {
	// DefaultFrequency applies when Create gets no frequency.
	DefaultFrequency mentorship.Frequency
	// MaxPageSize bounds List limits.
	MaxPageSize int
	// UniqueActivePair rejects Create while the pair already has a pending
	// or active mentorship.
	UniqueActivePair bool
	// AutoComplete completes an active mentorship once its meeting target
	// is reached.
	AutoComplete bool
}

// DefaultConfig returns the defaults used when no configuration is loaded.
func DefaultConfig() Config {
	return Config{
		DefaultFrequency: mentorship.FrequencyWeekly,
		MaxPageSize:      DefaultMaxLimit,
		AutoComplete:     true,
	}
}

// Dependencies are the collaborators of the manager.
type Dependencies struct {
	Mentorships mentorship.Repository
	Meetings    meeting.Repository
	Objectives  objective.Repository
	Locker      shared.Locker
	Events      shared.EventPublisher
	Clock       timeutil.Clock
	Logger      *logger.Logger
	// NewID generates record ids. Defaults to random UUIDs.
	NewID func() string
}

// Manager is the Mentorship Lifecycle Manager.
type Manager struct {
	repo       mentorship.Repository
	meetings   meeting.Repository
	objectives objective.Repository
	locker     shared.Locker
	events     *eventing.Emitter
	clock      timeutil.Clock
	log        *logger.Logger
	newID      func() string
	cfg        Config
}

// NewManager creates a manager.
func NewManager(deps Dependencies, cfg Config) *Manager {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(logger.Component("lifecycle"))

	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	if cfg.DefaultFrequency == "" {
		cfg.DefaultFrequency = mentorship.FrequencyWeekly
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = DefaultMaxLimit
	}

	return &Manager{
		repo:       deps.Mentorships,
		meetings:   deps.Meetings,
		objectives: deps.Objectives,
		locker:     deps.Locker,
		events:     eventing.NewEmitter(deps.Events, log),
		clock:      timeutil.OrReal(deps.Clock),
		log:        log,
		newID:      newID,
		cfg:        cfg,
	}
}

func (m *Manager) now() time.Time { return m.clock.Now().UTC() }

// ══════════════════════════════════════════════════════════════════════════════
// CREATE / READ
// ══════════════════════════════════════════════════════════════════════════════

// CreateCommand requests a new mentorship.
type CreateCommand struct {
	MentorID            string               `json:"mentor_id" validate:"required"`
	MenteeID            string               `json:"mentee_id" validate:"required,nefield=MentorID"`
	Title               string               `json:"title" validate:"required"`
	Description         *string              `json:"description"`
	MeetingFrequency    mentorship.Frequency `json:"meeting_frequency" validate:"omitempty,oneof=weekly biweekly monthly custom"`
	CustomFrequencyDays *int                 `json:"custom_frequency_days" validate:"omitempty,gt=0"`
	TotalMeetings       int                  `json:"total_meetings" validate:"gte=0"`
}

// Create stores a new pending mentorship.
func (m *Manager) Create(ctx context.Context, cmd CreateCommand) (*mentorship.Mentorship, error) {
	if err := validation.Struct(domainName, "Create", cmd); err != nil {
		return nil, err
	}

	freq := cmd.MeetingFrequency
	if freq == "" {
		freq = m.cfg.DefaultFrequency
	}
	ms, err := mentorship.NewMentorship(mentorship.NewMentorshipParams{
		ID:                  m.newID(),
		MentorID:            cmd.MentorID,
		MenteeID:            cmd.MenteeID,
		Title:               cmd.Title,
		Description:         cmd.Description,
		MeetingFrequency:    freq,
		CustomFrequencyDays: cmd.CustomFrequencyDays,
		TotalMeetings:       cmd.TotalMeetings,
		Now:                 m.now(),
	})
	if err != nil {
		return nil, err
	}

	insert := func() error {
		if m.cfg.UniqueActivePair {
			page, err := m.repo.Query(ctx, shared.Query{Limit: 1}.Where(
				shared.Eq(mentorship.FieldMentorID, cmd.MentorID),
				shared.Eq(mentorship.FieldMenteeID, cmd.MenteeID),
				shared.In(mentorship.FieldStatus, mentorship.StatusValues(mentorship.StatusPending, mentorship.StatusActive)...),
			))
			if err != nil {
				return fmt.Errorf("lifecycle: check existing pair: %w", err)
			}
			if page.Total > 0 {
				return shared.Conflict(domainName, "Create",
					"mentor %s and mentee %s already have an open mentorship", cmd.MentorID, cmd.MenteeID)
			}
		}
		stored, err := m.repo.Insert(ctx, ms)
		if err != nil {
			return fmt.Errorf("lifecycle: insert mentorship: %w", err)
		}
		ms = stored
		return nil
	}

	if m.cfg.UniqueActivePair {
		err = shared.WithLock(ctx, m.locker, pairLockKey(cmd.MentorID, cmd.MenteeID), insert)
	} else {
		err = insert()
	}
	if err != nil {
		return nil, err
	}

	m.log.Debug("mentorship created", logger.MentorshipID(ms.ID), logger.UserID(ms.MentorID))
	m.events.Emit(ctx, shared.EventMentorshipCreated, ms.ID, ms.CreatedAt, map[string]any{
		"mentor_id": ms.MentorID,
		"mentee_id": ms.MenteeID,
	})
	return ms, nil
}

// Get returns the mentorship or a NotFoundError.
func (m *Manager) Get(ctx context.Context, id string) (*mentorship.Mentorship, error) {
	ms, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: get mentorship: %w", err)
	}
	if ms == nil {
		return nil, notFound("Get", id)
	}
	return ms, nil
}

func notFound(op, id string) error {
	return shared.NotFound(domainName, op, "mentorship %s not found", id)
}

// mutate runs fn atomically on one mentorship. A missing record is a
// NotFoundError; fn errors abort the write.
func (m *Manager) mutate(ctx context.Context, op, id string, fn func(ms *mentorship.Mentorship, now time.Time) error) (*mentorship.Mentorship, error) {
	now := m.now()
	ms, err := m.repo.UpdateByID(ctx, id, func(ms *mentorship.Mentorship) error {
		return fn(ms, now)
	})
	if err != nil {
		return nil, err
	}
	if ms == nil {
		return nil, notFound(op, id)
	}
	return ms, nil
}

// mutateLocked is mutate under LockKey(id), so status changes serialize
// with the checks that meeting, objective and exam creation make while
// holding that lock.
func (m *Manager) mutateLocked(ctx context.Context, op, id string, fn func(ms *mentorship.Mentorship, now time.Time) error) (*mentorship.Mentorship, error) {
	var ms *mentorship.Mentorship
	err := shared.WithLock(ctx, m.locker, LockKey(id), func() error {
		var err error
		ms, err = m.mutate(ctx, op, id, fn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ms, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// Accept activates a pending mentorship.
func (m *Manager) Accept(ctx context.Context, id string) (*mentorship.Mentorship, error) {
	ms, err := m.mutateLocked(ctx, "Accept", id, func(ms *mentorship.Mentorship, now time.Time) error {
		return ms.Accept(now)
	})
	if err != nil {
		return nil, err
	}
	m.log.Debug("mentorship accepted", logger.MentorshipID(id))
	m.events.Emit(ctx, shared.EventMentorshipAccepted, id, ms.UpdatedAt, nil)
	return ms, nil
}

// Cancel ends a pending or active mentorship. A non-empty reason is
// appended to the notes.
func (m *Manager) Cancel(ctx context.Context, id, reason string) (*mentorship.Mentorship, error) {
	ms, err := m.mutateLocked(ctx, "Cancel", id, func(ms *mentorship.Mentorship, now time.Time) error {
		return ms.Cancel(now, reason)
	})
	if err != nil {
		return nil, err
	}
	m.log.Debug("mentorship cancelled", logger.MentorshipID(id))
	m.events.Emit(ctx, shared.EventMentorshipCancelled, id, ms.UpdatedAt, map[string]any{"reason": reason})
	return ms, nil
}

// Complete closes an active mentorship, storing the rating (0..5) and
// feedback when given.
func (m *Manager) Complete(ctx context.Context, id string, rating *float64, feedback *string) (*mentorship.Mentorship, error) {
	ms, err := m.mutateLocked(ctx, "Complete", id, func(ms *mentorship.Mentorship, now time.Time) error {
		return ms.Complete(now, rating, feedback)
	})
	if err != nil {
		return nil, err
	}
	m.log.Debug("mentorship completed", logger.MentorshipID(id))
	m.events.Emit(ctx, shared.EventMentorshipCompleted, id, ms.UpdatedAt, map[string]any{"rating": ms.Rating})
	return ms, nil
}

// RecordMeetingCompletion counts a completed meeting. The increment is
// atomic; completedMeetings is capped at a positive totalMeetings.
func (m *Manager) RecordMeetingCompletion(ctx context.Context, id string) (*mentorship.Mentorship, error) {
	var autoCompleted bool
	ms, err := m.mutateLocked(ctx, "RecordMeetingCompletion", id, func(ms *mentorship.Mentorship, now time.Time) error {
		autoCompleted = ms.RecordMeetingCompletion(now, m.cfg.AutoComplete)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Debug("meeting completion recorded",
		logger.MentorshipID(id),
		logger.Int("completed_meetings", ms.CompletedMeetings),
	)
	if autoCompleted {
		m.log.Info("mentorship reached its meeting target", logger.MentorshipID(id))
		m.events.Emit(ctx, shared.EventMentorshipCompleted, id, ms.UpdatedAt, map[string]any{"auto": true})
	}
	return ms, nil
}

// RecordMeetingScheduled counts a newly scheduled meeting. Callers hold
// LockKey(id).
func (m *Manager) RecordMeetingScheduled(ctx context.Context, id string) (*mentorship.Mentorship, error) {
	return m.mutate(ctx, "RecordMeetingScheduled", id, func(ms *mentorship.Mentorship, now time.Time) error {
		ms.RecordMeetingScheduled(now)
		return nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATES
// ══════════════════════════════════════════════════════════════════════════════

// UpdateCommand is a partial update. Nil fields are left unchanged.
type UpdateCommand struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Notes         *string `json:"notes"`
	TotalMeetings *int    `json:"total_meetings" validate:"omitempty,gte=0"`
}

// Update edits descriptive fields of a non-terminal mentorship.
func (m *Manager) Update(ctx context.Context, id string, cmd UpdateCommand) (*mentorship.Mentorship, error) {
	const op = "Update"
	if err := validation.Struct(domainName, op, cmd); err != nil {
		return nil, err
	}
	if cmd.Title != nil && *cmd.Title == "" {
		return nil, shared.Validation(domainName, op, "title cannot be empty")
	}

	return m.mutateLocked(ctx, op, id, func(ms *mentorship.Mentorship, now time.Time) error {
		if ms.Status.IsTerminal() {
			return shared.InvalidState(domainName, op, "mentorship %s is %s", ms.ID, ms.Status)
		}
		if cmd.TotalMeetings != nil {
			if err := ms.SetTotalMeetings(now, *cmd.TotalMeetings); err != nil {
				return err
			}
		}
		if cmd.Title != nil {
			ms.Title = *cmd.Title
		}
		if cmd.Description != nil {
			d := *cmd.Description
			ms.Description = &d
		}
		if cmd.Notes != nil {
			n := *cmd.Notes
			ms.Notes = &n
		}
		ms.UpdatedAt = now
		return nil
	})
}

// UpdateFrequency changes the meeting cadence of a non-terminal mentorship.
func (m *Manager) UpdateFrequency(ctx context.Context, id string, f mentorship.Frequency, customDays *int) (*mentorship.Mentorship, error) {
	return m.mutateLocked(ctx, "UpdateFrequency", id, func(ms *mentorship.Mentorship, now time.Time) error {
		return ms.UpdateFrequency(now, f, customDays)
	})
}

// UpdateObjectives replaces the mirrored objective titles verbatim.
func (m *Manager) UpdateObjectives(ctx context.Context, id string, titles []string) (*mentorship.Mentorship, error) {
	return m.EditObjectives(ctx, id, func([]string) []string { return titles })
}

// EditObjectives rewrites the mirrored titles with edit in one atomic
// read-modify-write. It does not take LockKey(id); the objective tracker
// calls it while holding that lock.
func (m *Manager) EditObjectives(ctx context.Context, id string, edit func(titles []string) []string) (*mentorship.Mentorship, error) {
	return m.mutate(ctx, "UpdateObjectives", id, func(ms *mentorship.Mentorship, now time.Time) error {
		ms.ReplaceObjectives(now, edit(slices.Clone(ms.Objectives)))
		return nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE
// ══════════════════════════════════════════════════════════════════════════════

// Delete removes a mentorship that no meeting or objective references.
// It reports false when the mentorship does not exist.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := shared.WithLock(ctx, m.locker, LockKey(id), func() error {
		ms, err := m.repo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("lifecycle: get mentorship: %w", err)
		}
		if ms == nil {
			return nil
		}

		meetings, objectives, err := m.countReferences(ctx, id)
		if err != nil {
			return err
		}
		if meetings > 0 || objectives > 0 {
			return shared.Conflict(domainName, "Delete",
				"mentorship %s still has %d meetings and %d objectives", id, meetings, objectives)
		}

		deleted, err = m.repo.DeleteByID(ctx, id)
		if err != nil {
			return fmt.Errorf("lifecycle: delete mentorship: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if deleted {
		m.log.Debug("mentorship deleted", logger.MentorshipID(id))
	}
	return deleted, nil
}

func (m *Manager) countReferences(ctx context.Context, id string) (meetings, objectives int, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := m.meetings.Query(gctx, shared.Query{Limit: 1}.Where(shared.Eq(meeting.FieldMentorshipID, id)))
		if err != nil {
			return fmt.Errorf("lifecycle: count meetings: %w", err)
		}
		meetings = page.Total
		return nil
	})
	g.Go(func() error {
		page, err := m.objectives.Query(gctx, shared.Query{Limit: 1}.Where(shared.Eq(objective.FieldMentorshipID, id)))
		if err != nil {
			return fmt.Errorf("lifecycle: count objectives: %w", err)
		}
		objectives = page.Total
		return nil
	})
	err = g.Wait()
	return meetings, objectives, err
}
