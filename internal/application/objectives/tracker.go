// Package objectives implements the Objective Tracker. It derives objective
// status from progress and keeps the mentorship's mirrored title list in
// step with live objectives.
package objectives

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/mentorship-hub/internal/application/eventing"
	"github.com/alem-hub/mentorship-hub/internal/application/lifecycle"
	"github.com/alem-hub/mentorship-hub/internal/application/validation"
	"github.com/alem-hub/mentorship-hub/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-hub/internal/domain/objective"
	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/pkg/logger"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

const domainName = "objective"

// Mentorships is the part of the lifecycle manager the tracker needs.
type Mentorships interface {
	Get(ctx context.Context, id string) (*mentorship.Mentorship, error)
	EditObjectives(ctx context.Context, id string, edit func(titles []string) []string) (*mentorship.Mentorship, error)
}

// Dependencies are the collaborators of the tracker.
type Dependencies struct {
	Objectives  objective.Repository
	Mentorships Mentorships
	Locker      shared.Locker
	Events      shared.EventPublisher
	Clock       timeutil.Clock
	Logger      *logger.Logger
	NewID       func() string
}

// Tracker is the Objective Tracker.
type Tracker struct {
	repo        objective.Repository
	mentorships Mentorships
	locker      shared.Locker
	events      *eventing.Emitter
	clock       timeutil.Clock
	log         *logger.Logger
	newID       func() string
}

// NewTracker creates a tracker.
func NewTracker(deps Dependencies) *Tracker {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(logger.Component("objectives"))
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Tracker{
		repo:        deps.Objectives,
		mentorships: deps.Mentorships,
		locker:      deps.Locker,
		events:      eventing.NewEmitter(deps.Events, log),
		clock:       timeutil.OrReal(deps.Clock),
		log:         log,
		newID:       newID,
	}
}

func (t *Tracker) now() time.Time { return t.clock.Now().UTC() }

func lockKey(objectiveID string) string {
	return shared.LockKey(domainName, objectiveID)
}

func notFound(op, id string) error {
	return shared.NotFound(domainName, op, "objective %s not found", id)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIRROR EDITS
// ══════════════════════════════════════════════════════════════════════════════

func appendTitle(title string) func([]string) []string {
	return func(titles []string) []string { return append(titles, title) }
}

// renameTitle replaces the first exact occurrence of from.
func renameTitle(from, to string) func([]string) []string {
	return func(titles []string) []string {
		if i := slices.Index(titles, from); i >= 0 {
			titles[i] = to
		}
		return titles
	}
}

// removeTitle drops the first exact occurrence of title.
func removeTitle(title string) func([]string) []string {
	return func(titles []string) []string {
		if i := slices.Index(titles, title); i >= 0 {
			return slices.Delete(titles, i, i+1)
		}
		return titles
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CREATE / READ
// ══════════════════════════════════════════════════════════════════════════════

// CreateCommand adds an objective to a mentorship.
type CreateCommand struct {
	MentorshipID string     `json:"mentorship_id" validate:"required"`
	Title        string     `json:"title" validate:"required"`
	Description  *string    `json:"description"`
	TargetDate   *time.Time `json:"target_date"`
	Progress     int        `json:"progress" validate:"gte=0,lte=100"`
}

// CreateObjective stores an objective and mirrors its title into the
// mentorship.
func (t *Tracker) CreateObjective(ctx context.Context, cmd CreateCommand) (*objective.Objective, error) {
	if err := validation.Struct(domainName, "Create", cmd); err != nil {
		return nil, err
	}

	var created *objective.Objective
	err := shared.WithLock(ctx, t.locker, lifecycle.LockKey(cmd.MentorshipID), func() error {
		if _, err := t.mentorships.Get(ctx, cmd.MentorshipID); err != nil {
			return err
		}

		o, err := objective.NewObjective(objective.NewObjectiveParams{
			ID:           t.newID(),
			MentorshipID: cmd.MentorshipID,
			Title:        cmd.Title,
			Description:  cmd.Description,
			TargetDate:   cmd.TargetDate,
			Progress:     cmd.Progress,
			Now:          t.now(),
		})
		if err != nil {
			return err
		}
		if created, err = t.repo.Insert(ctx, o); err != nil {
			return fmt.Errorf("objectives: insert objective: %w", err)
		}

		if _, err := t.mentorships.EditObjectives(ctx, cmd.MentorshipID, appendTitle(created.Title)); err != nil {
			if _, derr := t.repo.DeleteByID(ctx, created.ID); derr != nil {
				t.log.Error("failed to roll back objective", logger.ObjectiveID(created.ID), logger.Err(derr))
			}
			created = nil
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.log.Debug("objective created", logger.ObjectiveID(created.ID), logger.MentorshipID(created.MentorshipID))
	return created, nil
}

// Get returns the objective or a NotFoundError.
func (t *Tracker) Get(ctx context.Context, id string) (*objective.Objective, error) {
	o, err := t.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("objectives: get objective: %w", err)
	}
	if o == nil {
		return nil, notFound("Get", id)
	}
	return o, nil
}

// ListByMentorship returns the objectives of an existing mentorship,
// newest first.
func (t *Tracker) ListByMentorship(ctx context.Context, mentorshipID string) ([]*objective.Objective, error) {
	if _, err := t.mentorships.Get(ctx, mentorshipID); err != nil {
		return nil, err
	}
	return t.list(ctx, shared.Eq(objective.FieldMentorshipID, mentorshipID))
}

// ListByStatus returns the objectives of a mentorship in one status,
// newest first.
func (t *Tracker) ListByStatus(ctx context.Context, mentorshipID string, status objective.Status) ([]*objective.Objective, error) {
	if !status.IsValid() {
		return nil, shared.Validation(domainName, "List", "invalid status %q", status)
	}
	if _, err := t.mentorships.Get(ctx, mentorshipID); err != nil {
		return nil, err
	}
	return t.list(ctx,
		shared.Eq(objective.FieldMentorshipID, mentorshipID),
		shared.Eq(objective.FieldStatus, string(status)),
	)
}

func (t *Tracker) list(ctx context.Context, filters ...shared.Filter) ([]*objective.Objective, error) {
	res, err := t.repo.Query(ctx, shared.Query{}.Where(filters...).OrderBy(objective.FieldCreatedAt, true))
	if err != nil {
		return nil, fmt.Errorf("objectives: list objectives: %w", err)
	}
	return res.Items, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MUTATE
// ══════════════════════════════════════════════════════════════════════════════

func (t *Tracker) mutate(ctx context.Context, op, id string, fn func(o *objective.Objective, now time.Time) error) (*objective.Objective, error) {
	now := t.now()
	o, err := t.repo.UpdateByID(ctx, id, func(o *objective.Objective) error {
		return fn(o, now)
	})
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, notFound(op, id)
	}
	return o, nil
}

// UpdateProgress stores progress (0..100) and derives the status from it.
func (t *Tracker) UpdateProgress(ctx context.Context, id string, progress int) (*objective.Objective, error) {
	var before objective.Status
	o, err := t.mutate(ctx, "UpdateProgress", id, func(o *objective.Objective, now time.Time) error {
		before = o.Status
		return o.UpdateProgress(now, progress)
	})
	if err != nil {
		return nil, err
	}
	t.emitProgress(ctx, o, before)
	return o, nil
}

// CompleteObjective marks the objective done. Completing a completed
// objective returns it unchanged; cancelled objectives are rejected.
func (t *Tracker) CompleteObjective(ctx context.Context, id string) (*objective.Objective, error) {
	return t.transition(ctx, "Complete", id, (*objective.Objective).Complete)
}

// StartObjective puts a pending objective in progress. Starting an
// in-progress objective returns it unchanged.
func (t *Tracker) StartObjective(ctx context.Context, id string) (*objective.Objective, error) {
	return t.transition(ctx, "Start", id, (*objective.Objective).Start)
}

// CancelObjective cancels the objective. Cancelling a cancelled objective
// returns it unchanged; completed objectives are rejected.
func (t *Tracker) CancelObjective(ctx context.Context, id string) (*objective.Objective, error) {
	return t.transition(ctx, "Cancel", id, (*objective.Objective).Cancel)
}

func (t *Tracker) transition(ctx context.Context, op, id string, apply func(*objective.Objective, time.Time) (bool, error)) (*objective.Objective, error) {
	var (
		before  objective.Status
		changed bool
	)
	o, err := t.mutate(ctx, op, id, func(o *objective.Objective, now time.Time) error {
		before = o.Status
		var err error
		changed, err = apply(o, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		t.log.Debug("objective transitioned",
			logger.ObjectiveID(id),
			logger.Operation(op),
			logger.Status(string(o.Status)),
		)
		t.emitProgress(ctx, o, before)
	}
	return o, nil
}

func (t *Tracker) emitProgress(ctx context.Context, o *objective.Objective, before objective.Status) {
	data := map[string]any{
		"mentorship_id": o.MentorshipID,
		"progress":      o.Progress,
		"status":        string(o.Status),
	}
	t.events.Emit(ctx, shared.EventObjectiveProgressed, o.ID, o.UpdatedAt, data)
	if o.Status == objective.StatusCompleted && before != objective.StatusCompleted {
		t.events.Emit(ctx, shared.EventObjectiveCompleted, o.ID, o.UpdatedAt, data)
	}
}

// UpdateObjective applies a patch. A title change is mirrored into the
// mentorship.
func (t *Tracker) UpdateObjective(ctx context.Context, id string, p objective.Patch) (*objective.Objective, error) {
	var updated *objective.Objective
	err := shared.WithLock(ctx, t.locker, lockKey(id), func() error {
		var (
			prevTitle string
			before    objective.Status
		)
		o, err := t.mutate(ctx, "Update", id, func(o *objective.Objective, now time.Time) error {
			before = o.Status
			var err error
			prevTitle, err = o.Apply(now, p)
			return err
		})
		if err != nil {
			return err
		}
		updated = o

		if o.Title != prevTitle {
			if _, err := t.mentorships.EditObjectives(ctx, o.MentorshipID, renameTitle(prevTitle, o.Title)); err != nil {
				return fmt.Errorf("objectives: mirror rename: %w", err)
			}
		}
		if p.Progress != nil {
			t.emitProgress(ctx, o, before)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteObjective removes the objective and its mirrored title. It reports
// false when the objective does not exist.
func (t *Tracker) DeleteObjective(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := shared.WithLock(ctx, t.locker, lockKey(id), func() error {
		o, err := t.repo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("objectives: get objective: %w", err)
		}
		if o == nil {
			return nil
		}
		if deleted, err = t.repo.DeleteByID(ctx, id); err != nil {
			return fmt.Errorf("objectives: delete objective: %w", err)
		}
		if !deleted {
			return nil
		}

		_, err = t.mentorships.EditObjectives(ctx, o.MentorshipID, removeTitle(o.Title))
		switch {
		case shared.IsNotFound(err):
			t.log.Warn("mentorship of deleted objective is gone", logger.MentorshipID(o.MentorshipID))
		case err != nil:
			return fmt.Errorf("objectives: mirror removal: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
