// Package rating implements the Feedback Rating Aggregator together with
// the feedback records it aggregates. After every rating change received
// by a mentor, the mentor's average rating is recomputed and pushed into
// the mentor profile store on a best-effort basis.
package rating

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/mentorship-hub/internal/application/eventing"
	"github.com/alem-hub/mentorship-hub/internal/application/validation"
	"github.com/alem-hub/mentorship-hub/internal/domain/feedback"
	"github.com/alem-hub/mentorship-hub/internal/domain/mentorprofile"
	"github.com/alem-hub/mentorship-hub/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/pkg/circuitbreaker"
	"github.com/alem-hub/mentorship-hub/pkg/logger"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

const domainName = "feedback"

// Mentorships resolves which party of a mentorship is the mentor.
type Mentorships interface {
	Get(ctx context.Context, id string) (*mentorship.Mentorship, error)
}

// Profiles is the Mentor Profile store.
type Profiles interface {
	Get(ctx context.Context, userID string) (*mentorprofile.Profile, error)
	SetRating(ctx context.Context, userID string, rating *float64) error
}

// Dependencies are the collaborators of the aggregator.
type Dependencies struct {
	Feedback    feedback.Repository
	Mentorships Mentorships
	Profiles    Profiles
	Locker      shared.Locker
	Events      shared.EventPublisher
	Clock       timeutil.Clock
	Logger      *logger.Logger
	// Breaker guards the rating push. A default breaker is used when nil.
	Breaker *circuitbreaker.CircuitBreaker
	NewID   func() string
}

// Aggregator is the Feedback Rating Aggregator.
type Aggregator struct {
	repo        feedback.Repository
	mentorships Mentorships
	profiles    Profiles
	locker      shared.Locker
	events      *eventing.Emitter
	clock       timeutil.Clock
	log         *logger.Logger
	breaker     *circuitbreaker.CircuitBreaker
	newID       func() string
}

// NewAggregator creates an aggregator.
func NewAggregator(deps Dependencies) *Aggregator {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(logger.Component("rating"))
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	breaker := deps.Breaker
	if breaker == nil {
		breaker = circuitbreaker.New("mentor-profile-rating",
			circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			}),
		)
	}
	return &Aggregator{
		repo:        deps.Feedback,
		mentorships: deps.Mentorships,
		profiles:    deps.Profiles,
		locker:      deps.Locker,
		events:      eventing.NewEmitter(deps.Events, log),
		clock:       timeutil.OrReal(deps.Clock),
		log:         log,
		breaker:     breaker,
		newID:       newID,
	}
}

func (a *Aggregator) now() time.Time { return a.clock.Now().UTC() }

func notFound(op, id string) error {
	return shared.NotFound(domainName, op, "feedback %s not found", id)
}

func parties(ms *mentorship.Mentorship) feedback.Parties {
	return feedback.Parties{MentorID: ms.MentorID, MenteeID: ms.MenteeID}
}

// ══════════════════════════════════════════════════════════════════════════════
// FEEDBACK
// ══════════════════════════════════════════════════════════════════════════════

// CreateCommand leaves feedback from one party to the other.
type CreateCommand struct {
	MentorshipID string  `json:"mentorship_id" validate:"required"`
	FromUserID   string  `json:"from_user_id" validate:"required"`
	ToUserID     string  `json:"to_user_id" validate:"required,nefield=FromUserID"`
	Content      string  `json:"content" validate:"required"`
	Rating       *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	MeetingID    *string `json:"meeting_id"`
	IsAnonymous  bool    `json:"is_anonymous"`
}

// CreateFeedback stores feedback between the two parties of a mentorship.
// A rating received by the mentor triggers recomputation of their average.
func (a *Aggregator) CreateFeedback(ctx context.Context, cmd CreateCommand) (*feedback.Feedback, error) {
	if err := validation.Struct(domainName, "Create", cmd); err != nil {
		return nil, err
	}
	ms, err := a.mentorships.Get(ctx, cmd.MentorshipID)
	if err != nil {
		return nil, err
	}

	f, err := feedback.NewFeedback(feedback.NewFeedbackParams{
		ID:           a.newID(),
		MentorshipID: cmd.MentorshipID,
		FromUserID:   cmd.FromUserID,
		ToUserID:     cmd.ToUserID,
		Content:      cmd.Content,
		Rating:       cmd.Rating,
		MeetingID:    cmd.MeetingID,
		IsAnonymous:  cmd.IsAnonymous,
		Parties:      parties(ms),
		Now:          a.now(),
	})
	if err != nil {
		return nil, err
	}
	stored, err := a.repo.Insert(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("rating: insert feedback: %w", err)
	}

	a.log.Debug("feedback created", logger.MentorshipID(ms.ID), logger.UserID(stored.ToUserID))
	a.events.Emit(ctx, shared.EventFeedbackSubmitted, stored.ID, stored.CreatedAt, map[string]any{
		"mentorship_id": stored.MentorshipID,
		"to_user_id":    stored.ToUserID,
		"rating":        stored.Rating,
	})

	if stored.HasRating() && stored.ToUserID == ms.MentorID {
		a.refreshMentorRating(ctx, ms.MentorID)
	}
	return stored, nil
}

// Get returns the feedback or a NotFoundError.
func (a *Aggregator) Get(ctx context.Context, id string) (*feedback.Feedback, error) {
	f, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("rating: get feedback: %w", err)
	}
	if f == nil {
		return nil, notFound("Get", id)
	}
	return f, nil
}

// UpdateFeedback applies a patch. It returns nil when the feedback does not
// exist. A rating change received by the mentor triggers recomputation.
func (a *Aggregator) UpdateFeedback(ctx context.Context, id string, p feedback.Patch) (*feedback.Feedback, error) {
	current, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("rating: get feedback: %w", err)
	}
	if current == nil {
		return nil, nil
	}
	ms, err := a.mentorships.Get(ctx, current.MentorshipID)
	if err != nil {
		return nil, err
	}
	if err := feedback.ValidateParties("Update", parties(ms), current.FromUserID, current.ToUserID); err != nil {
		return nil, err
	}

	now := a.now()
	f, err := a.repo.UpdateByID(ctx, id, func(f *feedback.Feedback) error {
		return f.Apply(now, p)
	})
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}

	if p.TouchesRating() && f.ToUserID == ms.MentorID {
		a.refreshMentorRating(ctx, ms.MentorID)
	}
	return f, nil
}

// DeleteFeedback removes feedback. Deleting a rating received by the
// mentor triggers recomputation.
func (a *Aggregator) DeleteFeedback(ctx context.Context, id string) (bool, error) {
	f, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("rating: get feedback: %w", err)
	}
	if f == nil {
		return false, nil
	}
	deleted, err := a.repo.DeleteByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("rating: delete feedback: %w", err)
	}
	if !deleted || !f.HasRating() {
		return deleted, nil
	}

	ms, err := a.mentorships.Get(ctx, f.MentorshipID)
	switch {
	case shared.IsNotFound(err):
		return true, nil
	case err != nil:
		a.log.Warn("rating refresh skipped", logger.MentorshipID(f.MentorshipID), logger.Err(err))
		return true, nil
	}
	if f.ToUserID == ms.MentorID {
		a.refreshMentorRating(ctx, ms.MentorID)
	}
	return true, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// ListByMentorship returns the feedback of an existing mentorship, newest
// first.
func (a *Aggregator) ListByMentorship(ctx context.Context, mentorshipID string) ([]*feedback.Feedback, error) {
	if _, err := a.mentorships.Get(ctx, mentorshipID); err != nil {
		return nil, err
	}
	return a.list(ctx, shared.Eq(feedback.FieldMentorshipID, mentorshipID))
}

// ListByMeeting returns the feedback attached to a meeting, newest first.
func (a *Aggregator) ListByMeeting(ctx context.Context, meetingID string) ([]*feedback.Feedback, error) {
	return a.list(ctx, shared.Eq(feedback.FieldMeetingID, meetingID))
}

// ListGivenBy returns the feedback written by userID, newest first.
func (a *Aggregator) ListGivenBy(ctx context.Context, userID string) ([]*feedback.Feedback, error) {
	return a.list(ctx, shared.Eq(feedback.FieldFromUserID, userID))
}

// ListReceivedBy returns the feedback addressed to userID, newest first.
func (a *Aggregator) ListReceivedBy(ctx context.Context, userID string) ([]*feedback.Feedback, error) {
	return a.list(ctx, shared.Eq(feedback.FieldToUserID, userID))
}

func (a *Aggregator) list(ctx context.Context, filters ...shared.Filter) ([]*feedback.Feedback, error) {
	for _, f := range filters {
		if s, ok := f.Value.(string); ok && s == "" {
			return nil, shared.Validation(domainName, "List", "%s is required", f.Field)
		}
	}
	res, err := a.repo.Query(ctx, shared.Query{}.Where(filters...).OrderBy(feedback.FieldCreatedAt, true))
	if err != nil {
		return nil, fmt.Errorf("rating: list feedback: %w", err)
	}
	return res.Items, nil
}

// AverageRatingForUser returns the mean of the ratings userID received,
// rounded to one decimal, or nil when there are none.
func (a *Aggregator) AverageRatingForUser(ctx context.Context, userID string) (*float64, error) {
	if userID == "" {
		return nil, shared.Validation(domainName, "AverageRating", "user id is required")
	}
	res, err := a.repo.Query(ctx, shared.Query{}.Where(
		shared.Eq(feedback.FieldToUserID, userID),
		shared.NotNull(feedback.FieldRating),
	))
	if err != nil {
		return nil, fmt.Errorf("rating: load ratings: %w", err)
	}
	return feedback.AverageRating(res.Items), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RATING PUSH
// ══════════════════════════════════════════════════════════════════════════════

// refreshMentorRating recomputes and pushes the mentor's average. Failures
// are logged and never reach the caller.
func (a *Aggregator) refreshMentorRating(ctx context.Context, mentorID string) {
	var noProfile bool
	err := shared.WithLock(ctx, a.locker, shared.LockKey("rating", mentorID), func() error {
		avg, err := a.AverageRatingForUser(ctx, mentorID)
		if err != nil {
			return err
		}
		return a.breaker.Execute(ctx, func(ctx context.Context) error {
			p, err := a.profiles.Get(ctx, mentorID)
			if err != nil {
				return err
			}
			if p == nil {
				noProfile = true
				return nil
			}
			return a.profiles.SetRating(ctx, mentorID, avg)
		})
	})

	switch {
	case err != nil:
		a.log.Warn("failed to push mentor rating", logger.UserID(mentorID), logger.Err(err))
	case noProfile:
		a.log.Debug("mentor rating not pushed, no profile", logger.UserID(mentorID))
	default:
		a.log.Debug("mentor rating refreshed", logger.UserID(mentorID))
	}
}
