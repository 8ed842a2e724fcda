// Package profiles is the Mentor Profile store. It serves the rating
// aggregator's read and rating push and the profile CRUD around them.
package profiles

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/mentorship-hub/internal/application/eventing"
	"github.com/alem-hub/mentorship-hub/internal/domain/mentorprofile"
	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/pkg/logger"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

const domainName = "mentor_profile"

// Service manages mentor profiles.
type Service struct {
	repo   mentorprofile.Repository
	events *eventing.Emitter
	clock  timeutil.Clock
	log    *logger.Logger
}

// NewService creates a profile service.
func NewService(repo mentorprofile.Repository, events shared.EventPublisher, clock timeutil.Clock, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(logger.Component("profiles"))
	return &Service{
		repo:   repo,
		events: eventing.NewEmitter(events, log),
		clock:  timeutil.OrReal(clock),
		log:    log,
	}
}

func (s *Service) now() time.Time { return s.clock.Now().UTC() }

// CreateCommand describes a new profile.
type CreateCommand struct {
	UserID       string
	Specialties  []string
	Biography    string
	Experience   []string
	Education    []string
	Availability []string
}

// Create stores a profile for a user. A second profile for the same user
// is a conflict.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*mentorprofile.Profile, error) {
	p, err := mentorprofile.NewProfile(mentorprofile.NewProfileParams{
		UserID:       cmd.UserID,
		Specialties:  cmd.Specialties,
		Biography:    cmd.Biography,
		Experience:   cmd.Experience,
		Education:    cmd.Education,
		Availability: cmd.Availability,
		Now:          s.now(),
	})
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("profiles: get profile: %w", err)
	}
	if existing != nil {
		return nil, shared.Conflict(domainName, "Create", "mentor profile already exists for user %s", cmd.UserID)
	}

	stored, err := s.repo.Insert(ctx, p)
	if err != nil {
		if shared.IsConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("profiles: insert profile: %w", err)
	}
	s.log.Debug("mentor profile created", logger.UserID(cmd.UserID))
	return stored, nil
}

// Get returns the profile of userID, or nil when the user has none.
func (s *Service) Get(ctx context.Context, userID string) (*mentorprofile.Profile, error) {
	p, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profiles: get profile: %w", err)
	}
	return p, nil
}

// IsMentor reports whether userID has a mentor profile.
func (s *Service) IsMentor(ctx context.Context, userID string) (bool, error) {
	p, err := s.Get(ctx, userID)
	return p != nil, err
}

// SetRating replaces the aggregated rating of a mentor. Nil clears it.
// A user without a profile is left alone.
func (s *Service) SetRating(ctx context.Context, userID string, rating *float64) error {
	if err := mentorprofile.ValidateRating(rating); err != nil {
		return err
	}
	p, err := s.repo.UpdateByID(ctx, userID, func(p *mentorprofile.Profile) error {
		return p.SetRating(s.now(), rating)
	})
	if err != nil {
		return fmt.Errorf("profiles: set rating: %w", err)
	}
	if p == nil {
		s.log.Warn("rating for user without mentor profile", logger.UserID(userID))
		return nil
	}
	s.events.Emit(ctx, shared.EventMentorRatingUpdate, userID, p.UpdatedAt, map[string]any{"rating": p.Rating})
	return nil
}

// Update edits the descriptive fields of a profile. It returns nil when
// the profile does not exist.
func (s *Service) Update(ctx context.Context, userID string, patch mentorprofile.Patch) (*mentorprofile.Profile, error) {
	p, err := s.repo.UpdateByID(ctx, userID, func(p *mentorprofile.Profile) error {
		p.Apply(s.now(), patch)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("profiles: update profile: %w", err)
	}
	return p, nil
}

// IncrementSessionCount counts one more session held by the mentor. It
// returns nil when the profile does not exist.
func (s *Service) IncrementSessionCount(ctx context.Context, userID string) (*mentorprofile.Profile, error) {
	p, err := s.repo.UpdateByID(ctx, userID, func(p *mentorprofile.Profile) error {
		p.IncrementSessions(s.now())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("profiles: increment sessions: %w", err)
	}
	return p, nil
}

// Delete removes a profile.
func (s *Service) Delete(ctx context.Context, userID string) (bool, error) {
	ok, err := s.repo.DeleteByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("profiles: delete profile: %w", err)
	}
	return ok, nil
}

// ListResult is one page of profiles.
type ListResult struct {
	Items      []*mentorprofile.Profile `json:"items"`
	Total      int                      `json:"total"`
	Page       int                      `json:"page"`
	Limit      int                      `json:"limit"`
	TotalPages int                      `json:"total_pages"`
}

func checkPaging(page, limit int) error {
	if page < 1 {
		return shared.Validation(domainName, "List", "page must be at least 1")
	}
	if limit < 1 || limit > 100 {
		return shared.Validation(domainName, "List", "limit must be between 1 and 100")
	}
	return nil
}

// List pages through profiles, best rated first.
func (s *Service) List(ctx context.Context, page, limit int) (*ListResult, error) {
	if err := checkPaging(page, limit); err != nil {
		return nil, err
	}
	res, err := s.repo.Query(ctx, shared.Query{}.
		OrderBy(mentorprofile.FieldRating, true).
		Paginate(page, limit))
	if err != nil {
		return nil, fmt.Errorf("profiles: list profiles: %w", err)
	}
	return &ListResult{
		Items:      res.Items,
		Total:      res.Total,
		Page:       page,
		Limit:      limit,
		TotalPages: shared.TotalPages(res.Total, limit),
	}, nil
}

// FindBySpecialty pages through the profiles listing specialty. Specialties
// are a list, which the gateway cannot filter on, so matching happens here.
func (s *Service) FindBySpecialty(ctx context.Context, specialty string, page, limit int) (*ListResult, error) {
	if specialty == "" {
		return nil, shared.Validation(domainName, "FindBySpecialty", "specialty is required")
	}
	if err := checkPaging(page, limit); err != nil {
		return nil, err
	}
	res, err := s.repo.Query(ctx, shared.Query{}.OrderBy(mentorprofile.FieldRating, true))
	if err != nil {
		return nil, fmt.Errorf("profiles: list profiles: %w", err)
	}

	matched := make([]*mentorprofile.Profile, 0, len(res.Items))
	for _, p := range res.Items {
		if p.HasSpecialty(specialty) {
			matched = append(matched, p)
		}
	}
	from := min((page-1)*limit, len(matched))
	to := min(from+limit, len(matched))
	return &ListResult{
		Items:      matched[from:to],
		Total:      len(matched),
		Page:       page,
		Limit:      limit,
		TotalPages: shared.TotalPages(len(matched), limit),
	}, nil
}
