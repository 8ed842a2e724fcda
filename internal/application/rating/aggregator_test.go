package rating

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-hub/internal/application/lifecycle"
	"github.com/alem-hub/mentorship-hub/internal/application/profiles"
	"github.com/alem-hub/mentorship-hub/internal/domain/feedback"
	"github.com/alem-hub/mentorship-hub/internal/domain/meeting"
	"github.com/alem-hub/mentorship-hub/internal/domain/mentorprofile"
	"github.com/alem-hub/mentorship-hub/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-hub/internal/domain/objective"
	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/internal/infrastructure/locking"
	"github.com/alem-hub/mentorship-hub/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/mentorship-hub/internal/testutil"
	"github.com/alem-hub/mentorship-hub/pkg/circuitbreaker"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

const (
	mentorID = "mentorA"
	menteeID = "menteeB"
)

type fixture struct {
	agg      *Aggregator
	lc       *lifecycle.Manager
	profiles *profiles.Service
	events   *testutil.EventRecorder
	msID     string
}

func newFixture(t *testing.T, store Profiles, breaker *circuitbreaker.CircuitBreaker) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := timeutil.NewManualClock(testutil.Epoch)
	f := &fixture{events: &testutil.EventRecorder{}}
	locker := locking.NewKeyedMutex()

	f.lc = lifecycle.NewManager(lifecycle.Dependencies{
		Mentorships: memory.NewCollection(mentorship.Schema),
		Meetings:    memory.NewCollection(meeting.Schema),
		Objectives:  memory.NewCollection(objective.Schema),
		Locker:      locker,
		Events:      f.events,
		Clock:       clock,
		NewID:       testutil.SequentialIDs("ms"),
	}, lifecycle.DefaultConfig())

	f.profiles = profiles.NewService(memory.NewCollection(mentorprofile.Schema), f.events, clock, nil)
	_, err := f.profiles.Create(ctx, profiles.CreateCommand{UserID: mentorID, Specialties: []string{"go"}})
	require.NoError(t, err)
	if store == nil {
		store = f.profiles
	}

	f.agg = NewAggregator(Dependencies{
		Feedback:    memory.NewCollection(feedback.Schema),
		Mentorships: f.lc,
		Profiles:    store,
		Locker:      locker,
		Events:      f.events,
		Clock:       clock,
		Breaker:     breaker,
		NewID:       testutil.SequentialIDs("fb"),
	})

	ms, err := f.lc.Create(ctx, lifecycle.CreateCommand{MentorID: mentorID, MenteeID: menteeID, Title: "Pairing"})
	require.NoError(t, err)
	f.msID = ms.ID
	return f
}

func (f *fixture) rate(t *testing.T, from, to string, rating int) *feedback.Feedback {
	t.Helper()
	fb, err := f.agg.CreateFeedback(context.Background(), CreateCommand{
		MentorshipID: f.msID,
		FromUserID:   from,
		ToUserID:     to,
		Content:      "thanks",
		Rating:       &rating,
	})
	require.NoError(t, err)
	return fb
}

func (f *fixture) mentorRating(t *testing.T) *float64 {
	t.Helper()
	p, err := f.profiles.Get(context.Background(), mentorID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Rating
}

func TestAggregator_PushesMentorAverage(t *testing.T) {
	f := newFixture(t, nil, nil)

	f.rate(t, menteeID, mentorID, 5)
	require.NotNil(t, f.mentorRating(t))
	assert.Equal(t, 5.0, *f.mentorRating(t))

	f.rate(t, menteeID, mentorID, 4)
	f.rate(t, menteeID, mentorID, 4)
	assert.Equal(t, 4.3, *f.mentorRating(t))
	assert.Equal(t, 3, f.events.Count(shared.EventMentorRatingUpdate))
	assert.Equal(t, 3, f.events.Count(shared.EventFeedbackSubmitted))
}

func TestAggregator_MenteeRatingDoesNotTouchMentor(t *testing.T) {
	f := newFixture(t, nil, nil)

	f.rate(t, mentorID, menteeID, 2)
	assert.Nil(t, f.mentorRating(t))
	assert.Equal(t, 0, f.events.Count(shared.EventMentorRatingUpdate))

	avg, err := f.agg.AverageRatingForUser(context.Background(), menteeID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, *avg)
}

func TestAggregator_UnratedFeedback(t *testing.T) {
	f := newFixture(t, nil, nil)

	fb, err := f.agg.CreateFeedback(context.Background(), CreateCommand{
		MentorshipID: f.msID,
		FromUserID:   menteeID,
		ToUserID:     mentorID,
		Content:      "see you next week",
	})
	require.NoError(t, err)
	assert.False(t, fb.HasRating())
	assert.Nil(t, f.mentorRating(t))

	avg, err := f.agg.AverageRatingForUser(context.Background(), mentorID)
	require.NoError(t, err)
	assert.Nil(t, avg)
}

func TestAggregator_CreateRejects(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	six := 6

	tests := []struct {
		name  string
		cmd   CreateCommand
		check func(error) bool
	}{
		{"outsider sender", CreateCommand{MentorshipID: f.msID, FromUserID: "eve", ToUserID: mentorID, Content: "x"}, shared.IsValidation},
		{"self feedback", CreateCommand{MentorshipID: f.msID, FromUserID: mentorID, ToUserID: mentorID, Content: "x"}, shared.IsValidation},
		{"rating out of range", CreateCommand{MentorshipID: f.msID, FromUserID: menteeID, ToUserID: mentorID, Content: "x", Rating: &six}, shared.IsValidation},
		{"empty content", CreateCommand{MentorshipID: f.msID, FromUserID: menteeID, ToUserID: mentorID}, shared.IsValidation},
		{"unknown mentorship", CreateCommand{MentorshipID: "missing", FromUserID: menteeID, ToUserID: mentorID, Content: "x"}, shared.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.agg.CreateFeedback(ctx, tt.cmd)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestAggregator_UpdateAndDeleteRecompute(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	first := f.rate(t, menteeID, mentorID, 2)
	second := f.rate(t, menteeID, mentorID, 4)
	assert.Equal(t, 3.0, *f.mentorRating(t))

	five := 5
	updated, err := f.agg.UpdateFeedback(ctx, first.ID, feedback.Patch{Rating: &five})
	require.NoError(t, err)
	assert.Equal(t, 5, *updated.Rating)
	assert.Equal(t, 4.5, *f.mentorRating(t))

	_, err = f.agg.UpdateFeedback(ctx, second.ID, feedback.Patch{ClearRating: true})
	require.NoError(t, err)
	assert.Equal(t, 5.0, *f.mentorRating(t))

	ok, err := f.agg.DeleteFeedback(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, f.mentorRating(t), "no ratings left clears the profile rating")

	missing, err := f.agg.UpdateFeedback(ctx, "missing", feedback.Patch{Rating: &five})
	require.NoError(t, err)
	assert.Nil(t, missing)

	ok, err = f.agg.DeleteFeedback(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAggregator_Lists(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	meetingID := "mt-1"

	f.rate(t, menteeID, mentorID, 5)
	_, err := f.agg.CreateFeedback(ctx, CreateCommand{
		MentorshipID: f.msID,
		FromUserID:   mentorID,
		ToUserID:     menteeID,
		Content:      "good progress",
		MeetingID:    &meetingID,
	})
	require.NoError(t, err)

	all, err := f.agg.ListByMentorship(ctx, f.msID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byMeeting, err := f.agg.ListByMeeting(ctx, meetingID)
	require.NoError(t, err)
	require.Len(t, byMeeting, 1)
	assert.Equal(t, "good progress", byMeeting[0].Content)

	given, err := f.agg.ListGivenBy(ctx, menteeID)
	require.NoError(t, err)
	assert.Len(t, given, 1)

	received, err := f.agg.ListReceivedBy(ctx, menteeID)
	require.NoError(t, err)
	assert.Len(t, received, 1)

	_, err = f.agg.ListGivenBy(ctx, "")
	assert.True(t, shared.IsValidation(err))
	_, err = f.agg.ListByMentorship(ctx, "missing")
	assert.True(t, shared.IsNotFound(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// BEST-EFFORT PUSH
// ══════════════════════════════════════════════════════════════════════════════

type flakyProfiles struct {
	err   error
	calls atomic.Int32
}

func (p *flakyProfiles) Get(context.Context, string) (*mentorprofile.Profile, error) {
	p.calls.Add(1)
	return nil, p.err
}

func (p *flakyProfiles) SetRating(context.Context, string, *float64) error {
	return p.err
}

func TestAggregator_PushFailureDoesNotFailFeedback(t *testing.T) {
	store := &flakyProfiles{err: errors.New("profile store down")}
	breaker := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithTimeout(time.Hour))
	f := newFixture(t, store, breaker)

	f.rate(t, menteeID, mentorID, 5)
	f.rate(t, menteeID, mentorID, 3)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
	assert.Equal(t, int32(2), store.calls.Load())

	f.rate(t, menteeID, mentorID, 4)
	assert.Equal(t, int32(2), store.calls.Load(), "open circuit skips the profile store")

	avg, err := f.agg.AverageRatingForUser(context.Background(), mentorID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, *avg)
}

func TestAggregator_MissingProfileIsSkipped(t *testing.T) {
	store := &flakyProfiles{}
	f := newFixture(t, store, nil)

	fb := f.rate(t, menteeID, mentorID, 5)
	assert.Equal(t, 5, *fb.Rating)
	assert.Equal(t, int32(1), store.calls.Load())
}
