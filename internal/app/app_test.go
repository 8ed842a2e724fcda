package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-hub/config"
	"github.com/alem-hub/mentorship-hub/internal/application/lifecycle"
	"github.com/alem-hub/mentorship-hub/internal/application/objectives"
	"github.com/alem-hub/mentorship-hub/internal/application/profiles"
	"github.com/alem-hub/mentorship-hub/internal/application/rating"
	"github.com/alem-hub/mentorship-hub/internal/application/scheduling"
	"github.com/alem-hub/mentorship-hub/internal/domain/meeting"
	"github.com/alem-hub/mentorship-hub/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/internal/testutil"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

func TestNew_MemoryEndToEnd(t *testing.T) {
	ctx := context.Background()
	clock := timeutil.NewManualClock(testutil.Epoch)

	cfg := config.Default()
	cfg.FeatureSwitches = map[string]bool{config.FeatureUniqueActivePair: true}
	cfg.Features = nil

	a, err := New(ctx, cfg, nil, Options{Clock: clock, NewID: testutil.SequentialIDs("id")})
	require.NoError(t, err)
	defer a.Close()

	var mu sync.Mutex
	seen := map[shared.EventType]int{}
	require.NoError(t, a.Events.SubscribeAll(func(e shared.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen[e.EventType()]++
		return nil
	}))

	_, err = a.Profiles.Create(ctx, profiles.CreateCommand{UserID: "mentorA", Specialties: []string{"go"}})
	require.NoError(t, err)

	ms, err := a.Lifecycle.Create(ctx, lifecycle.CreateCommand{MentorID: "mentorA", MenteeID: "menteeB", Title: "Go basics", TotalMeetings: 1})
	require.NoError(t, err)
	_, err = a.Lifecycle.Create(ctx, lifecycle.CreateCommand{MentorID: "mentorA", MenteeID: "menteeB", Title: "Again"})
	assert.True(t, shared.IsConflict(err), "unique pair flag comes from the config switches")

	_, err = a.Lifecycle.Accept(ctx, ms.ID)
	require.NoError(t, err)

	_, err = a.Objectives.CreateObjective(ctx, objectives.CreateCommand{MentorshipID: ms.ID, Title: "Learn channels"})
	require.NoError(t, err)

	mt, err := a.Scheduler.CreateMeeting(ctx, scheduling.CreateCommand{
		MentorshipID:  ms.ID,
		ScheduledDate: clock.Now().Add(24 * time.Hour),
		Duration:      60,
		MeetingType:   meeting.TypeVideo,
		Agenda:        "Intro",
	})
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)
	_, err = a.Scheduler.CompleteMeeting(ctx, mt.ID, scheduling.CompleteCommand{ActualDate: clock.Now(), ActualDuration: 50})
	require.NoError(t, err)

	five := 5
	_, err = a.Ratings.CreateFeedback(ctx, rating.CreateCommand{
		MentorshipID: ms.ID,
		FromUserID:   "menteeB",
		ToUserID:     "mentorA",
		Content:      "great",
		Rating:       &five,
	})
	require.NoError(t, err)

	got, err := a.Lifecycle.Get(ctx, ms.ID)
	require.NoError(t, err)
	assert.Equal(t, mentorship.StatusCompleted, got.Status, "auto-complete is on by default")
	assert.Equal(t, 1, got.CompletedMeetings)

	p, err := a.Profiles.Get(ctx, "mentorA")
	require.NoError(t, err)
	require.NotNil(t, p.Rating)
	assert.Equal(t, 5.0, *p.Rating)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[shared.EventMentorshipCompleted] == 1 && seen[shared.EventMentorRatingUpdate] == 1
	}, time.Second, time.Millisecond)

	assert.NoError(t, a.Health(ctx))
	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close(), "close is idempotent")
}

func TestNew_RedisEventBusNeedsRedis(t *testing.T) {
	cfg := config.Default()
	cfg.Features = config.NewFeatureFlags(map[string]bool{config.FeatureRedisEventBus: true})

	_, err := New(context.Background(), cfg, nil, Options{})
	assert.ErrorContains(t, err, "requires redis")
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	err := Migrate(context.Background(), config.Default(), nil, false)
	assert.ErrorContains(t, err, "not postgres")
}
