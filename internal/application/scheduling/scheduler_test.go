package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alem-hub/mentorship-hub/internal/application/lifecycle"
	"github.com/alem-hub/mentorship-hub/internal/domain/meeting"
	"github.com/alem-hub/mentorship-hub/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-hub/internal/domain/objective"
	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/internal/infrastructure/locking"
	"github.com/alem-hub/mentorship-hub/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/mentorship-hub/internal/testutil"
	"github.com/alem-hub/mentorship-hub/pkg/logger"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

type fixture struct {
	sched    *Scheduler
	lc       *lifecycle.Manager
	meetings *memory.Collection[*meeting.Meeting]
	locker   *locking.KeyedMutex
	clock    *timeutil.ManualClock
	events   *testutil.EventRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		meetings: memory.NewCollection(meeting.Schema),
		clock:    timeutil.NewManualClock(testutil.Epoch),
		events:   &testutil.EventRecorder{},
	}
	locker := locking.NewKeyedMutex()
	f.locker = locker
	f.lc = lifecycle.NewManager(lifecycle.Dependencies{
		Mentorships: memory.NewCollection(mentorship.Schema),
		Meetings:    f.meetings,
		Objectives:  memory.NewCollection(objective.Schema),
		Locker:      locker,
		Events:      f.events,
		Clock:       f.clock,
		NewID:       testutil.SequentialIDs("ms"),
	}, lifecycle.DefaultConfig())
	f.sched = NewScheduler(Dependencies{
		Meetings:    f.meetings,
		Mentorships: f.lc,
		Locker:      locker,
		Events:      f.events,
		Clock:       f.clock,
		NewID:       testutil.SequentialIDs("mt"),
	}, 0)
	return f
}

func (f *fixture) mentorship(t *testing.T, total int, accept bool) *mentorship.Mentorship {
	t.Helper()
	ctx := context.Background()
	ms, err := f.lc.Create(ctx, lifecycle.CreateCommand{
		MentorID:      "mentorA",
		MenteeID:      "menteeB",
		Title:         "Backend basics",
		TotalMeetings: total,
	})
	require.NoError(t, err)
	if accept {
		ms, err = f.lc.Accept(ctx, ms.ID)
		require.NoError(t, err)
	}
	return ms
}

func (f *fixture) meetingCmd(msID string, in time.Duration) CreateCommand {
	return CreateCommand{
		MentorshipID:  msID,
		ScheduledDate: f.clock.Now().Add(in),
		Duration:      60,
		MeetingType:   meeting.TypeVideo,
		Agenda:        "Review the week",
	}
}

func (f *fixture) schedule(t *testing.T, msID string, in time.Duration) *meeting.Meeting {
	t.Helper()
	m, err := f.sched.CreateMeeting(context.Background(), f.meetingCmd(msID, in))
	require.NoError(t, err)
	return m
}

// ══════════════════════════════════════════════════════════════════════════════
// CREATE
// ══════════════════════════════════════════════════════════════════════════════

func TestScheduler_CreateMeeting(t *testing.T) {
	f := newFixture(t)
	ms := f.mentorship(t, 0, true)

	m := f.schedule(t, ms.ID, 24*time.Hour)
	assert.Equal(t, "mt-1", m.ID)
	assert.Equal(t, meeting.StatusScheduled, m.Status)
	assert.Equal(t, testutil.Epoch.Add(24*time.Hour), m.ScheduledDate)
	assert.Nil(t, m.RescheduledFromID)

	stored, err := f.lc.Get(context.Background(), ms.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.MeetingCount)
	assert.Equal(t, 1, f.events.Count(shared.EventMeetingScheduled))
}

func TestScheduler_CreateMeetingRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.mentorship(t, 0, false)
	active := f.mentorship(t, 0, true)

	_, err := f.sched.CreateMeeting(ctx, f.meetingCmd(pending.ID, time.Hour))
	assert.True(t, shared.IsInvalidState(err), "pending mentorship: %v", err)

	_, err = f.sched.CreateMeeting(ctx, f.meetingCmd("missing", time.Hour))
	assert.True(t, shared.IsNotFound(err))

	_, err = f.sched.CreateMeeting(ctx, f.meetingCmd(active.ID, 0))
	assert.True(t, shared.IsValidation(err), "now is not in the future")

	_, err = f.sched.CreateMeeting(ctx, f.meetingCmd(active.ID, -time.Minute))
	assert.True(t, shared.IsValidation(err))

	cmd := f.meetingCmd(active.ID, time.Hour)
	cmd.Duration = 0
	_, err = f.sched.CreateMeeting(ctx, cmd)
	assert.True(t, shared.IsValidation(err))

	cmd = f.meetingCmd(active.ID, time.Hour)
	cmd.MeetingType = "carrier-pigeon"
	_, err = f.sched.CreateMeeting(ctx, cmd)
	assert.True(t, shared.IsValidation(err))

	cmd = f.meetingCmd(active.ID, time.Hour)
	cmd.Agenda = ""
	_, err = f.sched.CreateMeeting(ctx, cmd)
	assert.True(t, shared.IsValidation(err))

	assert.Equal(t, 0, f.meetings.Len())
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE / CANCEL
// ══════════════════════════════════════════════════════════════════════════════

func TestScheduler_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ms := f.mentorship(t, 0, true)
	m := f.schedule(t, ms.ID, 24*time.Hour)

	f.clock.Advance(25 * time.Hour)
	m, err := f.sched.CompleteMeeting(ctx, m.ID, CompleteCommand{ActualDuration: 45})
	require.NoError(t, err)
	assert.Equal(t, meeting.StatusCompleted, m.Status)
	assert.Equal(t, 45, *m.ActualDuration)
	assert.Equal(t, f.clock.Now(), *m.ActualDate)

	got, err := f.lc.Get(ctx, ms.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CompletedMeetings)
	assert.Equal(t, mentorship.StatusActive, got.Status)

	rating := 4.5
	got, err = f.lc.Complete(ctx, ms.ID, &rating, nil)
	require.NoError(t, err)
	assert.Equal(t, mentorship.StatusCompleted, got.Status)
	assert.Equal(t, 4.5, *got.Rating)
}

func TestScheduler_CompleteMeetingAutoCompletesMentorship(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ms := f.mentorship(t, 1, true)
	m := f.schedule(t, ms.ID, time.Hour)

	_, err := f.sched.CompleteMeeting(ctx, m.ID, CompleteCommand{ActualDuration: 30})
	require.NoError(t, err)

	got, err := f.lc.Get(ctx, ms.ID)
	require.NoError(t, err)
	assert.Equal(t, mentorship.StatusCompleted, got.Status)
	assert.Equal(t, 1, got.CompletedMeetings)
}

// failingCounter rejects every completion count.
type failingCounter struct {
	Mentorships
}

func (failingCounter) RecordMeetingCompletion(context.Context, string) (*mentorship.Mentorship, error) {
	return nil, errors.New("storage offline")
}

func TestScheduler_CompleteMeetingCountFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ms := f.mentorship(t, 0, true)
	orig := f.schedule(t, ms.ID, time.Hour)

	core, logs := observer.New(zapcore.DebugLevel)
	sched := NewScheduler(Dependencies{
		Meetings:    f.meetings,
		Mentorships: failingCounter{Mentorships: f.lc},
		Locker:      f.locker,
		Events:      f.events,
		Clock:       f.clock,
		Logger:      logger.Wrap(zap.New(core)),
	}, 0)

	m, err := sched.CompleteMeeting(ctx, orig.ID, CompleteCommand{ActualDuration: 30})
	require.Error(t, err)
	assert.ErrorContains(t, err, "storage offline")
	require.NotNil(t, m)
	assert.Equal(t, meeting.StatusCompleted, m.Status)

	entries := logs.FilterMessage("meeting completed but mentorship counter not updated").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, orig.ID, fields["meeting_id"])
	assert.Equal(t, ms.ID, fields["mentorship_id"])

	stored, err := f.lc.Get(ctx, ms.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CompletedMeetings)
	assert.Equal(t, 0, f.events.Count(shared.EventMeetingCompleted))
}

func TestScheduler_CompleteMeetingTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ms := f.mentorship(t, 0, true)
	m := f.schedule(t, ms.ID, time.Hour)

	_, err := f.sched.CompleteMeeting(ctx, m.ID, CompleteCommand{ActualDuration: 30})
	require.NoError(t, err)
	_, err = f.sched.CompleteMeeting(ctx, m.ID, CompleteCommand{ActualDuration: 30})
	assert.True(t, shared.IsInvalidState(err))

	got, _ := f.lc.Get(ctx, ms.ID)
	assert.Equal(t, 1, got.CompletedMeetings, "second attempt must not count")

	_, err = f.sched.CompleteMeeting(ctx, m.ID, CompleteCommand{})
	assert.True(t, shared.IsValidation(err))
}

func TestScheduler_CancelMeeting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ms := f.mentorship(t, 0, true)
	m := f.schedule(t, ms.ID, time.Hour)

	m, err := f.sched.CancelMeeting(ctx, m.ID, "mentor sick")
	require.NoError(t, err)
	assert.Equal(t, meeting.StatusCancelled, m.Status)
	require.NotNil(t, m.Notes)
	assert.Equal(t, "Cancelled: mentor sick", *m.Notes)

	_, err = f.sched.CancelMeeting(ctx, m.ID, "")
	assert.True(t, shared.IsInvalidState(err))
	_, err = f.sched.CompleteMeeting(ctx, m.ID, CompleteCommand{ActualDuration: 10})
	assert.True(t, shared.IsInvalidState(err))

	_, err = f.sched.CancelMeeting(ctx, "missing", "")
	assert.True(t, shared.IsNotFound(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// RESCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

func TestScheduler_RescheduleMeeting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ms := f.mentorship(t, 0, true)
	orig := f.schedule(t, ms.ID, time.Hour)

	newDate := f.clock.Now().Add(48 * time.Hour)
	agenda := "Moved agenda"
	succ, err := f.sched.RescheduleMeeting(ctx, orig.ID, RescheduleCommand{
		NewDate:   newDate,
		NewAgenda: &agenda,
		Reason:    "conflict",
	})
	require.NoError(t, err)
	assert.Equal(t, meeting.StatusScheduled, succ.Status)
	assert.Equal(t, newDate, succ.ScheduledDate)
	assert.Equal(t, "Moved agenda", succ.Agenda)
	assert.Equal(t, orig.Duration, succ.Duration)
	assert.Equal(t, orig.MeetingType, succ.MeetingType)
	require.NotNil(t, succ.RescheduledFromID)
	assert.Equal(t, orig.ID, *succ.RescheduledFromID)

	old, err := f.sched.Get(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, meeting.StatusRescheduled, old.Status)
	require.NotNil(t, old.RescheduledToID)
	assert.Equal(t, succ.ID, *old.RescheduledToID)
	assert.Equal(t, "Rescheduled: conflict", *old.Notes)

	_, err = f.sched.RescheduleMeeting(ctx, orig.ID, RescheduleCommand{NewDate: newDate.Add(time.Hour)})
	assert.True(t, shared.IsInvalidState(err), "a rescheduled meeting cannot be rescheduled again")

	_, err = f.sched.RescheduleMeeting(ctx, succ.ID, RescheduleCommand{NewDate: f.clock.Now()})
	assert.True(t, shared.IsValidation(err))

	got, _ := f.lc.Get(ctx, ms.ID)
	assert.Equal(t, 2, got.MeetingCount)
	assert.Equal(t, 1, f.events.Count(shared.EventMeetingRescheduled))
}

func TestScheduler_RescheduleClosedMeeting(t *testing.T) {
	tests := []struct {
		name  string
		close func(f *fixture, id string) error
	}{
		{"cancelled", func(f *fixture, id string) error {
			_, err := f.sched.CancelMeeting(context.Background(), id, "sick")
			return err
		}},
		{"completed", func(f *fixture, id string) error {
			_, err := f.sched.CompleteMeeting(context.Background(), id, CompleteCommand{
				ActualDate:     f.clock.Now(),
				ActualDuration: 45,
			})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			ms := f.mentorship(t, 0, true)
			orig := f.schedule(t, ms.ID, time.Hour)
			require.NoError(t, tt.close(f, orig.ID))

			before, err := f.sched.Get(ctx, orig.ID)
			require.NoError(t, err)

			_, err = f.sched.RescheduleMeeting(ctx, orig.ID, RescheduleCommand{
				NewDate: f.clock.Now().Add(48 * time.Hour),
				Reason:  "try again",
			})
			assert.True(t, shared.IsInvalidState(err))

			after, err := f.sched.Get(ctx, orig.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
			assert.Nil(t, after.RescheduledToID)
			assert.Equal(t, 1, f.meetings.Len())
			assert.Equal(t, 0, f.events.Count(shared.EventMeetingRescheduled))
		})
	}
}

func TestScheduler_CreateMeetingAsSuccessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ms := f.mentorship(t, 0, true)
	other := f.mentorship(t, 0, true)
	orig := f.schedule(t, ms.ID, time.Hour)

	cmd := f.meetingCmd(other.ID, 2*time.Hour)
	cmd.RescheduledFromID = orig.ID
	_, err := f.sched.CreateMeeting(ctx, cmd)
	assert.True(t, shared.IsValidation(err), "predecessor of another mentorship")

	cmd = f.meetingCmd(ms.ID, 2*time.Hour)
	cmd.RescheduledFromID = "missing"
	_, err = f.sched.CreateMeeting(ctx, cmd)
	assert.True(t, shared.IsNotFound(err))

	cmd.RescheduledFromID = orig.ID
	succ, err := f.sched.CreateMeeting(ctx, cmd)
	require.NoError(t, err)

	old, _ := f.sched.Get(ctx, orig.ID)
	assert.Equal(t, meeting.StatusRescheduled, old.Status)
	assert.Equal(t, succ.ID, *old.RescheduledToID)
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE
// ══════════════════════════════════════════════════════════════════════════════

func TestScheduler_DeleteSuccessorCancelsPredecessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ms := f.mentorship(t, 0, true)
	orig := f.schedule(t, ms.ID, time.Hour)
	succ, err := f.sched.RescheduleMeeting(ctx, orig.ID, RescheduleCommand{NewDate: f.clock.Now().Add(2 * time.Hour)})
	require.NoError(t, err)

	ok, err := f.sched.DeleteMeeting(ctx, succ.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	old, err := f.sched.Get(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, meeting.StatusCancelled, old.Status)
	assert.Nil(t, old.RescheduledToID)

	got, _ := f.lc.Get(ctx, ms.ID)
	assert.Equal(t, 2, got.MeetingCount, "deleting does not decrement the counter")
}

func TestScheduler_DeletePredecessorDetachesSuccessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ms := f.mentorship(t, 0, true)
	orig := f.schedule(t, ms.ID, time.Hour)
	succ, err := f.sched.RescheduleMeeting(ctx, orig.ID, RescheduleCommand{NewDate: f.clock.Now().Add(2 * time.Hour)})
	require.NoError(t, err)

	ok, err := f.sched.DeleteMeeting(ctx, orig.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.sched.Get(ctx, succ.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RescheduledFromID)
	assert.Equal(t, meeting.StatusScheduled, got.Status)
}

func TestScheduler_DeleteRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ms := f.mentorship(t, 0, true)
	m := f.schedule(t, ms.ID, time.Hour)
	_, err := f.sched.CompleteMeeting(ctx, m.ID, CompleteCommand{ActualDuration: 60})
	require.NoError(t, err)

	_, err = f.sched.DeleteMeeting(ctx, m.ID)
	assert.True(t, shared.IsInvalidState(err))

	ok, err := f.sched.DeleteMeeting(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATES AND FEEDBACK
// ══════════════════════════════════════════════════════════════════════════════

func TestScheduler_UpdateMeeting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ms := f.mentorship(t, 0, true)
	m := f.schedule(t, ms.ID, time.Hour)

	dur := 90
	link := "https://meet.example/abc"
	m, err := f.sched.UpdateMeeting(ctx, m.ID, meeting.Patch{Duration: &dur, MeetingLink: &link})
	require.NoError(t, err)
	assert.Equal(t, 90, m.Duration)
	assert.Equal(t, link, *m.MeetingLink)

	past := f.clock.Now().Add(-time.Hour)
	_, err = f.sched.UpdateMeeting(ctx, m.ID, meeting.Patch{ScheduledDate: &past})
	assert.True(t, shared.IsValidation(err))

	_, err = f.sched.CancelMeeting(ctx, m.ID, "")
	require.NoError(t, err)
	_, err = f.sched.UpdateMeeting(ctx, m.ID, meeting.Patch{Duration: &dur})
	assert.True(t, shared.IsInvalidState(err))

	m, err = f.sched.AddNotes(ctx, m.ID, "follow up by mail")
	require.NoError(t, err)
	assert.Equal(t, "follow up by mail", *m.Notes)
}

func TestScheduler_Feedback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ms := f.mentorship(t, 0, true)
	m := f.schedule(t, ms.ID, time.Hour)

	_, err := f.sched.AddMentorFeedback(ctx, m.ID, "good")
	assert.True(t, shared.IsInvalidState(err))

	_, err = f.sched.CompleteMeeting(ctx, m.ID, CompleteCommand{ActualDuration: 60})
	require.NoError(t, err)

	m, err = f.sched.AddMentorFeedback(ctx, m.ID, "good")
	require.NoError(t, err)
	m, err = f.sched.AddStudentFeedback(ctx, m.ID, "helpful")
	require.NoError(t, err)
	assert.Equal(t, "good", *m.MentorFeedback)
	assert.Equal(t, "helpful", *m.StudentFeedback)

	_, err = f.sched.AddStudentFeedback(ctx, m.ID, "  ")
	assert.True(t, shared.IsValidation(err))

	sum, err := f.sched.Summary(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, sum.HasFeedback)
	assert.False(t, sum.IsUpcoming)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

func TestScheduler_ListMeetings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ms := f.mentorship(t, 0, true)

	early := f.schedule(t, ms.ID, time.Hour)
	mid := f.schedule(t, ms.ID, 24*time.Hour)
	late := f.schedule(t, ms.ID, 48*time.Hour)
	_, err := f.sched.CancelMeeting(ctx, mid.ID, "")
	require.NoError(t, err)

	res, err := f.sched.ListMeetings(ctx, ListQuery{MentorshipID: ms.ID})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, late.ID, res.Items[0].ID, "latest first")
	assert.Equal(t, early.ID, res.Items[2].ID)

	res, err = f.sched.ListMeetings(ctx, ListQuery{MentorshipID: ms.ID, Statuses: []meeting.Status{meeting.StatusScheduled}, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.TotalPages)

	f.clock.Advance(2 * time.Hour)
	res, err = f.sched.ListMeetings(ctx, ListQuery{MentorshipID: ms.ID, Upcoming: true})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, mid.ID, res.Items[0].ID, "soonest first")

	upcoming, err := f.sched.UpcomingForMentorship(ctx, ms.ID)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, late.ID, upcoming[0].ID)
	assert.True(t, f.sched.IsUpcoming(upcoming[0]))

	_, err = f.sched.ListMeetings(ctx, ListQuery{MentorshipID: "missing"})
	assert.True(t, shared.IsNotFound(err))
	_, err = f.sched.ListMeetings(ctx, ListQuery{MentorshipID: ms.ID, Limit: 1000})
	assert.True(t, shared.IsValidation(err))
	_, err = f.sched.ListMeetings(ctx, ListQuery{MentorshipID: ms.ID, Statuses: []meeting.Status{"held"}})
	assert.True(t, shared.IsValidation(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// CONCURRENCY
// ══════════════════════════════════════════════════════════════════════════════

// hookedMentorships runs afterGet once, right after the first Get.
type hookedMentorships struct {
	Mentorships
	afterGet func()
}

func (h *hookedMentorships) Get(ctx context.Context, id string) (*mentorship.Mentorship, error) {
	ms, err := h.Mentorships.Get(ctx, id)
	if hook := h.afterGet; hook != nil {
		h.afterGet = nil
		hook()
	}
	return ms, err
}

func TestScheduler_CreateMeetingSerializesWithCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ms := f.mentorship(t, 0, true)

	done := make(chan error, 1)
	hooked := &hookedMentorships{Mentorships: f.lc}
	hooked.afterGet = func() {
		go func() {
			_, err := f.lc.Cancel(ctx, ms.ID, "ended early")
			done <- err
		}()
		select {
		case <-done:
			t.Error("mentorship was cancelled between the active check and the insert")
		case <-time.After(50 * time.Millisecond):
		}
	}
	sched := NewScheduler(Dependencies{
		Meetings:    f.meetings,
		Mentorships: hooked,
		Locker:      f.locker,
		Events:      f.events,
		Clock:       f.clock,
		NewID:       testutil.SequentialIDs("race"),
	}, 0)

	m, err := sched.CreateMeeting(ctx, f.meetingCmd(ms.ID, time.Hour))
	require.NoError(t, err)
	require.NoError(t, <-done)

	stored, err := f.lc.Get(ctx, ms.ID)
	require.NoError(t, err)
	assert.Equal(t, mentorship.StatusCancelled, stored.Status)
	assert.Equal(t, 1, stored.MeetingCount, "the meeting was counted before the cancel ran")
	assert.Equal(t, ms.ID, m.MentorshipID)

	_, err = sched.CreateMeeting(ctx, f.meetingCmd(ms.ID, 2*time.Hour))
	assert.True(t, shared.IsInvalidState(err))
	assert.Equal(t, 1, f.meetings.Len())
}
