package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerStore_StartPauseResumeStop(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	userID := createTestUser(t, db, "timer-flow@test.local")
	clientID := createTestClient(t, db, userID, "Acme")
	ctx := ctxWithUser(userID)

	timers := NewTimerStore(db)

	timer, err := timers.Start(ctx, nil, &clientID)
	require.NoError(t, err)
	assert.True(t, timer.IsRunning)
	assert.Nil(t, timer.PausedAt)
	assert.Empty(t, timer.Breaks)

	paused, err := timers.Pause(ctx, timer.ID)
	require.NoError(t, err)
	assert.NotNil(t, paused.PausedAt)
	require.Len(t, paused.Breaks, 1)
	assert.Nil(t, paused.Breaks[0].EndedAt)
	assert.NotEmpty(t, paused.Breaks[0].ID)

	resumed, err := timers.Resume(ctx, timer.ID)
	require.NoError(t, err)
	assert.Nil(t, resumed.PausedAt)
	require.Len(t, resumed.Breaks, 1)
	assert.NotNil(t, resumed.Breaks[0].EndedAt)

	stopped, err := timers.Stop(ctx, timer.ID)
	require.NoError(t, err)
	assert.False(t, stopped.IsRunning)
	assert.NotNil(t, stopped.EndedAt)
	assert.GreaterOrEqual(t, stopped.DurationSeconds, int64(0))
}

func TestTimerStore_SecondRunningTimerConflicts(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	userID := createTestUser(t, db, "timer-conflict@test.local")
	clientID := createTestClient(t, db, userID, "Acme")
	ctx := ctxWithUser(userID)

	timers := NewTimerStore(db)

	_, err := timers.Start(ctx, nil, &clientID)
	require.NoError(t, err)

	_, err = timers.Start(ctx, nil, &clientID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestTimerStore_RequiresExactlyOneContext(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	userID := createTestUser(t, db, "timer-context@test.local")
	clientID := createTestClient(t, db, userID, "Acme")
	ctx := ctxWithUser(userID)

	timers := NewTimerStore(db)

	_, err := timers.Start(ctx, nil, nil)
	assert.Error(t, err)

	taskID := clientID // any UUID-shaped value; both set must fail before SQL
	_, err = timers.Start(ctx, &taskID, &clientID)
	assert.Error(t, err)
}

func TestTimerStore_StopWhilePausedClosesBreak(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	userID := createTestUser(t, db, "timer-stop-paused@test.local")
	clientID := createTestClient(t, db, userID, "Acme")
	ctx := ctxWithUser(userID)

	timers := NewTimerStore(db)

	timer, err := timers.Start(ctx, nil, &clientID)
	require.NoError(t, err)

	_, err = timers.Pause(ctx, timer.ID)
	require.NoError(t, err)

	stopped, err := timers.Stop(ctx, timer.ID)
	require.NoError(t, err)
	assert.False(t, stopped.IsRunning)
	assert.Nil(t, stopped.PausedAt)
	require.Len(t, stopped.Breaks, 1)
	assert.NotNil(t, stopped.Breaks[0].EndedAt)
}

func TestTimerStore_PauseGuards(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	userID := createTestUser(t, db, "timer-guards@test.local")
	clientID := createTestClient(t, db, userID, "Acme")
	ctx := ctxWithUser(userID)

	timers := NewTimerStore(db)

	timer, err := timers.Start(ctx, nil, &clientID)
	require.NoError(t, err)

	_, err = timers.Pause(ctx, timer.ID)
	require.NoError(t, err)

	_, err = timers.Pause(ctx, timer.ID)
	assert.ErrorIs(t, err, ErrTimerPaused)

	_, err = timers.Stop(ctx, timer.ID)
	require.NoError(t, err)

	_, err = timers.Resume(ctx, timer.ID)
	assert.ErrorIs(t, err, ErrTimerNotRunning)
}

func TestTimerStore_Start_OtherUsersContext(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	owner := createTestUser(t, db, "timer-owner@test.local")
	intruder := createTestUser(t, db, "timer-intruder@test.local")
	clientID := createTestClient(t, db, owner, "Private Client")

	tasks := NewTaskStore(db)
	task, err := tasks.Create(ctxWithUser(owner), CreateTaskInput{
		ClientID: clientID,
		Title:    "Owner's work",
		Priority: "low",
		Status:   "todo",
	})
	require.NoError(t, err)

	timers := NewTimerStore(db)

	_, err = timers.Start(ctxWithUser(intruder), &task.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = timers.Start(ctxWithUser(intruder), nil, &clientID)
	assert.ErrorIs(t, err, ErrForbidden)

	unknown := "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a99"
	_, err = timers.Start(ctxWithUser(intruder), &unknown, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = timers.Start(ctxWithUser(owner), &task.ID, nil)
	assert.NoError(t, err)
}

func TestTimerStore_TimerSurvivesTaskDelete(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	userID := createTestUser(t, db, "timer-orphan@test.local")
	clientID := createTestClient(t, db, userID, "Acme")
	ctx := ctxWithUser(userID)

	tasks := NewTaskStore(db)
	task, err := tasks.Create(ctx, CreateTaskInput{
		ClientID: clientID,
		Title:    "Tracked then deleted",
		Priority: "medium",
		Status:   "todo",
	})
	require.NoError(t, err)

	timers := NewTimerStore(db)
	timer, err := timers.Start(ctx, &task.ID, nil)
	require.NoError(t, err)
	_, err = timers.Stop(ctx, timer.ID)
	require.NoError(t, err)

	// Timer history must not make the task undeletable.
	require.NoError(t, tasks.Delete(ctx, task.ID))

	listed, err := timers.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Nil(t, listed[0].TaskID)
	assert.Nil(t, listed[0].ClientID)

	// Same for the client, which also cascades its remaining tasks.
	clientTimer, err := timers.Start(ctx, nil, &clientID)
	require.NoError(t, err)
	_, err = timers.Stop(ctx, clientTimer.ID)
	require.NoError(t, err)

	clients := NewClientStore(db)
	require.NoError(t, clients.Delete(ctx, clientID))
}

func TestTimerStore_Active(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	userID := createTestUser(t, db, "timer-active@test.local")
	clientID := createTestClient(t, db, userID, "Acme")
	ctx := ctxWithUser(userID)

	timers := NewTimerStore(db)

	_, err := timers.Active(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	started, err := timers.Start(ctx, nil, &clientID)
	require.NoError(t, err)

	active, err := timers.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, started.ID, active.ID)
}

func TestTimer_ElapsedSeconds(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	now := start.Add(time.Hour)

	running := Timer{IsRunning: true, StartedAt: start}
	assert.Equal(t, int64(3600), running.ElapsedSeconds(now))

	breakEnd := start.Add(20 * time.Minute)
	withBreak := Timer{
		IsRunning: true,
		StartedAt: start,
		Breaks: []Break{
			{StartedAt: start.Add(10 * time.Minute), EndedAt: &breakEnd, Seconds: 600},
		},
	}
	assert.Equal(t, int64(3000), withBreak.ElapsedSeconds(now))

	pausedNow := Timer{
		IsRunning: true,
		StartedAt: start,
		Breaks: []Break{
			{StartedAt: start.Add(30 * time.Minute)},
		},
	}
	// Open break eats everything from minute 30 onward.
	assert.Equal(t, int64(1800), pausedNow.ElapsedSeconds(now))

	stopped := Timer{IsRunning: false, DurationSeconds: 1234}
	assert.Equal(t, int64(1234), stopped.ElapsedSeconds(now))
}
