package board

import (
	"context"
	"testing"
	"time"

	"github.com/mcdev12/retroboard/go/internal/events"
	"github.com/mcdev12/retroboard/go/internal/models"
	"github.com/mcdev12/retroboard/go/internal/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerPersistence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t)

	state, err := f.repo.LoadTimer(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusIdle, state.Status())
	assert.Nil(t, state.StartedAt)

	started := epoch.Add(1500 * time.Millisecond)
	want := models.TimerState{
		Duration:   300,
		StartedAt:  &started,
		Running:    true,
		Controller: "device-a",
	}
	require.NoError(t, f.repo.SaveTimer(ctx, s.ID, want))

	got, err := f.repo.LoadTimer(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, want.Duration, got.Duration)
	assert.Equal(t, want.Running, got.Running)
	assert.Equal(t, want.Controller, got.Controller)
	require.NotNil(t, got.StartedAt)
	assert.True(t, started.Equal(*got.StartedAt))

	_, err = f.repo.LoadTimer(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.repo.SaveTimer(ctx, 404, want), ErrNotFound)
}

func TestPausedTimerBudgetPersistence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t)

	want := models.TimerState{
		Duration:           timer.MaxDurationLimit,
		Paused:             true,
		RemainingAtPauseMs: int64(timer.MaxDurationLimit)*1000 - 250,
		Controller:         "device-a",
	}
	require.NoError(t, f.repo.SaveTimer(ctx, s.ID, want))

	got, err := f.repo.LoadTimer(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPausedTimerSurvivesCoordinatorRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t)

	first := timer.NewCoordinator(f.clock, f.repo, f.log, timer.Config{})
	_, err := first.Start(ctx, s.ID, "device-a", 60)
	require.NoError(t, err)
	f.clock.Advance(2500 * time.Millisecond)
	_, err = first.Pause(ctx, s.ID, "device-a")
	require.NoError(t, err)
	first.Close()

	second := timer.NewCoordinator(f.clock, f.repo, f.log, timer.Config{})
	defer second.Close()

	snap, err := second.Resume(ctx, s.ID, "device-a")
	require.NoError(t, err)
	assert.Equal(t, 58, snap.RemainingSec)

	// 57.5s of budget was left, not 58s
	f.clock.Advance(57 * time.Second)
	snap, err = second.GetState(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, snap.IsRunning)
	assert.Equal(t, 1, snap.RemainingSec)

	f.clock.Advance(500 * time.Millisecond)
	snap, err = second.GetState(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, snap.IsRunning)
}

func TestRunningTimerSurvivesCoordinatorRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t)

	first := timer.NewCoordinator(f.clock, f.repo, f.log, timer.Config{})
	_, err := first.Start(ctx, s.ID, "device-a", 120)
	require.NoError(t, err)
	f.clock.Advance(20 * time.Second)
	first.Close()

	second := timer.NewCoordinator(f.clock, f.repo, f.log, timer.Config{})
	defer second.Close()

	snap, err := second.GetState(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, snap.IsRunning)
	assert.Equal(t, 100, snap.RemainingSec)

	_, err = second.Start(ctx, s.ID, "device-b", 60)
	var conflict *timer.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "device-a", conflict.Holder)

	f.clock.Advance(100 * time.Second)
	stops := func() int {
		n := 0
		for _, ev := range f.log.Since(s.ID, 0) {
			if ev.Type == events.KindTimerStop {
				n++
			}
		}
		return n
	}
	assert.Eventually(t, func() bool { return stops() == 1 }, time.Second, 5*time.Millisecond)

	state, err := f.repo.LoadTimer(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TimerStatusIdle, state.Status())
	assert.Empty(t, state.Controller)
}

func TestCoordinatorReportsUnknownSession(t *testing.T) {
	f := newFixture(t)
	coord := timer.NewCoordinator(f.clock, f.repo, f.log, timer.Config{})
	defer coord.Close()

	_, err := coord.GetState(context.Background(), 31337)
	assert.ErrorIs(t, err, ErrNotFound)
}
