package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mednais/sop-marketplace/backend/internal/application/services"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestSessionRuntime_Stopwatch(t *testing.T) {
	t.Run("floors elapsed time to whole seconds", func(t *testing.T) {
		clock := newFakeClock()
		runtime := services.NewSessionRuntime("sess-1", 0, services.WithClock(clock.Now))

		clock.Advance(2500 * time.Millisecond)

		assert.Equal(t, 2, runtime.ElapsedSeconds())
	})

	t.Run("reads zero on a rapid advance", func(t *testing.T) {
		clock := newFakeClock()
		runtime := services.NewSessionRuntime("sess-1", 0, services.WithClock(clock.Now))

		clock.Advance(300 * time.Millisecond)

		assert.Equal(t, 0, runtime.ElapsedSeconds())
	})

	t.Run("restarts on every step entry", func(t *testing.T) {
		clock := newFakeClock()
		runtime := services.NewSessionRuntime("sess-1", 0, services.WithClock(clock.Now))

		clock.Advance(30 * time.Second)
		runtime.SetAnswer(true)
		runtime.EnterStep(1)

		assert.Equal(t, 1, runtime.StepIndex)
		assert.Equal(t, 0, runtime.ElapsedSeconds())
		assert.Nil(t, runtime.PendingAnswer)
	})

	t.Run("restarts when re-entering the same step backwards", func(t *testing.T) {
		clock := newFakeClock()
		runtime := services.NewSessionRuntime("sess-1", 2, services.WithClock(clock.Now))

		clock.Advance(10 * time.Second)
		runtime.EnterStep(1)
		clock.Advance(4 * time.Second)

		assert.Equal(t, 4, runtime.ElapsedSeconds())
	})

	t.Run("derives the live total from committed time", func(t *testing.T) {
		clock := newFakeClock()
		runtime := services.NewSessionRuntime("sess-1", 3, services.WithClock(clock.Now))

		clock.Advance(25 * time.Second)

		assert.Equal(t, 145, runtime.LiveTotalSeconds(120))
	})
}

func TestSessionRuntime_Countdown(t *testing.T) {
	t.Run("starts idle", func(t *testing.T) {
		clock := newFakeClock()
		runtime := services.NewSessionRuntime("sess-1", 0, services.WithClock(clock.Now))

		assert.Equal(t, services.CountdownIdle, runtime.CountdownStatusNow())
		assert.Equal(t, 0, runtime.CountdownRemaining())
	})

	t.Run("counts down while running", func(t *testing.T) {
		clock := newFakeClock()
		runtime := services.NewSessionRuntime("sess-1", 0, services.WithClock(clock.Now))

		runtime.StartCountdown(60)
		clock.Advance(25 * time.Second)

		assert.Equal(t, services.CountdownRunning, runtime.CountdownStatusNow())
		assert.Equal(t, 35, runtime.CountdownRemaining())
	})

	t.Run("finishes at zero without blocking anything", func(t *testing.T) {
		clock := newFakeClock()
		runtime := services.NewSessionRuntime("sess-1", 0, services.WithClock(clock.Now))

		runtime.StartCountdown(10)
		clock.Advance(15 * time.Second)

		assert.Equal(t, services.CountdownFinished, runtime.CountdownStatusNow())
		assert.Equal(t, 0, runtime.CountdownRemaining())
		// The stopwatch keeps running past countdown expiry.
		assert.Equal(t, 15, runtime.ElapsedSeconds())
	})

	t.Run("pause freezes the remaining time", func(t *testing.T) {
		clock := newFakeClock()
		runtime := services.NewSessionRuntime("sess-1", 0, services.WithClock(clock.Now))

		runtime.StartCountdown(60)
		clock.Advance(20 * time.Second)
		runtime.PauseCountdown()
		clock.Advance(30 * time.Second)

		assert.Equal(t, services.CountdownPaused, runtime.CountdownStatusNow())
		assert.Equal(t, 40, runtime.CountdownRemaining())
	})

	t.Run("resume continues from the frozen remainder", func(t *testing.T) {
		clock := newFakeClock()
		runtime := services.NewSessionRuntime("sess-1", 0, services.WithClock(clock.Now))

		runtime.StartCountdown(60)
		clock.Advance(20 * time.Second)
		runtime.PauseCountdown()
		clock.Advance(100 * time.Second)
		runtime.ResumeCountdown()
		clock.Advance(10 * time.Second)

		assert.Equal(t, 30, runtime.CountdownRemaining())
	})

	t.Run("start is a no-op while already running", func(t *testing.T) {
		clock := newFakeClock()
		runtime := services.NewSessionRuntime("sess-1", 0, services.WithClock(clock.Now))

		runtime.StartCountdown(60)
		clock.Advance(10 * time.Second)
		runtime.StartCountdown(300)

		assert.Equal(t, 50, runtime.CountdownRemaining())
	})

	t.Run("pause and resume are no-ops in the wrong state", func(t *testing.T) {
		clock := newFakeClock()
		runtime := services.NewSessionRuntime("sess-1", 0, services.WithClock(clock.Now))

		runtime.PauseCountdown()
		assert.Equal(t, services.CountdownIdle, runtime.CountdownStatusNow())

		runtime.ResumeCountdown()
		assert.Equal(t, services.CountdownIdle, runtime.CountdownStatusNow())
	})

	t.Run("entering a step resets the countdown", func(t *testing.T) {
		clock := newFakeClock()
		runtime := services.NewSessionRuntime("sess-1", 0, services.WithClock(clock.Now))

		runtime.StartCountdown(60)
		clock.Advance(20 * time.Second)
		runtime.EnterStep(1)

		assert.Equal(t, services.CountdownIdle, runtime.CountdownStatusNow())
		assert.Equal(t, 0, runtime.CountdownRemaining())
	})
}
