package services

import (
	"time"
)

// CountdownStatus represents the state of the per-step countdown affordance
type CountdownStatus string

const (
	CountdownIdle     CountdownStatus = "idle"
	CountdownRunning  CountdownStatus = "running"
	CountdownPaused   CountdownStatus = "paused"
	CountdownFinished CountdownStatus = "finished"
)

// SessionRuntime is the caller-held mutable state of a live run: the cursor,
// the step stopwatch, the pending answer and the countdown affordance. The
// execution service is stateless between calls; whoever drives the run owns
// one of these and feeds its readings into Advance.
//
// The stopwatch is wall-clock. If the host process suspends, the suspended
// time counts as step time; that is accepted behavior.
type SessionRuntime struct {
	SessionID     string `json:"session_id"`
	StepIndex     int    `json:"step_index"`
	StepStartedAt time.Time
	PendingAnswer *bool

	countdownStatus    CountdownStatus
	countdownTotal     int
	countdownEndsAt    time.Time
	countdownRemaining int

	clock func() time.Time
}

// RuntimeOption configures a SessionRuntime
type RuntimeOption func(*SessionRuntime)

// WithClock overrides the runtime's clock, for tests
func WithClock(clock func() time.Time) RuntimeOption {
	return func(r *SessionRuntime) {
		r.clock = clock
	}
}

// NewSessionRuntime creates the runtime state for a session positioned at
// the given step index, with the stopwatch started now
func NewSessionRuntime(sessionID string, stepIndex int, opts ...RuntimeOption) *SessionRuntime {
	r := &SessionRuntime{
		SessionID:       sessionID,
		clock:           time.Now,
		countdownStatus: CountdownIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.EnterStep(stepIndex)
	return r
}

// EnterStep moves the cursor and resets the stopwatch, pending answer and
// countdown. Called on every cursor change, forward or backward.
func (r *SessionRuntime) EnterStep(index int) {
	r.StepIndex = index
	r.StepStartedAt = r.clock()
	r.PendingAnswer = nil
	r.countdownStatus = CountdownIdle
	r.countdownTotal = 0
	r.countdownRemaining = 0
}

// ElapsedSeconds returns whole seconds since the current step became active.
// Rapid advances legitimately read 0.
func (r *SessionRuntime) ElapsedSeconds() int {
	elapsed := int(r.clock().Sub(r.StepStartedAt) / time.Second)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// SetAnswer records the pending yes/no answer for the current step
func (r *SessionRuntime) SetAnswer(answer bool) {
	r.PendingAnswer = &answer
}

// LiveTotalSeconds derives the running total shown during a live run:
// committed time plus the current step's elapsed time. Never persisted.
func (r *SessionRuntime) LiveTotalSeconds(committedSeconds int) int {
	return committedSeconds + r.ElapsedSeconds()
}

// StartCountdown starts the advisory countdown from the given number of
// seconds. A no-op if a countdown is already running.
func (r *SessionRuntime) StartCountdown(seconds int) {
	if r.countdownStatus == CountdownRunning || seconds <= 0 {
		return
	}
	r.countdownStatus = CountdownRunning
	r.countdownTotal = seconds
	r.countdownEndsAt = r.clock().Add(time.Duration(seconds) * time.Second)
}

// PauseCountdown pauses a running countdown. A no-op otherwise.
func (r *SessionRuntime) PauseCountdown() {
	if r.countdownStatus != CountdownRunning {
		return
	}
	r.countdownRemaining = r.remainingNow()
	if r.countdownRemaining == 0 {
		r.countdownStatus = CountdownFinished
		return
	}
	r.countdownStatus = CountdownPaused
}

// ResumeCountdown resumes a paused countdown. A no-op otherwise.
func (r *SessionRuntime) ResumeCountdown() {
	if r.countdownStatus != CountdownPaused {
		return
	}
	r.countdownStatus = CountdownRunning
	r.countdownEndsAt = r.clock().Add(time.Duration(r.countdownRemaining) * time.Second)
}

// CountdownRemaining returns the seconds left on the countdown, or 0 when
// idle or finished
func (r *SessionRuntime) CountdownRemaining() int {
	switch r.countdownStatus {
	case CountdownRunning:
		return r.remainingNow()
	case CountdownPaused:
		return r.countdownRemaining
	default:
		return 0
	}
}

// CountdownStatusNow returns the countdown status, observing expiry of a
// running countdown. Reaching zero only changes this indicator; nothing
// blocks or auto-advances.
func (r *SessionRuntime) CountdownStatusNow() CountdownStatus {
	if r.countdownStatus == CountdownRunning && r.remainingNow() == 0 {
		return CountdownFinished
	}
	return r.countdownStatus
}

func (r *SessionRuntime) remainingNow() int {
	remaining := int(r.countdownEndsAt.Sub(r.clock()) / time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}
