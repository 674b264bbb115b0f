package session

import (
	"testing"
	"time"
)

// TestRestTimer verifies the rest timer counts whole seconds from Start and
// reads zero when stopped.
func TestRestTimer(t *testing.T) {
	s, clock := newState(t)
	r := s.Rest()

	if r.Running() || r.Elapsed() != 0 {
		t.Fatal("rest timer should start stopped")
	}
	r.Start()
	clock.advance(90*time.Second + 700*time.Millisecond)
	if got := r.Elapsed(); got != 90 {
		t.Errorf("elapsed = %d, want 90", got)
	}

	// Restarting counts from the new start.
	r.Start()
	clock.advance(5 * time.Second)
	if got := r.Elapsed(); got != 5 {
		t.Errorf("elapsed after restart = %d, want 5", got)
	}

	r.Reset()
	if r.Running() || r.Elapsed() != 0 {
		t.Error("rest timer should be stopped after Reset")
	}
}

// TestCountdown verifies the countdown decreases, clamps at zero and reports
// finished only after it has been started.
func TestCountdown(t *testing.T) {
	s, clock := newState(t)
	c := s.Countdown()

	if c.Running() || c.Finished() {
		t.Fatal("unstarted countdown should be neither running nor finished")
	}

	c.Start(45)
	if got := c.Remaining(); got != 45 {
		t.Errorf("remaining = %d, want 45", got)
	}
	clock.advance(20 * time.Second)
	if got := c.Remaining(); got != 25 {
		t.Errorf("remaining = %d, want 25", got)
	}
	if !c.Running() {
		t.Error("countdown should be running")
	}

	clock.advance(time.Minute)
	if got := c.Remaining(); got != 0 {
		t.Errorf("remaining = %d, want 0", got)
	}
	if c.Running() || !c.Finished() {
		t.Error("countdown should be finished")
	}

	c.Reset()
	if c.Finished() || c.Total() != 0 {
		t.Error("countdown should be cleared after Reset")
	}
}

// TestCountdownNegativeStart verifies a negative duration is treated as zero.
func TestCountdownNegativeStart(t *testing.T) {
	s, _ := newState(t)
	c := s.Countdown()
	c.Start(-10)
	if c.Total() != 0 || !c.Finished() {
		t.Errorf("total = %d finished = %v, want 0 and true", c.Total(), c.Finished())
	}
}
