package session

import "time"

// RestTimer counts seconds since the last set was finished.
type RestTimer struct {
	now       func() time.Time
	running   bool
	startedAt time.Time
}

func (t *RestTimer) Start() {
	t.startedAt = t.now()
	t.running = true
}

func (t *RestTimer) Reset() {
	t.running = false
	t.startedAt = time.Time{}
}

func (t *RestTimer) Running() bool { return t.running }

// Elapsed returns whole seconds since Start, or 0 when stopped.
func (t *RestTimer) Elapsed() int {
	if !t.running {
		return 0
	}
	return wholeSeconds(t.now().Sub(t.startedAt))
}

// Countdown runs a fixed number of seconds down to zero, for timed holds.
type Countdown struct {
	now       func() time.Time
	total     int
	startedAt time.Time
	started   bool
}

// Start begins counting down from seconds.
func (c *Countdown) Start(seconds int) {
	c.total = max(seconds, 0)
	c.startedAt = c.now()
	c.started = true
}

func (c *Countdown) Reset() {
	c.total = 0
	c.startedAt = time.Time{}
	c.started = false
}

func (c *Countdown) Total() int { return c.total }

// Remaining returns whole seconds left, never below zero.
func (c *Countdown) Remaining() int {
	if !c.started {
		return 0
	}
	return max(c.total-wholeSeconds(c.now().Sub(c.startedAt)), 0)
}

// Running reports whether time is still left.
func (c *Countdown) Running() bool { return c.started && c.Remaining() > 0 }

// Finished reports whether a started countdown reached zero.
func (c *Countdown) Finished() bool { return c.started && c.Remaining() == 0 }

func wholeSeconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
