package gesture

import (
	"sort"
	"time"
)

// RecognizeSequence runs a complete, pre-recorded event sequence through
// the state machine in virtual time and returns the gestures it yields.
// Timer-driven emissions (long-press, deferred tap) fire at their recorded
// deadlines relative to the event timestamps.
func RecognizeSequence(events []TouchEvent, opts Options) []Gesture {
	var out []Gesture
	clock := newVirtualClock(startTimeOf(events))

	r := NewRecognizer(func(g Gesture) { out = append(out, g) }, opts)
	r.now = clock.Now
	r.newTimer = clock.AfterFunc

	for _, ev := range events {
		if !ev.Time.IsZero() {
			clock.Advance(ev.Time)
		}
		r.Process(ev)
	}
	clock.Flush()
	return out
}

func startTimeOf(events []TouchEvent) time.Time {
	for _, ev := range events {
		if !ev.Time.IsZero() {
			return ev.Time
		}
	}
	return time.Unix(0, 0)
}

type virtualTimer struct {
	deadline time.Time
	fn       func()
	stopped  bool
	seq      int
}

func (t *virtualTimer) Stop() bool {
	fired := t.stopped
	t.stopped = true
	return !fired
}

// virtualClock sequences timer callbacks deterministically against event
// timestamps. Timers with a deadline strictly before the advanced-to time
// fire first, so a second tap landing exactly on the double-tap window
// boundary still counts as within it.
type virtualClock struct {
	now     time.Time
	timers  []*virtualTimer
	nextSeq int
}

func newVirtualClock(start time.Time) *virtualClock {
	return &virtualClock{now: start}
}

func (c *virtualClock) Now() time.Time { return c.now }

func (c *virtualClock) AfterFunc(d time.Duration, fn func()) timer {
	t := &virtualTimer{deadline: c.now.Add(d), fn: fn, seq: c.nextSeq}
	c.nextSeq++
	c.timers = append(c.timers, t)
	return t
}

// Advance fires timers due strictly before t, in deadline order, then moves
// the clock to t.
func (c *virtualClock) Advance(t time.Time) {
	if t.Before(c.now) {
		return
	}
	for {
		next := c.nextDue(t)
		if next == nil {
			break
		}
		c.now = next.deadline
		next.stopped = true
		next.fn()
	}
	c.now = t
}

// Flush fires all remaining timers in deadline order.
func (c *virtualClock) Flush() {
	for {
		next := c.nextDue(time.Time{})
		if next == nil {
			return
		}
		c.now = next.deadline
		next.stopped = true
		next.fn()
	}
}

// nextDue returns the earliest live timer due strictly before limit, or any
// live timer when limit is the zero time.
func (c *virtualClock) nextDue(limit time.Time) *virtualTimer {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	c.timers = live

	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].deadline.Equal(c.timers[j].deadline) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].deadline.Before(c.timers[j].deadline)
	})
	for _, t := range c.timers {
		if limit.IsZero() || t.deadline.Before(limit) {
			return t
		}
	}
	return nil
}
