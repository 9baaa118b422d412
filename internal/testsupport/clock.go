package testsupport

import (
	"sort"
	"sync"
	"time"

	"drq/internal/queue"
)

// FakeClock is a manually advanced queue.Clock.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *FakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

// NewFakeClock starts the clock at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) queue.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, timer)
	return timer
}

// Advance moves the clock forward and runs every timer that became due, in
// deadline order, on the calling goroutine.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	remaining := c.timers[:0]
	for _, timer := range c.timers {
		switch {
		case timer.stopped || timer.fired:
		case !timer.at.After(c.now):
			timer.fired = true
			due = append(due, timer)
		default:
			remaining = append(remaining, timer)
		}
	}
	c.timers = remaining
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, timer := range due {
		timer.fn()
	}
}

// PendingTimers reports timers that have neither fired nor been stopped.
func (c *FakeClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired {
			count++
		}
	}
	return count
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
