// internal/room/draw_scheduler_test.go
package room

import (
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/tombola/internal/clock"
	"github.com/stretchr/testify/assert"
)

// heldClock never fires on its own; the test triggers the callback directly
// to simulate a tick that was already waiting on the lock when cancelled.
type heldClock struct {
	callbacks []func()
}

type heldTimer struct{}

func (heldTimer) Stop() bool { return true }

func (c *heldClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.callbacks = append(c.callbacks, f)
	return heldTimer{}
}

func TestSchedulerTransitions(t *testing.T) {
	var mu sync.Mutex
	clk := clock.NewManual()
	ticks := 0
	s := newDrawScheduler(clk, &mu, time.Second, func() bool { ticks++; return ticks < 3 })

	assert.Equal(t, SchedulerIdle, s.State())
	assert.True(t, s.Start())
	assert.False(t, s.Start(), "already running")

	clk.Advance(time.Second)
	assert.Equal(t, 1, ticks)

	mu.Lock()
	s.Pause()
	mu.Unlock()
	assert.Equal(t, SchedulerPaused, s.State())
	clk.Advance(5 * time.Second)
	assert.Equal(t, 1, ticks)

	mu.Lock()
	s.Resume()
	mu.Unlock()
	clk.Advance(5 * time.Second)
	assert.Equal(t, 3, ticks, "tick returning false ends the scheduler")
	assert.Equal(t, SchedulerDone, s.State())
	assert.False(t, s.Start(), "done is terminal")
	assert.Equal(t, "done", s.State().String())
}

func TestSchedulerDropsStaleTick(t *testing.T) {
	var mu sync.Mutex
	clk := &heldClock{}
	ticks := 0
	s := newDrawScheduler(clk, &mu, time.Second, func() bool { ticks++; return true })

	s.Start()
	stale := clk.callbacks[0]
	s.Pause()
	s.Start()

	stale()
	assert.Equal(t, 0, ticks, "tick from a cancelled timer is ignored")

	clk.callbacks[1]()
	assert.Equal(t, 1, ticks)
}

func TestSchedulerDropsStaleAutoResume(t *testing.T) {
	var mu sync.Mutex
	clk := &heldClock{}
	s := newDrawScheduler(clk, &mu, time.Second, func() bool { return true })

	fired := 0
	s.ArmAutoResume(time.Second, func() { fired++ })
	assert.True(t, s.AutoResumePending())
	assert.True(t, s.CancelAutoResume())
	assert.False(t, s.CancelAutoResume())

	clk.callbacks[0]()
	assert.Equal(t, 0, fired)

	s.ArmAutoResume(time.Second, func() { fired++ })
	clk.callbacks[1]()
	assert.Equal(t, 1, fired)
	assert.False(t, s.AutoResumePending())
}
