// internal/room/draw_scheduler.go
package room

import (
	"sync"
	"time"

	"github.com/jason-s-yu/tombola/internal/clock"
)

// SchedulerState is the state of a room's draw scheduler.
type SchedulerState int

const (
	SchedulerIdle SchedulerState = iota
	SchedulerRunning
	SchedulerPaused
	SchedulerDone // every number drawn or room closed; terminal
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerIdle:
		return "idle"
	case SchedulerRunning:
		return "running"
	case SchedulerPaused:
		return "paused"
	case SchedulerDone:
		return "done"
	}
	return "unknown"
}

// DrawScheduler fires a room's draw ticks at a fixed cadence and owns the
// optional auto-resume timer armed after a win.
//
// Every method assumes the owning room's lock is held. Timer callbacks take
// that lock themselves and drop stale firings using generation counters, so a
// callback that was already waiting on the lock when its timer got cancelled
// does nothing.
type DrawScheduler struct {
	clock  clock.Clock
	locker sync.Locker
	tick   func() bool // draws one number; false once the room can draw no more

	state    SchedulerState
	interval time.Duration

	drawTimer   clock.Timer
	drawGen     uint64
	resumeTimer clock.Timer
	resumeGen   uint64
}

func newDrawScheduler(c clock.Clock, locker sync.Locker, interval time.Duration, tick func() bool) *DrawScheduler {
	return &DrawScheduler{
		clock:    c,
		locker:   locker,
		tick:     tick,
		interval: interval,
	}
}

// State returns the current scheduler state.
func (s *DrawScheduler) State() SchedulerState { return s.state }

// Interval returns the cadence used for the next armed tick.
func (s *DrawScheduler) Interval() time.Duration { return s.interval }

// AutoResumePending reports whether an auto-resume timer is armed.
func (s *DrawScheduler) AutoResumePending() bool { return s.resumeTimer != nil }

// Start moves an idle or paused scheduler to running. It is a no-op when
// already running or done.
func (s *DrawScheduler) Start() bool {
	if s.state == SchedulerRunning || s.state == SchedulerDone {
		return false
	}
	s.state = SchedulerRunning
	s.armDraw()
	return true
}

// Resume is Start under its state-machine name.
func (s *DrawScheduler) Resume() bool { return s.Start() }

// Pause cancels the draw timer and any pending auto-resume.
func (s *DrawScheduler) Pause() {
	s.cancelDraw()
	s.CancelAutoResume()
	if s.state != SchedulerDone {
		s.state = SchedulerPaused
	}
}

// SetInterval stores the cadence; a running scheduler restarts its timer so
// the next draw happens one full new interval from now.
func (s *DrawScheduler) SetInterval(d time.Duration) {
	s.interval = d
	s.Restart()
}

// Restart re-arms the draw timer if running. Nothing is drawn by a restart.
func (s *DrawScheduler) Restart() {
	if s.state != SchedulerRunning {
		return
	}
	s.cancelDraw()
	s.armDraw()
}

// Stop cancels both timers and makes the scheduler terminal.
func (s *DrawScheduler) Stop() {
	s.cancelDraw()
	s.CancelAutoResume()
	s.state = SchedulerDone
}

// ArmAutoResume schedules fn after d, replacing any pending auto-resume.
// fn runs with the room lock held.
func (s *DrawScheduler) ArmAutoResume(d time.Duration, fn func()) {
	s.CancelAutoResume()
	gen := s.resumeGen
	s.resumeTimer = s.clock.AfterFunc(d, func() {
		s.locker.Lock()
		defer s.locker.Unlock()
		if gen != s.resumeGen || s.resumeTimer == nil {
			return
		}
		s.resumeTimer = nil
		fn()
	})
}

// CancelAutoResume stops a pending auto-resume; reports whether one was pending.
func (s *DrawScheduler) CancelAutoResume() bool {
	s.resumeGen++
	if s.resumeTimer == nil {
		return false
	}
	s.resumeTimer.Stop()
	s.resumeTimer = nil
	return true
}

func (s *DrawScheduler) armDraw() {
	s.drawGen++
	gen := s.drawGen
	s.drawTimer = s.clock.AfterFunc(s.interval, func() { s.fireDraw(gen) })
}

func (s *DrawScheduler) cancelDraw() {
	s.drawGen++
	if s.drawTimer != nil {
		s.drawTimer.Stop()
		s.drawTimer = nil
	}
}

func (s *DrawScheduler) fireDraw(gen uint64) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if gen != s.drawGen || s.state != SchedulerRunning {
		return
	}
	s.drawTimer = nil
	if !s.tick() {
		s.cancelDraw()
		s.state = SchedulerDone
		return
	}
	if s.state == SchedulerRunning && s.drawTimer == nil {
		s.armDraw()
	}
}
