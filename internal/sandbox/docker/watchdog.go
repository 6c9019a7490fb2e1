package docker

import (
	"sync"
	"time"
)

// idleWatchdog calls the timeout func when no command has been executing for the idle duration.
// It only lives as long as the process that created it.
type idleWatchdog struct {
	mu      sync.Mutex
	idle    time.Duration
	timer   *time.Timer
	busy    int
	stopped bool
	fn      func()
}

func newIdleWatchdog(idle time.Duration, fn func()) *idleWatchdog {
	w := &idleWatchdog{idle: idle, fn: fn}
	if idle > 0 {
		w.timer = time.AfterFunc(idle, w.fire)
	}
	return w
}

func (w *idleWatchdog) fire() {
	w.mu.Lock()
	if w.stopped || w.busy > 0 {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()

	w.fn()
}

// Busy marks a command started, the sandbox is not idle while it runs.
func (w *idleWatchdog) Busy() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy++
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Idle marks a command finished, the idle countdown restarts when no command is running.
func (w *idleWatchdog) Idle() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy > 0 {
		w.busy--
	}
	if w.busy == 0 && !w.stopped && w.timer != nil {
		w.timer.Reset(w.idle)
	}
}

// Stop disables the watchdog.
func (w *idleWatchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}
