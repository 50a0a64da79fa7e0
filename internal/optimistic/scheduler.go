package optimistic

import "time"

// CancelFunc stops a scheduled callback. It reports whether the callback was
// stopped before running.
type CancelFunc func() bool

// Scheduler schedules a single callback after a delay. The manager owns every
// handle it creates and is the only caller permitted to cancel them, so
// teardown can deterministically stop all outstanding timers.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) CancelFunc
}

// TimerScheduler is the production scheduler backed by time.AfterFunc.
type TimerScheduler struct{}

// Schedule implements Scheduler.
func (TimerScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	timer := time.AfterFunc(d, fn)
	return timer.Stop
}
