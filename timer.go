package devicecore

import (
	"time"
)

// Timer is a restartable non-blocking interval primitive. Components use it
// inside Loop to run periodic work without busy-waiting or sleeping.
//
// The timing model is deliberately simple: when IsReady reports true it
// rearms relative to the check that fired, not to the original schedule, so
// sustained caller-side delay accumulates as drift. Dependent components
// rely on this behavior; do not "fix" it into a drift-correcting timer.
type Timer struct {
	interval time.Duration
	last     time.Time
	enabled  bool
	now      func() time.Time
}

// NewTimer creates a timer with the given interval. The first period is
// measured from construction time, not from the first IsReady call.
func NewTimer(interval time.Duration) *Timer {
	return newTimerWithClock(interval, time.Now)
}

func newTimerWithClock(interval time.Duration, now func() time.Time) *Timer {
	return &Timer{
		interval: interval,
		last:     now(),
		enabled:  true,
		now:      now,
	}
}

// IsReady reports whether the interval has elapsed. It returns true at most
// once per interval: a true result immediately rearms the timer so the next
// period is measured from now.
func (t *Timer) IsReady() bool {
	if !t.enabled {
		return false
	}
	current := t.now()
	if current.Sub(t.last) >= t.interval {
		t.last = current
		return true
	}
	return false
}

// Reset rearms the timer so a full interval must elapse from now, without
// reporting ready.
func (t *Timer) Reset() {
	t.last = t.now()
}

// SetInterval changes the interval for subsequent checks. It does not rearm:
// time already elapsed in the current period still counts.
func (t *Timer) SetInterval(interval time.Duration) {
	t.interval = interval
}

// Interval returns the current interval.
func (t *Timer) Interval() time.Duration {
	return t.interval
}

// Enable allows the timer to fire again.
func (t *Timer) Enable() {
	t.enabled = true
}

// Disable stops the timer from ever reporting ready. Elapsed time keeps
// accumulating; re-enabling an overdue timer fires on the next check.
func (t *Timer) Disable() {
	t.enabled = false
}

// Enabled reports whether the timer may fire.
func (t *Timer) Enabled() bool {
	return t.enabled
}

// Elapsed returns the time since the timer last fired or was rearmed.
func (t *Timer) Elapsed() time.Duration {
	return t.now().Sub(t.last)
}

// Remaining returns the time until the next trigger, zero if the timer is
// already due or disabled.
func (t *Timer) Remaining() time.Duration {
	if !t.enabled {
		return 0
	}
	elapsed := t.now().Sub(t.last)
	if elapsed >= t.interval {
		return 0
	}
	return t.interval - elapsed
}
