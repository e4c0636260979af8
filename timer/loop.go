package timer

import "time"

// Loop drives a Wheel against wall-clock time, using time.Now() in Unix
// nanoseconds as its clock source (no monotonic reading). It is the single thread spec.md §5 requires all
// transaction/dialog/transport mutation to happen on.
type Loop struct {
	wheel *Wheel
	quit  chan struct{}
}

// NewLoop returns a Loop backed by a fresh Wheel.
func NewLoop() *Loop {
	return &Loop{wheel: NewWheel(), quit: make(chan struct{})}
}

// Wheel returns the underlying Wheel, for scheduling deadlines relative to
// Now().
func (l *Loop) Wheel() *Wheel { return l.wheel }

// Now returns the current wall-clock time in Unix nanoseconds, usable as a
// Wheel deadline.
func (l *Loop) Now() int64 { return time.Now().UnixNano() }

// After returns a deadline d from now, for use with Wheel.Schedule.
func (l *Loop) After(d time.Duration) int64 { return l.Now() + int64(d) }

// Run polls the wheel at most once per tick until Stop is called. tick
// bounds the loop's responsiveness to newly scheduled near-term timers;
// it does not affect correctness, only latency, since Poll always fires
// every elapsed deadline on the tick it observes them.
func (l *Loop) Run(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-l.quit:
			return
		case <-ticker.C:
			l.wheel.Poll(l.Now())
		}
	}
}

// Stop ends a running Run loop.
func (l *Loop) Stop() { close(l.quit) }
