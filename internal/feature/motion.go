package feature

import (
	"sync"
	"time"

	"sensorquest/internal/sensor"
)

const (
	// DefaultMotionThreshold is the acceleration magnitude a motion event
	// must exceed to qualify as a shake.
	DefaultMotionThreshold = 12.0
	// DefaultMotionDebounce is the minimum gap between two counted events;
	// qualifying events inside the gap belong to the same cluster.
	DefaultMotionDebounce = 300 * time.Millisecond
)

// MotionCounter accumulates debounced shake events delivered through a
// motion subscription. The counter owns its debounce state explicitly so a
// mission run can pass Observe as the subscription handler and read the
// total once the window elapses. Safe for concurrent use.
type MotionCounter struct {
	Threshold float64
	Debounce  time.Duration

	mu    sync.Mutex
	count int
	last  time.Time
}

// NewMotionCounter returns a counter with the default magnitude threshold
// and debounce gap.
func NewMotionCounter() *MotionCounter {
	return &MotionCounter{
		Threshold: DefaultMotionThreshold,
		Debounce:  DefaultMotionDebounce,
	}
}

// Observe inspects one motion event and increments the counter when the
// magnitude exceeds the threshold and the debounce gap since the last
// counted event has elapsed.
func (c *MotionCounter) Observe(ev sensor.MotionEvent) {
	if ev.Magnitude() <= c.Threshold {
		return
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.last.IsZero() && at.Sub(c.last) < c.Debounce {
		return
	}
	c.last = at
	c.count++
}

// Count returns the number of debounced events observed so far.
func (c *MotionCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
