// Package sampling implements the single generic windowed sampling loop the
// whole mission engine is built on: read a source at a fixed cadence over a
// bounded duration and return the ordered readings.
package sampling

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Window configures one bounded sampling pass.
type Window struct {
	Duration time.Duration
	Interval time.Duration
}

// Validate rejects non-positive durations or intervals.
func (w Window) Validate() error {
	if w.Duration <= 0 {
		return errors.New("window duration must be positive")
	}
	if w.Interval <= 0 {
		return errors.New("window interval must be positive")
	}
	return nil
}

// SampleCount derives the number of readings a pass produces. It is never
// below one, so downstream reductions always see a non-empty sequence.
func (w Window) SampleCount() int {
	if w.Interval <= 0 {
		return 1
	}
	n := int(w.Duration / w.Interval)
	if n < 1 {
		return 1
	}
	return n
}

func (w Window) String() string {
	return fmt.Sprintf("%s @ %s", w.Duration, w.Interval)
}

// Collect drives read once per interval until SampleCount readings have been
// taken, suspending between iterations but not after the final one. The
// first read error aborts the remaining iterations and is propagated to the
// caller, which decides how to classify it. Mission-specific behavior lives
// entirely in read; this loop is shared by every primitive.
func Collect[T any](ctx context.Context, w Window, read func(context.Context) (T, error)) ([]T, error) {
	count := w.SampleCount()
	out := make([]T, 0, count)
	for i := 0; i < count; i++ {
		reading, err := read(ctx)
		if err != nil {
			return nil, fmt.Errorf("sample %d/%d: %w", i+1, count, err)
		}
		out = append(out, reading)
		if i+1 < count {
			if err := Wait(ctx, w.Interval); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Wait suspends for d or until the context is cancelled, whichever comes
// first.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
