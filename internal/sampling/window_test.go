package sampling

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSampleCount(t *testing.T) {
	cases := []struct {
		duration time.Duration
		interval time.Duration
		want     int
	}{
		{2000 * time.Millisecond, 250 * time.Millisecond, 8},
		{6000 * time.Millisecond, 250 * time.Millisecond, 24},
		{1000 * time.Millisecond, 300 * time.Millisecond, 3},
		{100 * time.Millisecond, 250 * time.Millisecond, 1},
		{250 * time.Millisecond, 250 * time.Millisecond, 1},
		{10 * time.Millisecond, 10 * time.Millisecond, 1},
	}
	for _, tc := range cases {
		w := Window{Duration: tc.duration, Interval: tc.interval}
		if got := w.SampleCount(); got != tc.want {
			t.Errorf("SampleCount(%v/%v) = %d, want %d", tc.duration, tc.interval, got, tc.want)
		}
	}
}

func TestWindowValidate(t *testing.T) {
	if err := (Window{Duration: time.Second, Interval: time.Millisecond}).Validate(); err != nil {
		t.Fatalf("valid window rejected: %v", err)
	}
	if err := (Window{Duration: 0, Interval: time.Millisecond}).Validate(); err == nil {
		t.Fatal("zero duration accepted")
	}
	if err := (Window{Duration: time.Second, Interval: -time.Millisecond}).Validate(); err == nil {
		t.Fatal("negative interval accepted")
	}
}

func TestCollectProducesExactlySampleCountReadings(t *testing.T) {
	w := Window{Duration: 50 * time.Millisecond, Interval: 10 * time.Millisecond}
	calls := 0
	out, err := Collect(context.Background(), w, func(context.Context) (int, error) {
		calls++
		return calls, nil
	})
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(out) != w.SampleCount() {
		t.Fatalf("got %d readings, want %d", len(out), w.SampleCount())
	}
	for i, v := range out {
		if v != i+1 {
			t.Fatalf("reading %d out of order: %d", i, v)
		}
	}
}

func TestCollectPropagatesReadError(t *testing.T) {
	w := Window{Duration: 50 * time.Millisecond, Interval: 10 * time.Millisecond}
	boom := errors.New("stream gone")
	calls := 0
	_, err := Collect(context.Background(), w, func(context.Context) (int, error) {
		calls++
		if calls == 2 {
			return 0, boom
		}
		return calls, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("sampler kept reading after failure: %d calls", calls)
	}
}

func TestCollectHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := Window{Duration: time.Second, Interval: 100 * time.Millisecond}
	_, err := Collect(ctx, w, func(context.Context) (int, error) { return 0, nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
