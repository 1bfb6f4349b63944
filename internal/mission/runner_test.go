package mission

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"sensorquest/internal/platform"
	"sensorquest/internal/sensor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func newTestRunner(cfg platform.Config) *Runner {
	registry := sensor.NewRegistry(platform.NewSimulated(cfg), testLogger())
	return NewRunner(registry, testLogger(), nil)
}

func quickPhase(p Primitive, c Compare) Phase {
	return Phase{
		Primitive: p,
		Window:    WindowSpec{DurationMs: 40, IntervalMs: 10},
		Compare:   c,
	}
}

func singleMission(id int, p Primitive, c Compare) Spec {
	return Spec{ID: id, Title: "test", Phases: []Phase{quickPhase(p, c)}}
}

func TestBrightnessMissionPassesOnDarkFrames(t *testing.T) {
	r := newTestRunner(platform.Config{Camera: platform.CameraProfile{Width: 16, Height: 12}})
	v, err := r.Run(context.Background(), singleMission(1, PrimitiveBrightness, Compare{Kind: CompareLT, Threshold: 35}))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if v.Outcome != OutcomePassed {
		t.Fatalf("outcome = %s, want passed (measured %v)", v.Outcome, v.Measured)
	}
	if !v.Available || v.Measured > 1 {
		t.Fatalf("black frames measured %v, want ~0", v.Measured)
	}
}

func TestBrightnessMissionFailsOnWhiteFramesButKeepsMeasurement(t *testing.T) {
	r := newTestRunner(platform.Config{Camera: platform.CameraProfile{Width: 16, Height: 12, R: 255, G: 255, B: 255}})
	v, err := r.Run(context.Background(), singleMission(1, PrimitiveBrightness, Compare{Kind: CompareLT, Threshold: 35}))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if v.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", v.Outcome)
	}
	if !v.Available || v.Measured < 250 {
		t.Fatalf("white frames measured %v, want ~255 recorded on failure", v.Measured)
	}
}

func TestSilenceMissionPasses(t *testing.T) {
	r := newTestRunner(platform.Config{})
	v, err := r.Run(context.Background(), singleMission(2, PrimitiveSoundLevel, Compare{Kind: CompareLT, Threshold: 0.015}))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if v.Outcome != OutcomePassed {
		t.Fatalf("outcome = %s, want passed (measured %v)", v.Outcome, v.Measured)
	}
	if v.Measured != 0 {
		t.Fatalf("silent buffers measured %v, want 0", v.Measured)
	}
}

func TestDeniedSensorYieldsUnavailable(t *testing.T) {
	r := newTestRunner(platform.Config{Deny: []sensor.Kind{sensor.KindCamera}})
	v, err := r.Run(context.Background(), singleMission(3, PrimitiveBrightness, Compare{Kind: CompareLT, Threshold: 35}))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if v.Outcome != OutcomeUnavailable {
		t.Fatalf("outcome = %s, want unavailable", v.Outcome)
	}
	if v.Available {
		t.Fatal("denied sensor reported an available measurement")
	}
	if v.Passed() {
		t.Fatal("denied sensor passed the mission")
	}
}

func TestFaceDetectionCapabilityMissing(t *testing.T) {
	// Camera works but does not advertise detection.
	r := newTestRunner(platform.Config{Camera: platform.CameraProfile{Width: 16, Height: 12}})
	v, err := r.Run(context.Background(), singleMission(4, PrimitiveFacePresence, Compare{Kind: CompareGT, Threshold: 0}))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if v.Outcome != OutcomeUnavailable {
		t.Fatalf("outcome = %s, want unavailable for missing capability", v.Outcome)
	}
}

func TestFaceDetectionFindsFaces(t *testing.T) {
	r := newTestRunner(platform.Config{Camera: platform.CameraProfile{
		Width: 16, Height: 12, Detection: true,
		Faces: []sensor.FaceBox{{X: 2, Y: 2, Width: 6, Height: 8}},
	}})
	v, err := r.Run(context.Background(), singleMission(5, PrimitiveFacePresence, Compare{Kind: CompareGT, Threshold: 0}))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if v.Outcome != OutcomePassed || v.Measured != 1 {
		t.Fatalf("outcome = %s measured %v, want passed with 1 face", v.Outcome, v.Measured)
	}
}

func TestMotionMissionCountsBursts(t *testing.T) {
	r := newTestRunner(platform.Config{Motion: platform.MotionProfile{
		EventEvery:     5 * time.Millisecond,
		BurstEvery:     20 * time.Millisecond,
		BurstDuration:  10 * time.Millisecond,
		BurstMagnitude: 25,
	}})
	spec := Spec{ID: 6, Title: "shake", Phases: []Phase{{
		Primitive: PrimitiveMotionCount,
		Window:    WindowSpec{DurationMs: 80, IntervalMs: 10},
		Compare:   Compare{Kind: CompareGT, Threshold: 0},
	}}}
	v, err := r.Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if v.Outcome != OutcomePassed {
		t.Fatalf("outcome = %s measured %v, want at least one counted burst", v.Outcome, v.Measured)
	}
}

func TestOrientationTimeoutYieldsUnavailable(t *testing.T) {
	r := newTestRunner(platform.Config{Orientation: platform.OrientationProfile{Silent: true}})
	v, err := r.Run(context.Background(), singleMission(7, PrimitiveOrientationDelta, Compare{Kind: CompareGT, Threshold: 10}))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if v.Outcome != OutcomeUnavailable {
		t.Fatalf("outcome = %s, want unavailable on timeout", v.Outcome)
	}
}

func TestGeoDisplacementMission(t *testing.T) {
	r := newTestRunner(platform.Config{Geo: platform.GeoProfile{Latitude: 41.9, Longitude: 12.5, MetersPerFix: 6}})
	v, err := r.Run(context.Background(), singleMission(8, PrimitiveGeoDisplacement, Compare{Kind: CompareGT, Threshold: 5}))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if v.Outcome != OutcomePassed {
		t.Fatalf("outcome = %s measured %v, want passed (~6m walk)", v.Outcome, v.Measured)
	}
}

func TestRunnerRejectsConcurrentRun(t *testing.T) {
	r := newTestRunner(platform.Config{Camera: platform.CameraProfile{Width: 16, Height: 12}})
	slow := Spec{ID: 9, Title: "slow", Phases: []Phase{{
		Primitive: PrimitiveBrightness,
		Window:    WindowSpec{DurationMs: 400, IntervalMs: 40},
		Compare:   Compare{Kind: CompareLT, Threshold: 35},
	}}}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := r.Run(context.Background(), slow); err != nil {
			t.Errorf("first run failed: %v", err)
		}
	}()

	time.Sleep(50 * time.Millisecond)
	_, err := r.Run(context.Background(), singleMission(10, PrimitiveBrightness, Compare{Kind: CompareLT, Threshold: 35}))
	if !errors.Is(err, ErrMissionInFlight) {
		t.Fatalf("second run error = %v, want ErrMissionInFlight", err)
	}
	<-done
}

func TestRunRejectsInvalidSpec(t *testing.T) {
	r := newTestRunner(platform.Config{})
	_, err := r.Run(context.Background(), Spec{ID: 0})
	if err == nil {
		t.Fatal("invalid spec accepted")
	}
}
