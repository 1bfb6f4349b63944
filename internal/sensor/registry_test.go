package sensor

import (
	"context"
	"testing"
	"time"
)

type fakeCamera struct{ closed bool }

func (c *fakeCamera) Frame() (Frame, error) { return Frame{Width: 1, Height: 1, Pixels: make([]byte, 4)}, nil }
func (c *fakeCamera) Close() error          { c.closed = true; return nil }

type fakeMicrophone struct {
	window int
	closed bool
}

func (m *fakeMicrophone) AudioBuffer() ([]byte, error) { return make([]byte, m.window), nil }
func (m *fakeMicrophone) WindowSize() int              { return m.window }
func (m *fakeMicrophone) Close() error                 { m.closed = true; return nil }

type fakeMotion struct{ closed bool }

func (m *fakeMotion) Subscribe(func(MotionEvent)) (func(), error) { return func() {}, nil }
func (m *fakeMotion) Close() error                                { m.closed = true; return nil }

type fakePlatform struct {
	cameraOpens int
	micOpens    int
	motionOpens int
	camera      *fakeCamera
	mic         *fakeMicrophone
	motion      *fakeMotion
	denyCamera  bool
}

func (p *fakePlatform) OpenCamera(ctx context.Context) (Camera, error) {
	if p.denyCamera {
		return nil, &UnavailableError{Kind: KindCamera}
	}
	p.cameraOpens++
	p.camera = &fakeCamera{}
	return p.camera, nil
}

func (p *fakePlatform) OpenMicrophone(ctx context.Context, windowSize int) (Microphone, error) {
	p.micOpens++
	p.mic = &fakeMicrophone{window: windowSize}
	return p.mic, nil
}

func (p *fakePlatform) OpenMotion(ctx context.Context) (Motion, error) {
	p.motionOpens++
	p.motion = &fakeMotion{}
	return p.motion, nil
}

func (p *fakePlatform) NextOrientation(ctx context.Context, timeout time.Duration) (*OrientationReading, error) {
	return nil, nil
}

func (p *fakePlatform) LocationFix(ctx context.Context, timeout time.Duration) (*GeoFix, error) {
	return nil, nil
}

func TestRegistryCachesHandles(t *testing.T) {
	p := &fakePlatform{}
	r := NewRegistry(p, nil)

	first, err := r.Camera(context.Background())
	if err != nil {
		t.Fatalf("acquire camera: %v", err)
	}
	second, err := r.Camera(context.Background())
	if err != nil {
		t.Fatalf("re-acquire camera: %v", err)
	}
	if first != second {
		t.Fatal("re-acquisition opened a duplicate handle")
	}
	if p.cameraOpens != 1 {
		t.Fatalf("platform opened %d times, want 1", p.cameraOpens)
	}
}

func TestRegistryMicrophoneKeepsOriginalWindow(t *testing.T) {
	p := &fakePlatform{}
	r := NewRegistry(p, nil)

	mic, err := r.Microphone(context.Background(), 1024)
	if err != nil {
		t.Fatalf("acquire microphone: %v", err)
	}
	again, err := r.Microphone(context.Background(), 512)
	if err != nil {
		t.Fatalf("re-acquire microphone: %v", err)
	}
	if mic != again {
		t.Fatal("re-acquisition opened a duplicate handle")
	}
	if again.WindowSize() != 1024 {
		t.Fatalf("window size = %d, want the original 1024", again.WindowSize())
	}
}

func TestRegistryReleaseStopsAndClears(t *testing.T) {
	p := &fakePlatform{}
	r := NewRegistry(p, nil)

	if _, err := r.Camera(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := r.Release(KindCamera); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !p.camera.closed {
		t.Fatal("release did not stop the stream")
	}
	if _, err := r.Camera(context.Background()); err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
	if p.cameraOpens != 2 {
		t.Fatalf("platform opened %d times, want a fresh acquisition after release", p.cameraOpens)
	}
}

func TestRegistryCloseReleasesEverything(t *testing.T) {
	p := &fakePlatform{}
	r := NewRegistry(p, nil)
	active := map[Kind]bool{}
	r.Notify = func(kind Kind, on bool) { active[kind] = on }

	if _, err := r.Camera(context.Background()); err != nil {
		t.Fatalf("camera: %v", err)
	}
	if _, err := r.Microphone(context.Background(), 256); err != nil {
		t.Fatalf("microphone: %v", err)
	}
	if _, err := r.Motion(context.Background()); err != nil {
		t.Fatalf("motion: %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !p.camera.closed || !p.mic.closed || !p.motion.closed {
		t.Fatal("close left a live handle behind")
	}
	for kind, on := range active {
		if on {
			t.Fatalf("notify still reports %s active after close", kind)
		}
	}
}

func TestRegistryAcquisitionFailureNotCached(t *testing.T) {
	p := &fakePlatform{denyCamera: true}
	r := NewRegistry(p, nil)

	if _, err := r.Camera(context.Background()); err == nil {
		t.Fatal("denied camera acquired")
	}
	p.denyCamera = false
	if _, err := r.Camera(context.Background()); err != nil {
		t.Fatalf("camera still failing after permission granted: %v", err)
	}
}
