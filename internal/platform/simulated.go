// Package platform provides the sensor platform collaborators the engine
// runs against. The simulated platform synthesizes camera frames, audio
// buffers, motion events, orientation angles, and geolocation fixes from a
// scenario profile, and doubles as the test double for the engine's
// unavailable paths via per-kind permission denial.
package platform

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"sensorquest/internal/sensor"
)

// ErrPermissionDenied is the cause attached to acquisition failures for
// denied sensor kinds.
var ErrPermissionDenied = errors.New("permission denied")

// CameraProfile shapes the synthetic video feed.
type CameraProfile struct {
	Width, Height int
	R, G, B       byte
	Noise         byte             // max per-channel jitter
	Faces         []sensor.FaceBox // reported when Detection is enabled
	Detection     bool             // whether the camera advertises face detection
}

// MicrophoneProfile shapes the synthetic audio feed. Amplitude is the
// steady tone level in [0,1]; spikes model claps.
type MicrophoneProfile struct {
	Amplitude      float64
	SpikeEvery     time.Duration
	SpikeDuration  time.Duration
	SpikeAmplitude float64
}

// MotionProfile shapes the synthetic accelerometer stream.
type MotionProfile struct {
	EventEvery     time.Duration
	IdleMagnitude  float64
	BurstEvery     time.Duration
	BurstDuration  time.Duration
	BurstMagnitude float64
}

// OrientationProfile drifts the three angles linearly from their start
// values. Silent models a device that never emits an orientation event.
type OrientationProfile struct {
	Alpha, Beta, Gamma             float64
	AlphaRate, BetaRate, GammaRate float64 // degrees per second
	Silent                         bool
}

// GeoProfile walks north a fixed number of meters per fix. Silent models a
// receiver that never gets a fix.
type GeoProfile struct {
	Latitude, Longitude float64
	MetersPerFix        float64
	Silent              bool
}

// Config is one complete simulated device.
type Config struct {
	Camera      CameraProfile
	Microphone  MicrophoneProfile
	Motion      MotionProfile
	Orientation OrientationProfile
	Geo         GeoProfile
	Deny        []sensor.Kind
}

// Scenario resolves a named device profile for the demo binary.
func Scenario(name string) (Config, error) {
	switch name {
	case "", "calm":
		// Dark, quiet, still: passes the "keep it down" missions.
		return Config{
			Camera:      CameraProfile{Width: 64, Height: 48, R: 12, G: 12, B: 14, Noise: 4},
			Microphone:  MicrophoneProfile{Amplitude: 0.004},
			Motion:      MotionProfile{EventEvery: 50 * time.Millisecond, IdleMagnitude: 0.5},
			Orientation: OrientationProfile{Alpha: 10, Beta: 2, Gamma: 1},
			Geo:         GeoProfile{Latitude: 41.8919, Longitude: 12.5113, MetersPerFix: 0.5},
		}, nil
	case "lively":
		// Bright, loud, shaking, on the move.
		return Config{
			Camera: CameraProfile{
				Width: 64, Height: 48, R: 220, G: 210, B: 200, Noise: 10,
				Detection: true,
				Faces:     []sensor.FaceBox{{X: 18, Y: 10, Width: 24, Height: 28}},
			},
			Microphone: MicrophoneProfile{
				Amplitude:      0.08,
				SpikeEvery:     800 * time.Millisecond,
				SpikeDuration:  120 * time.Millisecond,
				SpikeAmplitude: 0.6,
			},
			Motion: MotionProfile{
				EventEvery:     50 * time.Millisecond,
				IdleMagnitude:  2,
				BurstEvery:     400 * time.Millisecond,
				BurstDuration:  80 * time.Millisecond,
				BurstMagnitude: 20,
			},
			Orientation: OrientationProfile{Alpha: 0, AlphaRate: 45, BetaRate: 15, GammaRate: 20},
			Geo:         GeoProfile{Latitude: 41.8919, Longitude: 12.5113, MetersPerFix: 6},
		}, nil
	case "denied":
		return Config{
			Deny: []sensor.Kind{
				sensor.KindCamera,
				sensor.KindMicrophone,
				sensor.KindMotion,
				sensor.KindOrientation,
				sensor.KindGeolocation,
			},
		}, nil
	}
	return Config{}, errors.New("unknown scenario " + name)
}

// Simulated implements sensor.Platform over a scenario profile.
type Simulated struct {
	cfg   Config
	start time.Time

	mu       sync.Mutex
	rng      *rand.Rand
	geoSteps int
}

// NewSimulated builds a simulated device from the profile. Zero-valued
// camera dimensions default to a small frame so callers always receive a
// decodable buffer.
func NewSimulated(cfg Config) *Simulated {
	if cfg.Camera.Width <= 0 {
		cfg.Camera.Width = 64
	}
	if cfg.Camera.Height <= 0 {
		cfg.Camera.Height = 48
	}
	if cfg.Motion.EventEvery <= 0 {
		cfg.Motion.EventEvery = 50 * time.Millisecond
	}
	return &Simulated{
		cfg:   cfg,
		start: time.Now(),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulated) denied(kind sensor.Kind) bool {
	for _, k := range s.cfg.Deny {
		if k == kind {
			return true
		}
	}
	return false
}

// OpenCamera starts the synthetic video feed.
func (s *Simulated) OpenCamera(ctx context.Context) (sensor.Camera, error) {
	if s.denied(sensor.KindCamera) {
		return nil, &sensor.UnavailableError{Kind: sensor.KindCamera, Cause: ErrPermissionDenied}
	}
	cam := &simCamera{sim: s}
	if s.cfg.Camera.Detection {
		return &detectingCamera{simCamera: cam}, nil
	}
	return cam, nil
}

// OpenMicrophone starts the synthetic audio feed with the requested
// analysis window size.
func (s *Simulated) OpenMicrophone(ctx context.Context, windowSize int) (sensor.Microphone, error) {
	if s.denied(sensor.KindMicrophone) {
		return nil, &sensor.UnavailableError{Kind: sensor.KindMicrophone, Cause: ErrPermissionDenied}
	}
	if windowSize <= 0 {
		windowSize = 1024
	}
	return &simMicrophone{sim: s, windowSize: windowSize}, nil
}

// OpenMotion starts the synthetic accelerometer.
func (s *Simulated) OpenMotion(ctx context.Context) (sensor.Motion, error) {
	if s.denied(sensor.KindMotion) {
		return nil, &sensor.UnavailableError{Kind: sensor.KindMotion, Cause: ErrPermissionDenied}
	}
	return &simMotion{sim: s}, nil
}

// NextOrientation resolves a single orientation reading, or nil when the
// profile is silent. The simulated timeout elapses immediately.
func (s *Simulated) NextOrientation(ctx context.Context, timeout time.Duration) (*sensor.OrientationReading, error) {
	if s.denied(sensor.KindOrientation) {
		return nil, &sensor.UnavailableError{Kind: sensor.KindOrientation, Cause: ErrPermissionDenied}
	}
	if s.cfg.Orientation.Silent {
		return nil, nil
	}
	elapsed := time.Since(s.start).Seconds()
	p := s.cfg.Orientation
	return &sensor.OrientationReading{
		Alpha: math.Mod(p.Alpha+p.AlphaRate*elapsed, 360),
		Beta:  p.Beta + p.BetaRate*elapsed,
		Gamma: p.Gamma + p.GammaRate*elapsed,
		At:    time.Now(),
	}, nil
}

// LocationFix resolves a single positional fix, or nil when the profile is
// silent. Each fix advances the simulated walk north by MetersPerFix.
func (s *Simulated) LocationFix(ctx context.Context, timeout time.Duration) (*sensor.GeoFix, error) {
	if s.denied(sensor.KindGeolocation) {
		return nil, &sensor.UnavailableError{Kind: sensor.KindGeolocation, Cause: ErrPermissionDenied}
	}
	if s.cfg.Geo.Silent {
		return nil, nil
	}
	s.mu.Lock()
	steps := s.geoSteps
	s.geoSteps++
	s.mu.Unlock()
	return &sensor.GeoFix{
		Latitude:  s.cfg.Geo.Latitude + float64(steps)*s.cfg.Geo.MetersPerFix/111000,
		Longitude: s.cfg.Geo.Longitude,
		At:        time.Now(),
	}, nil
}

type simCamera struct {
	sim    *Simulated
	mu     sync.Mutex
	closed bool
}

func (c *simCamera) Frame() (sensor.Frame, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return sensor.Frame{}, errors.New("camera stream stopped")
	}
	p := c.sim.cfg.Camera
	pixels := make([]byte, p.Width*p.Height*4)
	c.sim.mu.Lock()
	for i := 0; i < len(pixels); i += 4 {
		pixels[i] = jitter(c.sim.rng, p.R, p.Noise)
		pixels[i+1] = jitter(c.sim.rng, p.G, p.Noise)
		pixels[i+2] = jitter(c.sim.rng, p.B, p.Noise)
		pixels[i+3] = 255
	}
	c.sim.mu.Unlock()
	return sensor.Frame{Width: p.Width, Height: p.Height, Pixels: pixels}, nil
}

func (c *simCamera) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// detectingCamera adds the optional face-detection capability on top of the
// plain feed.
type detectingCamera struct {
	*simCamera
}

func (c *detectingCamera) DetectFaces() ([]sensor.FaceBox, error) {
	faces := c.sim.cfg.Camera.Faces
	out := make([]sensor.FaceBox, len(faces))
	copy(out, faces)
	return out, nil
}

type simMicrophone struct {
	sim        *Simulated
	windowSize int
	mu         sync.Mutex
	closed     bool
	phase      float64
}

func (m *simMicrophone) WindowSize() int { return m.windowSize }

func (m *simMicrophone) AudioBuffer() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("microphone stream stopped")
	}
	p := m.sim.cfg.Microphone
	amp := p.Amplitude
	if p.SpikeEvery > 0 {
		sinceSpike := time.Since(m.sim.start) % p.SpikeEvery
		dur := p.SpikeDuration
		if dur <= 0 {
			dur = 100 * time.Millisecond
		}
		if sinceSpike < dur {
			amp = p.SpikeAmplitude
		}
	}
	buf := make([]byte, m.windowSize)
	for i := range buf {
		v := amp * math.Sin(m.phase)
		buf[i] = byte(128 + v*127)
		m.phase += 2 * math.Pi / 64
	}
	return buf, nil
}

func (m *simMicrophone) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

type simMotion struct {
	sim    *Simulated
	mu     sync.Mutex
	closed bool
	nextID int
	stops  map[int]chan struct{}
}

// Subscribe spawns the event loop and delivers one vector per tick until
// cancelled. Cancellation is idempotent.
func (m *simMotion) Subscribe(handler func(sensor.MotionEvent)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("motion sensor stopped")
	}
	if m.stops == nil {
		m.stops = make(map[int]chan struct{})
	}
	id := m.nextID
	m.nextID++
	stop := make(chan struct{})
	m.stops[id] = stop

	p := m.sim.cfg.Motion
	go func() {
		ticker := time.NewTicker(p.EventEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				mag := p.IdleMagnitude
				if p.BurstEvery > 0 {
					dur := p.BurstDuration
					if dur <= 0 {
						dur = p.EventEvery
					}
					if time.Since(m.sim.start)%p.BurstEvery < dur {
						mag = p.BurstMagnitude
					}
				}
				handler(sensor.MotionEvent{X: mag, At: now})
			}
		}
	}()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if ch, ok := m.stops[id]; ok {
			close(ch)
			delete(m.stops, id)
		}
	}
	return cancel, nil
}

func (m *simMotion) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for id, stop := range m.stops {
		close(stop)
		delete(m.stops, id)
	}
	return nil
}

func jitter(rng *rand.Rand, base, noise byte) byte {
	if noise == 0 {
		return base
	}
	v := int(base) + rng.Intn(int(noise)*2+1) - int(noise)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
