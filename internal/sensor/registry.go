package sensor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Registry owns the live sensor handles for one session. The first
// successful acquisition of a kind is cached and returned on subsequent
// requests, so at most one handle per kind is ever open; Release stops the
// underlying stream and clears the cache entry. One-shot kinds (orientation,
// geolocation) are passed straight through to the platform and never cached.
// Registry is safe for concurrent use.
type Registry struct {
	platform Platform
	log      *slog.Logger

	// Notify, when set, observes handle lifecycle changes so callers can
	// keep an active-handle gauge without coupling this package to the
	// metrics registry.
	Notify func(kind Kind, active bool)

	mu         sync.Mutex
	camera     Camera
	microphone Microphone
	motion     Motion
}

// NewRegistry wires a registry over the supplied platform collaborator.
func NewRegistry(platform Platform, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Registry{
		platform: platform,
		log:      logger.With(slog.String("component", "sensor_registry")),
	}
}

// Camera returns the cached camera handle, acquiring one on first use.
func (r *Registry) Camera(ctx context.Context) (Camera, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.camera != nil {
		return r.camera, nil
	}
	cam, err := r.platform.OpenCamera(ctx)
	if err != nil {
		return nil, err
	}
	r.camera = cam
	r.notify(KindCamera, true)
	r.log.Info("sensor_acquired", slog.String("kind", string(KindCamera)))
	return cam, nil
}

// Microphone returns the cached microphone handle, acquiring one with the
// supplied analysis window size on first use. The window size is a property
// of the handle; later calls reuse the original size.
func (r *Registry) Microphone(ctx context.Context, windowSize int) (Microphone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.microphone != nil {
		return r.microphone, nil
	}
	mic, err := r.platform.OpenMicrophone(ctx, windowSize)
	if err != nil {
		return nil, err
	}
	r.microphone = mic
	r.notify(KindMicrophone, true)
	r.log.Info("sensor_acquired", slog.String("kind", string(KindMicrophone)))
	return mic, nil
}

// Motion returns the cached motion handle, acquiring one on first use.
func (r *Registry) Motion(ctx context.Context) (Motion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.motion != nil {
		return r.motion, nil
	}
	mo, err := r.platform.OpenMotion(ctx)
	if err != nil {
		return nil, err
	}
	r.motion = mo
	r.notify(KindMotion, true)
	r.log.Info("sensor_acquired", slog.String("kind", string(KindMotion)))
	return mo, nil
}

// Orientation performs a single-shot orientation read. A nil reading means
// the timeout elapsed before an event arrived.
func (r *Registry) Orientation(ctx context.Context, timeout time.Duration) (*OrientationReading, error) {
	return r.platform.NextOrientation(ctx, timeout)
}

// Location performs a single-shot geolocation fix with its own timeout. A
// nil fix means the timeout elapsed.
func (r *Registry) Location(ctx context.Context, timeout time.Duration) (*GeoFix, error) {
	return r.platform.LocationFix(ctx, timeout)
}

// Release closes and forgets the cached handle for the given kind, if any.
func (r *Registry) Release(kind Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releaseLocked(kind)
}

func (r *Registry) releaseLocked(kind Kind) error {
	var err error
	switch kind {
	case KindCamera:
		if r.camera == nil {
			return nil
		}
		err = r.camera.Close()
		r.camera = nil
	case KindMicrophone:
		if r.microphone == nil {
			return nil
		}
		err = r.microphone.Close()
		r.microphone = nil
	case KindMotion:
		if r.motion == nil {
			return nil
		}
		err = r.motion.Close()
		r.motion = nil
	default:
		return nil
	}
	r.notify(kind, false)
	r.log.Info("sensor_released", slog.String("kind", string(kind)))
	return err
}

// Close releases every cached handle. The first close error is returned but
// all handles are released regardless.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, kind := range []Kind{KindCamera, KindMicrophone, KindMotion} {
		if err := r.releaseLocked(kind); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Registry) notify(kind Kind, active bool) {
	if r.Notify != nil {
		r.Notify(kind, active)
	}
}
