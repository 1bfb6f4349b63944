// Package sensor defines the source abstraction the mission engine samples
// from: sensor kinds, typed readings, the platform collaborator contract, and
// the error taxonomy separating "sensor unavailable" from ordinary failures.
package sensor

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Kind identifies one of the five sensor families the engine can sample.
type Kind string

const (
	KindCamera      Kind = "camera"
	KindMicrophone  Kind = "microphone"
	KindMotion      Kind = "motion"
	KindOrientation Kind = "orientation"
	KindGeolocation Kind = "geolocation"
)

// Frame is a single RGBA pixel buffer captured from the camera feed.
type Frame struct {
	Width  int
	Height int
	Pixels []byte // RGBA, 4 bytes per pixel, row-major
}

// PixelCount returns the number of addressable pixels in the frame.
func (f Frame) PixelCount() int {
	n := len(f.Pixels) / 4
	if wh := f.Width * f.Height; wh > 0 && wh < n {
		n = wh
	}
	return n
}

// MotionEvent is one accelerometer sample delivered through a subscription.
type MotionEvent struct {
	X, Y, Z float64
	At      time.Time
}

// Magnitude returns the euclidean length of the acceleration vector.
func (e MotionEvent) Magnitude() float64 {
	return math.Sqrt(e.X*e.X + e.Y*e.Y + e.Z*e.Z)
}

// OrientationReading holds the three device orientation angles in degrees.
type OrientationReading struct {
	Alpha, Beta, Gamma float64
	At                 time.Time
}

// GeoFix is a single positional fix in decimal degrees.
type GeoFix struct {
	Latitude  float64
	Longitude float64
	At        time.Time
}

// FaceBox is the bounding box reported by the optional face detection
// capability, in frame pixel coordinates.
type FaceBox struct {
	X, Y          int
	Width, Height int
}

// Camera is a live video handle. Frame captures the most recent decodable
// frame at the time of call; implementations must not return a frame before
// the feed has produced one.
type Camera interface {
	Frame() (Frame, error)
	Close() error
}

// FaceDetector is an optional capability a Camera may implement. Callers
// discover it by type assertion; its absence is a CapabilityError, distinct
// from "no face found".
type FaceDetector interface {
	DetectFaces() ([]FaceBox, error)
}

// Microphone is a live audio handle exposing a fixed-size time-domain
// analysis window. WindowSize reports the buffer length configured at
// acquisition time.
type Microphone interface {
	AudioBuffer() ([]byte, error)
	WindowSize() int
	Close() error
}

// Motion is a subscription-capable accelerometer handle. Subscribe registers
// a handler invoked once per platform event and returns a cancel function
// that must be called on every exit path.
type Motion interface {
	Subscribe(handler func(MotionEvent)) (cancel func(), err error)
	Close() error
}

// Platform is the collaborator contract toward the permission and hardware
// layer. Open calls either succeed or fail with an UnavailableError; the two
// single-shot calls resolve to a nil reading on timeout instead of erroring,
// so callers always receive a definite outcome.
type Platform interface {
	OpenCamera(ctx context.Context) (Camera, error)
	OpenMicrophone(ctx context.Context, windowSize int) (Microphone, error)
	OpenMotion(ctx context.Context) (Motion, error)
	NextOrientation(ctx context.Context, timeout time.Duration) (*OrientationReading, error)
	LocationFix(ctx context.Context, timeout time.Duration) (*GeoFix, error)
}

// UnavailableError reports that a sensor could not be acquired: permission
// denied, hardware absent, or the platform API unsupported. The mission
// runner converts it into an "unavailable" verdict, never into a numeric
// zero.
type UnavailableError struct {
	Kind  Kind
	Cause error
}

func (e *UnavailableError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("sensor %s unavailable", e.Kind)
	}
	return fmt.Sprintf("sensor %s unavailable: %v", e.Kind, e.Cause)
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

// CapabilityError reports that an optional platform capability is missing
// while the underlying sensor itself may be fine.
type CapabilityError struct {
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s not supported", e.Capability)
}
