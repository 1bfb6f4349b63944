// Package feature holds the pure reductions that turn sampled sensor
// readings into the scalar a mission compares against its threshold. Every
// function here is deterministic given its input sequence and never raises;
// empty-input guards return zero values instead of dividing by zero.
package feature

import (
	"math"

	"sensorquest/internal/sensor"
)

// Channel selects one RGBA color component for channel-intensity missions.
type Channel int

const (
	ChannelRed Channel = iota
	ChannelGreen
	ChannelBlue
)

func (c Channel) String() string {
	switch c {
	case ChannelRed:
		return "red"
	case ChannelGreen:
		return "green"
	case ChannelBlue:
		return "blue"
	}
	return "unknown"
}

// Axis selects which orientation angle an orientation-delta mission tracks.
type Axis int

const (
	AxisAlpha Axis = iota
	AxisBeta
	AxisGamma
)

func (a Axis) String() string {
	switch a {
	case AxisAlpha:
		return "alpha"
	case AxisBeta:
		return "beta"
	case AxisGamma:
		return "gamma"
	}
	return "unknown"
}

const (
	// darkCutoff and brightCutoff bound the luminance band excluded from
	// the contrast ratio.
	darkCutoff   = 40.0
	brightCutoff = 215.0

	// DefaultClapSpike is the per-buffer RMS above which a reading counts
	// as one clap peak.
	DefaultClapSpike = 0.08
)

// luminance is the Rec.709 brightness approximation for one pixel, in
// [0,255].
func luminance(r, g, b byte) float64 {
	return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
}

// frameLuminance averages per-pixel luminance over one frame.
func frameLuminance(f sensor.Frame) float64 {
	n := f.PixelCount()
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		p := f.Pixels[i*4:]
		sum += luminance(p[0], p[1], p[2])
	}
	return sum / float64(n)
}

// MeanLuminance averages frame luminance across all sampled frames.
func MeanLuminance(frames []sensor.Frame) float64 {
	if len(frames) == 0 {
		return 0
	}
	var sum float64
	for _, f := range frames {
		sum += frameLuminance(f)
	}
	return sum / float64(len(frames))
}

// ChannelMean averages the chosen color channel over all pixels of all
// sampled frames.
func ChannelMean(frames []sensor.Frame, ch Channel) float64 {
	if len(frames) == 0 {
		return 0
	}
	var sum float64
	for _, f := range frames {
		n := f.PixelCount()
		if n == 0 {
			continue
		}
		var frameSum float64
		for i := 0; i < n; i++ {
			frameSum += float64(f.Pixels[i*4+int(ch)])
		}
		sum += frameSum / float64(n)
	}
	return sum / float64(len(frames))
}

// ContrastRatio reports the fraction of pixels in one frame whose luminance
// falls below the dark cutoff or above the bright cutoff.
func ContrastRatio(f sensor.Frame) float64 {
	n := f.PixelCount()
	if n == 0 {
		return 0
	}
	extreme := 0
	for i := 0; i < n; i++ {
		p := f.Pixels[i*4:]
		l := luminance(p[0], p[1], p[2])
		if l < darkCutoff || l > brightCutoff {
			extreme++
		}
	}
	return float64(extreme) / float64(n)
}

// BufferRMS computes the root-mean-square of one time-domain audio buffer
// after normalizing each byte sample to [-1,1].
func BufferRMS(buf []byte) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, b := range buf {
		v := (float64(b) - 128) / 128
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(buf)))
}

// SoundRMS averages per-buffer RMS across all sampled buffers.
func SoundRMS(buffers [][]byte) float64 {
	if len(buffers) == 0 {
		return 0
	}
	var sum float64
	for _, buf := range buffers {
		sum += BufferRMS(buf)
	}
	return sum / float64(len(buffers))
}

// ClapPeaks counts the sampled buffers whose RMS exceeds the spike
// threshold. It counts events, not an average, so a short loud burst in an
// otherwise quiet window still registers.
func ClapPeaks(buffers [][]byte, spike float64) int {
	if spike <= 0 {
		spike = DefaultClapSpike
	}
	count := 0
	for _, buf := range buffers {
		if BufferRMS(buf) > spike {
			count++
		}
	}
	return count
}

// OrientationDelta returns the absolute difference of the chosen axis
// between two single-shot readings. The second result is false when either
// reading is nil (timed out), which the caller must surface as an
// unavailable feature rather than a zero.
func OrientationDelta(a, b *sensor.OrientationReading, axis Axis) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	var va, vb float64
	switch axis {
	case AxisBeta:
		va, vb = a.Beta, b.Beta
	case AxisGamma:
		va, vb = a.Gamma, b.Gamma
	default:
		va, vb = a.Alpha, b.Alpha
	}
	return math.Abs(vb - va), true
}

// GeoDisplacement approximates the planar distance in meters between two
// fixes: one degree of latitude is taken as 111 km and longitude degrees
// shrink with the cosine of the first fix's latitude.
func GeoDisplacement(a, b sensor.GeoFix) float64 {
	dx := (b.Latitude - a.Latitude) * 111000
	dy := (b.Longitude - a.Longitude) * 111000 * math.Cos(a.Latitude*math.Pi/180)
	return math.Sqrt(dx*dx + dy*dy)
}
