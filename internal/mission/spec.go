// Package mission defines mission specifications and the runner that drives
// a configured mission through acquisition, windowed sampling, feature
// reduction, and threshold comparison to a verdict.
package mission

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"sensorquest/internal/feature"
	"sensorquest/internal/sampling"
	"sensorquest/internal/sensor"
)

// Primitive names one of the sampling routines a mission phase can use.
type Primitive string

const (
	PrimitiveBrightness       Primitive = "brightness"
	PrimitiveColorChannel     Primitive = "color_channel"
	PrimitiveContrastRatio    Primitive = "contrast_ratio"
	PrimitiveFacePresence     Primitive = "face_presence"
	PrimitiveSoundLevel       Primitive = "sound_level"
	PrimitiveClapPeaks        Primitive = "clap_peaks"
	PrimitiveMotionCount      Primitive = "motion_count"
	PrimitiveOrientationDelta Primitive = "orientation_delta"
	PrimitiveGeoDisplacement  Primitive = "geo_displacement"
)

// Kind maps the primitive to the sensor family it samples.
func (p Primitive) Kind() sensor.Kind {
	switch p {
	case PrimitiveBrightness, PrimitiveColorChannel, PrimitiveContrastRatio, PrimitiveFacePresence:
		return sensor.KindCamera
	case PrimitiveSoundLevel, PrimitiveClapPeaks:
		return sensor.KindMicrophone
	case PrimitiveMotionCount:
		return sensor.KindMotion
	case PrimitiveOrientationDelta:
		return sensor.KindOrientation
	case PrimitiveGeoDisplacement:
		return sensor.KindGeolocation
	}
	return ""
}

// Valid reports whether the primitive is one of the known routines.
func (p Primitive) Valid() bool {
	return p.Kind() != ""
}

// CompareKind selects the comparison direction applied to the reduced value.
type CompareKind string

const (
	CompareLT      CompareKind = "lt"
	CompareGT      CompareKind = "gt"
	CompareInRange CompareKind = "in_range"
)

// Compare is a mission's decision rule. Threshold is used by lt and gt;
// in_range uses the inclusive [Low, High] band.
type Compare struct {
	Kind      CompareKind `yaml:"kind"`
	Threshold float64     `yaml:"threshold,omitempty"`
	Low       float64     `yaml:"low,omitempty"`
	High      float64     `yaml:"high,omitempty"`
}

// Evaluate applies the rule to a measured value.
func (c Compare) Evaluate(v float64) bool {
	switch c.Kind {
	case CompareLT:
		return v < c.Threshold
	case CompareGT:
		return v > c.Threshold
	case CompareInRange:
		return v >= c.Low && v <= c.High
	}
	return false
}

// Validate rejects unknown kinds and non-finite or negative bounds. A zero
// threshold is allowed for count-style primitives ("more than zero faces").
func (c Compare) Validate() error {
	switch c.Kind {
	case CompareLT, CompareGT:
		if !finiteNonNegative(c.Threshold) {
			return fmt.Errorf("comparator %s requires a finite non-negative threshold", c.Kind)
		}
	case CompareInRange:
		if !finiteNonNegative(c.Low) || !finiteNonNegative(c.High) {
			return errors.New("comparator in_range requires finite non-negative bounds")
		}
		if c.Low > c.High {
			return errors.New("comparator in_range requires low <= high")
		}
	default:
		return fmt.Errorf("unknown comparator kind %q", c.Kind)
	}
	return nil
}

func (c Compare) String() string {
	switch c.Kind {
	case CompareLT:
		return fmt.Sprintf("< %g", c.Threshold)
	case CompareGT:
		return fmt.Sprintf("> %g", c.Threshold)
	case CompareInRange:
		return fmt.Sprintf("in [%g, %g]", c.Low, c.High)
	}
	return "?"
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// WindowSpec is the catalog-facing window configuration in milliseconds.
type WindowSpec struct {
	DurationMs int `yaml:"duration_ms"`
	IntervalMs int `yaml:"interval_ms"`
}

// Window converts the millisecond configuration into a sampling window.
func (w WindowSpec) Window() sampling.Window {
	return sampling.Window{
		Duration: time.Duration(w.DurationMs) * time.Millisecond,
		Interval: time.Duration(w.IntervalMs) * time.Millisecond,
	}
}

// Phase is one acquire-sample-reduce-compare pipeline. Single-primitive
// missions have exactly one phase; composite missions run several and join
// the verdicts with logical AND. Delay shifts a phase's start inside the
// composite so sequential choreography ("clap, then silence") is expressed
// as data instead of ad hoc waits.
type Phase struct {
	Primitive Primitive  `yaml:"primitive"`
	Channel   string     `yaml:"channel,omitempty"`
	Axis      string     `yaml:"axis,omitempty"`
	Window    WindowSpec `yaml:"window"`
	Compare   Compare    `yaml:"compare"`
	DelayMs   int        `yaml:"delay_ms,omitempty"`
}

// Delay returns the phase start offset within a composite run.
func (p Phase) Delay() time.Duration {
	return time.Duration(p.DelayMs) * time.Millisecond
}

// ResolveChannel maps the textual channel selector to a color channel,
// defaulting to red when unset.
func (p Phase) ResolveChannel() (feature.Channel, error) {
	switch strings.ToLower(strings.TrimSpace(p.Channel)) {
	case "", "red", "r":
		return feature.ChannelRed, nil
	case "green", "g":
		return feature.ChannelGreen, nil
	case "blue", "b":
		return feature.ChannelBlue, nil
	}
	return 0, fmt.Errorf("unknown channel %q", p.Channel)
}

// ResolveAxis maps the textual axis selector to an orientation axis,
// defaulting to alpha when unset.
func (p Phase) ResolveAxis() (feature.Axis, error) {
	switch strings.ToLower(strings.TrimSpace(p.Axis)) {
	case "", "alpha":
		return feature.AxisAlpha, nil
	case "beta":
		return feature.AxisBeta, nil
	case "gamma":
		return feature.AxisGamma, nil
	}
	return 0, fmt.Errorf("unknown axis %q", p.Axis)
}

// Validate checks the phase's structural invariants.
func (p Phase) Validate() error {
	if !p.Primitive.Valid() {
		return fmt.Errorf("unknown primitive %q", p.Primitive)
	}
	if err := p.Window.Window().Validate(); err != nil {
		return err
	}
	if err := p.Compare.Validate(); err != nil {
		return err
	}
	if p.DelayMs < 0 {
		return errors.New("phase delay cannot be negative")
	}
	if _, err := p.ResolveChannel(); err != nil {
		return err
	}
	if _, err := p.ResolveAxis(); err != nil {
		return err
	}
	return nil
}

// Spec is one immutable mission definition from the catalog.
type Spec struct {
	ID          int     `yaml:"id"`
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	Phases      []Phase `yaml:"phases"`
}

// Composite reports whether the mission joins more than one phase.
func (s Spec) Composite() bool {
	return len(s.Phases) > 1
}

// Validate checks the structural invariants the catalog and any external
// caller must satisfy before a run.
func (s Spec) Validate() error {
	if s.ID <= 0 {
		return errors.New("mission id must be positive")
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("mission %d: title cannot be empty", s.ID)
	}
	if len(s.Phases) == 0 {
		return fmt.Errorf("mission %d: at least one phase is required", s.ID)
	}
	for i, phase := range s.Phases {
		if err := phase.Validate(); err != nil {
			return fmt.Errorf("mission %d phase %d: %w", s.ID, i+1, err)
		}
	}
	return nil
}
