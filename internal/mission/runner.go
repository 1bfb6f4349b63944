package mission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sensorquest/internal/feature"
	"sensorquest/internal/metrics"
	"sensorquest/internal/sampling"
	"sensorquest/internal/sensor"
)

// State labels the phases of a mission run's lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateAcquiring State = "acquiring"
	StateSampling  State = "sampling"
	StateReducing  State = "reducing"
	StateComparing State = "comparing"
)

// Outcome is a run's terminal state.
type Outcome string

const (
	OutcomePassed      Outcome = "passed"
	OutcomeFailed      Outcome = "failed"
	OutcomeUnavailable Outcome = "unavailable"
)

// Verdict is the result of one mission run. Measured carries the reduced
// value whenever Available is true, even when the comparison failed, so
// diagnostics never lose the observation. Unavailable verdicts keep
// Available false and must never be read as a numeric zero.
type Verdict struct {
	RunID       string
	MissionID   int
	Outcome     Outcome
	Measured    float64
	Available   bool
	Diagnostics []string
	StartedAt   time.Time
	Elapsed     time.Duration
}

// Passed reports whether the run reached the passing terminal state.
// Scoring reads only this bit.
func (v Verdict) Passed() bool {
	return v.Outcome == OutcomePassed
}

// DefaultMicWindow is the analysis buffer length requested when the
// microphone is first acquired.
const DefaultMicWindow = 1024

// ErrMissionInFlight is returned when a run is requested while a previous
// run's sampling chain is still in flight. There is no queue; one mission
// runs at a time.
var ErrMissionInFlight = errors.New("mission already in flight")

// Runner drives a mission spec through acquisition, sampling, reduction,
// and comparison. A single run is one attempt: failures are never retried,
// and sensor failures terminate in an unavailable verdict rather than an
// error.
type Runner struct {
	sources   *sensor.Registry
	log       *slog.Logger
	metrics   *metrics.Metrics
	micWindow int
	inFlight  atomic.Bool
}

// NewRunner wires a runner over the session's sensor registry.
func NewRunner(sources *sensor.Registry, logger *slog.Logger, m *metrics.Metrics) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Runner{
		sources:   sources,
		log:       logger.With(slog.String("component", "mission_runner")),
		metrics:   m,
		micWindow: DefaultMicWindow,
	}
}

// SetMicWindow overrides the analysis buffer length requested when the
// microphone is first acquired. Non-positive values are ignored.
func (r *Runner) SetMicWindow(n int) {
	if n > 0 {
		r.micWindow = n
	}
}

// Run executes one attempt of the mission and returns its verdict. A second
// concurrent call fails fast with ErrMissionInFlight. Context errors abort
// the run and are returned verbatim; every sensor-level failure becomes an
// unavailable verdict instead.
func (r *Runner) Run(ctx context.Context, spec Spec) (Verdict, error) {
	if err := spec.Validate(); err != nil {
		return Verdict{}, err
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		return Verdict{}, ErrMissionInFlight
	}
	defer r.inFlight.Store(false)

	started := time.Now()
	log := r.log.With(slog.Int("mission_id", spec.ID))
	log.Info("mission_started",
		slog.String("title", spec.Title),
		slog.Int("phases", len(spec.Phases)),
	)

	var res phaseResult
	if spec.Composite() {
		res = r.runComposite(ctx, spec)
	} else {
		res = r.runPhase(ctx, spec.Phases[0])
	}
	if res.err != nil {
		if ctxErr := contextCause(res.err); ctxErr != nil {
			return Verdict{}, ctxErr
		}
	}

	verdict := Verdict{
		RunID:       uuid.NewString(),
		MissionID:   spec.ID,
		Measured:    res.measured,
		Available:   res.available,
		Diagnostics: res.diags,
		StartedAt:   started,
		Elapsed:     time.Since(started),
	}
	switch {
	case !res.available:
		verdict.Outcome = OutcomeUnavailable
	case res.passed:
		verdict.Outcome = OutcomePassed
	default:
		verdict.Outcome = OutcomeFailed
	}

	r.metrics.MissionRun(string(verdict.Outcome), verdict.Elapsed)
	log.Info("mission_finished",
		slog.String("outcome", string(verdict.Outcome)),
		slog.Float64("measured", verdict.Measured),
		slog.Bool("available", verdict.Available),
		slog.Duration("elapsed", verdict.Elapsed),
	)
	return verdict, nil
}

// phaseResult is the internal outcome of a single pipeline pass.
type phaseResult struct {
	measured  float64
	available bool
	passed    bool
	diags     []string
	err       error
}

func unavailableResult(phase Phase, err error) phaseResult {
	return phaseResult{
		available: false,
		diags:     []string{fmt.Sprintf("%s: %v", phase.Primitive, err)},
		err:       err,
	}
}

// runPhase walks one phase through the state machine. Sensor and capability
// failures collapse to an unavailable result here; the measured value is
// preserved on the ordinary pass/fail paths.
func (r *Runner) runPhase(ctx context.Context, phase Phase) phaseResult {
	log := r.log.With(slog.String("primitive", string(phase.Primitive)))
	log.Debug("mission_state", slog.String("state", string(StateAcquiring)))

	measured, diags, err := r.measure(ctx, phase, log)
	if err != nil {
		if !isSensorFailure(err) && contextCause(err) == nil {
			// Non-sensor sampling errors are still a single failed
			// attempt; classify them as unavailable per the one-attempt
			// policy.
			log.Warn("mission_phase_error", slog.Any("err", err))
		}
		r.metrics.AcquireFailure(string(phase.Primitive.Kind()))
		return unavailableResult(phase, err)
	}

	log.Debug("mission_state", slog.String("state", string(StateComparing)))
	passed := phase.Compare.Evaluate(measured)
	diags = append(diags, fmt.Sprintf("%s measured %.4f, want %s => %s",
		phase.Primitive, measured, phase.Compare, passFail(passed)))
	return phaseResult{measured: measured, available: true, passed: passed, diags: diags}
}

// measure runs acquisition, sampling, and reduction for one phase and
// returns the reduced scalar.
func (r *Runner) measure(ctx context.Context, phase Phase, log *slog.Logger) (float64, []string, error) {
	window := phase.Window.Window()
	switch phase.Primitive {
	case PrimitiveBrightness, PrimitiveColorChannel, PrimitiveContrastRatio:
		cam, err := r.sources.Camera(ctx)
		if err != nil {
			return 0, nil, err
		}
		log.Debug("mission_state", slog.String("state", string(StateSampling)))
		frames, err := sampling.Collect(ctx, window, func(context.Context) (sensor.Frame, error) {
			return cam.Frame()
		})
		if err != nil {
			return 0, nil, err
		}
		log.Debug("mission_state", slog.String("state", string(StateReducing)))
		switch phase.Primitive {
		case PrimitiveColorChannel:
			ch, err := phase.ResolveChannel()
			if err != nil {
				return 0, nil, err
			}
			return feature.ChannelMean(frames, ch), nil, nil
		case PrimitiveContrastRatio:
			// Contrast is defined on a single reading; the final frame of
			// the window is the settled one.
			return feature.ContrastRatio(frames[len(frames)-1]), nil, nil
		default:
			return feature.MeanLuminance(frames), nil, nil
		}

	case PrimitiveFacePresence:
		cam, err := r.sources.Camera(ctx)
		if err != nil {
			return 0, nil, err
		}
		detector, ok := cam.(sensor.FaceDetector)
		if !ok {
			return 0, nil, &sensor.CapabilityError{Capability: "face detection"}
		}
		log.Debug("mission_state", slog.String("state", string(StateSampling)))
		detections, err := sampling.Collect(ctx, window, func(context.Context) ([]sensor.FaceBox, error) {
			return detector.DetectFaces()
		})
		if err != nil {
			return 0, nil, err
		}
		best := 0
		var box *sensor.FaceBox
		for _, faces := range detections {
			if len(faces) > best {
				best = len(faces)
				b := faces[0]
				box = &b
			}
		}
		var diags []string
		if box != nil {
			diags = append(diags, fmt.Sprintf("face at (%d,%d) %dx%d", box.X, box.Y, box.Width, box.Height))
		}
		return float64(best), diags, nil

	case PrimitiveSoundLevel, PrimitiveClapPeaks:
		mic, err := r.sources.Microphone(ctx, r.micWindow)
		if err != nil {
			return 0, nil, err
		}
		log.Debug("mission_state", slog.String("state", string(StateSampling)))
		buffers, err := sampling.Collect(ctx, window, func(context.Context) ([]byte, error) {
			return mic.AudioBuffer()
		})
		if err != nil {
			return 0, nil, err
		}
		log.Debug("mission_state", slog.String("state", string(StateReducing)))
		if phase.Primitive == PrimitiveClapPeaks {
			return float64(feature.ClapPeaks(buffers, feature.DefaultClapSpike)), nil, nil
		}
		return feature.SoundRMS(buffers), nil, nil

	case PrimitiveMotionCount:
		mo, err := r.sources.Motion(ctx)
		if err != nil {
			return 0, nil, err
		}
		counter := feature.NewMotionCounter()
		cancel, err := mo.Subscribe(counter.Observe)
		if err != nil {
			return 0, nil, err
		}
		defer cancel()
		log.Debug("mission_state", slog.String("state", string(StateSampling)))
		if err := sampling.Wait(ctx, window.Duration); err != nil {
			return 0, nil, err
		}
		return float64(counter.Count()), nil, nil

	case PrimitiveOrientationDelta:
		axis, err := phase.ResolveAxis()
		if err != nil {
			return 0, nil, err
		}
		log.Debug("mission_state", slog.String("state", string(StateSampling)))
		first, err := r.sources.Orientation(ctx, window.Duration)
		if err != nil {
			return 0, nil, err
		}
		if err := sampling.Wait(ctx, window.Interval); err != nil {
			return 0, nil, err
		}
		second, err := r.sources.Orientation(ctx, window.Duration)
		if err != nil {
			return 0, nil, err
		}
		delta, ok := feature.OrientationDelta(first, second, axis)
		if !ok {
			return 0, nil, &sensor.UnavailableError{Kind: sensor.KindOrientation, Cause: errors.New("no orientation event before timeout")}
		}
		return delta, []string{fmt.Sprintf("%s delta over %s", axis, window.Interval)}, nil

	case PrimitiveGeoDisplacement:
		log.Debug("mission_state", slog.String("state", string(StateSampling)))
		first, err := r.sources.Location(ctx, window.Duration)
		if err != nil {
			return 0, nil, err
		}
		if err := sampling.Wait(ctx, window.Interval); err != nil {
			return 0, nil, err
		}
		second, err := r.sources.Location(ctx, window.Duration)
		if err != nil {
			return 0, nil, err
		}
		if first == nil || second == nil {
			return 0, nil, &sensor.UnavailableError{Kind: sensor.KindGeolocation, Cause: errors.New("no fix before timeout")}
		}
		return feature.GeoDisplacement(*first, *second), nil, nil
	}

	return 0, nil, fmt.Errorf("unknown primitive %q", phase.Primitive)
}

func isSensorFailure(err error) bool {
	var unavailable *sensor.UnavailableError
	var capability *sensor.CapabilityError
	return errors.As(err, &unavailable) || errors.As(err, &capability)
}

// contextCause returns the context error when err stems from cancellation
// or deadline expiry, nil otherwise.
func contextCause(err error) error {
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return context.DeadlineExceeded
	}
	return nil
}

func passFail(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}
