package mission

import (
	"context"
	"log/slog"
	"sync"

	"sensorquest/internal/sampling"
)

// runComposite fans the mission's phases out as concurrent pipelines, each
// bounded by its own window and optionally offset by its delay, and joins
// the results with logical AND. Any failed or unavailable phase makes the
// composite fail; the composite itself is unavailable only when no phase
// could measure at all. Diagnostics from every phase are concatenated in
// phase order, and the first phase's measurement is surfaced as the
// composite's headline value.
func (r *Runner) runComposite(ctx context.Context, spec Spec) phaseResult {
	results := make([]phaseResult, len(spec.Phases))
	var wg sync.WaitGroup
	for i, phase := range spec.Phases {
		wg.Add(1)
		go func(i int, phase Phase) {
			defer wg.Done()
			if delay := phase.Delay(); delay > 0 {
				if err := sampling.Wait(ctx, delay); err != nil {
					results[i] = unavailableResult(phase, err)
					return
				}
			}
			results[i] = r.runPhase(ctx, phase)
		}(i, phase)
	}
	wg.Wait()

	joined := phaseResult{passed: true}
	anyAvailable := false
	for i, res := range results {
		joined.diags = append(joined.diags, res.diags...)
		if res.available {
			anyAvailable = true
			if i == 0 {
				joined.measured = res.measured
			}
		}
		if !res.available || !res.passed {
			joined.passed = false
		}
		if res.err != nil && joined.err == nil {
			joined.err = res.err
		}
	}
	joined.available = anyAvailable
	if !anyAvailable {
		joined.passed = false
	}

	r.log.Info("composite_joined",
		slog.Int("mission_id", spec.ID),
		slog.Int("phases", len(spec.Phases)),
		slog.Bool("passed", joined.passed),
	)
	return joined
}
