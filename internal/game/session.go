// Package game owns the per-session context: the sensor registry, the
// mission runner, and the scoreboard. All state that used to be ambient in
// the original game lives here and is released when the session closes.
package game

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"sensorquest/internal/metrics"
	"sensorquest/internal/mission"
	"sensorquest/internal/score"
	"sensorquest/internal/sensor"
)

// Session ties one player's run of the game together. Camera and
// microphone handles are shared across all missions in the session through
// the registry; Close releases everything.
type Session struct {
	catalog *mission.Catalog
	sources *sensor.Registry
	runner  *mission.Runner
	scores  *score.Manager
	log     *slog.Logger
}

// New wires a session over the platform collaborator.
func New(platform sensor.Platform, catalog *mission.Catalog, logger *slog.Logger, m *metrics.Metrics) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	sources := sensor.NewRegistry(platform, logger)
	sources.Notify = func(kind sensor.Kind, active bool) {
		m.HandleActive(string(kind), active)
	}
	return &Session{
		catalog: catalog,
		sources: sources,
		runner:  mission.NewRunner(sources, logger, m),
		scores:  score.NewManager(catalog.Len(), logger),
		log:     logger.With(slog.String("component", "session")),
	}
}

// SetMicWindow overrides the microphone analysis buffer length for the
// session.
func (s *Session) SetMicWindow(n int) {
	s.runner.SetMicWindow(n)
}

// Catalog exposes the immutable mission roster.
func (s *Session) Catalog() *mission.Catalog {
	return s.catalog
}

// Scores exposes the session scoreboard.
func (s *Session) Scores() *score.Manager {
	return s.scores
}

// RunMission executes one attempt of the identified mission and records
// the verdict on the scoreboard. A run started while another is in flight
// fails with mission.ErrMissionInFlight.
func (s *Session) RunMission(ctx context.Context, id int) (mission.Verdict, error) {
	spec, ok := s.catalog.ByID(id)
	if !ok {
		return mission.Verdict{}, fmt.Errorf("unknown mission %d", id)
	}
	verdict, err := s.runner.Run(ctx, spec)
	if err != nil {
		return mission.Verdict{}, err
	}
	s.scores.Record(verdict)
	return verdict, nil
}

// Close releases every live sensor handle held by the session.
func (s *Session) Close() error {
	s.log.Info("session_closed")
	return s.sources.Close()
}
