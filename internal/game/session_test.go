package game

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"sensorquest/internal/metrics"
	"sensorquest/internal/mission"
	"sensorquest/internal/platform"
)

const testRoster = `
- id: 1
  title: Lights Out
  phases:
    - primitive: brightness
      window: {duration_ms: 60, interval_ms: 20}
      compare: {kind: lt, threshold: 35}
- id: 2
  title: Spotlight
  phases:
    - primitive: brightness
      window: {duration_ms: 60, interval_ms: 20}
      compare: {kind: gt, threshold: 180}
`

func newTestSession(t *testing.T, cfg platform.Config) *Session {
	t.Helper()
	catalog, err := mission.ParseCatalog([]byte(testRoster))
	if err != nil {
		t.Fatalf("parse roster: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
	s := New(platform.NewSimulated(cfg), catalog, logger, metrics.New())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunMissionRecordsScore(t *testing.T) {
	s := newTestSession(t, platform.Config{Camera: platform.CameraProfile{Width: 16, Height: 12}})

	v, err := s.RunMission(context.Background(), 1)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.Outcome != mission.OutcomePassed {
		t.Fatalf("outcome = %s, want passed on a dark feed", v.Outcome)
	}

	summary := s.Scores().Snapshot()
	if summary.Tally.Passed != 1 || summary.Cleared != 1 {
		t.Fatalf("scoreboard = %+v, want the verdict recorded", summary.Tally)
	}
}

func TestRunMissionUnknownID(t *testing.T) {
	s := newTestSession(t, platform.Config{})
	if _, err := s.RunMission(context.Background(), 99); err == nil {
		t.Fatal("unknown mission ran")
	}
	if summary := s.Scores().Snapshot(); summary.Tally.Attempts() != 0 {
		t.Fatal("failed lookup left a mark on the scoreboard")
	}
}

func TestFailedRunStillScored(t *testing.T) {
	s := newTestSession(t, platform.Config{Camera: platform.CameraProfile{Width: 16, Height: 12}})

	v, err := s.RunMission(context.Background(), 2)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.Outcome != mission.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed (dark feed, gt threshold)", v.Outcome)
	}
	if summary := s.Scores().Snapshot(); summary.Tally.Failed != 1 {
		t.Fatalf("scoreboard = %+v, want the failure recorded", summary.Tally)
	}
}
