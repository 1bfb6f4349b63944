package score

import (
	"testing"
	"time"

	"sensorquest/internal/mission"
)

func verdict(id int, outcome mission.Outcome) mission.Verdict {
	return mission.Verdict{
		MissionID: id,
		Outcome:   outcome,
		Available: outcome != mission.OutcomeUnavailable,
		StartedAt: time.Now().UTC(),
		Elapsed:   2 * time.Second,
	}
}

func TestManagerTallies(t *testing.T) {
	m := NewManager(10, nil)
	m.Record(verdict(1, mission.OutcomePassed))
	m.Record(verdict(2, mission.OutcomeFailed))
	m.Record(verdict(3, mission.OutcomeUnavailable))

	s := m.Snapshot()
	if s.Tally.Passed != 1 || s.Tally.Failed != 1 || s.Tally.Unavailable != 1 {
		t.Fatalf("tally = %+v, want one of each", s.Tally)
	}
	if s.Tally.Attempts() != 3 {
		t.Fatalf("attempts = %d, want 3", s.Tally.Attempts())
	}
}

func TestStreakResetsOnFailureAndUnavailability(t *testing.T) {
	m := NewManager(10, nil)
	m.Record(verdict(1, mission.OutcomePassed))
	m.Record(verdict(2, mission.OutcomePassed))
	if s := m.Snapshot(); s.Streak != 2 || s.BestStreak != 2 {
		t.Fatalf("streak = %d best = %d, want 2/2", s.Streak, s.BestStreak)
	}

	m.Record(verdict(3, mission.OutcomeFailed))
	if s := m.Snapshot(); s.Streak != 0 || s.BestStreak != 2 {
		t.Fatalf("after failure streak = %d best = %d, want 0/2", s.Streak, s.BestStreak)
	}

	m.Record(verdict(4, mission.OutcomePassed))
	m.Record(verdict(5, mission.OutcomeUnavailable))
	if s := m.Snapshot(); s.Streak != 0 {
		t.Fatalf("unavailable run kept streak = %d alive", s.Streak)
	}
}

func TestRerunReplacesStanding(t *testing.T) {
	m := NewManager(4, nil)
	m.Record(verdict(7, mission.OutcomeFailed))
	m.Record(verdict(7, mission.OutcomePassed))

	s := m.Snapshot()
	if len(s.Results) != 1 {
		t.Fatalf("board has %d entries after a rerun, want 1", len(s.Results))
	}
	if s.Results[0].Outcome != mission.OutcomePassed {
		t.Fatalf("latest standing = %s, want the rerun's pass", s.Results[0].Outcome)
	}
	if s.Cleared != 1 || s.CompletionPct != 25 {
		t.Fatalf("cleared = %d pct = %v, want 1 and 25%%", s.Cleared, s.CompletionPct)
	}
	// The failed attempt still counts in the tally.
	if s.Tally.Attempts() != 2 {
		t.Fatalf("attempts = %d, want both runs counted", s.Tally.Attempts())
	}
}

func TestSnapshotOrderedAndDetached(t *testing.T) {
	m := NewManager(10, nil)
	for _, id := range []int{9, 2, 5} {
		m.Record(verdict(id, mission.OutcomePassed))
	}

	s := m.Snapshot()
	for i, want := range []int{2, 5, 9} {
		if s.Results[i].MissionID != want {
			t.Fatalf("results[%d] = mission %d, want %d", i, s.Results[i].MissionID, want)
		}
	}

	s.Results[0].Outcome = mission.OutcomeFailed
	if again := m.Snapshot(); again.Results[0].Outcome != mission.OutcomePassed {
		t.Fatal("snapshot shares storage with the board")
	}
}
