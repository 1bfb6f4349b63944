// Package score keeps the in-memory session scoreboard. It records one
// verdict per completed mission run and aggregates tallies, streaks, and
// completion for the UI and HTTP surfaces. Nothing here is persisted; the
// scoreboard lives and dies with the session.
package score

import (
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"sensorquest/internal/mission"
)

// Tally counts terminal outcomes across the session. Unavailable runs score
// like failures but are tracked separately so the UI can render a distinct
// message.
type Tally struct {
	Passed      int
	Failed      int
	Unavailable int
}

// Attempts is the total number of recorded runs.
func (t Tally) Attempts() int {
	return t.Passed + t.Failed + t.Unavailable
}

// Result is one mission's latest standing on the board.
type Result struct {
	MissionID int
	Outcome   mission.Outcome
	Measured  float64
	Available bool
	At        time.Time
}

// Summary is a consistent snapshot of the scoreboard.
type Summary struct {
	GeneratedAt   time.Time
	Tally         Tally
	Streak        int
	BestStreak    int
	Cleared       int
	Total         int
	CompletionPct float64
	Results       []Result
}

// Manager aggregates verdicts for one session. Re-running a mission
// replaces its standing; a mission counts as cleared once its latest
// outcome is a pass. Safe for concurrent use.
type Manager struct {
	log   *slog.Logger
	total int

	mu         sync.RWMutex
	results    map[int]Result
	tally      Tally
	streak     int
	bestStreak int
}

// NewManager wires a scoreboard sized to the catalog.
func NewManager(totalMissions int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Manager{
		log:     logger.With(slog.String("component", "scoreboard")),
		total:   totalMissions,
		results: make(map[int]Result, totalMissions),
	}
}

// Record folds one verdict into the board. Only the boolean pass bit
// affects scoring; measured values are retained for display.
func (m *Manager) Record(v mission.Verdict) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch v.Outcome {
	case mission.OutcomePassed:
		m.tally.Passed++
		m.streak++
		if m.streak > m.bestStreak {
			m.bestStreak = m.streak
		}
	case mission.OutcomeUnavailable:
		m.tally.Unavailable++
		m.streak = 0
	default:
		m.tally.Failed++
		m.streak = 0
	}

	m.results[v.MissionID] = Result{
		MissionID: v.MissionID,
		Outcome:   v.Outcome,
		Measured:  v.Measured,
		Available: v.Available,
		At:        v.StartedAt.Add(v.Elapsed),
	}

	m.log.Info("score_recorded",
		slog.Int("mission_id", v.MissionID),
		slog.String("outcome", string(v.Outcome)),
		slog.Int("streak", m.streak),
	)
}

// Snapshot returns a defensive copy of the board with results ordered by
// mission id.
func (m *Manager) Snapshot() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Result, 0, len(m.results))
	cleared := 0
	for _, r := range m.results {
		results = append(results, r)
		if r.Outcome == mission.OutcomePassed {
			cleared++
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].MissionID < results[j].MissionID })

	pct := 0.0
	if m.total > 0 {
		pct = 100 * float64(cleared) / float64(m.total)
	}
	return Summary{
		GeneratedAt:   time.Now().UTC(),
		Tally:         m.tally,
		Streak:        m.streak,
		BestStreak:    m.bestStreak,
		Cleared:       cleared,
		Total:         m.total,
		CompletionPct: pct,
		Results:       results,
	}
}
