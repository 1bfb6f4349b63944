// Package httpapi exposes the read-mostly diagnostics surface: mission
// roster, mission runs, scoreboard, health probes, and metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"sensorquest/internal/mission"
	"sensorquest/internal/score"
)

// missionDTO is the wire shape for one roster entry.
type missionDTO struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Composite   bool       `json:"composite"`
	Phases      []phaseDTO `json:"phases"`
}

type phaseDTO struct {
	Primitive  string `json:"primitive"`
	Channel    string `json:"channel,omitempty"`
	Axis       string `json:"axis,omitempty"`
	DurationMs int    `json:"durationMs"`
	IntervalMs int    `json:"intervalMs"`
	Compare    string `json:"compare"`
	DelayMs    int    `json:"delayMs,omitempty"`
}

type verdictDTO struct {
	RunID       string   `json:"runId"`
	MissionID   int      `json:"missionId"`
	Outcome     string   `json:"outcome"`
	Passed      bool     `json:"passed"`
	Measured    *float64 `json:"measured,omitempty"`
	Diagnostics []string `json:"diagnostics"`
	ElapsedMs   int64    `json:"elapsedMs"`
}

type errorDTO struct {
	Error string `json:"error"`
}

func toMissionDTO(spec mission.Spec) missionDTO {
	dto := missionDTO{
		ID:          spec.ID,
		Title:       spec.Title,
		Description: spec.Description,
		Composite:   spec.Composite(),
	}
	for _, phase := range spec.Phases {
		dto.Phases = append(dto.Phases, phaseDTO{
			Primitive:  string(phase.Primitive),
			Channel:    phase.Channel,
			Axis:       phase.Axis,
			DurationMs: phase.Window.DurationMs,
			IntervalMs: phase.Window.IntervalMs,
			Compare:    phase.Compare.String(),
			DelayMs:    phase.DelayMs,
		})
	}
	return dto
}

func toVerdictDTO(v mission.Verdict) verdictDTO {
	dto := verdictDTO{
		RunID:       v.RunID,
		MissionID:   v.MissionID,
		Outcome:     string(v.Outcome),
		Passed:      v.Passed(),
		Diagnostics: v.Diagnostics,
		ElapsedMs:   v.Elapsed.Milliseconds(),
	}
	// An unavailable measurement is omitted rather than serialized as 0.
	if v.Available {
		measured := v.Measured
		dto.Measured = &measured
	}
	return dto
}

// Handlers carries the collaborators the routes need.
type Handlers struct {
	log     *slog.Logger
	session gameSession
	ready   func() bool
}

// gameSession is the subset of the game session the HTTP layer uses. The
// small interface keeps the router agnostic to the concrete session type.
type gameSession interface {
	Catalog() *mission.Catalog
	Scores() *score.Manager
	RunMission(ctx context.Context, id int) (mission.Verdict, error)
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("write_response_failed", slog.Any("err", err))
	}
}

func (h *Handlers) listMissions(w http.ResponseWriter, r *http.Request) {
	specs := h.session.Catalog().Missions()
	out := make([]missionDTO, 0, len(specs))
	for _, spec := range specs {
		out = append(out, toMissionDTO(spec))
	}
	writeJSON(w, h.log, http.StatusOK, out)
}

func (h *Handlers) getMission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, h.log, http.StatusBadRequest, errorDTO{Error: "invalid mission id"})
		return
	}
	spec, ok := h.session.Catalog().ByID(id)
	if !ok {
		writeJSON(w, h.log, http.StatusNotFound, errorDTO{Error: "unknown mission"})
		return
	}
	writeJSON(w, h.log, http.StatusOK, toMissionDTO(spec))
}

func (h *Handlers) runMission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, h.log, http.StatusBadRequest, errorDTO{Error: "invalid mission id"})
		return
	}
	verdict, err := h.session.RunMission(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, mission.ErrMissionInFlight):
			writeJSON(w, h.log, http.StatusConflict, errorDTO{Error: err.Error()})
		default:
			writeJSON(w, h.log, http.StatusNotFound, errorDTO{Error: err.Error()})
		}
		return
	}
	writeJSON(w, h.log, http.StatusOK, toVerdictDTO(verdict))
}

type scoreDTO struct {
	GeneratedAt   time.Time        `json:"generatedAt"`
	Passed        int              `json:"passed"`
	Failed        int              `json:"failed"`
	Unavailable   int              `json:"unavailable"`
	Streak        int              `json:"streak"`
	BestStreak    int              `json:"bestStreak"`
	Cleared       int              `json:"cleared"`
	Total         int              `json:"total"`
	CompletionPct float64          `json:"completionPct"`
	Results       []scoreResultDTO `json:"results"`
}

type scoreResultDTO struct {
	MissionID int      `json:"missionId"`
	Outcome   string   `json:"outcome"`
	Measured  *float64 `json:"measured,omitempty"`
}

func (h *Handlers) getScore(w http.ResponseWriter, r *http.Request) {
	summary := h.session.Scores().Snapshot()
	dto := scoreDTO{
		GeneratedAt:   summary.GeneratedAt,
		Passed:        summary.Tally.Passed,
		Failed:        summary.Tally.Failed,
		Unavailable:   summary.Tally.Unavailable,
		Streak:        summary.Streak,
		BestStreak:    summary.BestStreak,
		Cleared:       summary.Cleared,
		Total:         summary.Total,
		CompletionPct: summary.CompletionPct,
	}
	for _, res := range summary.Results {
		entry := scoreResultDTO{MissionID: res.MissionID, Outcome: string(res.Outcome)}
		if res.Available {
			measured := res.Measured
			entry.Measured = &measured
		}
		dto.Results = append(dto.Results, entry)
	}
	writeJSON(w, h.log, http.StatusOK, dto)
}

func (h *Handlers) healthLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handlers) healthReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.ready != nil && !h.ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("NOT_READY"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
