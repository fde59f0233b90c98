package handlers

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/activity"
	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/insights"
	mw "github.com/Shreya-nipunge/Glowra/internal/middleware"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

type ProgressHandler struct {
	activity *activity.Service
	insights *insights.Summarizer
	log      *zap.Logger
}

func NewProgressHandler(activity *activity.Service, insights *insights.Summarizer, log *zap.Logger) *ProgressHandler {
	return &ProgressHandler{activity: activity, insights: insights, log: log}
}

type moodLogRequest struct {
	Mood   string `json:"mood"`
	Energy *int   `json:"energy"`
	Stress *int   `json:"stress"`
	Note   string `json:"note"`
}

func (req moodLogRequest) payload() (models.MoodPayload, error) {
	switch {
	case req.Mood == "":
		return models.MoodPayload{}, fmt.Errorf("%w: missing required field: mood", models.ErrValidation)
	case req.Energy == nil:
		return models.MoodPayload{}, fmt.Errorf("%w: missing required field: energy", models.ErrValidation)
	case req.Stress == nil:
		return models.MoodPayload{}, fmt.Errorf("%w: missing required field: stress", models.ErrValidation)
	}
	return models.MoodPayload{
		Mood:   models.Mood(req.Mood),
		Energy: *req.Energy,
		Stress: *req.Stress,
		Note:   req.Note,
	}, nil
}

type moodLogResponse struct {
	LogID        string               `json:"log_id"`
	Mood         models.Mood          `json:"mood"`
	Energy       int                  `json:"energy"`
	Stress       int                  `json:"stress"`
	PointsEarned int                  `json:"points_earned"`
	TotalPoints  int                  `json:"total_points"`
	StreakDays   int                  `json:"streak_days"`
	NewBadges    []gamification.Badge `json:"new_badges"`
	Timestamp    string               `json:"timestamp"`
}

// CreateMoodLog records a mood check-in.
func (h *ProgressHandler) CreateMoodLog(w http.ResponseWriter, r *http.Request) {
	user := mw.UserID(r.Context())
	var req moodLogRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	payload, err := req.payload()
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	res, err := h.activity.LogMood(r.Context(), user, payload)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.insights.Invalidate(user)

	mood := res.Event.Mood
	respondOK(w, moodLogResponse{
		LogID:        res.Event.ID,
		Mood:         mood.Mood,
		Energy:       mood.Energy,
		Stress:       mood.Stress,
		PointsEarned: res.PointsEarned,
		TotalPoints:  res.TotalPoints,
		StreakDays:   res.StreakDays,
		NewBadges:    res.NewBadges,
		Timestamp:    res.Event.Timestamp.UTC().Format(time.RFC3339),
	}, "Mood log created successfully")
}

type moodLogsResponse struct {
	Logs   []moodLogDTO `json:"logs"`
	Total  int          `json:"total"`
	Period struct {
		From *string `json:"from"`
		To   *string `json:"to"`
	} `json:"period"`
}

// ListMoodLogs accepts optional from, to and limit query parameters.
func (h *ProgressHandler) ListMoodLogs(w http.ResponseWriter, r *http.Request) {
	user := mw.UserID(r.Context())
	from, err := queryTime(r, "from")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	logs, err := h.activity.MoodLogs(r.Context(), user, from, to, limit)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	var res moodLogsResponse
	res.Logs = make([]moodLogDTO, 0, len(logs))
	for _, e := range logs {
		res.Logs = append(res.Logs, toMoodLogDTO(e))
	}
	res.Total = len(res.Logs)
	res.Period.From = timePtr(from)
	res.Period.To = timePtr(to)
	respondOK(w, res, "")
}

func (h *ProgressHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	weekly, err := h.insights.Weekly(r.Context(), mw.UserID(r.Context()))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, weekly, "")
}

// Insights takes an optional days parameter (default 30, at most 90).
func (h *ProgressHandler) Insights(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	out, err := h.insights.Period(r.Context(), mw.UserID(r.Context()), days)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, out, "")
}

// Import backfills historical moods and journal entries.
func (h *ProgressHandler) Import(w http.ResponseWriter, r *http.Request) {
	user := mw.UserID(r.Context())
	var batch activity.ImportBatch
	if err := decodeBody(w, r, &batch); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	res, err := h.activity.Import(r.Context(), user, batch)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.insights.Invalidate(user)
	respondOK(w, res, "Import completed")
}
