package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/insights"
	mw "github.com/Shreya-nipunge/Glowra/internal/middleware"
	"github.com/Shreya-nipunge/Glowra/internal/models"
	"github.com/Shreya-nipunge/Glowra/internal/planner"
)

type PlannerHandler struct {
	engine   *planner.Engine
	insights *insights.Summarizer
	log      *zap.Logger
}

func NewPlannerHandler(engine *planner.Engine, insights *insights.Summarizer, log *zap.Logger) *PlannerHandler {
	return &PlannerHandler{engine: engine, insights: insights, log: log}
}

// Today returns the plan for today, generating it on first access.
func (h *PlannerHandler) Today(w http.ResponseWriter, r *http.Request) {
	h.plan(w, r, "")
}

// ForDate returns the plan for the YYYY-MM-DD date in the path.
func (h *PlannerHandler) ForDate(w http.ResponseWriter, r *http.Request) {
	h.plan(w, r, chi.URLParam(r, "date"))
}

func (h *PlannerHandler) plan(w http.ResponseWriter, r *http.Request, date string) {
	user := mw.UserID(r.Context())
	p, err := h.engine.GetOrGenerate(r.Context(), user, date)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, toPlanDTO(p), "")
}

type taskStatusResponse struct {
	TaskID         string               `json:"task_id"`
	Status         models.TaskStatus    `json:"status"`
	PointsEarned   int                  `json:"points_earned"`
	TotalPoints    int                  `json:"total_points,omitempty"`
	TotalCompleted int                  `json:"total_completed"`
	StreakDays     int                  `json:"streak_days,omitempty"`
	NewBadges      []gamification.Badge `json:"new_badges,omitempty"`
}

// CompleteTask completes a task of today's plan, or of the plan given by the
// date query parameter.
func (h *PlannerHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	user := mw.UserID(r.Context())
	taskID := chi.URLParam(r, "taskID")

	res, err := h.engine.CompleteTask(r.Context(), user, r.URL.Query().Get("date"), taskID)
	if errors.Is(err, models.ErrAlreadyTerminal) {
		respondFail(w, http.StatusConflict, taskStatusResponse{
			TaskID:         taskID,
			Status:         res.Task.Status,
			TotalCompleted: res.Plan.CompletedCount(),
		}, "Task is already "+string(res.Task.Status))
		return
	}
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.insights.Invalidate(user)

	respondOK(w, taskStatusResponse{
		TaskID:         taskID,
		Status:         res.Task.Status,
		PointsEarned:   res.PointsEarned,
		TotalPoints:    res.TotalPoints,
		TotalCompleted: res.Plan.CompletedCount(),
		StreakDays:     res.StreakDays,
		NewBadges:      res.NewBadges,
	}, "Task marked as completed")
}

func (h *PlannerHandler) SkipTask(w http.ResponseWriter, r *http.Request) {
	user := mw.UserID(r.Context())
	taskID := chi.URLParam(r, "taskID")

	plan, task, err := h.engine.SkipTask(r.Context(), user, r.URL.Query().Get("date"), taskID)
	if errors.Is(err, models.ErrAlreadyTerminal) {
		respondFail(w, http.StatusConflict, taskStatusResponse{
			TaskID:         taskID,
			Status:         task.Status,
			TotalCompleted: plan.CompletedCount(),
		}, "Task is already "+string(task.Status))
		return
	}
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.insights.Invalidate(user)

	respondOK(w, taskStatusResponse{
		TaskID:         taskID,
		Status:         task.Status,
		TotalCompleted: plan.CompletedCount(),
	}, "Task marked as skipped")
}

// History takes an optional days parameter (default 7, at most 30).
func (h *PlannerHandler) History(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	out, err := h.engine.History(r.Context(), mw.UserID(r.Context()), days)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, out, "")
}
