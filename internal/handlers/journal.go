package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/activity"
	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/insights"
	mw "github.com/Shreya-nipunge/Glowra/internal/middleware"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

type JournalHandler struct {
	activity *activity.Service
	insights *insights.Summarizer
	log      *zap.Logger
}

func NewJournalHandler(activity *activity.Service, insights *insights.Summarizer, log *zap.Logger) *JournalHandler {
	return &JournalHandler{activity: activity, insights: insights, log: log}
}

type journalRequest struct {
	Text string `json:"text"`
}

type journalResponse struct {
	EntryID      string                `json:"entry_id"`
	Insight      models.JournalInsight `json:"ai_insight"`
	WordCount    int                   `json:"word_count"`
	CharCount    int                   `json:"char_count"`
	PointsEarned int                   `json:"points_earned"`
	TotalPoints  int                   `json:"total_points"`
	StreakDays   int                   `json:"streak_days"`
	NewBadges    []gamification.Badge  `json:"new_badges"`
	Timestamp    string                `json:"timestamp"`
}

func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := mw.UserID(r.Context())
	var req journalRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	res, err := h.activity.LogJournal(r.Context(), user, req.Text)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.insights.Invalidate(user)

	j := res.Event.Journal
	respondOK(w, journalResponse{
		EntryID:      res.Event.ID,
		Insight:      j.Insight,
		WordCount:    j.WordCount,
		CharCount:    j.CharCount,
		PointsEarned: res.PointsEarned,
		TotalPoints:  res.TotalPoints,
		StreakDays:   res.StreakDays,
		NewBadges:    res.NewBadges,
		Timestamp:    res.Event.Timestamp.UTC().Format(time.RFC3339),
	}, "Journal entry created successfully")
}

func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	entries, err := h.activity.Journals(r.Context(), mw.UserID(r.Context()), limit)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	out := make([]journalDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toJournalDTO(e))
	}
	respondOK(w, map[string]any{"entries": out, "total": len(out)}, "")
}

func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.activity.Journal(r.Context(), mw.UserID(r.Context()), chi.URLParam(r, "entryID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, toJournalDTO(e), "")
}

func (h *JournalHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.activity.JournalSummary(r.Context(), mw.UserID(r.Context()))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, summary, "")
}
