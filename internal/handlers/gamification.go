package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/insights"
	mw "github.com/Shreya-nipunge/Glowra/internal/middleware"
)

type GamificationHandler struct {
	insights *insights.Summarizer
	log      *zap.Logger
}

func NewGamificationHandler(insights *insights.Summarizer, log *zap.Logger) *GamificationHandler {
	return &GamificationHandler{insights: insights, log: log}
}

// Badges awards any badges the user has become eligible for, then lists them.
func (h *GamificationHandler) Badges(w http.ResponseWriter, r *http.Request) {
	board, err := h.insights.Badges(r.Context(), mw.UserID(r.Context()))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, board, "")
}

func (h *GamificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.insights.Stats(r.Context(), mw.UserID(r.Context()))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, stats, "")
}
