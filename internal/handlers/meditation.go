package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/insights"
	"github.com/Shreya-nipunge/Glowra/internal/meditation"
	mw "github.com/Shreya-nipunge/Glowra/internal/middleware"
)

type MeditationHandler struct {
	meditation *meditation.Service
	insights   *insights.Summarizer
	log        *zap.Logger
}

func NewMeditationHandler(meditation *meditation.Service, insights *insights.Summarizer, log *zap.Logger) *MeditationHandler {
	return &MeditationHandler{meditation: meditation, insights: insights, log: log}
}

func (h *MeditationHandler) Start(w http.ResponseWriter, r *http.Request) {
	sess, err := h.meditation.Start(r.Context(), mw.UserID(r.Context()), chi.URLParam(r, "meditationID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, sess, "Meditation session started")
}

func (h *MeditationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	user := mw.UserID(r.Context())
	var req meditation.Completion
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	res, err := h.meditation.Complete(r.Context(), user, chi.URLParam(r, "sessionID"), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.insights.Invalidate(user)
	respondOK(w, res, "Meditation session completed")
}

func (h *MeditationHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	hist, err := h.meditation.History(r.Context(), mw.UserID(r.Context()), limit)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, hist, "")
}
