package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/chat"
	"github.com/Shreya-nipunge/Glowra/internal/insights"
	mw "github.com/Shreya-nipunge/Glowra/internal/middleware"
)

type ChatHandler struct {
	chat     *chat.Service
	insights *insights.Summarizer
	log      *zap.Logger
}

func NewChatHandler(chat *chat.Service, insights *insights.Summarizer, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, insights: insights, log: log}
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	user := mw.UserID(r.Context())
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	res, err := h.chat.Send(r.Context(), user, req.ConversationID, req.Message)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	h.insights.Invalidate(user)
	respondOK(w, res, "Chat response generated")
}

func (h *ChatHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	list, err := h.chat.Conversations(r.Context(), mw.UserID(r.Context()), limit)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, map[string]any{"conversations": list, "total": len(list)}, "")
}

func (h *ChatHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	c, err := h.chat.Conversation(r.Context(), mw.UserID(r.Context()), chi.URLParam(r, "conversationID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, c, "")
}

func (h *ChatHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	s, err := h.chat.Suggestions(r.Context(), mw.UserID(r.Context()))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, s, "")
}
