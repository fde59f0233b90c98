package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	mw "github.com/Shreya-nipunge/Glowra/internal/middleware"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

// AuthHandler serves the identity side of the API. Tokens are issued by the
// identity provider; this service only verifies them.
type AuthHandler struct {
	ledger *gamification.Ledger
	log    *zap.Logger
}

func NewAuthHandler(ledger *gamification.Ledger, log *zap.Logger) *AuthHandler {
	return &AuthHandler{ledger: ledger, log: log}
}

type verifyResponse struct {
	User  models.Identity         `json:"user"`
	Stats models.ProgressionState `json:"stats"`
	Level int                     `json:"level"`
}

// Verify echoes the authenticated identity with the user's progression.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, _ := mw.IdentityFrom(r.Context())
	state, err := h.ledger.Get(r.Context(), id.UserID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, verifyResponse{
		User:  id,
		Stats: state,
		Level: gamification.Level(state.Points),
	}, "Token verified")
}
